package store

import (
	"testing"
	"time"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testExam(id string) *model.ExamSession {
	return &model.ExamSession{
		ID:             id,
		Topic:          "python",
		Difficulty:     model.DifficultyMedium,
		Modality:       model.ModalityWritten,
		Category:       model.CategoryConcept,
		Mode:           model.ModePractice,
		TotalQuestions: 3,
		PendingIndex:   0,
		Status:         model.StatusInProgress,
		Questions: []model.QuestionRecord{
			{Pending: true, QuestionText: "What is a decorator?", CorrectAnswer: "A function wrapper"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestExamLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateExam(testExam("exam-1")); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	e, err := s.GetExam("exam-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e == nil {
		t.Fatal("GetExam returned nil for existing exam")
	}
	if e.Topic != "python" || e.Status != model.StatusInProgress {
		t.Errorf("loaded exam = %+v", e)
	}
	if len(e.Questions) != 1 || !e.Questions[0].Pending {
		t.Fatalf("questions round-trip failed: %+v", e.Questions)
	}
	if e.Questions[0].CorrectAnswer != "A function wrapper" {
		t.Errorf("CorrectAnswer = %q", e.Questions[0].CorrectAnswer)
	}
	if e.TimeLimitSeconds != nil {
		t.Errorf("TimeLimitSeconds = %v, want nil", *e.TimeLimitSeconds)
	}

	// Answer the question and complete the exam.
	now := time.Now().UTC()
	e.Questions[0].Pending = false
	e.Questions[0].StudentAnswer = "wraps functions"
	e.Questions[0].Score = 8.0
	e.PendingIndex = -1
	e.CurrentIndex = 1
	e.ScoreTotal = 8.0
	e.Status = model.StatusCompleted
	e.CompletedAt = &now
	if err := s.UpdateExam(e); err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}

	e2, err := s.GetExam("exam-1")
	if err != nil {
		t.Fatalf("GetExam after update: %v", err)
	}
	if e2.Status != model.StatusCompleted || e2.ScoreTotal != 8.0 || e2.PendingIndex != -1 {
		t.Errorf("updated exam = %+v", e2)
	}
	if e2.CompletedAt == nil {
		t.Error("CompletedAt not persisted")
	}
	if e2.Questions[0].Score != 8.0 {
		t.Errorf("question score = %v, want 8.0", e2.Questions[0].Score)
	}
}

func TestGetExamNotFound(t *testing.T) {
	s := newTestStore(t)
	e, err := s.GetExam("missing")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e != nil {
		t.Errorf("GetExam(missing) = %+v, want nil", e)
	}
}

func TestUpdateExamNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateExam(testExam("ghost")); err == nil {
		t.Error("UpdateExam on missing exam should fail")
	}
}

func TestExamTimeLimitRoundTrip(t *testing.T) {
	s := newTestStore(t)
	e := testExam("timed-1")
	limit := 300
	e.Mode = model.ModeTimed
	e.TimeLimitSeconds = &limit
	if err := s.CreateExam(e); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	got, err := s.GetExam("timed-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.TimeLimitSeconds == nil || *got.TimeLimitSeconds != 300 {
		t.Errorf("TimeLimitSeconds = %v, want 300", got.TimeLimitSeconds)
	}
}

func TestListExams(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"e1", "e2", "e3"} {
		e := testExam(id)
		e.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := s.CreateExam(e); err != nil {
			t.Fatalf("CreateExam(%s): %v", id, err)
		}
	}

	exams, err := s.ListExams(0)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 3 {
		t.Fatalf("expected 3 exams, got %d", len(exams))
	}
	if exams[0].ID != "e3" {
		t.Errorf("newest exam first: got %s", exams[0].ID)
	}

	limited, err := s.ListExams(2)
	if err != nil {
		t.Fatalf("ListExams(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 exams with limit, got %d", len(limited))
	}
}

func TestSaveAndListQuestions(t *testing.T) {
	s := newTestStore(t)
	q := model.SavedQuestion{
		ID:            "q-1",
		Topic:         "sql",
		Difficulty:    model.DifficultyEasy,
		Modality:      model.ModalityMultipleChoice,
		Category:      model.CategoryConcept,
		QuestionText:  "Which clause filters rows?",
		CorrectAnswer: "A",
		Options:       map[string]string{"A": "WHERE", "B": "ORDER BY"},
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.SaveQuestion(q); err != nil {
		t.Fatalf("SaveQuestion: %v", err)
	}
	if err := s.SaveQuestion(model.SavedQuestion{
		ID: "q-2", Topic: "go", Difficulty: model.DifficultyHard,
		Modality: model.ModalityWritten, Category: model.CategoryCoding,
		QuestionText: "x", CorrectAnswer: "y", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveQuestion: %v", err)
	}

	all, err := s.ListQuestions("", "", 0)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(all))
	}

	sqlOnly, err := s.ListQuestions("sql", "", 0)
	if err != nil {
		t.Fatalf("ListQuestions(sql): %v", err)
	}
	if len(sqlOnly) != 1 || sqlOnly[0].ID != "q-1" {
		t.Fatalf("topic filter: %+v", sqlOnly)
	}
	if sqlOnly[0].Options["A"] != "WHERE" {
		t.Errorf("options round-trip: %v", sqlOnly[0].Options)
	}

	hardOnly, err := s.ListQuestions("", model.DifficultyHard, 0)
	if err != nil {
		t.Fatalf("ListQuestions(hard): %v", err)
	}
	if len(hardOnly) != 1 || hardOnly[0].ID != "q-2" {
		t.Fatalf("difficulty filter: %+v", hardOnly)
	}
}

func TestSaveAndListSubmissions(t *testing.T) {
	s := newTestStore(t)
	sub := model.SavedSubmission{
		ID:            "s-1",
		Modality:      model.ModalityWritten,
		Question:      "Explain joins.",
		CorrectAnswer: "combine rows",
		StudentAnswer: "merge tables",
		Score:         7.5,
		MaxScore:      10,
		GradeLetter:   "B",
		Passed:        true,
		Mistakes:      []model.Mistake{{Type: "omission", Description: "no outer join"}},
		Strengths:     []string{"clear"},
		Feedback:      "good start",
		Recommendations: []model.Recommendation{
			{Topic: "sql", Action: "practice joins", ResourceType: "exercise"},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveSubmission(sub); err != nil {
		t.Fatalf("SaveSubmission: %v", err)
	}

	subs, err := s.ListSubmissions(0)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(subs))
	}
	got := subs[0]
	if got.Score != 7.5 || got.GradeLetter != "B" || !got.Passed {
		t.Errorf("submission = %+v", got)
	}
	if len(got.Mistakes) != 1 || got.Mistakes[0].Type != "omission" {
		t.Errorf("mistakes round-trip: %+v", got.Mistakes)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0].ResourceType != "exercise" {
		t.Errorf("recommendations round-trip: %+v", got.Recommendations)
	}
}
