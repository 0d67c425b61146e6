package model

import "testing"

func TestLetterForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10.0, "A"},
		{9.0, "A"},
		{8.9, "B"},
		{7.0, "B"},
		{6.9, "C"},
		{5.0, "C"},
		{4.9, "D"},
		{3.0, "D"},
		{2.9, "F"},
		{0.0, "F"},
	}
	for _, tt := range tests {
		if got := LetterForScore(tt.score); got != tt.want {
			t.Errorf("LetterForScore(%.1f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestLetterForPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A"},
		{90, "A"},
		{89.9, "B"},
		{70, "B"},
		{69.9, "C"},
		{50, "C"},
		{49.9, "D"},
		{30, "D"},
		{29.9, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := LetterForPercentage(tt.pct); got != tt.want {
			t.Errorf("LetterForPercentage(%.1f) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(12.5); got != 10.0 {
		t.Errorf("ClampScore(12.5) = %v, want 10.0", got)
	}
	if got := ClampScore(-3.0); got != 0.0 {
		t.Errorf("ClampScore(-3.0) = %v, want 0.0", got)
	}
	if got := ClampScore(7.3); got != 7.3 {
		t.Errorf("ClampScore(7.3) = %v, want 7.3", got)
	}
}

func TestDefaultTimeLimit(t *testing.T) {
	if limit := DefaultTimeLimit(ModePractice); limit != nil {
		t.Errorf("practice mode should have no time limit, got %d", *limit)
	}
	if limit := DefaultTimeLimit(ModeTimed); limit == nil || *limit != 300 {
		t.Errorf("timed mode limit = %v, want 300", limit)
	}
	if limit := DefaultTimeLimit(ModeMock); limit == nil || *limit != 420 {
		t.Errorf("mock mode limit = %v, want 420", limit)
	}
}

func TestPendingRecord(t *testing.T) {
	e := &ExamSession{
		PendingIndex: 1,
		Questions: []QuestionRecord{
			{Pending: false, QuestionText: "q1"},
			{Pending: true, QuestionText: "q2"},
		},
	}
	rec := e.PendingRecord()
	if rec == nil || rec.QuestionText != "q2" {
		t.Fatalf("PendingRecord() = %+v, want q2", rec)
	}

	e.PendingIndex = -1
	if rec := e.PendingRecord(); rec != nil {
		t.Errorf("PendingRecord() with index -1 = %+v, want nil", rec)
	}

	e.PendingIndex = 0
	if rec := e.PendingRecord(); rec != nil {
		t.Errorf("PendingRecord() pointing at answered record = %+v, want nil", rec)
	}
}

func TestBuildSummary(t *testing.T) {
	e := &ExamSession{
		ID:             "exam-1",
		Topic:          "python",
		Difficulty:     DifficultyMedium,
		TotalQuestions: 2,
		ScoreTotal:     10.0,
		Questions: []QuestionRecord{
			{QuestionText: "q1", StudentAnswer: "a", Score: 10.0, IsCorrect: true},
			{QuestionText: "q2", StudentAnswer: "b", Score: 0.0, IsCorrect: false},
		},
	}
	s := BuildSummary(e)
	if s.MaxScore != 20 {
		t.Errorf("MaxScore = %d, want 20", s.MaxScore)
	}
	if s.Percentage != 50.0 {
		t.Errorf("Percentage = %v, want 50.0", s.Percentage)
	}
	if s.GradeLetter != "C" {
		t.Errorf("GradeLetter = %q, want C", s.GradeLetter)
	}
	if !s.Passed {
		t.Error("exam at exactly 50 percent should pass")
	}
	if len(s.Questions) != 2 {
		t.Fatalf("expected 2 summary questions, got %d", len(s.Questions))
	}
}

func TestRedactedHidesCorrectAnswerWhilePending(t *testing.T) {
	q := QuestionRecord{
		Pending:       true,
		QuestionText:  "What is a closure?",
		CorrectAnswer: "secret",
		Options:       map[string]string{"A": "x"},
	}
	v := q.Redacted()
	if v.CorrectAnswer != "" {
		t.Errorf("pending view leaked correct answer %q", v.CorrectAnswer)
	}
	if v.Score != nil || v.IsCorrect != nil {
		t.Error("pending view should not carry score fields")
	}

	q.Pending = false
	q.StudentAnswer = "a function with captured scope"
	q.Score = 8.5
	q.IsCorrect = true
	v = q.Redacted()
	if v.CorrectAnswer != "secret" {
		t.Errorf("answered view CorrectAnswer = %q, want secret", v.CorrectAnswer)
	}
	if v.Score == nil || *v.Score != 8.5 {
		t.Errorf("answered view Score = %v, want 8.5", v.Score)
	}
}

func TestSanitizeStripsOptionsForWritten(t *testing.T) {
	p := QuestionPayload{
		QuestionText:  "explain channels",
		CorrectAnswer: "secret",
		Options:       map[string]string{"A": "x"},
	}
	e := &ExamSession{Modality: ModalityWritten, Topic: "go", Difficulty: DifficultyEasy}
	v := Sanitize(p, e)
	if v.Options != nil {
		t.Error("written question view should not carry options")
	}

	e.Modality = ModalityMultipleChoice
	v = Sanitize(p, e)
	if len(v.Options) != 1 {
		t.Errorf("choice question view options = %v, want 1 entry", v.Options)
	}
}
