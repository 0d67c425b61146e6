// Package exam orchestrates interview practice sessions: it owns the
// session state machine and is the only component that mutates a session.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/hint"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
)

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamCompleted     = errors.New("exam already completed")
	ErrExamNotInProgress = errors.New("exam is not in progress")
	ErrNoPendingQuestion = errors.New("no pending question to act on")
	ErrHintsExhausted    = errors.New("hint limit reached for this question")
	ErrHintsDisabled     = errors.New("hints are not available in timed mode")
)

// Store is the persistence contract for sessions and submissions.
// GetExam returns (nil, nil) when no session has the given ID.
type Store interface {
	CreateExam(e *model.ExamSession) error
	GetExam(id string) (*model.ExamSession, error)
	UpdateExam(e *model.ExamSession) error
	ListExams(limit int) ([]*model.ExamSession, error)
	SaveSubmission(s model.SavedSubmission) error
}

// QuestionGenerator produces the next question for a session.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string, difficulty model.Difficulty, modality model.Modality, category model.Category, history []string) (model.QuestionPayload, error)
}

// AnswerGrader assesses a student answer.
type AnswerGrader interface {
	Grade(ctx context.Context, question, correctAnswer, studentAnswer string, modality model.Modality, options map[string]string) model.GradeResult
}

// HintGenerator produces hint text for a pending question.
type HintGenerator interface {
	Hint(ctx context.Context, questionText string, category model.Category, hintNumber int, codeSnippet string) string
}

// Config holds orchestrator settings.
type Config struct {
	DefaultQuestions int
}

// Orchestrator drives exam sessions. All state transitions for one
// session are serialized through a per-session lock.
type Orchestrator struct {
	store     Store
	generator QuestionGenerator
	grader    AnswerGrader
	hints     HintGenerator
	cfg       Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an exam orchestrator.
func New(store Store, generator QuestionGenerator, grader AnswerGrader, hints HintGenerator, cfg Config) *Orchestrator {
	if cfg.DefaultQuestions <= 0 {
		cfg.DefaultQuestions = 5
	}
	return &Orchestrator{
		store:     store,
		generator: generator,
		grader:    grader,
		hints:     hints,
		cfg:       cfg,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[id]
	if !ok {
		l = &sync.Mutex{}
		o.locks[id] = l
	}
	return l
}

// dropSessionLock removes a completed session's lock entry. A goroutine
// already holding the old mutex pointer still serializes correctly; once
// it proceeds the session is completed and every mutating path refuses it.
func (o *Orchestrator) dropSessionLock(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.locks, id)
}

// StartParams configures a new session. Zero values fall back to
// defaults: NumQuestions to the configured default, TimeLimitSeconds to
// the mode's default.
type StartParams struct {
	Topic            string
	Difficulty       model.Difficulty
	Modality         model.Modality
	Category         model.Category
	Mode             model.Mode
	NumQuestions     int
	TimeLimitSeconds *int
}

// StartResult is the response to starting a session.
type StartResult struct {
	ExamID           string             `json:"exam_id"`
	Question         model.QuestionView `json:"question"`
	CurrentIndex     int                `json:"current_index"`
	TotalQuestions   int                `json:"total_questions"`
	Mode             model.Mode         `json:"mode"`
	TimeLimitSeconds *int               `json:"time_limit_seconds,omitempty"`
}

// Start creates a session and generates its first question. The session
// is not persisted if generation fails.
func (o *Orchestrator) Start(ctx context.Context, p StartParams) (*StartResult, error) {
	n := p.NumQuestions
	if n <= 0 {
		n = o.cfg.DefaultQuestions
	}
	limit := p.TimeLimitSeconds
	if limit == nil {
		limit = model.DefaultTimeLimit(p.Mode)
	}

	session := &model.ExamSession{
		ID:               uuid.NewString(),
		Topic:            p.Topic,
		Difficulty:       p.Difficulty,
		Modality:         p.Modality,
		Category:         p.Category,
		Mode:             p.Mode,
		TimeLimitSeconds: limit,
		TotalQuestions:   n,
		CurrentIndex:     0,
		PendingIndex:     0,
		Status:           model.StatusInProgress,
		CreatedAt:        time.Now().UTC(),
	}

	payload, err := o.generator.Generate(ctx, p.Topic, p.Difficulty, p.Modality, p.Category, nil)
	if err != nil {
		return nil, fmt.Errorf("generate first question: %w", err)
	}
	session.Questions = append(session.Questions, pendingRecord(payload))

	if err := o.store.CreateExam(session); err != nil {
		return nil, fmt.Errorf("persist exam: %w", err)
	}

	return &StartResult{
		ExamID:           session.ID,
		Question:         model.Sanitize(payload, session),
		CurrentIndex:     1,
		TotalQuestions:   session.TotalQuestions,
		Mode:             session.Mode,
		TimeLimitSeconds: session.TimeLimitSeconds,
	}, nil
}

// SubmitResult is the response to answering the pending question. Exactly
// one of NextQuestion and Summary is set: NextQuestion while the exam
// continues, Summary once it completes.
type SubmitResult struct {
	Grade          model.GradeResult   `json:"grading"`
	IsCorrect      bool                `json:"is_correct"`
	CorrectAnswer  string              `json:"correct_answer"`
	Completed      bool                `json:"exam_completed"`
	CurrentIndex   int                 `json:"current_index"`
	TotalQuestions int                 `json:"total_questions"`
	ScoreSoFar     float64             `json:"score_so_far"`
	NextQuestion   *model.QuestionView `json:"next_question,omitempty"`
	Summary        *model.ExamSummary  `json:"summary,omitempty"`
}

// SubmitAnswer grades the pending question, applies the hint penalty,
// advances the session, and either generates the next question or
// completes the exam.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, examID, answer string) (*SubmitResult, error) {
	lock := o.sessionLock(examID)
	lock.Lock()
	defer lock.Unlock()

	session, err := o.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrExamNotFound
	}
	if session.Status == model.StatusCompleted {
		return nil, ErrExamCompleted
	}
	if session.Status != model.StatusInProgress {
		return nil, ErrExamNotInProgress
	}
	rec := session.PendingRecord()
	if rec == nil {
		return nil, ErrNoPendingQuestion
	}

	result := o.grader.Grade(ctx, rec.QuestionText, rec.CorrectAnswer, answer, session.Modality, rec.Options)
	result.Score = hint.ApplyPenalty(result.Score, len(rec.Hints))
	result.Passed = result.Score >= 5.0
	result.GradeLetter = model.LetterForScore(result.Score)

	rec.Pending = false
	rec.StudentAnswer = answer
	rec.Score = result.Score
	rec.IsCorrect = result.Passed
	rec.Feedback = result.Feedback
	rec.Encouragement = result.Encouragement

	session.PendingIndex = -1
	session.CurrentIndex++
	session.ScoreTotal += result.Score

	out := &SubmitResult{
		Grade:          result,
		IsCorrect:      result.Passed,
		CorrectAnswer:  rec.CorrectAnswer,
		CurrentIndex:   session.CurrentIndex,
		TotalQuestions: session.TotalQuestions,
		ScoreSoFar:     model.Round1(session.ScoreTotal),
	}

	if session.CurrentIndex >= session.TotalQuestions {
		now := time.Now().UTC()
		session.Status = model.StatusCompleted
		session.CompletedAt = &now
		out.Completed = true
		out.Summary = model.BuildSummary(session)
	} else {
		payload, err := o.generator.Generate(ctx, session.Topic, session.Difficulty, session.Modality, session.Category, questionHistory(session))
		if err != nil {
			return nil, fmt.Errorf("generate next question: %w", err)
		}
		session.Questions = append(session.Questions, pendingRecord(payload))
		session.PendingIndex = len(session.Questions) - 1
		view := model.Sanitize(payload, session)
		out.NextQuestion = &view
		out.CurrentIndex = session.CurrentIndex + 1
	}

	if err := o.store.UpdateExam(session); err != nil {
		return nil, fmt.Errorf("persist exam: %w", err)
	}
	if out.Completed {
		o.dropSessionLock(session.ID)
	}

	o.saveSubmission(session, rec, result)
	return out, nil
}

// HintResult is the response to a hint request.
type HintResult struct {
	Hint         string  `json:"hint"`
	HintsUsed    int     `json:"hints_used"`
	ScorePenalty float64 `json:"score_penalty"`
}

// RequestHint issues the next hint for the pending question. Timed mode
// refuses hints; each question allows at most three.
func (o *Orchestrator) RequestHint(ctx context.Context, examID string) (*HintResult, error) {
	lock := o.sessionLock(examID)
	lock.Lock()
	defer lock.Unlock()

	session, err := o.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrExamNotFound
	}
	if session.Status != model.StatusInProgress {
		return nil, ErrExamNotInProgress
	}
	if session.Mode == model.ModeTimed {
		return nil, ErrHintsDisabled
	}
	rec := session.PendingRecord()
	if rec == nil {
		return nil, ErrNoPendingQuestion
	}
	n := len(rec.Hints) + 1
	if n > hint.MaxPerQuestion {
		return nil, ErrHintsExhausted
	}

	text := o.hints.Hint(ctx, rec.QuestionText, session.Category, n, rec.CodeSnippet)
	rec.Hints = append(rec.Hints, text)
	session.HintsUsed++

	if err := o.store.UpdateExam(session); err != nil {
		return nil, fmt.Errorf("persist exam: %w", err)
	}

	// HintsUsed is the session-wide total; the penalty is per question.
	return &HintResult{
		Hint:         text,
		HintsUsed:    session.HintsUsed,
		ScorePenalty: math.Round(hint.Penalty(n)*100) / 100,
	}, nil
}

// Detail is the client view of one session.
type Detail struct {
	ExamID           string             `json:"exam_id"`
	Topic            string             `json:"topic"`
	Difficulty       model.Difficulty   `json:"difficulty"`
	Modality         model.Modality     `json:"question_type"`
	Category         model.Category     `json:"category"`
	Mode             model.Mode         `json:"mode"`
	TimeLimitSeconds *int               `json:"time_limit_seconds,omitempty"`
	Status           model.Status       `json:"status"`
	CurrentIndex     int                `json:"current_index"`
	TotalQuestions   int                `json:"total_questions"`
	ScoreTotal       float64            `json:"score_total"`
	HintsUsed        int                `json:"hints_used"`
	Questions        []model.RecordView `json:"questions"`
	CreatedAt        time.Time          `json:"created_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
}

// GetExam returns the redacted view of a session.
func (o *Orchestrator) GetExam(ctx context.Context, examID string) (*Detail, error) {
	session, err := o.store.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrExamNotFound
	}
	views := make([]model.RecordView, 0, len(session.Questions))
	for _, q := range session.Questions {
		views = append(views, q.Redacted())
	}
	return &Detail{
		ExamID:           session.ID,
		Topic:            session.Topic,
		Difficulty:       session.Difficulty,
		Modality:         session.Modality,
		Category:         session.Category,
		Mode:             session.Mode,
		TimeLimitSeconds: session.TimeLimitSeconds,
		Status:           session.Status,
		CurrentIndex:     session.CurrentIndex,
		TotalQuestions:   session.TotalQuestions,
		ScoreTotal:       session.ScoreTotal,
		HintsUsed:        session.HintsUsed,
		Questions:        views,
		CreatedAt:        session.CreatedAt,
		CompletedAt:      session.CompletedAt,
	}, nil
}

// Summary is one row in the session listing.
type Summary struct {
	ExamID         string           `json:"exam_id"`
	Topic          string           `json:"topic"`
	Difficulty     model.Difficulty `json:"difficulty"`
	Mode           model.Mode       `json:"mode"`
	Status         model.Status     `json:"status"`
	TotalQuestions int              `json:"total_questions"`
	Answered       int              `json:"answered"`
	ScoreTotal     float64          `json:"score_total"`
	Percentage     float64          `json:"percentage"`
	GradeLetter    string           `json:"grade_letter"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ListExams returns recent sessions, newest first.
func (o *Orchestrator) ListExams(ctx context.Context, limit int) ([]Summary, error) {
	sessions, err := o.store.ListExams(limit)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		answered := 0
		for _, q := range s.Questions {
			if !q.Pending {
				answered++
			}
		}
		pct := 0.0
		if answered > 0 {
			pct = model.Round1(s.ScoreTotal / float64(answered*10) * 100)
		}
		out = append(out, Summary{
			ExamID:         s.ID,
			Topic:          s.Topic,
			Difficulty:     s.Difficulty,
			Mode:           s.Mode,
			Status:         s.Status,
			TotalQuestions: s.TotalQuestions,
			Answered:       answered,
			ScoreTotal:     s.ScoreTotal,
			Percentage:     pct,
			GradeLetter:    model.LetterForPercentage(pct),
			CreatedAt:      s.CreatedAt,
		})
	}
	return out, nil
}

// saveSubmission records the graded answer for auditing. Persistence
// failure here never fails the submission itself.
func (o *Orchestrator) saveSubmission(session *model.ExamSession, rec *model.QuestionRecord, result model.GradeResult) {
	sub := model.SavedSubmission{
		ID:              uuid.NewString(),
		Modality:        session.Modality,
		Question:        rec.QuestionText,
		CorrectAnswer:   rec.CorrectAnswer,
		StudentAnswer:   rec.StudentAnswer,
		Options:         rec.Options,
		Score:           result.Score,
		MaxScore:        result.MaxScore,
		GradeLetter:     result.GradeLetter,
		Passed:          result.Passed,
		Mistakes:        result.Mistakes,
		Strengths:       result.Strengths,
		Feedback:        result.Feedback,
		Recommendations: result.Recommendations,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.store.SaveSubmission(sub); err != nil {
		slog.Error("failed to save submission record", "exam_id", session.ID, "error", err)
	}
}

func pendingRecord(p model.QuestionPayload) model.QuestionRecord {
	return model.QuestionRecord{
		Pending:       true,
		QuestionText:  p.QuestionText,
		CorrectAnswer: p.CorrectAnswer,
		Explanation:   p.Explanation,
		Options:       p.Options,
		CodeSnippet:   p.CodeSnippet,
	}
}

// questionHistory returns the texts of all questions asked so far.
func questionHistory(session *model.ExamSession) []string {
	history := make([]string, 0, len(session.Questions))
	for _, q := range session.Questions {
		history = append(history, q.QuestionText)
	}
	return history
}
