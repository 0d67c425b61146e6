package model

import (
	"math"
	"time"
)

// Modality distinguishes open-ended questions from multiple choice.
type Modality string

const (
	ModalityWritten        Modality = "written"
	ModalityMultipleChoice Modality = "multiple_choice"
)

// Category is the interview-question genre that shapes prompt structure.
type Category string

const (
	CategoryCoding       Category = "coding"
	CategoryConcept      Category = "concept"
	CategoryDebug        Category = "debug"
	CategorySystemDesign Category = "system_design"
	CategoryBehavioral   Category = "behavioral"
	CategoryCodeReview   Category = "code_review"
)

// Mode determines timer defaults and hint eligibility.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeTimed    Mode = "timed"
	ModeMock     Mode = "mock"
)

// DefaultTimeLimit returns the per-question time limit in seconds for a mode,
// or nil when the mode is untimed.
func DefaultTimeLimit(m Mode) *int {
	var limit int
	switch m {
	case ModeTimed:
		limit = 300
	case ModeMock:
		limit = 420
	default:
		return nil
	}
	return &limit
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Status represents the status of an exam session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// QuestionRecord is one question's full lifecycle within an exam session.
// The correct answer lives only here, server-side; client projections go
// through Redacted.
type QuestionRecord struct {
	Pending       bool              `json:"pending"`
	QuestionText  string            `json:"question_text"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	CodeSnippet   string            `json:"code_snippet,omitempty"`
	Hints         []string          `json:"hints,omitempty"`
	StudentAnswer string            `json:"student_answer,omitempty"`
	Score         float64           `json:"score"`
	IsCorrect     bool              `json:"is_correct"`
	Feedback      string            `json:"feedback,omitempty"`
	Encouragement string            `json:"encouragement,omitempty"`
}

// ExamSession is one student's attempt at a sequence of questions.
//
// Invariant: while Status is in_progress exactly one record is pending and
// PendingIndex points at it (the last element); once completed PendingIndex
// is -1 and CurrentIndex equals TotalQuestions.
type ExamSession struct {
	ID               string           `json:"id"`
	Topic            string           `json:"topic"`
	Difficulty       Difficulty       `json:"difficulty"`
	Modality         Modality         `json:"question_type"`
	Category         Category         `json:"category"`
	Mode             Mode             `json:"mode"`
	TimeLimitSeconds *int             `json:"time_limit_seconds,omitempty"`
	HintsUsed        int              `json:"hints_used"`
	TotalQuestions   int              `json:"total_questions"`
	CurrentIndex     int              `json:"current_index"`
	PendingIndex     int              `json:"pending_index"`
	ScoreTotal       float64          `json:"score_total"`
	Status           Status           `json:"status"`
	Questions        []QuestionRecord `json:"questions"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// PendingRecord returns the record awaiting an answer, or nil.
func (e *ExamSession) PendingRecord() *QuestionRecord {
	if e.PendingIndex < 0 || e.PendingIndex >= len(e.Questions) {
		return nil
	}
	rec := &e.Questions[e.PendingIndex]
	if !rec.Pending {
		return nil
	}
	return rec
}

// QuestionPayload is the generator's output for a single question.
type QuestionPayload struct {
	QuestionText  string            `json:"question_text"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	CodeSnippet   string            `json:"code_snippet,omitempty"`
}

// Mistake is one specific error identified in a student answer.
type Mistake struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Recommendation is a targeted study suggestion.
type Recommendation struct {
	Topic        string `json:"topic"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
}

// GradeResult is the full assessment of a single answer.
type GradeResult struct {
	Score           float64          `json:"score"`
	MaxScore        int              `json:"max_score"`
	GradeLetter     string           `json:"grade_letter"`
	Passed          bool             `json:"passed"`
	Mistakes        []Mistake        `json:"mistakes"`
	Strengths       []string         `json:"strengths"`
	Feedback        string           `json:"feedback"`
	Recommendations []Recommendation `json:"recommendations"`
	Encouragement   string           `json:"encouragement"`
}

// DefaultGradeResult returns the safe defaults used when a grading stage
// produces unparseable output.
func DefaultGradeResult() GradeResult {
	return GradeResult{
		Score:           5.0,
		MaxScore:        10,
		GradeLetter:     "C",
		Passed:          true,
		Mistakes:        []Mistake{},
		Strengths:       []string{},
		Recommendations: []Recommendation{},
	}
}

// LetterForScore maps a 0-10 score to a grade letter.
func LetterForScore(score float64) string {
	switch {
	case score >= 9.0:
		return "A"
	case score >= 7.0:
		return "B"
	case score >= 5.0:
		return "C"
	case score >= 3.0:
		return "D"
	default:
		return "F"
	}
}

// LetterForPercentage maps a 0-100 percentage to a grade letter.
func LetterForPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 70:
		return "B"
	case pct >= 50:
		return "C"
	case pct >= 30:
		return "D"
	default:
		return "F"
	}
}

// ClampScore limits a score to the 0.0-10.0 range.
func ClampScore(score float64) float64 {
	return math.Max(0.0, math.Min(10.0, score))
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// SavedQuestion is an immutable audit record of a generated question.
type SavedQuestion struct {
	ID            string            `json:"id"`
	Topic         string            `json:"topic"`
	Difficulty    Difficulty        `json:"difficulty"`
	Modality      Modality          `json:"question_type"`
	Category      Category          `json:"category"`
	QuestionText  string            `json:"question_text"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	CodeSnippet   string            `json:"code_snippet,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// SavedSubmission is an immutable audit record of one graded answer.
type SavedSubmission struct {
	ID              string            `json:"id"`
	Modality        Modality          `json:"question_type"`
	Question        string            `json:"question"`
	CorrectAnswer   string            `json:"correct_answer"`
	StudentAnswer   string            `json:"student_answer"`
	Options         map[string]string `json:"options,omitempty"`
	Score           float64           `json:"score"`
	MaxScore        int               `json:"max_score"`
	GradeLetter     string            `json:"grade_letter"`
	Passed          bool              `json:"passed"`
	Mistakes        []Mistake         `json:"mistakes"`
	Strengths       []string          `json:"strengths"`
	Feedback        string            `json:"feedback,omitempty"`
	Recommendations []Recommendation  `json:"recommendations"`
	CreatedAt       time.Time         `json:"created_at"`
}
