package model

// QuestionView is the client-facing projection of a question. It never
// carries the correct answer or the explanation.
type QuestionView struct {
	QuestionText string            `json:"question_text"`
	Modality     Modality          `json:"question_type"`
	Category     Category          `json:"category"`
	Topic        string            `json:"topic"`
	Difficulty   Difficulty        `json:"difficulty"`
	Options      map[string]string `json:"options,omitempty"`
	CodeSnippet  string            `json:"code_snippet,omitempty"`
}

// Sanitize strips a generated payload down to what the client may see
// before the question is answered.
func Sanitize(p QuestionPayload, e *ExamSession) QuestionView {
	v := QuestionView{
		QuestionText: p.QuestionText,
		Modality:     e.Modality,
		Category:     e.Category,
		Topic:        e.Topic,
		Difficulty:   e.Difficulty,
		CodeSnippet:  p.CodeSnippet,
	}
	if e.Modality == ModalityMultipleChoice {
		v.Options = p.Options
	}
	return v
}

// RecordView is the client-facing projection of a question record:
// pending records are redacted to question text and options, answered
// records expose the grading outcome.
type RecordView struct {
	Pending       bool              `json:"pending"`
	QuestionText  string            `json:"question_text"`
	Options       map[string]string `json:"options,omitempty"`
	StudentAnswer string            `json:"student_answer,omitempty"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
	Score         *float64          `json:"score,omitempty"`
	IsCorrect     *bool             `json:"is_correct,omitempty"`
	Feedback      string            `json:"feedback,omitempty"`
	Hints         []string          `json:"hints,omitempty"`
}

// Redacted builds the client view of a record.
func (q QuestionRecord) Redacted() RecordView {
	if q.Pending {
		return RecordView{
			Pending:      true,
			QuestionText: q.QuestionText,
			Options:      q.Options,
		}
	}
	score := q.Score
	correct := q.IsCorrect
	return RecordView{
		Pending:       false,
		QuestionText:  q.QuestionText,
		Options:       q.Options,
		StudentAnswer: q.StudentAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Score:         &score,
		IsCorrect:     &correct,
		Feedback:      q.Feedback,
		Hints:         q.Hints,
	}
}

// SummaryQuestion is one answered question inside a final exam summary.
type SummaryQuestion struct {
	QuestionText  string  `json:"question_text"`
	CorrectAnswer string  `json:"correct_answer"`
	StudentAnswer string  `json:"student_answer"`
	Score         float64 `json:"score"`
	IsCorrect     bool    `json:"is_correct"`
	Feedback      string  `json:"feedback"`
}

// ExamSummary is the final report returned when an exam completes.
type ExamSummary struct {
	ExamID         string            `json:"exam_id"`
	Topic          string            `json:"topic"`
	Difficulty     Difficulty        `json:"difficulty"`
	TotalQuestions int               `json:"total_questions"`
	TotalScore     float64           `json:"total_score"`
	MaxScore       int               `json:"max_score"`
	Percentage     float64           `json:"percentage"`
	GradeLetter    string            `json:"grade_letter"`
	Passed         bool              `json:"passed"`
	Questions      []SummaryQuestion `json:"questions"`
}

// BuildSummary assembles the summary for a completed session.
func BuildSummary(e *ExamSession) *ExamSummary {
	maxScore := e.TotalQuestions * 10
	pct := 0.0
	if maxScore > 0 {
		pct = Round1(e.ScoreTotal / float64(maxScore) * 100)
	}
	summary := &ExamSummary{
		ExamID:         e.ID,
		Topic:          e.Topic,
		Difficulty:     e.Difficulty,
		TotalQuestions: e.TotalQuestions,
		TotalScore:     e.ScoreTotal,
		MaxScore:       maxScore,
		Percentage:     pct,
		GradeLetter:    LetterForPercentage(pct),
		Passed:         pct >= 50.0,
	}
	for _, q := range e.Questions {
		if q.Pending {
			continue
		}
		summary.Questions = append(summary.Questions, SummaryQuestion{
			QuestionText:  q.QuestionText,
			CorrectAnswer: q.CorrectAnswer,
			StudentAnswer: q.StudentAnswer,
			Score:         q.Score,
			IsCorrect:     q.IsCorrect,
			Feedback:      q.Feedback,
		})
	}
	return summary
}
