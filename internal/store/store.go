// Package store persists exam sessions, generated questions, and graded
// submissions in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for an ephemeral store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database connection is healthy.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		question_type TEXT NOT NULL,
		category TEXT NOT NULL,
		mode TEXT NOT NULL,
		time_limit_seconds INTEGER,
		hints_used INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL,
		current_index INTEGER NOT NULL DEFAULT 0,
		pending_index INTEGER NOT NULL DEFAULT -1,
		score_total REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'in_progress',
		questions TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS saved_questions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		question_type TEXT NOT NULL,
		category TEXT NOT NULL,
		question_text TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		options TEXT NOT NULL DEFAULT '{}',
		code_snippet TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		question_type TEXT NOT NULL,
		question TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		student_answer TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '{}',
		score REAL NOT NULL,
		max_score INTEGER NOT NULL DEFAULT 10,
		grade_letter TEXT NOT NULL,
		passed INTEGER NOT NULL,
		mistakes TEXT NOT NULL DEFAULT '[]',
		strengths TEXT NOT NULL DEFAULT '[]',
		feedback TEXT NOT NULL DEFAULT '',
		recommendations TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam inserts a new session.
func (s *Store) CreateExam(e *model.ExamSession) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO exams (id, topic, difficulty, question_type, category, mode,
			time_limit_seconds, hints_used, total_questions, current_index, pending_index,
			score_total, status, questions, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Topic, e.Difficulty, e.Modality, e.Category, e.Mode,
		e.TimeLimitSeconds, e.HintsUsed, e.TotalQuestions, e.CurrentIndex, e.PendingIndex,
		e.ScoreTotal, e.Status, string(questions), e.CreatedAt, e.CompletedAt,
	)
	return err
}

// GetExam loads a session by ID. Returns (nil, nil) when not found.
func (s *Store) GetExam(id string) (*model.ExamSession, error) {
	row := s.db.QueryRow(
		`SELECT id, topic, difficulty, question_type, category, mode,
			time_limit_seconds, hints_used, total_questions, current_index, pending_index,
			score_total, status, questions, created_at, completed_at
		 FROM exams WHERE id = ?`, id)
	e, err := scanExam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// UpdateExam overwrites the mutable columns of a session.
func (s *Store) UpdateExam(e *model.ExamSession) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE exams SET hints_used = ?, current_index = ?, pending_index = ?,
			score_total = ?, status = ?, questions = ?, completed_at = ?
		 WHERE id = ?`,
		e.HintsUsed, e.CurrentIndex, e.PendingIndex,
		e.ScoreTotal, e.Status, string(questions), e.CompletedAt, e.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("exam %s not found", e.ID)
	}
	return nil
}

// ListExams returns sessions ordered newest first. limit <= 0 means no limit.
func (s *Store) ListExams(limit int) ([]*model.ExamSession, error) {
	query := `SELECT id, topic, difficulty, question_type, category, mode,
		time_limit_seconds, hints_used, total_questions, current_index, pending_index,
		score_total, status, questions, created_at, completed_at
	 FROM exams ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []*model.ExamSession
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (*model.ExamSession, error) {
	var e model.ExamSession
	var timeLimit sql.NullInt64
	var completedAt sql.NullTime
	var questions string
	err := row.Scan(
		&e.ID, &e.Topic, &e.Difficulty, &e.Modality, &e.Category, &e.Mode,
		&timeLimit, &e.HintsUsed, &e.TotalQuestions, &e.CurrentIndex, &e.PendingIndex,
		&e.ScoreTotal, &e.Status, &questions, &e.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if timeLimit.Valid {
		v := int(timeLimit.Int64)
		e.TimeLimitSeconds = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(questions), &e.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions for exam %s: %w", e.ID, err)
	}
	return &e, nil
}

// SaveQuestion stores a generated question.
func (s *Store) SaveQuestion(q model.SavedQuestion) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO saved_questions (id, topic, difficulty, question_type, category,
			question_text, correct_answer, explanation, options, code_snippet, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Topic, q.Difficulty, q.Modality, q.Category,
		q.QuestionText, q.CorrectAnswer, q.Explanation, string(options), q.CodeSnippet, q.CreatedAt,
	)
	return err
}

// ListQuestions returns saved questions newest first, optionally filtered
// by topic and difficulty. Empty filter values match everything.
func (s *Store) ListQuestions(topic string, difficulty model.Difficulty, limit int) ([]model.SavedQuestion, error) {
	query := `SELECT id, topic, difficulty, question_type, category,
		question_text, correct_answer, explanation, options, code_snippet, created_at
	 FROM saved_questions WHERE 1=1`
	args := []any{}
	if topic != "" {
		query += " AND topic = ?"
		args = append(args, topic)
	}
	if difficulty != "" {
		query += " AND difficulty = ?"
		args = append(args, difficulty)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.SavedQuestion
	for rows.Next() {
		var q model.SavedQuestion
		var options string
		if err := rows.Scan(
			&q.ID, &q.Topic, &q.Difficulty, &q.Modality, &q.Category,
			&q.QuestionText, &q.CorrectAnswer, &q.Explanation, &options, &q.CodeSnippet, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveSubmission stores a graded answer.
func (s *Store) SaveSubmission(sub model.SavedSubmission) error {
	options, err := json.Marshal(sub.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	mistakes, err := json.Marshal(sub.Mistakes)
	if err != nil {
		return fmt.Errorf("marshal mistakes: %w", err)
	}
	strengths, err := json.Marshal(sub.Strengths)
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}
	recommendations, err := json.Marshal(sub.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO submissions (id, question_type, question, correct_answer, student_answer,
			options, score, max_score, grade_letter, passed, mistakes, strengths, feedback,
			recommendations, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Modality, sub.Question, sub.CorrectAnswer, sub.StudentAnswer,
		string(options), sub.Score, sub.MaxScore, sub.GradeLetter, sub.Passed,
		string(mistakes), string(strengths), sub.Feedback, string(recommendations), sub.CreatedAt,
	)
	return err
}

// ListSubmissions returns graded answers newest first. limit <= 0 means no
// limit.
func (s *Store) ListSubmissions(limit int) ([]model.SavedSubmission, error) {
	query := `SELECT id, question_type, question, correct_answer, student_answer,
		options, score, max_score, grade_letter, passed, mistakes, strengths, feedback,
		recommendations, created_at
	 FROM submissions ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.SavedSubmission
	for rows.Next() {
		var sub model.SavedSubmission
		var options, mistakes, strengths, recommendations string
		if err := rows.Scan(
			&sub.ID, &sub.Modality, &sub.Question, &sub.CorrectAnswer, &sub.StudentAnswer,
			&options, &sub.Score, &sub.MaxScore, &sub.GradeLetter, &sub.Passed,
			&mistakes, &strengths, &sub.Feedback, &recommendations, &sub.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &sub.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for submission %s: %w", sub.ID, err)
		}
		if err := json.Unmarshal([]byte(mistakes), &sub.Mistakes); err != nil {
			return nil, fmt.Errorf("unmarshal mistakes for submission %s: %w", sub.ID, err)
		}
		if err := json.Unmarshal([]byte(strengths), &sub.Strengths); err != nil {
			return nil, fmt.Errorf("unmarshal strengths for submission %s: %w", sub.ID, err)
		}
		if err := json.Unmarshal([]byte(recommendations), &sub.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshal recommendations for submission %s: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
