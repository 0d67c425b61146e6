// Package handler exposes the exam workflow over an HTTP JSON API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/exam"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/model"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/store"
)

// Pinger reports the health of the completion backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	exams    *exam.Orchestrator
	store    *store.Store
	llm      Pinger
	validate *validator.Validate
}

// New creates a new Handler.
func New(exams *exam.Orchestrator, s *store.Store, llm Pinger) *Handler {
	return &Handler{
		exams:    exams,
		store:    s,
		llm:      llm,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/exam/start", h.handleStartExam)
	r.Post("/exam/answer", h.handleSubmitAnswer)
	r.Post("/exam/hint", h.handleRequestHint)
	r.Get("/exam/{examID}", h.handleGetExam)
	r.Get("/exams", h.handleListExams)
	r.Get("/questions", h.handleListQuestions)
	r.Get("/submissions", h.handleListSubmissions)
	r.Get("/topics", h.handleTopics)
	r.Get("/health", h.handleHealth)
}

type startExamRequest struct {
	Topic            string `json:"topic" validate:"required"`
	Difficulty       string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	NumQuestions     int    `json:"num_questions" validate:"omitempty,min=1,max=20"`
	QuestionType     string `json:"question_type" validate:"omitempty,oneof=written multiple_choice"`
	Category         string `json:"category" validate:"omitempty,oneof=coding concept debug system_design behavioral code_review"`
	Mode             string `json:"mode" validate:"omitempty,oneof=practice timed mock"`
	TimeLimitSeconds *int   `json:"time_limit_seconds" validate:"omitempty,min=30,max=3600"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req startExamRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.QuestionType == "" {
		req.QuestionType = string(model.ModalityWritten)
	}
	if req.Category == "" {
		req.Category = string(model.CategoryConcept)
	}
	if req.Mode == "" {
		req.Mode = string(model.ModePractice)
	}

	result, err := h.exams.Start(r.Context(), exam.StartParams{
		Topic:            req.Topic,
		Difficulty:       model.Difficulty(req.Difficulty),
		Modality:         model.Modality(req.QuestionType),
		Category:         model.Category(req.Category),
		Mode:             model.Mode(req.Mode),
		NumQuestions:     req.NumQuestions,
		TimeLimitSeconds: req.TimeLimitSeconds,
	})
	if err != nil {
		h.fail(w, err, "failed to start exam")
		return
	}
	h.respond(w, http.StatusCreated, result)
}

type submitAnswerRequest struct {
	ExamID string `json:"exam_id" validate:"required"`
	Answer string `json:"answer" validate:"required"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.exams.SubmitAnswer(r.Context(), req.ExamID, req.Answer)
	if err != nil {
		h.fail(w, err, "answer submission failed")
		return
	}
	h.respond(w, http.StatusOK, result)
}

type hintRequest struct {
	ExamID string `json:"exam_id" validate:"required"`
}

func (h *Handler) handleRequestHint(w http.ResponseWriter, r *http.Request) {
	var req hintRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.exams.RequestHint(r.Context(), req.ExamID)
	if err != nil {
		h.fail(w, err, "hint request failed")
		return
	}
	h.respond(w, http.StatusOK, result)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	detail, err := h.exams.GetExam(r.Context(), examID)
	if err != nil {
		h.fail(w, err, "failed to load exam")
		return
	}
	h.respond(w, http.StatusOK, detail)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.exams.ListExams(r.Context(), queryLimit(r, 50))
	if err != nil {
		h.fail(w, err, "failed to list exams")
		return
	}
	h.respond(w, http.StatusOK, summaries)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	difficulty := model.Difficulty(r.URL.Query().Get("difficulty"))
	questions, err := h.store.ListQuestions(topic, difficulty, queryLimit(r, 50))
	if err != nil {
		h.fail(w, err, "failed to list questions")
		return
	}
	if questions == nil {
		questions = []model.SavedQuestion{}
	}
	h.respond(w, http.StatusOK, questions)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubmissions(queryLimit(r, 50))
	if err != nil {
		h.fail(w, err, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []model.SavedSubmission{}
	}
	h.respond(w, http.StatusOK, subs)
}

type catalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HasTimer    *bool  `json:"has_timer,omitempty"`
	HasHints    *bool  `json:"has_hints,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

var (
	topicCatalog = []catalogEntry{
		{ID: "python", Name: "Python"},
		{ID: "oop", Name: "Object-Oriented Programming"},
		{ID: "data_structures", Name: "Data Structures"},
		{ID: "algorithms", Name: "Algorithms"},
		{ID: "sql", Name: "SQL & Databases"},
		{ID: "javascript", Name: "JavaScript"},
		{ID: "java", Name: "Java"},
		{ID: "web_development", Name: "Web Development"},
	}
	categoryCatalog = []catalogEntry{
		{ID: "coding", Name: "Coding", Description: "Write functions and algorithms"},
		{ID: "concept", Name: "Concept", Description: "Explain technical concepts"},
		{ID: "debug", Name: "Debug", Description: "Find and fix bugs in code"},
		{ID: "system_design", Name: "System Design", Description: "Design systems and architectures"},
		{ID: "behavioral", Name: "Behavioral", Description: "Situational and teamwork questions"},
		{ID: "code_review", Name: "Code Review", Description: "Review and improve given code"},
	}
	modeCatalog = []catalogEntry{
		{ID: "practice", Name: "Practice", Description: "Unlimited time, hints available", HasTimer: boolPtr(false), HasHints: boolPtr(true)},
		{ID: "timed", Name: "Timed Exam", Description: "Countdown timer, no hints", HasTimer: boolPtr(true), HasHints: boolPtr(false)},
		{ID: "mock", Name: "Mock Interview", Description: "Real interview simulation with timer", HasTimer: boolPtr(true), HasHints: boolPtr(true)},
	}
)

func (h *Handler) handleTopics(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]any{
		"topics":         topicCatalog,
		"difficulties":   []string{"easy", "medium", "hard"},
		"question_types": []string{"written", "multiple_choice"},
		"categories":     categoryCatalog,
		"modes":          modeCatalog,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	dbStatus := "ok"
	if err := h.store.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	llmStatus := "ok"
	if err := h.llm.Ping(r.Context()); err != nil {
		llmStatus = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	h.respond(w, status, map[string]string{
		"backend":  "ok",
		"database": dbStatus,
		"llm":      llmStatus,
	})
}

// decode parses and validates a JSON request body. It writes the error
// response itself and returns false when the request is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// fail maps domain errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exam.ErrExamCompleted),
		errors.Is(err, exam.ErrExamNotInProgress),
		errors.Is(err, exam.ErrNoPendingQuestion):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, exam.ErrHintsExhausted),
		errors.Is(err, exam.ErrHintsDisabled):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(msg, "error", err)
		h.respondError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, detail string) {
	h.respond(w, status, map[string]string{"detail": detail})
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
