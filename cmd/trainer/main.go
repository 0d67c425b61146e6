package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/exam"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/generator"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/grader"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/handler"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/hint"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/llm"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/pipeline"
	"github.com/Abdelhady-22/Interview-Prep-Trainer/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trainer",
		Short: "Interview practice exam server powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `trainer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "trainer.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "Default LLM model name")
	f.String("generator-model", "", "Model override for question generation")
	f.String("grader-model", "", "Model override for answer scoring")
	f.String("feedback-model", "", "Model override for feedback generation")
	f.String("review-model", "", "Model override for the review stage")
	f.Duration("llm-timeout", 120*time.Second, "Per-request LLM timeout")
	f.Int("max-retries", 3, "LLM retry attempts for generation and grading")
	f.IntP("num-questions", "n", 5, "Default number of questions per exam")
	f.Bool("pipeline", true, "Use the multi-stage grading pipeline")
	f.StringSlice("cors-origins", []string{"http://localhost:3000"}, "Allowed CORS origins")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam sessions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "trainer.db", "SQLite database path")
	f.Int("limit", 0, "Maximum number of sessions to export (0 = all)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TRAINER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("trainer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/trainer")
	v.AddConfigPath("/etc/trainer")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	llmClient := llm.New(llm.Config{
		BaseURL: v.GetString("llm-url"),
		APIKey:  v.GetString("llm-key"),
		Model:   v.GetString("llm-model"),
		Timeout: v.GetDuration("llm-timeout"),
	})
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	var pipe *pipeline.Runner
	if v.GetBool("pipeline") {
		pipe = pipeline.New(llmClient)
	}

	maxRetries := v.GetInt("max-retries")
	gen := generator.New(llmClient, pipe, db, generator.Config{
		MaxRetries: maxRetries,
		Model:      v.GetString("generator-model"),
	})
	grd := grader.New(llmClient, pipe, grader.Config{
		MaxRetries:    maxRetries,
		ScoreModel:    v.GetString("grader-model"),
		FeedbackModel: v.GetString("feedback-model"),
		ReviewModel:   v.GetString("review-model"),
	})
	hints := hint.New(llmClient, v.GetString("feedback-model"))

	exams := exam.New(db, gen, grd, hints, exam.Config{
		DefaultQuestions: v.GetInt("num-questions"),
	})

	h := handler.New(exams, db, llmClient)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Route("/api", h.Routes)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"num_questions", v.GetInt("num-questions"),
		"pipeline", v.GetBool("pipeline"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessions, err := db.ListExams(v.GetInt("limit"))
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)

	return nil
}
