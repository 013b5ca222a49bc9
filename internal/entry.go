// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/api"
	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/chat"
	"github.com/starford/resummarize/internal/db"
	"github.com/starford/resummarize/internal/mcpserver"
	"github.com/starford/resummarize/internal/notes"
	"github.com/starford/resummarize/internal/prompts"
	"github.com/starford/resummarize/internal/sse"
	"github.com/starford/resummarize/internal/storage"
	"github.com/starford/resummarize/internal/summarize"
	"github.com/starford/resummarize/internal/tokenizer"
)

const (
	staleHintThrottle = 2 * time.Second
	sessionPurgeEvery = time.Hour
)

// services holds everything built from the configuration.
type services struct {
	db        *db.DB
	prompts   *prompts.Registry
	broker    *sse.Broker
	notes     *notes.Controller
	autosaver *notes.Autosaver
	summaries *summarize.Orchestrator
	chat      *chat.Orchestrator
	auth      *auth.Service
}

func (s *services) close() {
	s.autosaver.Close()
	s.broker.Close()
	_ = s.db.Close()
}

func (a *application) init() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if a.version == "" {
		a.version = "dev"
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// build wires the domain services for cfg.
func (a *application) build(ctx context.Context, cfg *Config, logger *slog.Logger) (*services, error) {
	if err := os.MkdirAll(cfg.LocalStore.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	store, err := storage.NewFS(cfg.LocalStore.Path)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}

	database, err := db.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	gw, err := ai.New(ctx, cfg.AI.Options())
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init ai gateway: %w", err)
	}
	if !gw.Configured() {
		logger.Warn("AI API key is not set; summaries and chat replies are unavailable")
	}

	reg, err := prompts.NewRegistry(cfg.Prompts.Path)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("init prompts: %w", err)
	}

	// A missing encoding only disables the prompt budget.
	var tok summarize.Truncator
	if t, err := tokenizer.New(); err != nil {
		logger.Warn("tokenizer unavailable, prompts are not truncated", slog.String("error", err.Error()))
	} else {
		tok = t
	}

	broker := sse.NewBroker(staleHintThrottle)
	ctrl := notes.NewController(database, cfg.Notes.ListStaleTime, broker, logger)
	sum := summarize.New(gw, reg, tok, summarize.Options{
		StaleTime:       cfg.Summaries.StaleTime,
		InlineMinChars:  cfg.Summaries.InlineMinChars,
		BulkMinChars:    cfg.Summaries.BulkMinChars,
		MaxPromptTokens: cfg.Summaries.MaxPromptTokens,
	}, logger)
	autosaver := notes.NewAutosaver(ctrl, sum, broker, notes.AutosaveOptions{
		Delay:                  cfg.Notes.AutosaveDelay,
		InlineSummaryDelay:     cfg.Notes.InlineSummaryDelay,
		InlineSummaryThreshold: cfg.Notes.InlineSummaryThreshold,
	}, logger)
	chats := chat.New(gw, reg, ctrl, store, chat.Options{
		MaxHistoryLength:            cfg.Chat.MaxHistoryLength,
		PreserveHistoryOnModeSwitch: cfg.Chat.PreserveHistoryOnModeSwitch,
		OpenOnMount:                 cfg.Chat.OpenOnMount,
		ContextNotes:                cfg.Chat.ContextNotes,
		ContextChars:                cfg.Chat.ContextChars,
	}, logger)

	mailer := a.mailer
	if mailer == nil {
		mailer = auth.LogMailer{Logger: logger}
	}
	siteURL := cfg.App.SiteURL
	if siteURL == "" {
		siteURL = fmt.Sprintf("http://localhost:%d", cfg.App.HTTP.Port)
	}
	authSvc := auth.NewService(database, cfg.Auth.Options(siteURL), mailer)

	return &services{
		db:        database,
		prompts:   reg,
		broker:    broker,
		notes:     ctrl,
		autosaver: autosaver,
		summaries: sum,
		chat:      chats,
		auth:      authSvc,
	}, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.init()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("env", cfg.App.Env),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("local_store_path", cfg.LocalStore.Path),
		slog.String("ai_provider", cfg.AI.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := app.build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	apiRouter := api.NewRouter(api.Config{
		Auth:         svc.auth,
		Notes:        svc.notes,
		Autosaver:    svc.autosaver,
		Summaries:    svc.summaries,
		Chat:         svc.chat,
		Events:       svc.broker,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		Development:  cfg.App.Development(),
		Logger:       logger,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload prompt overrides on change.
	if cfg.Prompts.Watch {
		g.Go(func() error {
			if err := svc.prompts.Watch(gCtx, logger, nil); err != nil {
				logger.Warn("prompt watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Purge expired sessions, reset tokens and OAuth states.
	g.Go(func() error {
		ticker := time.NewTicker(sessionPurgeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				n, err := svc.db.DeleteExpired(gCtx)
				if err != nil {
					logger.Warn("session purge failed", slog.String("error", err.Error()))
					continue
				}
				logger.Debug("expired sessions purged", slog.Int64("count", n))
			}
		}
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Commit pending drafts, then end the event streams, which never
		// finish on their own.
		svc.autosaver.Close()
		svc.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has stopped, ending the
// background loops.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio on behalf of the account with the
// given email. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, email string, opts ...Option) error {
	app := &application{logOutput: os.Stderr}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.init()
	if err != nil {
		return err
	}

	svc, err := app.build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	user, _, err := svc.db.UserByEmail(ctx, db.NormalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("no account for %q", strings.TrimSpace(email))
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	logger.Info("MCP server starting", slog.String("user_id", user.ID), slog.String("version", app.version))
	return mcpserver.New(svc.notes, svc.summaries, user, app.version).ServeStdio()
}
