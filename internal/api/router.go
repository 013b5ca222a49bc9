package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/chat"
	"github.com/starford/resummarize/internal/notes"
	"github.com/starford/resummarize/internal/summarize"
)

// Config wires the services behind the router.
type Config struct {
	Auth      *auth.Service
	Notes     *notes.Controller
	Autosaver *notes.Autosaver
	Summaries *summarize.Orchestrator
	Chat      *chat.Orchestrator

	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler

	CookieName   string
	CookieSecure bool
	Development  bool
	Logger       *slog.Logger
}

// Handler serves the HTTP API and entry pages.
type Handler struct {
	auth      *auth.Service
	notes     *notes.Controller
	autosave  *notes.Autosaver
	summaries *summarize.Orchestrator
	chat      *chat.Orchestrator

	cookieName   string
	cookieSecure bool
	development  bool
	logger       *slog.Logger
}

// NewHandler creates a Handler from cfg.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:         cfg.Auth,
		notes:        cfg.Notes,
		autosave:     cfg.Autosaver,
		summaries:    cfg.Summaries,
		chat:         cfg.Chat,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		development:  cfg.Development,
		logger:       logger,
	}
}

// NewRouter creates a chi router with the entry pages and every /api route.
// Sessions are resolved for all requests; /api routes outside /api/auth
// answer 401 without one, protected pages redirect to the login page.
func NewRouter(cfg Config) chi.Router {
	h := NewHandler(cfg)

	r := chi.NewRouter()
	r.Use(SessionMiddleware(cfg.Auth, cfg.CookieName))

	// Pages.
	r.Get("/", h.HomePage)
	r.Get("/auth", h.AuthPage)
	r.Get("/auth/auth-code-error", h.AuthErrorPage)
	r.Get("/auth/reset-password", h.ResetPasswordLanding)
	r.Group(func(r chi.Router) {
		r.Use(RequirePage)
		r.Get("/dashboard", h.DashboardPage)
		r.Get("/notes", h.DashboardPage)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.SignUp)
			r.Post("/signin", h.SignIn)
			r.Post("/signout", h.SignOut)
			r.Get("/session", h.Session)
			r.Get("/user", h.CurrentUser)
			r.Get("/oauth/{provider}", h.OAuthStart)
			r.Get("/callback", h.OAuthCallback)
			r.Post("/reset-password", h.ResetPassword)
			r.With(RequireUser).Post("/update-password", h.UpdatePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			// Notes.
			r.Get("/notes", h.ListNotes)
			r.Post("/notes", h.CreateNote)
			r.Get("/notes/{id}", h.GetNote)
			r.Patch("/notes/{id}", h.UpdateNote)
			r.Delete("/notes/{id}", h.DeleteNote)
			r.Put("/notes/{id}/draft", h.SaveDraft)
			r.Post("/notes/{id}/draft/flush", h.FlushDraft)

			// Summaries.
			r.Get("/notes/{id}/summary", h.NoteSummary)
			r.Get("/summaries", h.Summaries)
			r.Post("/summaries/inline", h.InlineSummary)
			r.Get("/insights", h.Insights)
			r.Get("/action-items", h.ActionItems)
			r.Post("/action-items/{id}/toggle", h.ToggleActionItem)

			// Chat.
			r.Get("/chat", h.ChatState)
			r.Post("/chat/messages", h.SendChatMessage)
			r.Delete("/chat/messages", h.ClearChat)
			r.Put("/chat/mode", h.SwitchChatMode)
			r.Post("/chat/open", h.OpenChat)
			r.Post("/chat/close", h.CloseChat)
			r.Post("/chat/toggle", h.ToggleChat)

			if cfg.Events != nil {
				r.Get("/events", cfg.Events.ServeHTTP)
			}
		})
	})

	return r
}
