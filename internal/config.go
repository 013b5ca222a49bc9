package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/auth"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	LocalStore LocalStoreConfig  `yaml:"local_store"`
	Auth       AuthConfig        `yaml:"auth"`
	AI         AIConfig          `yaml:"ai"`
	Summaries  SummariesConfig   `yaml:"summaries"`
	Chat       ChatConfig        `yaml:"chat"`
	Notes      NotesConfig       `yaml:"notes"`
	Prompts    PromptsConfig     `yaml:"prompts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []validation.Validatable{
		&c.App, &c.SQLite, &c.LocalStore, &c.Auth, &c.AI,
		&c.Summaries, &c.Chat, &c.Notes, &c.Prompts,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Env      string     `yaml:"env"`
	SiteURL  string     `yaml:"site_url"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Env, validation.In(EnvDevelopment, EnvProduction)),
		validation.Field(&c.SiteURL, is.URL),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// Development reports whether the service runs in development mode.
func (c *ApplicationConfig) Development() bool {
	return c.Env == EnvDevelopment
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LocalStoreConfig holds the root directory of per-user client state.
type LocalStoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the local store configuration.
func (c *LocalStoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OAuthProviderConfig describes one OAuth2 identity provider.
type OAuthProviderConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

// Validate validates the provider configuration.
func (c OAuthProviderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.AuthURL, validation.Required, is.URL),
		validation.Field(&c.TokenURL, validation.Required, is.URL),
		validation.Field(&c.UserInfoURL, validation.Required, is.URL),
	)
}

// AuthConfig holds session and identity provider configuration.
type AuthConfig struct {
	SessionTTL        time.Duration                  `yaml:"session_ttl"`
	CookieName        string                         `yaml:"cookie_name"`
	CookieSecure      bool                           `yaml:"cookie_secure"`
	MinPasswordLength int                            `yaml:"min_password_length"`
	ResetTokenTTL     time.Duration                  `yaml:"reset_token_ttl"`
	OAuth             map[string]OAuthProviderConfig `yaml:"oauth"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.MinPasswordLength, validation.Required, validation.Min(6)),
		validation.Field(&c.ResetTokenTTL, validation.Required),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	for name, p := range c.OAuth {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("auth: oauth provider %q: %w", name, err)
		}
	}
	return nil
}

// Options converts the section to auth service options.
func (c *AuthConfig) Options(siteURL string) auth.Options {
	providers := make(map[string]auth.ProviderConfig, len(c.OAuth))
	for name, p := range c.OAuth {
		providers[name] = auth.ProviderConfig{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			Scopes:       p.Scopes,
		}
	}
	return auth.Options{
		SessionTTL:        c.SessionTTL,
		ResetTokenTTL:     c.ResetTokenTTL,
		MinPasswordLength: c.MinPasswordLength,
		SiteURL:           siteURL,
		Providers:         providers,
	}
}

// AIConfig holds the AI provider configuration. An empty APIKey leaves the
// AI features unconfigured; that is a valid setup.
type AIConfig struct {
	Provider        string  `yaml:"provider"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float32 `yaml:"temperature"`
	StripMarkdown   bool    `yaml:"strip_markdown"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ai.ProviderGemini
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ai.ProviderGemini, ai.ProviderClaude, ai.ProviderOpenAI)),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.MaxOutputTokens, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
	)
}

// Options converts the section to gateway options.
func (c *AIConfig) Options() ai.Options {
	return ai.Options{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		Model:           c.Model,
		BaseURL:         c.BaseURL,
		MaxOutputTokens: c.MaxOutputTokens,
		Temperature:     c.Temperature,
		StripMarkdown:   c.StripMarkdown,
	}
}

// SummariesConfig tunes the summarization orchestrator.
type SummariesConfig struct {
	StaleTime       time.Duration `yaml:"stale_time"`
	InlineMinChars  int           `yaml:"inline_min_chars"`
	BulkMinChars    int           `yaml:"bulk_min_chars"`
	MaxPromptTokens int           `yaml:"max_prompt_tokens"`
}

// Validate validates the summaries configuration.
func (c *SummariesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleTime, validation.Required),
		validation.Field(&c.InlineMinChars, validation.Min(0)),
		validation.Field(&c.BulkMinChars, validation.Min(0)),
		validation.Field(&c.MaxPromptTokens, validation.Min(0)),
	)
}

// ChatConfig tunes the chat orchestrator.
type ChatConfig struct {
	MaxHistoryLength            int  `yaml:"max_history_length"`
	PreserveHistoryOnModeSwitch bool `yaml:"preserve_history_on_mode_switch"`
	OpenOnMount                 bool `yaml:"open_on_mount"`
	ContextNotes                int  `yaml:"context_notes"`
	ContextChars                int  `yaml:"context_chars"`
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxHistoryLength, validation.Required, validation.Min(2)),
		validation.Field(&c.ContextNotes, validation.Min(0)),
		validation.Field(&c.ContextChars, validation.Required, validation.Min(1)),
	)
}

// NotesConfig tunes the note lifecycle controller.
type NotesConfig struct {
	ListStaleTime          time.Duration `yaml:"list_stale_time"`
	AutosaveDelay          time.Duration `yaml:"autosave_delay"`
	InlineSummaryDelay     time.Duration `yaml:"inline_summary_delay"`
	InlineSummaryThreshold int           `yaml:"inline_summary_threshold"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AutosaveDelay, validation.Required),
		validation.Field(&c.InlineSummaryDelay, validation.Required),
		validation.Field(&c.InlineSummaryThreshold, validation.Min(0)),
	)
}

// PromptsConfig points at an optional prompt override file.
type PromptsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the prompts configuration.
func (c *PromptsConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("prompts: watch is enabled but path is empty")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Env:      EnvDevelopment,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./resummarize.db",
		},
		LocalStore: LocalStoreConfig{
			Path: "./local",
		},
		Auth: AuthConfig{
			SessionTTL:        7 * 24 * time.Hour,
			CookieName:        "resummarize-session",
			MinPasswordLength: 6,
			ResetTokenTTL:     time.Hour,
		},
		AI: AIConfig{
			Provider:        ai.ProviderGemini,
			Model:           "gemini-2.0-flash",
			MaxOutputTokens: 2048,
			Temperature:     0.7,
		},
		Summaries: SummariesConfig{
			StaleTime:      10 * time.Minute,
			InlineMinChars: 50,
			BulkMinChars:   100,
		},
		Chat: ChatConfig{
			MaxHistoryLength:            100,
			PreserveHistoryOnModeSwitch: true,
			ContextNotes:                3,
			ContextChars:                500,
		},
		Notes: NotesConfig{
			ListStaleTime:          30 * time.Second,
			AutosaveDelay:          time.Second,
			InlineSummaryDelay:     2 * time.Second,
			InlineSummaryThreshold: 100,
		},
	}
}
