package internal

import (
	"io"

	"github.com/starford/resummarize/internal/auth"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	mailer    auth.Mailer
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients and in logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithMailer replaces the default mailer, which only logs password reset
// links.
func WithMailer(m auth.Mailer) Option {
	return func(a *application) {
		a.mailer = m
	}
}

// WithLogOutput sets where JSON logs are written. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
