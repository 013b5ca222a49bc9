// Package auth is the identity gateway: email/password and OAuth sign-in,
// server-side sessions and password recovery.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/checksum"
	"github.com/starford/resummarize/internal/models"
)

// ProviderEmail marks accounts created with a password.
const ProviderEmail = "email"

// Store is the persistence the service needs.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash, provider string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, string, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
	CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	SessionByHash(ctx context.Context, tokenHash string) (string, time.Time, error)
	ExtendSession(ctx context.Context, tokenHash string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
	CreatePasswordReset(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
	SaveOAuthState(ctx context.Context, state, provider, next string, expiresAt time.Time) error
	ConsumeOAuthState(ctx context.Context, state string) (string, string, error)
}

// ProviderConfig describes one OAuth2 identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Options tunes the service.
type Options struct {
	SessionTTL        time.Duration
	ResetTokenTTL     time.Duration
	MinPasswordLength int
	BcryptCost        int
	SiteURL           string
	Providers         map[string]ProviderConfig
}

// ErrInvalidCredentials is returned by SignIn for an unknown email or a
// wrong password. It matches apperr.ErrNotAuthenticated.
var ErrInvalidCredentials = fmt.Errorf("invalid login credentials: %w", apperr.ErrNotAuthenticated)

// Service implements the auth operations.
type Service struct {
	store      Store
	opts       Options
	mailer     Mailer
	httpClient *http.Client
	now        func() time.Time
}

// NewService creates the auth service. A nil mailer logs reset links.
func NewService(store Store, opts Options, mailer Mailer) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{store: store, opts: opts, mailer: mailer, now: time.Now}
}

// SetHTTPClient sets the client used for OAuth token and userinfo calls.
func (s *Service) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.opts.SessionTTL
}

func (s *Service) validateEmail(email string) error {
	if err := validation.Validate(strings.TrimSpace(email), validation.Required, is.EmailFormat); err != nil {
		return apperr.Validation("email: " + err.Error())
	}
	return nil
}

func (s *Service) validatePassword(password string) error {
	if err := validation.Validate(password,
		validation.Required,
		validation.RuneLength(s.opts.MinPasswordLength, 72),
	); err != nil {
		return apperr.Validation("password: " + err.Error())
	}
	return nil
}

// SignUp registers an email/password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	if err := s.validateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := s.validatePassword(password); err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: hash password: %w", err)
	}
	u, err := s.store.CreateUser(ctx, email, string(hash), ProviderEmail)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, nil, fmt.Errorf("auth: email already registered: %w", err)
		}
		return nil, nil, err
	}
	sess, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// SignIn verifies email and password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	if err := s.validateEmail(email); err != nil {
		return nil, nil, err
	}
	if password == "" {
		return nil, nil, apperr.Validation("password: cannot be blank")
	}
	u, hash, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}
	sess, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, checksum.String(token))
}

// Session validates token and returns the live session. Sessions with less
// than half their lifetime left are extended.
func (s *Service) Session(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	hash := checksum.String(token)
	userID, expires, err := s.store.SessionByHash(ctx, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !now.Before(expires) {
		_ = s.store.DeleteSession(ctx, hash)
		return nil, fmt.Errorf("auth: session expired: %w", apperr.ErrNotAuthenticated)
	}
	if expires.Sub(now) < s.opts.SessionTTL/2 {
		expires = now.Add(s.opts.SessionTTL)
		if err := s.store.ExtendSession(ctx, hash, expires); err != nil {
			return nil, err
		}
	}
	return &models.Session{UserID: userID, ExpiresAt: expires}, nil
}

// CurrentUser returns the owner of the session identified by token.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, sess.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotAuthenticated
	}
	return u, err
}

// ResetPasswordForEmail mails a one-time sign-in link for password
// recovery. Unknown addresses succeed silently.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if err := s.validateEmail(email); err != nil {
		return err
	}
	base, err := s.resetLinkBase(redirectTo)
	if err != nil {
		return err
	}
	u, _, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.store.CreatePasswordReset(ctx, checksum.String(token), u.ID, s.now().Add(s.opts.ResetTokenTTL)); err != nil {
		return err
	}

	link, err := withQuery(base, "token", token)
	if err != nil {
		return apperr.Validation("redirect: " + err.Error())
	}
	return s.mailer.SendPasswordReset(ctx, u.Email, link)
}

// VerifyResetToken consumes a recovery token and signs its owner in.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, apperr.ErrNotAuthenticated
	}
	userID, err := s.store.ConsumePasswordReset(ctx, checksum.String(token))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, fmt.Errorf("auth: invalid or expired reset link: %w", apperr.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, nil, err
	}
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, sess, nil
}

// UpdatePassword sets a new password for the signed-in user.
func (s *Service) UpdatePassword(ctx context.Context, userID, password string) error {
	if userID == "" {
		return apperr.ErrNotAuthenticated
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.store.SetPasswordHash(ctx, userID, string(hash))
}

func (s *Service) issueSession(ctx context.Context, userID string) (*models.Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.opts.SessionTTL)
	if err := s.store.CreateSession(ctx, checksum.String(token), userID, expires); err != nil {
		return nil, err
	}
	return &models.Session{Token: token, UserID: userID, ExpiresAt: expires}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// resetLinkBase resolves where a recovery link points. Only paths on the
// site and absolute URLs with the site's scheme and host are accepted.
func (s *Service) resetLinkBase(redirectTo string) (string, error) {
	if redirectTo == "" {
		return s.opts.SiteURL + "/auth/reset-password", nil
	}
	if strings.Contains(redirectTo, "\\") {
		return "", apperr.Validation("redirect must stay on this site")
	}
	if strings.HasPrefix(redirectTo, "/") && !strings.HasPrefix(redirectTo, "//") {
		return s.opts.SiteURL + redirectTo, nil
	}
	target, err := url.Parse(redirectTo)
	if err != nil {
		return "", apperr.Validation("redirect: " + err.Error())
	}
	site, err := url.Parse(s.opts.SiteURL)
	if err != nil || site.Host == "" {
		return "", apperr.Validation("redirect must be a path when no site URL is configured")
	}
	if !strings.EqualFold(target.Scheme, site.Scheme) || !strings.EqualFold(target.Host, site.Host) || target.User != nil {
		return "", apperr.Validation("redirect must stay on this site")
	}
	return redirectTo, nil
}

func withQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
