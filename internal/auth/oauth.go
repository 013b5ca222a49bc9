package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/starford/resummarize/internal/apperr"
	"github.com/starford/resummarize/internal/models"
)

// CallbackPath is where providers redirect after authorization.
const CallbackPath = "/api/auth/callback"

const oauthStateTTL = 10 * time.Minute

func (s *Service) oauthConfig(provider string) (*oauth2.Config, error) {
	p, ok := s.opts.Providers[provider]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown oauth provider %q", provider))
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		RedirectURL: s.opts.SiteURL + CallbackPath,
		Scopes:      p.Scopes,
	}, nil
}

// Providers lists configured OAuth provider names.
func (s *Service) Providers() []string {
	out := make([]string, 0, len(s.opts.Providers))
	for name := range s.opts.Providers {
		out = append(out, name)
	}
	return out
}

// SignInWithOAuth starts an authorization and returns the provider URL the
// browser must visit. next is where to land after a successful callback.
func (s *Service) SignInWithOAuth(ctx context.Context, provider, next string) (string, error) {
	cfg, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}
	state, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := s.store.SaveOAuthState(ctx, state, provider, next, s.now().Add(oauthStateTTL)); err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

type userInfo struct {
	Email string `json:"email"`
}

// ExchangeCode completes an authorization: it trades code for a token,
// resolves the provider account's email, finds or creates the local user
// and opens a session. It returns the destination recorded at start.
func (s *Service) ExchangeCode(ctx context.Context, state, code string) (*models.User, *models.Session, string, error) {
	if state == "" || code == "" {
		return nil, nil, "", fmt.Errorf("auth: missing code or state: %w", apperr.ErrNotAuthenticated)
	}
	provider, next, err := s.store.ConsumeOAuthState(ctx, state)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, "", fmt.Errorf("auth: unknown or expired state: %w", apperr.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, nil, "", err
	}
	cfg, err := s.oauthConfig(provider)
	if err != nil {
		return nil, nil, "", err
	}

	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, nil, "", fmt.Errorf("auth: exchange code: %w: %w", apperr.ErrNotAuthenticated, err)
	}

	email, err := s.fetchEmail(ctx, cfg.Client(ctx, tok), s.opts.Providers[provider].UserInfoURL)
	if err != nil {
		return nil, nil, "", err
	}

	u, _, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		u, err = s.store.CreateUser(ctx, email, "", provider)
	}
	if err != nil {
		return nil, nil, "", err
	}

	sess, err := s.issueSession(ctx, u.ID)
	if err != nil {
		return nil, nil, "", err
	}
	return u, sess, next, nil
}

func (s *Service) fetchEmail(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("auth: userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: userinfo: %w: %w", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("auth: userinfo status %d: %s: %w", resp.StatusCode, body, apperr.ErrNotAuthenticated)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("auth: decode userinfo: %w", err)
	}
	if strings.TrimSpace(info.Email) == "" {
		return "", fmt.Errorf("auth: provider returned no email: %w", apperr.ErrNotAuthenticated)
	}
	return info.Email, nil
}
