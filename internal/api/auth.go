package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/models"
)

const (
	defaultNext   = "/dashboard"
	authErrorPage = "/auth/auth-code-error"
)

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, u *models.User, sess *models.Session) {
	h.setSessionCookie(w, sess)
	writeJSON(w, status, SessionResponse{User: u, AccessToken: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// SignUp handles POST /api/auth/signup.
//
//	@Summary		Register with email and password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialsRequest	true	"Credentials"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, sess, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "sign up", err)
		return
	}
	h.writeSession(w, http.StatusCreated, u, sess)
}

// SignIn handles POST /api/auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, sess, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "sign in", err)
		return
	}
	h.writeSession(w, http.StatusOK, u, sess)
}

// SignOut handles POST /api/auth/signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), sessionToken(r, h.cookieName)); err != nil {
		writeError(w, r, "sign out", err)
		return
	}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		h.chat.Forget(u.ID)
		h.summaries.Forget(u.ID)
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session. Anonymous callers get a null
// session rather than an error.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Session(r.Context(), sessionToken(r, h.cookieName))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"session": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

// CurrentUser handles GET /api/auth/user.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.CurrentUser(r.Context(), sessionToken(r, h.cookieName))
	if err != nil {
		writeError(w, r, "current user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// OAuthStart handles GET /api/auth/oauth/{provider} by redirecting the
// browser to the provider.
func (h *Handler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	target, err := h.auth.SignInWithOAuth(r.Context(), chi.URLParam(r, "provider"), next)
	if err != nil {
		writeError(w, r, "oauth start", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OAuthCallback handles GET /api/auth/callback.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	noStore(w)
	origin := requestOrigin(r)

	_, sess, next, err := h.auth.ExchangeCode(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		h.logger.Warn("auth code exchange failed", "error", err.Error())
		http.Redirect(w, r, origin+authErrorPage, http.StatusFound)
		return
	}
	h.setSessionCookie(w, sess)

	http.Redirect(w, r, h.redirectBase(r, origin)+safeNext(next), http.StatusFound)
}

// redirectBase picks the post-login host: the request origin in
// development, otherwise the proxy's forwarded host when present.
func (h *Handler) redirectBase(r *http.Request, origin string) string {
	if h.development {
		return origin
	}
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		return "https://" + fwd
	}
	return origin
}

// ResetPassword handles POST /api/auth/reset-password. The answer is the
// same whether or not the address is registered.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.auth.ResetPasswordForEmail(r.Context(), req.Email, req.RedirectTo); err != nil {
		writeError(w, r, "reset password", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ResetPasswordLanding handles GET /auth/reset-password?token=, the link
// mailed for recovery. It signs the user in and sends them on to choose a
// new password.
func (h *Handler) ResetPasswordLanding(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	_, sess, err := h.auth.VerifyResetToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Redirect(w, r, authErrorPage, http.StatusFound)
		return
	}
	h.setSessionCookie(w, sess)
	http.Redirect(w, r, "/auth?mode=update-password", http.StatusFound)
}

// UpdatePassword handles POST /api/auth/update-password.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, _ := auth.UserFromContext(r.Context())
	if err := h.auth.UpdatePassword(r.Context(), u.ID, req.Password); err != nil {
		writeError(w, r, "update password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// safeNext keeps post-login destinations on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return defaultNext
	}
	return next
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
