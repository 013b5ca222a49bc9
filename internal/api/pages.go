package api

import (
	"html/template"
	"net/http"

	"github.com/starford/resummarize/internal/auth"
)

var pages = template.Must(template.New("layout").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} · Resummarize</title></head>
<body>
<main data-page="{{.Page}}">
<h1>{{.Title}}</h1>
{{if .Email}}<p>Signed in as {{.Email}}</p>{{end}}
{{if .Mode}}<p data-mode="{{.Mode}}" data-next="{{.Next}}">{{.Mode}}</p>{{end}}
{{if .Message}}<p>{{.Message}}</p>{{end}}
</main>
</body>
</html>
`))

type pageData struct {
	Page    string
	Title   string
	Email   string
	Mode    string
	Next    string
	Message string
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		data.Email = u.Email
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Execute(w, data); err != nil {
		h.logger.Error("render page", "page", data.Page, "error", err.Error())
	}
}

// HomePage serves the public landing page.
func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{Page: "home", Title: "Resummarize"})
}

// AuthPage serves the sign-in page. mode selects login, signup or
// update-password.
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	switch mode {
	case "login", "signup", "update-password":
	default:
		mode = "login"
	}
	h.renderPage(w, r, http.StatusOK, pageData{
		Page:  "auth",
		Title: "Sign in",
		Mode:  mode,
		Next:  safeNext(q.Get("next")),
	})
}

// AuthErrorPage is where failed code exchanges land.
func (h *Handler) AuthErrorPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{
		Page:    "auth-code-error",
		Title:   "Sign-in failed",
		Message: "The sign-in link is invalid or has expired.",
	})
}

// DashboardPage serves the signed-in workspace.
func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{Page: "dashboard", Title: "Your notes"})
}
