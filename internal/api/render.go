package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templatesFS embed.FS

const flashCookie = "flash"

func parseTemplates() *template.Template {
	funcs := template.FuncMap{
		"usd": func(d decimal.Decimal) string {
			return "$" + d.StringFixed(2)
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, page, data); err != nil {
		h.log.WithError(err).WithField("page", page).Error("failed to render template")
	}
}

// apology renders the user-facing error page carrying a message and
// status code.
func (h *Handler) apology(w http.ResponseWriter, status int, message string) {
	h.render(w, status, "apology.html", map[string]any{
		"Status":  status,
		"Message": message,
	})
}

// flash queues a one-shot message shown on the next page load.
func (h *Handler) flash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    message,
		Path:     "/",
		HttpOnly: true,
	})
}

// popFlash reads and clears a queued flash message.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return cookie.Value
}
