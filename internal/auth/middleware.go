package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
	applog "ecofinance/internal/log"
)

type userKey struct{}

func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(userKey{}).(core.User)
	return u, ok
}

// RequireUser loads the session user into the request context. Browsers
// without a session are redirected to loginPath; htmx and JSON callers get
// 401.
func (m *Manager) RequireUser(users ledger.UserStore, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := m.UserID(r)
			if err == nil {
				var u core.User
				u, err = users.UserByID(r.Context(), id)
				if err == nil {
					logger := applog.FromContext(r.Context()).With(applog.FieldUserID, u.ID)
					ctx := applog.WithLogger(WithUser(r.Context(), u), logger)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			if !errors.Is(err, ErrNoSession) {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).
					DebugContext(r.Context(), "Rejected session", applog.FieldError, err.Error())
				m.ClearCookie(w)
			}
			unauthorized(w, r, loginPath)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, loginPath string) {
	if r.Header.Get("HX-Request") == "true" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "sesión requerida"})
		return
	}
	target := loginPath
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SafeNext keeps post-login redirects on this site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
