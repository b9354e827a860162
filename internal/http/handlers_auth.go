package http

import (
	"context"
	"errors"
	"net/http"

	"ecofinance/internal/auth"
	applog "ecofinance/internal/log"
)

type loginPage struct {
	page
	Username string
	Next     string
}

type registerPage struct {
	page
	Username string
	Email    string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.FormValue("next"))
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if _, err := s.sessions.UserID(r); err == nil {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
		s.render(w, r, http.StatusOK, "login.html", loginPage{
			page: s.newPage(r, "Iniciar sesión", "login"),
			Next: next,
		})
		return
	case http.MethodPost:
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentAuth)

	username := sanitizeInput(r.PostFormValue("username"))
	u, err := s.accounts.Authenticate(ctx, username, r.PostFormValue("password"))
	if err != nil {
		status, msg := http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logger.ErrorContext(ctx, "Authentication failed", applog.FieldError, err.Error())
			status, msg = http.StatusInternalServerError, "No se pudo iniciar sesión"
		} else {
			logger.WarnContext(ctx, "Invalid credentials", "username", username)
		}
		data := loginPage{page: s.newPage(r, "Iniciar sesión", "login"), Username: username, Next: next}
		data.Error = msg
		s.render(w, r, status, "login.html", data)
		return
	}

	if err := s.sessions.SetCookie(w, u.ID); err != nil {
		logger.ErrorContext(ctx, "Issue session failed", applog.FieldError, err.Error())
		InternalServerError("No se pudo iniciar sesión").Write(w)
		return
	}
	logger.InfoContext(ctx, "User logged in", applog.FieldUserID, u.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.render(w, r, http.StatusOK, "registro.html", registerPage{page: s.newPage(r, "Crear cuenta", "registro")})
		return
	case http.MethodPost:
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentAuth)

	reg := auth.Registration{
		Username:  sanitizeInput(r.PostFormValue("username")),
		Email:     sanitizeInput(r.PostFormValue("email")),
		Password:  r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
	u, err := s.accounts.Register(ctx, reg)
	if err != nil {
		status, msg := http.StatusUnprocessableEntity, err.Error()
		switch {
		case errors.Is(err, auth.ErrUserExists):
			status = http.StatusConflict
		case errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidEmail):
		default:
			logger.ErrorContext(ctx, "Registration failed", applog.FieldError, err.Error())
			status, msg = http.StatusInternalServerError, "No se pudo crear la cuenta"
		}
		data := registerPage{page: s.newPage(r, "Crear cuenta", "registro"), Username: reg.Username, Email: reg.Email}
		data.Error = msg
		s.render(w, r, status, "registro.html", data)
		return
	}

	if err := s.sessions.SetCookie(w, u.ID); err != nil {
		logger.ErrorContext(ctx, "Issue session failed", applog.FieldError, err.Error())
		http.Redirect(w, r, "/login/", http.StatusSeeOther)
		return
	}
	logger.InfoContext(ctx, "User registered", applog.FieldUserID, u.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	s.sessions.ClearCookie(w)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login/").Write(w)
		return
	}
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}
