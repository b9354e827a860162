package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"ecofinance/internal/core"
	"ecofinance/internal/ledger"
)

const (
	maxUsernameLen = 150
	minPasswordLen = 8
)

var (
	ErrPasswordMismatch = errors.New("las contraseñas no coinciden")
	ErrPasswordTooShort = fmt.Errorf("la contraseña debe tener al menos %d caracteres", minPasswordLen)
	ErrInvalidUsername  = errors.New("nombre de usuario inválido")
	ErrInvalidEmail     = errors.New("correo electrónico inválido")
	ErrUserExists       = errors.New("el usuario o el correo ya están registrados")
)

// Registration is the sign-up form.
type Registration struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}

func (r Registration) Validate() error {
	name := strings.TrimSpace(r.Username)
	if name == "" || utf8.RuneCountInString(name) > maxUsernameLen || strings.ContainsAny(name, " \t\n") {
		return ErrInvalidUsername
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	if r.Password != r.Password2 {
		return ErrPasswordMismatch
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

type Service struct {
	users ledger.UserStore
}

func NewService(users ledger.UserStore) *Service {
	return &Service{users: users}
}

func (s *Service) Register(ctx context.Context, r Registration) (core.User, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if err := r.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := HashPassword(r.Password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, core.User{Username: r.Username, Email: r.Email, PasswordHash: hash})
	if errors.Is(err, ledger.ErrDuplicate) {
		return core.User{}, ErrUserExists
	}
	return u, err
}

// Authenticate returns ErrInvalidCredentials for unknown users and wrong
// passwords alike.
func (s *Service) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ledger.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return core.User{}, err
	}
	return u, nil
}
