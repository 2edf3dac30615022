package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

// UserSource lists the accounts allowed to sign in.
type UserSource interface {
	List(ctx context.Context) ([]domain.User, error)
}

// Authenticator checks credentials against the user collection.
type Authenticator struct {
	users UserSource
	log   *zap.Logger
}

func NewAuthenticator(users UserSource, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{users: users, log: log.Named("auth")}
}

// Login resolves identifier as a user id first and as a display name second,
// then verifies the password. The returned user carries no password hash.
// Unknown users and wrong passwords fail the same way.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: identifier and password are required", domain.ErrAuthFailure)
	}

	users, err := a.users.List(ctx)
	if err != nil {
		return domain.User{}, err
	}

	user, ok := findUser(users, identifier)
	if !ok || !CheckPassword(password, user.PasswordHash) {
		a.log.Info("login rejected", zap.String("identifier", identifier))
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrAuthFailure)
	}

	return user.Public(), nil
}

func findUser(users []domain.User, identifier string) (domain.User, bool) {
	for _, u := range users {
		if u.ID == identifier {
			return u, true
		}
	}
	for _, u := range users {
		if u.Name == identifier {
			return u, true
		}
	}
	return domain.User{}, false
}
