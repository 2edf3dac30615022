package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/sales-desk/internal/domain"
)

// Account password policy. Length is counted in characters so Arabic
// passwords get the same minimum as Latin ones; bcrypt itself caps input at
// 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72

	bcryptCost = 12
)

var (
	ErrPasswordTooShort = fmt.Errorf("%w: account password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("%w: account password must be at most %d bytes", domain.ErrValidation, MaxPasswordBytes)
	ErrPasswordBlank    = fmt.Errorf("%w: account password cannot be only spaces", domain.ErrValidation)
)

// ValidatePassword applies the account password policy.
func ValidatePassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	case strings.TrimSpace(password) == "":
		return ErrPasswordBlank
	}
	return nil
}

// HashPassword validates the password and returns its bcrypt hash, the form
// users are stored with.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash account password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a stored hash. Accounts
// without a hash never match.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
