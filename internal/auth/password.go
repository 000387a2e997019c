// Package auth handles accounts, passwords and cookie sessions.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username must be 3-150 characters: letters, digits and @/./+/-/_ only")
	ErrPasswordTooShort   = errors.New("password must contain at least 8 characters")
	ErrPasswordNumeric    = errors.New("password can't be entirely numeric")
	ErrPasswordMismatch   = errors.New("the two password fields didn't match")
	ErrPasswordSimilar    = errors.New("password is too similar to the username")
)

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SignupForm holds the raw values posted by the signup page.
type SignupForm struct {
	Username  string
	Password1 string
	Password2 string
}

// Validate returns per-field messages keyed by form field name; nil means valid.
func (f SignupForm) Validate() map[string]string {
	errs := map[string]string{}
	if err := ValidateUsername(f.Username); err != nil {
		errs["username"] = err.Error()
	}
	if err := ValidatePassword(f.Username, f.Password1); err != nil {
		errs["password1"] = err.Error()
	}
	if f.Password1 != f.Password2 {
		errs["password2"] = ErrPasswordMismatch.Error()
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateUsername(u string) error {
	n := utf8.RuneCountInString(u)
	if n < 3 || n > 150 {
		return ErrInvalidUsername
	}
	for _, r := range u {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(username, password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return ErrPasswordSimilar
	}
	return nil
}
