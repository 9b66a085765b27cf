package user

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 8
	// MaxPasswordLen - bcrypt учитывает только первые 72 байта
	MaxPasswordLen = 72
)

// Validator проверяет входные данные до обращения к хранилищу
type Validator interface {
	ValidateCreate(username, password string, role Role) error
	ValidateUsername(username string) error
	ValidatePassword(password string) error
}

type charRule struct {
	match func(rune) bool
	err   error
}

var (
	errNoLower   = errors.New("password must contain at least one lowercase letter")
	errNoUpper   = errors.New("password must contain at least one uppercase letter")
	errNoDigit   = errors.New("password must contain at least one digit")
	errNoSpecial = errors.New("password must contain at least one special character")
	errUsername  = errors.New("username can only contain letters, digits, '_', '-', '.'")
)

// CredentialValidator - правила для имени пользователя, пароля и роли
type CredentialValidator struct {
	rules []charRule
}

func NewCredentialValidator() *CredentialValidator {
	return &CredentialValidator{
		rules: []charRule{
			{match: unicode.IsLower, err: errNoLower},
			{match: unicode.IsUpper, err: errNoUpper},
			{match: unicode.IsDigit, err: errNoDigit},
			{match: isSpecial, err: errNoSpecial},
		},
	}
}

func (v *CredentialValidator) ValidateCreate(username, password string, role Role) error {
	if err := v.ValidateUsername(username); err != nil {
		return fmt.Errorf("username validation failed: %w", err)
	}
	if err := v.ValidatePassword(password); err != nil {
		return fmt.Errorf("password validation failed: %w", err)
	}
	if !role.Valid() {
		return fmt.Errorf("role must be %q or %q", RoleAdmin, RoleUser)
	}
	return nil
}

func (v *CredentialValidator) ValidateUsername(username string) error {
	switch n := len(username); {
	case n < MinUsernameLen:
		return fmt.Errorf("username must be at least %d characters", MinUsernameLen)
	case n > MaxUsernameLen:
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLen)
	}

	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r != '_' && r != '-' && r != '.' {
			return errUsername
		}
	}
	return nil
}

// ValidatePassword возвращает первое нарушенное правило
func (v *CredentialValidator) ValidatePassword(password string) error {
	switch n := len(password); {
	case n < MinPasswordLen:
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	case n > MaxPasswordLen:
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
	}

	for _, rule := range v.rules {
		if !containsFunc(password, rule.match) {
			return rule.err
		}
	}
	return nil
}

func containsFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if f(r) {
			return true
		}
	}
	return false
}

func isSpecial(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

type charClasses struct {
	lower, upper, digit, special bool
}

func (c charClasses) complete() bool {
	return c.lower && c.upper && c.digit && c.special
}

// classify отмечает классы символов, встречающиеся в строке
func classify(s string) charClasses {
	return charClasses{
		lower:   containsFunc(s, unicode.IsLower),
		upper:   containsFunc(s, unicode.IsUpper),
		digit:   containsFunc(s, unicode.IsDigit),
		special: containsFunc(s, isSpecial),
	}
}
