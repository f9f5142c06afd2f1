package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"lafavorita/backend/internal/domain"
)

const MinPasswordLength = 6

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ValidateNewPassword checks a password/confirmation pair from a form.
func ValidateNewPassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func IsHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

// NormalizeAnswer is the form answers are stored and compared in.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswers returns a copy with every answer normalized and hashed.
// Answers already hashed are left alone.
func HashAnswers(q domain.SecurityQuestions) (domain.SecurityQuestions, error) {
	for _, a := range []*string{&q.Answer1, &q.Answer2, &q.Answer3} {
		if IsHash(*a) {
			continue
		}
		hashed, err := HashPassword(NormalizeAnswer(*a))
		if err != nil {
			return q, err
		}
		*a = hashed
	}
	return q, nil
}

// matches compares input against a stored secret that may still be a
// legacy plaintext value.
func matches(stored, input string) bool {
	if stored == "" {
		return false
	}
	if IsHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(input)) == 1
}

func answerMatches(stored, input string) bool {
	if IsHash(stored) {
		return matches(stored, NormalizeAnswer(input))
	}
	return matches(NormalizeAnswer(stored), NormalizeAnswer(input))
}

// needsUpgrade reports whether any credential of u is still plaintext.
func needsUpgrade(u domain.User) bool {
	if !IsHash(u.Password) {
		return true
	}
	if q := u.SecurityQuestions; q != nil {
		return !IsHash(q.Answer1) || !IsHash(q.Answer2) || !IsHash(q.Answer3)
	}
	return false
}

func upgrade(u domain.User) (domain.User, error) {
	out := u.Clone()
	if !IsHash(out.Password) {
		hashed, err := HashPassword(out.Password)
		if err != nil {
			return u, err
		}
		out.Password = hashed
	}
	if out.SecurityQuestions != nil {
		q, err := HashAnswers(*out.SecurityQuestions)
		if err != nil {
			return u, err
		}
		out.SecurityQuestions = &q
	}
	return out, nil
}
