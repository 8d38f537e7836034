package prefs

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrEmptyEmail is returned for blank keys.
var ErrEmptyEmail = errors.New("prefs: empty email")

// Store persists onboarding markers.
type Store interface {
	MarkOnboarded(ctx context.Context, email string) error
	Onboarded(ctx context.Context, email string) (bool, error)
	ClearOnboarding(ctx context.Context, email string) error
}

// NormalizeEmail trims and case-folds email.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmptyEmail
	}
	return cases.Fold().String(email), nil
}
