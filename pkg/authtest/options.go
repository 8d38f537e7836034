package authtest

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Option configures a Service.
type Option func(*Service)

// WithAccessTTL sets how long an access token stays valid.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.accessTTL = d
		}
	}
}

// WithRefreshTTL sets how long a refresh token stays valid.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshTTL = d
		}
	}
}

// WithVerificationToken makes registration require token.
func WithVerificationToken(token string) Option {
	return func(s *Service) { s.verificationToken = token }
}

// WithBcryptCost overrides the hashing cost. Tests default to bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithSecret sets the cookie signing secret (32+ characters).
func WithSecret(secret string) Option {
	return func(s *Service) { s.secret = secret }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
