package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authsession/pkg/identity"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/transport"
)

// Endpoint paths relative to the transport base path.
const (
	EndpointMe       = "/me"
	EndpointLogin    = "/login"
	EndpointRegister = "/register"
	EndpointRefresh  = "/refresh"
	EndpointLogout   = "/logout"
)

// Sender is the transport used by every flow. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, method, endpoint string, body any) (*transport.Response, error)
}

// Resolver asks the service who the ambient credential belongs to.
type Resolver struct {
	client Sender
	logger *slog.Logger
}

func NewResolver(client Sender, log *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger.OrDiscard(log).With(logger.Component("resolver")),
	}
}

// Resolve returns the current identity. Any error means "absent"; only
// ErrUnauthenticated means the service confirmed it. It never retries.
func (r *Resolver) Resolve(ctx context.Context) (*identity.Identity, error) {
	resp, err := r.client.Send(ctx, http.MethodGet, EndpointMe, nil)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.DebugContext(ctx, "identity resolution cancelled", logger.Error(err))
			return nil, err
		}
		r.logger.WarnContext(ctx, "identity resolution failed", logger.Error(err))
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	switch resp.Status {
	case http.StatusOK:
		id, err := identity.Decode(resp.Body)
		if err != nil {
			r.logger.WarnContext(ctx, "malformed identity response", logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrMalformedIdentity, err)
		}
		return id, nil
	case http.StatusUnauthorized:
		r.logger.DebugContext(ctx, "no authenticated session", logger.Status(resp.Status))
		return nil, ErrUnauthenticated
	default:
		r.logger.WarnContext(ctx, "unexpected identity response",
			logger.Endpoint(EndpointMe),
			logger.Status(resp.Status),
		)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.Status)
	}
}
