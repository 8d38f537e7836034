package authclient

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/authsession/pkg/logger"
)

// Refresher exchanges an expiring session for a renewed one. Concurrent
// callers share a single in-flight request so the credential is never
// rotated twice at once.
type Refresher struct {
	client Sender
	logger *slog.Logger
	group  singleflight.Group

	// lifetime bounds a shared request once it no longer belongs to the
	// caller that started it.
	lifetime context.Context
}

func NewRefresher(client Sender, log *slog.Logger) *Refresher {
	return &Refresher{
		client:   client,
		logger:   logger.OrDiscard(log).With(logger.Component("refresher")),
		lifetime: context.Background(),
	}
}

// Refresh reports whether the service renewed the session. A caller whose
// ctx ends while waiting on a shared request gets false; the request itself
// keeps running for the other callers until the refresher's lifetime ends or
// the transport times out.
func (r *Refresher) Refresh(ctx context.Context) bool {
	ch := r.group.DoChan("refresh", func() (any, error) {
		flight, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(r.lifetime, cancel)
		defer stop()
		return r.refresh(flight), nil
	})
	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}

func (r *Refresher) refresh(ctx context.Context) bool {
	resp, err := r.client.Send(ctx, http.MethodPost, EndpointRefresh, nil)
	if err != nil {
		r.logger.DebugContext(ctx, "session refresh failed", logger.Error(err))
		return false
	}

	switch resp.Status {
	case http.StatusOK:
		r.logger.DebugContext(ctx, "session refreshed")
		return true
	case http.StatusUnauthorized, http.StatusInternalServerError:
		r.logger.DebugContext(ctx, "session refresh rejected", logger.Status(resp.Status))
		return false
	default:
		r.logger.WarnContext(ctx, "unexpected refresh response",
			logger.Endpoint(EndpointRefresh),
			logger.Status(resp.Status),
		)
		return false
	}
}
