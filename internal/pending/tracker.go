// Package pending tracks short-lived loan requests awaiting a decision.
package pending

import (
	"context"
	"time"

	"chatbot-economy-api/internal/model"
)

// Tracker stores pending loan requests. Every call takes the caller's
// notion of now, so expiry is judged by the same clock that stamped it.
// This abstraction allows swapping between the in-process tracker
// (development, single instance) and Redis (multiple instances)
// without changing business logic.
type Tracker interface {
	// Create stores req under req.Key. Fails with ErrDuplicateRequest if
	// the key is taken by a request still live at now.
	Create(ctx context.Context, req model.PendingLoanRequest, now time.Time) error

	// Get returns the request if it is live at now, else ErrRequestNotFound.
	Get(ctx context.Context, key string, now time.Time) (model.PendingLoanRequest, error)

	// Consume atomically removes and returns the request. A request past
	// its expiry at now is ErrRequestNotFound for every actor. Only the
	// lender may consume a live request; any other actor gets
	// ErrUnauthorized and the entry is left untouched.
	Consume(ctx context.Context, key, actorID string, now time.Time) (model.PendingLoanRequest, error)

	// Expire removes requests created more than maxAge before now, and
	// any past their own expiry.
	Expire(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)

	// Close releases background resources.
	Close() error
}
