// Package lock serializes state-changing operations per user.
//
// Locks are reentrant through the context: a caller that already holds a key
// (because an outer operation acquired it) gets the same context back and a
// no-op release, so composed operations never deadlock on themselves.
package lock

import (
	"context"
	"time"

	"alcyxob/fitness-planner/internal/domain"
)

// Locker acquires a named lock, waiting at most the configured wait.
// The returned context marks the key as held and must be passed to nested calls.
type Locker interface {
	Lock(ctx context.Context, key string) (context.Context, func(), error)
}

type heldKey string

func held(ctx context.Context, key string) bool {
	v, _ := ctx.Value(heldKey(key)).(bool)
	return v
}

func markHeld(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, heldKey(key), true)
}

// UserKey is the lock name for everything touching one user's periodization state.
func UserKey(userID string) string {
	return "user:" + userID
}

func waitTimeout(key string, wait time.Duration) error {
	return domain.NewConflictError("another operation is in progress for this user, try again").
		WithMetadata("lock", key).
		WithMetadata("wait", wait.String())
}
