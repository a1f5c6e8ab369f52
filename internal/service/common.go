package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns the current instant. Injected so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// lockUser serializes state changes for one user. Nested calls with the returned
// context do not block.
func lockUser(ctx context.Context, locker lock.Locker, userID primitive.ObjectID) (context.Context, func(), error) {
	return locker.Lock(ctx, lock.UserKey(userID.Hex()))
}

// translateRepoErr maps storage sentinels onto engine error kinds.
func translateRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.NewNotFoundError(what + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return domain.NewConflictError(what + " already exists")
	case errors.Is(err, repository.ErrStateChanged):
		return domain.NewConflictError(what + " was modified concurrently")
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func validateFrequency(f int) error {
	if f < 1 || f > 7 {
		return domain.NewValidationError("weeklyFrequency", "must be between 1 and 7")
	}
	return nil
}
