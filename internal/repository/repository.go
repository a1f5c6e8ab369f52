package repository

import (
	"context"
	"time"

	"alcyxob/fitness-planner/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate")     // unique constraint hit, e.g. a second active mesocycle
	ErrStateChanged = RepositoryError("state changed") // compare-and-swap lost: the row no longer has the expected status
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository stores accounts together with their profile and preferences.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, profile domain.Profile) error
	UpdatePreferences(ctx context.Context, id primitive.ObjectID, prefs domain.Preferences) error
}

// MesocycleRepository enforces at most one active mesocycle per user at the storage level.
type MesocycleRepository interface {
	// Create returns ErrDuplicate when the user already has an active mesocycle.
	Create(ctx context.Context, m *domain.Mesocycle) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error)
	GetByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status domain.MesocycleStatus) (*domain.Mesocycle, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error)
	ListActive(ctx context.Context) ([]domain.Mesocycle, error)
	// Transition moves id from one status to another; ErrStateChanged when it is no longer in `from`.
	Transition(ctx context.Context, id primitive.ObjectID, from, to domain.MesocycleStatus, at time.Time) error
}

// SplitAssignmentRepository holds the weekly map, one row per (user, weekday).
type SplitAssignmentRepository interface {
	// ReplaceForUser swaps the whole weekly map in one atomic step.
	ReplaceForUser(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error)
	GetByUserAndWeekday(ctx context.Context, userID primitive.ObjectID, weekday domain.Weekday) (*domain.SplitAssignment, error)
	ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type RecoveryRepository interface {
	Upsert(ctx context.Context, records []domain.MuscleRecoveryRecord) error
	GetByUser(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup) ([]domain.MuscleRecoveryRecord, error)
}

type FrequencyChangeRepository interface {
	Create(ctx context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error)
	// CancelPending moves every pending record of the user to cancelled.
	CancelPending(ctx context.Context, userID primitive.ObjectID) (int64, error)
	// MarkProcessed succeeds for exactly one caller; others get ErrStateChanged.
	MarkProcessed(ctx context.Context, id primitive.ObjectID, decision domain.FrequencyDecision, at time.Time) error
	// MarkCancelled moves a pending record to cancelled; ErrStateChanged when it is no longer pending.
	MarkCancelled(ctx context.Context, id primitive.ObjectID) error
	HasKeepCurrent(ctx context.Context, mesocycleID primitive.ObjectID) (bool, error)
}

type CachedWorkoutRepository interface {
	// InsertIfAbsent stores w unless an unconsumed entry exists for the same (user, date),
	// in which case the existing entry is returned.
	InsertIfAbsent(ctx context.Context, w *domain.CachedWorkout) (*domain.CachedWorkout, error)
	GetUnconsumed(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.CachedWorkout, error)
	// ReplaceWindow deletes unconsumed entries dated on or after `from` and inserts entries,
	// visible to readers as a single step.
	ReplaceWindow(ctx context.Context, userID primitive.ObjectID, from time.Time, entries []domain.CachedWorkout) error
	// DeleteUnconsumedBefore drops unconsumed entries dated before `before`.
	DeleteUnconsumedBefore(ctx context.Context, userID primitive.ObjectID, before time.Time) (int64, error)
	// Transfer marks the cached entry consumed and stores plan in one step. When a plan for
	// the same (user, date) already exists it is returned unchanged.
	Transfer(ctx context.Context, cachedID primitive.ObjectID, plan *domain.DailyPlan) (*domain.DailyPlan, error)
}

type DailyPlanRepository interface {
	GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	CountCompleted(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error)
}

// ExerciseRepository is the exercise bank.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByMuscleGroups(ctx context.Context, groups []domain.MuscleGroup) ([]domain.Exercise, error)
	Count(ctx context.Context) (int64, error)
}
