// Package generator talks to the external workout content provider.
package generator

import (
	"context"
	"errors"

	"alcyxob/fitness-planner/internal/domain"
)

// ErrNotConfigured is returned by Disabled; callers fall back to bank content.
var ErrNotConfigured = errors.New("content provider not configured")

// Request is what the provider needs to write one session.
type Request struct {
	SplitName     string
	MuscleGroups  []domain.MuscleGroup
	EnergyLevel   int // 1-5
	AvailableTime int // minutes
	Rationale     string
	FitnessLevel  string
	Equipment     []string
	Advisories    []string
}

// ContentProvider generates workout content. Implementations must honour ctx
// cancellation and report a deadline overrun as domain.ErrDependencyTimeout.
type ContentProvider interface {
	Generate(ctx context.Context, req Request) (*domain.WorkoutContent, error)
}

// Disabled is used when no provider credentials are configured.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, req Request) (*domain.WorkoutContent, error) {
	return nil, ErrNotConfigured
}
