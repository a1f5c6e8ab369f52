package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MesocycleStatus tracks the lifecycle: active -> completed, active <-> paused.
type MesocycleStatus string

const (
	MesocycleActive    MesocycleStatus = "active"
	MesocycleCompleted MesocycleStatus = "completed"
	MesocyclePaused    MesocycleStatus = "paused"
)

// Origins recorded in progression metadata.
const (
	OriginUser            = "user"
	OriginAutoProgression = "auto_progression"
	OriginMigration       = "migration"
)

// Mesocycle is a multi-week training block. Mesocycles are never deleted, only transitioned.
type Mesocycle struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID     `bson:"userId" json:"userId"`
	Name          string                 `bson:"name" json:"name"`
	SplitType     SplitType              `bson:"splitType" json:"splitType"`
	Status        MesocycleStatus        `bson:"status" json:"status"`
	StartDate     time.Time              `bson:"startDate" json:"startDate"`
	EndDate       time.Time              `bson:"endDate" json:"endDate"`
	DurationWeeks int                    `bson:"durationWeeks" json:"durationWeeks"`
	Metadata      map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CompletedAt   *time.Time             `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt     time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// TotalDays is the planned length of the block.
func (m *Mesocycle) TotalDays() int {
	return DaysBetween(m.StartDate, m.EndDate)
}

// RemainingWeeks rounds the days left up to whole weeks, never below zero.
func (m *Mesocycle) RemainingWeeks(today time.Time) int {
	days := DaysBetween(today, m.EndDate)
	if days <= 0 {
		return 0
	}
	return (days + 6) / 7
}
