package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SplitAssignment maps one weekday of a user's week to a split.
// A weekday with no assignment is a rest day.
type SplitAssignment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Weekday       Weekday            `bson:"weekday" json:"weekday"`
	Split         Split              `bson:"split" json:"split"`
	AutoAssigned  bool               `bson:"autoAssigned" json:"autoAssigned"`
	RecoveryHours int                `bson:"recoveryHours" json:"recoveryHours"`
	Rationale     string             `bson:"rationale,omitempty" json:"rationale,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}
