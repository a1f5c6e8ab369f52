package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RecoveryStatus string

const (
	RecoveryRecovering RecoveryStatus = "recovering"
	RecoveryReady      RecoveryStatus = "ready"
	RecoveryOverdue    RecoveryStatus = "overdue"
)

// MuscleRecoveryRecord is keyed by (user, muscle group).
type MuscleRecoveryRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	MuscleGroup   MuscleGroup        `bson:"muscleGroup" json:"muscleGroup"`
	LastTrained   time.Time          `bson:"lastTrained" json:"lastTrained"`
	Status        RecoveryStatus     `bson:"status" json:"status"`
	NextAvailable time.Time          `bson:"nextAvailable" json:"nextAvailable"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
