package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FrequencyDecision string

const (
	DecisionPending     FrequencyDecision = "pending"
	DecisionKeepCurrent FrequencyDecision = "keep_current"
	DecisionCreateNew   FrequencyDecision = "create_new"
)

type FrequencyChangeStatus string

const (
	ChangePending   FrequencyChangeStatus = "pending"
	ChangeProcessed FrequencyChangeStatus = "processed"
	ChangeCancelled FrequencyChangeStatus = "cancelled"
)

const (
	ChangeSourceUser  = "user_request"
	ChangeSourceSweep = "automatic_sweep"
)

// FrequencyChangeRecord is immutable once processed; new deltas always create new records.
type FrequencyChangeRecord struct {
	ID                 primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID    `bson:"userId" json:"userId"`
	OldFrequency       int                   `bson:"oldFrequency" json:"oldFrequency"`
	NewFrequency       int                   `bson:"newFrequency" json:"newFrequency"`
	OldSplitType       SplitType             `bson:"oldSplitType,omitempty" json:"oldSplitType,omitempty"`
	SuggestedSplitType SplitType             `bson:"suggestedSplitType" json:"suggestedSplitType"`
	MesocycleID        *primitive.ObjectID   `bson:"mesocycleId,omitempty" json:"mesocycleId,omitempty"`
	RemainingWeeks     int                   `bson:"remainingWeeks" json:"remainingWeeks"`
	Decision           FrequencyDecision     `bson:"decision" json:"decision"`
	Status             FrequencyChangeStatus `bson:"status" json:"status"`
	Source             string                `bson:"source" json:"source"`
	CreatedAt          time.Time             `bson:"createdAt" json:"createdAt"`
	ProcessedAt        *time.Time            `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}
