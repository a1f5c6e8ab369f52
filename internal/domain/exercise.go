// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is an entry in the exercise bank, used to build fallback workout content.
type Exercise struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name" yaml:"name"`
	MuscleGroup      MuscleGroup        `bson:"muscleGroup" json:"muscleGroup" yaml:"muscle_group"`
	Equipment        string             `bson:"equipment,omitempty" json:"equipment,omitempty" yaml:"equipment"` // e.g., "bodyweight", "dumbbell", "barbell"
	Difficulty       Difficulty         `bson:"difficulty,omitempty" json:"difficulty,omitempty" yaml:"difficulty"`
	ExecutionTechnic string             `bson:"executionTechnic,omitempty" json:"executionTechnic,omitempty" yaml:"execution_technic"`
	DefaultSets      int                `bson:"defaultSets" json:"defaultSets" yaml:"sets"`
	DefaultReps      string             `bson:"defaultReps" json:"defaultReps" yaml:"reps"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt" yaml:"-"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt" yaml:"-"`
}
