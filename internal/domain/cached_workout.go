package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutExercise is one line of generated workout content.
type WorkoutExercise struct {
	Name        string      `bson:"name" json:"name"`
	MuscleGroup MuscleGroup `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`
	Sets        int         `bson:"sets" json:"sets"`
	Reps        string      `bson:"reps" json:"reps"`
	Rest        string      `bson:"rest,omitempty" json:"rest,omitempty"`
	Notes       string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// WorkoutContent is the provider's structured output, or the exercise-bank fallback.
type WorkoutContent struct {
	Title     string            `bson:"title" json:"title"`
	Warmup    string            `bson:"warmup,omitempty" json:"warmup,omitempty"`
	Exercises []WorkoutExercise `bson:"exercises" json:"exercises"`
	Cooldown  string            `bson:"cooldown,omitempty" json:"cooldown,omitempty"`
	Notes     string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Fallback  bool              `bson:"fallback,omitempty" json:"fallback,omitempty"`
}

// CachedWorkout is generated ahead of need for (user, target date).
// Entries are superseded by regeneration rather than updated.
type CachedWorkout struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	TargetDate    time.Time          `bson:"targetDate" json:"targetDate"`
	SplitID       string             `bson:"splitId" json:"splitId"`
	MuscleGroups  []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"`
	RecoveryHours int                `bson:"recoveryHours" json:"recoveryHours"`
	Content       WorkoutContent     `bson:"content" json:"content"`
	Confidence    float64            `bson:"confidence" json:"confidence"`
	Consumed      bool               `bson:"consumed" json:"consumed"`
	ConsumedAt    *time.Time         `bson:"consumedAt,omitempty" json:"consumedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// DailyPlan is the "plan for today" slot a cached workout is transferred into.
type DailyPlan struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Date            time.Time          `bson:"date" json:"date"`
	CachedWorkoutID primitive.ObjectID `bson:"cachedWorkoutId" json:"cachedWorkoutId"`
	SplitID         string             `bson:"splitId" json:"splitId"`
	MuscleGroups    []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"`
	RecoveryHours   int                `bson:"recoveryHours" json:"recoveryHours"`
	Content         WorkoutContent     `bson:"content" json:"content"`
	Completed       bool               `bson:"completed" json:"completed"`
	CompletedAt     *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
