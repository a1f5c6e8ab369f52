package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin" // may run cross-user migration sweeps
)

// Profile is read-only input to the engine.
type Profile struct {
	FitnessLevel string  `bson:"fitnessLevel,omitempty" json:"fitnessLevel"`
	FitnessGoal  string  `bson:"fitnessGoal,omitempty" json:"fitnessGoal"`
	Age          int     `bson:"age,omitempty" json:"age"`
	Weight       float64 `bson:"weight,omitempty" json:"weight"`
	Height       float64 `bson:"height,omitempty" json:"height"`
}

// Preferences drive split selection. Limitations are members of the closed tag set.
type Preferences struct {
	WeeklyFrequency int          `bson:"weeklyFrequency" json:"weeklyFrequency"`
	Equipment       []string     `bson:"equipment,omitempty" json:"equipment"`
	Limitations     []Limitation `bson:"limitations,omitempty" json:"limitations"`
}

// User represents an account owning periodization state.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	Profile      Profile            `bson:"profile" json:"profile"`
	Preferences  Preferences        `bson:"preferences" json:"preferences"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
