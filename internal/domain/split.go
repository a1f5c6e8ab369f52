package domain

// SplitType is the closed enumeration of split structures.
type SplitType string

const (
	SplitFullBody     SplitType = "full_body"
	SplitUpperLower   SplitType = "upper_lower"
	SplitPushPullLegs SplitType = "push_pull_legs"
	SplitBodyPart     SplitType = "body_part_split"
	SplitUpperFocus   SplitType = "upper_body_focus"
	SplitLowerFocus   SplitType = "lower_body_focus"
	SplitCoreFocus    SplitType = "core_focus"
	SplitConservative SplitType = "conservative"
)

// IsLimitationVariant reports whether t is one of the synthesized, limitation-driven types.
func (t SplitType) IsLimitationVariant() bool {
	switch t {
	case SplitUpperFocus, SplitLowerFocus, SplitCoreFocus, SplitConservative:
		return true
	}
	return false
}

func (t SplitType) IsValid() bool {
	switch t {
	case SplitFullBody, SplitUpperLower, SplitPushPullLegs, SplitBodyPart:
		return true
	}
	return t.IsLimitationVariant()
}

// Difficulty tier of a split.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Split is a catalog entry. Splits are immutable at runtime.
type Split struct {
	ID            string        `bson:"id" json:"id" yaml:"id"`
	Name          string        `bson:"name" json:"name" yaml:"name"`
	Type          SplitType     `bson:"type" json:"type" yaml:"type"`
	MuscleGroups  []MuscleGroup `bson:"muscleGroups" json:"muscleGroups" yaml:"muscle_groups"`
	RecoveryHours int           `bson:"recoveryHours" json:"recoveryHours" yaml:"recovery_hours"`
	Difficulty    Difficulty    `bson:"difficulty" json:"difficulty" yaml:"difficulty"`
	Synthetic     bool          `bson:"synthetic,omitempty" json:"synthetic,omitempty" yaml:"-"`
}

// Targets reports whether the split trains any of the given groups.
func (s Split) Targets(groups map[MuscleGroup]bool) bool {
	for _, g := range s.MuscleGroups {
		if groups[g] {
			return true
		}
	}
	return false
}
