package domain

import (
	"sort"
	"time"
)

// MuscleGroup is a muscle-group tag used by splits, recovery records and the exercise bank.
type MuscleGroup string

const (
	MuscleChest          MuscleGroup = "chest"
	MuscleBack           MuscleGroup = "back"
	MuscleLowerBack      MuscleGroup = "lower_back"
	MuscleShoulders      MuscleGroup = "shoulders"
	MuscleBiceps         MuscleGroup = "biceps"
	MuscleTriceps        MuscleGroup = "triceps"
	MuscleForearms       MuscleGroup = "forearms"
	MuscleAbs            MuscleGroup = "abs"
	MuscleLegs           MuscleGroup = "legs"
	MuscleQuadriceps     MuscleGroup = "quadriceps"
	MuscleHamstrings     MuscleGroup = "hamstrings"
	MuscleGlutes         MuscleGroup = "glutes"
	MuscleCalves         MuscleGroup = "calves"
	MuscleMobility       MuscleGroup = "mobility"
	MuscleCardiovascular MuscleGroup = "cardiovascular"
)

// AllMuscleGroups lists every known tag in canonical order.
var AllMuscleGroups = []MuscleGroup{
	MuscleChest, MuscleBack, MuscleLowerBack, MuscleShoulders, MuscleBiceps, MuscleTriceps,
	MuscleForearms, MuscleAbs, MuscleLegs, MuscleQuadriceps, MuscleHamstrings, MuscleGlutes,
	MuscleCalves, MuscleMobility, MuscleCardiovascular,
}

var muscleIndex = func() map[MuscleGroup]int {
	m := make(map[MuscleGroup]int, len(AllMuscleGroups))
	for i, g := range AllMuscleGroups {
		m[g] = i
	}
	return m
}()

func (g MuscleGroup) IsValid() bool {
	_, ok := muscleIndex[g]
	return ok
}

// ParseMuscleGroups validates raw keys. Unknown keys are rejected, never substituted.
func ParseMuscleGroups(raw []string) ([]MuscleGroup, error) {
	out := make([]MuscleGroup, 0, len(raw))
	seen := make(map[MuscleGroup]bool, len(raw))
	for _, r := range raw {
		g := MuscleGroup(r)
		if !g.IsValid() {
			return nil, NewValidationError("muscleGroups", "unknown muscle group: "+r)
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out, nil
}

// SortMuscleGroups orders tags canonically, in place.
func SortMuscleGroups(groups []MuscleGroup) {
	sort.SliceStable(groups, func(i, j int) bool { return muscleIndex[groups[i]] < muscleIndex[groups[j]] })
}

// Limitation is a member of the closed physical-limitation tag set.
type Limitation string

const (
	LimitationKnee     Limitation = "knee_issues"
	LimitationBack     Limitation = "back_problems"
	LimitationShoulder Limitation = "shoulder_issues"
	LimitationHeart    Limitation = "heart_condition"
	LimitationAsthma   Limitation = "asthma"
	LimitationPregnant Limitation = "pregnancy"
	LimitationWrist    Limitation = "wrist_problems"
	LimitationAnkle    Limitation = "ankle_injury"
	LimitationHip      Limitation = "hip_problems"
)

var AllLimitations = []Limitation{
	LimitationKnee, LimitationBack, LimitationShoulder, LimitationHeart, LimitationAsthma,
	LimitationPregnant, LimitationWrist, LimitationAnkle, LimitationHip,
}

func (l Limitation) IsValid() bool {
	for _, known := range AllLimitations {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLimitations validates tags and returns them de-duplicated and sorted, so that
// callers always see the same canonical set for equal inputs.
func ParseLimitations(raw []string) ([]Limitation, error) {
	seen := make(map[Limitation]bool, len(raw))
	out := make([]Limitation, 0, len(raw))
	for _, r := range raw {
		l := Limitation(r)
		if !l.IsValid() {
			return nil, NewValidationError("limitations", "unknown limitation tag: "+r)
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Weekday runs 1 (Monday) through 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func (w Weekday) IsValid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	names := [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	if !w.IsValid() {
		return "invalid"
	}
	return names[w]
}

// WeekdayOf maps a calendar date onto the Monday-first numbering.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
