package service

import "alcyxob/fitness-planner/internal/domain"

// NaturalSplitType is the structurally preferred split type for a weekly frequency.
func NaturalSplitType(frequency int) (domain.SplitType, error) {
	if err := validateFrequency(frequency); err != nil {
		return "", err
	}
	switch frequency {
	case 1:
		return domain.SplitFullBody, nil
	case 2:
		return domain.SplitUpperLower, nil
	case 3, 5, 6:
		return domain.SplitPushPullLegs, nil
	default:
		return domain.SplitBodyPart, nil
	}
}

var compatibleTypes = map[int][]domain.SplitType{
	1: {domain.SplitFullBody, domain.SplitUpperLower},
	2: {domain.SplitUpperLower, domain.SplitFullBody},
	3: {domain.SplitPushPullLegs, domain.SplitFullBody},
	4: {domain.SplitBodyPart, domain.SplitUpperLower, domain.SplitPushPullLegs},
	5: {domain.SplitPushPullLegs, domain.SplitBodyPart, domain.SplitUpperLower},
	6: {domain.SplitPushPullLegs, domain.SplitBodyPart, domain.SplitUpperLower},
	7: {domain.SplitBodyPart, domain.SplitPushPullLegs},
}

// CompatibleSplitTypes lists the types acceptable at a frequency, natural type first.
func CompatibleSplitTypes(frequency int) []domain.SplitType {
	return append([]domain.SplitType(nil), compatibleTypes[frequency]...)
}

// IsCompatible reports whether a mesocycle of type t still fits the frequency.
// Limitation-specific types fit every frequency.
func IsCompatible(frequency int, t domain.SplitType) bool {
	if t.IsLimitationVariant() {
		return true
	}
	for _, c := range compatibleTypes[frequency] {
		if c == t {
			return true
		}
	}
	return false
}

var trainingDayPatterns = map[int][]domain.Weekday{
	1: {domain.Monday},
	2: {domain.Monday, domain.Thursday},
	3: {domain.Monday, domain.Wednesday, domain.Friday},
	4: {domain.Monday, domain.Tuesday, domain.Thursday, domain.Friday},
	5: {domain.Monday, domain.Tuesday, domain.Wednesday, domain.Friday, domain.Saturday},
	6: {domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday, domain.Saturday},
	7: {domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday, domain.Saturday},
}

// activeRecoveryDay is the one non-lifting day at frequency 7.
const activeRecoveryDay = domain.Sunday

// TrainingDays returns the lifting weekdays for a frequency. Frequency 7 also
// gets an active-recovery session on Sunday, which is not part of this list.
func TrainingDays(frequency int) []domain.Weekday {
	return append([]domain.Weekday(nil), trainingDayPatterns[frequency]...)
}

var frequencyRationale = map[int]string{
	1: "A single weekly full-body session maximizes stimulus per session.",
	2: "Upper/lower sessions placed with maximum separation give each half of the body a full recovery window.",
	3: "Push/pull/legs on alternating days keeps at least one rest day between sessions.",
	4: "A body-part split trains two consecutive days followed by a rest day, repeated.",
	5: "Push/pull/legs repeated twice across the week gives each muscle group two stimuli.",
	6: "Push/pull/legs repeated twice across the week gives each muscle group two stimuli.",
	7: "A body-part split fills the week with one designated active-recovery day.",
}

var alternation = map[domain.SplitType]domain.SplitType{
	domain.SplitBodyPart:     domain.SplitPushPullLegs,
	domain.SplitPushPullLegs: domain.SplitBodyPart,
	domain.SplitFullBody:     domain.SplitUpperLower,
	domain.SplitUpperLower:   domain.SplitFullBody,
}

// nextSplitType picks the successor type after `completed`. The result always
// differs from `completed` and is compatible with the frequency.
func nextSplitType(completed domain.SplitType, frequency int) domain.SplitType {
	natural, err := NaturalSplitType(frequency)
	if err != nil {
		natural = domain.SplitFullBody
	}
	if alt, ok := alternation[completed]; ok && IsCompatible(frequency, alt) {
		return alt
	}
	if natural != completed {
		return natural
	}
	for _, t := range compatibleTypes[frequency] {
		if t != completed {
			return t
		}
	}
	return natural
}
