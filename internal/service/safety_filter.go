package service

import (
	"sort"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/domain"
)

// maxSynthesized bounds the alternatives returned by SynthesizeAlternatives.
const maxSynthesized = 4

// SafetyFilter removes splits that touch muscle groups excluded by a user's
// limitations. It is pure: equal inputs always give equal outputs.
type SafetyFilter interface {
	FilterSafe(splits []domain.Split, limitations []domain.Limitation) []domain.Split
	SynthesizeAlternatives(limitations []domain.Limitation) ([]domain.Split, error)
	Excluded(limitations []domain.Limitation) []domain.MuscleGroup
	Advisories(limitations []domain.Limitation) []string
}

type safetyFilter struct {
	catalog *catalog.Catalog
}

func NewSafetyFilter(cat *catalog.Catalog) SafetyFilter {
	return &safetyFilter{catalog: cat}
}

func canonicalLimitations(limitations []domain.Limitation) []domain.Limitation {
	seen := make(map[domain.Limitation]bool, len(limitations))
	out := make([]domain.Limitation, 0, len(limitations))
	for _, l := range limitations {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FilterSafe keeps the input order of the surviving splits.
func (f *safetyFilter) FilterSafe(splits []domain.Split, limitations []domain.Limitation) []domain.Split {
	excluded := f.catalog.Excluded(limitations)
	out := make([]domain.Split, 0, len(splits))
	for _, s := range splits {
		if !s.Targets(excluded) {
			out = append(out, s)
		}
	}
	return out
}

// SynthesizeAlternatives builds focus splits from every body region that keeps at
// least two unaffected muscle groups, followed by the conservative fallback.
func (f *safetyFilter) SynthesizeAlternatives(limitations []domain.Limitation) ([]domain.Split, error) {
	limitations = canonicalLimitations(limitations)
	excluded := f.catalog.Excluded(limitations)

	var out []domain.Split
	for _, region := range f.catalog.Regions() {
		if len(out) == maxSynthesized-1 {
			break
		}
		groups := surviving(region.MuscleGroups, excluded)
		if len(groups) < 2 {
			continue
		}
		out = append(out, domain.Split{
			ID:            "synthetic_" + string(region.Type),
			Name:          region.Name,
			Type:          region.Type,
			MuscleGroups:  groups,
			RecoveryHours: region.RecoveryHours,
			Difficulty:    domain.DifficultyBeginner,
			Synthetic:     true,
		})
	}

	conservative := f.catalog.Conservative()
	if groups := surviving(conservative.MuscleGroups, excluded); len(groups) > 0 {
		conservative.MuscleGroups = groups
		out = append(out, conservative)
	}

	if len(out) == 0 {
		return nil, domain.NewSafetyExhaustedError(limitations)
	}
	return out, nil
}

func surviving(groups []domain.MuscleGroup, excluded map[domain.MuscleGroup]bool) []domain.MuscleGroup {
	out := make([]domain.MuscleGroup, 0, len(groups))
	for _, g := range groups {
		if !excluded[g] {
			out = append(out, g)
		}
	}
	return out
}

// Excluded returns the excluded muscle groups in canonical order.
func (f *safetyFilter) Excluded(limitations []domain.Limitation) []domain.MuscleGroup {
	set := f.catalog.Excluded(limitations)
	out := make([]domain.MuscleGroup, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	domain.SortMuscleGroups(out)
	return out
}

// Advisories returns intensity notes; they never affect which splits are safe.
func (f *safetyFilter) Advisories(limitations []domain.Limitation) []string {
	var out []string
	for _, l := range canonicalLimitations(limitations) {
		if note := f.catalog.Advisory(l); note != "" {
			out = append(out, note)
		}
	}
	return out
}
