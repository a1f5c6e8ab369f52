package service

import (
	"errors"
	"reflect"
	"testing"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/domain"
)

// legsOnlyCatalog offers nothing a knee limitation can use.
const legsOnlyCatalog = `
version: 1
splits:
  - {id: squat_day, name: Squat Day, type: push_pull_legs, muscle_groups: [legs, glutes], recovery_hours: 72}
  - {id: hinge_day, name: Hinge Day, type: push_pull_legs, muscle_groups: [hamstrings, glutes, calves], recovery_hours: 72}
limitations:
  - {tag: knee_issues, excludes: [legs, quadriceps, hamstrings, glutes, calves]}
regions:
  - {type: upper_body_focus, name: Upper Body Focus, muscle_groups: [chest, back, shoulders], recovery_hours: 48}
  - {type: lower_body_focus, name: Lower Body Focus, muscle_groups: [legs, glutes, calves], recovery_hours: 72}
  - {type: core_focus, name: Core Focus, muscle_groups: [abs, lower_back], recovery_hours: 48}
conservative: {id: conservative_mobility, name: Mobility, type: conservative, muscle_groups: [mobility, cardiovascular], recovery_hours: 24}
`

// exhaustiveCatalog has a limitation that rules out every region and the fallback.
const exhaustiveCatalog = `
version: 1
splits:
  - {id: push, name: Push, type: push_pull_legs, muscle_groups: [chest, triceps], recovery_hours: 48}
limitations:
  - tag: pregnancy
    excludes: [chest, back, shoulders, abs, lower_back, mobility, cardiovascular]
regions:
  - {type: upper_body_focus, name: Upper Body Focus, muscle_groups: [chest, back, shoulders], recovery_hours: 48}
  - {type: core_focus, name: Core Focus, muscle_groups: [abs, lower_back], recovery_hours: 48}
conservative: {id: conservative_mobility, name: Mobility, type: conservative, muscle_groups: [mobility, cardiovascular], recovery_hours: 24}
`

func mustLoad(t *testing.T, doc string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func limitationSets() [][]domain.Limitation {
	sets := [][]domain.Limitation{nil}
	for _, l := range domain.AllLimitations {
		sets = append(sets, []domain.Limitation{l})
	}
	sets = append(sets,
		[]domain.Limitation{domain.LimitationKnee, domain.LimitationShoulder},
		[]domain.Limitation{domain.LimitationBack, domain.LimitationPregnant},
		[]domain.Limitation{domain.LimitationHip, domain.LimitationWrist, domain.LimitationAsthma},
		domain.AllLimitations,
	)
	return sets
}

func reversed(in []domain.Limitation) []domain.Limitation {
	out := make([]domain.Limitation, len(in))
	for i, l := range in {
		out[len(in)-1-i] = l
	}
	return out
}

func TestSafetyFilterIsDeterministic(t *testing.T) {
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	f := NewSafetyFilter(cat)

	for _, lims := range limitationSets() {
		first := f.FilterSafe(cat.All(), lims)
		second := f.FilterSafe(cat.All(), reversed(lims))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("FilterSafe differs for %v: %v vs %v", lims, first, second)
		}

		s1, err1 := f.SynthesizeAlternatives(lims)
		s2, err2 := f.SynthesizeAlternatives(reversed(lims))
		if !reflect.DeepEqual(s1, s2) || (err1 == nil) != (err2 == nil) {
			t.Errorf("SynthesizeAlternatives differs for %v", lims)
		}
	}
}

func TestFilterSafeNeverReturnsExcludedGroups(t *testing.T) {
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	f := NewSafetyFilter(cat)

	for _, lims := range limitationSets() {
		excluded := cat.Excluded(lims)
		for _, s := range f.FilterSafe(cat.All(), lims) {
			if s.Targets(excluded) {
				t.Errorf("split %s targets an excluded group for %v", s.ID, lims)
			}
		}
		synth, err := f.SynthesizeAlternatives(lims)
		if err != nil {
			continue
		}
		if len(synth) == 0 || len(synth) > maxSynthesized {
			t.Errorf("expected 1-%d synthesized splits for %v, got %d", maxSynthesized, lims, len(synth))
		}
		for _, s := range synth {
			if s.Targets(excluded) {
				t.Errorf("synthesized split %s targets an excluded group for %v", s.ID, lims)
			}
		}
	}
}

func TestFilterSafeKeepsOrder(t *testing.T) {
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	f := NewSafetyFilter(cat)

	got := f.FilterSafe(cat.ByType(domain.SplitPushPullLegs), []domain.Limitation{domain.LimitationKnee})
	if len(got) != 2 || got[0].ID != "push" || got[1].ID != "pull" {
		t.Fatalf("expected [push pull], got %+v", got)
	}
	if all := f.FilterSafe(cat.All(), nil); len(all) != len(cat.All()) {
		t.Errorf("no limitations should keep every split, got %d of %d", len(all), len(cat.All()))
	}
}

func TestSynthesizeAlternativesWhenCatalogIsAllLegs(t *testing.T) {
	cat := mustLoad(t, legsOnlyCatalog)
	f := NewSafetyFilter(cat)
	knee := []domain.Limitation{domain.LimitationKnee}

	if safe := f.FilterSafe(cat.All(), knee); len(safe) != 0 {
		t.Fatalf("expected every catalog split to be unsafe, got %+v", safe)
	}
	synth, err := f.SynthesizeAlternatives(knee)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(synth) < 1 {
		t.Fatal("expected at least one synthesized split")
	}
	for _, s := range synth {
		for _, g := range s.MuscleGroups {
			if g == domain.MuscleLegs || g == domain.MuscleGlutes || g == domain.MuscleCalves {
				t.Errorf("synthesized split %s contains %s", s.ID, g)
			}
		}
		if !s.Synthetic {
			t.Errorf("split %s should be marked synthetic", s.ID)
		}
	}

	wantIDs := []string{"synthetic_upper_body_focus", "synthetic_core_focus", "conservative_mobility"}
	var gotIDs []string
	for _, s := range synth {
		gotIDs = append(gotIDs, s.ID)
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("expected %v, got %v", wantIDs, gotIDs)
	}
}

func TestSynthesizeAlternativesExhausted(t *testing.T) {
	cat := mustLoad(t, exhaustiveCatalog)
	f := NewSafetyFilter(cat)

	_, err := f.SynthesizeAlternatives([]domain.Limitation{domain.LimitationPregnant})
	if !errors.Is(err, domain.ErrSafetyExhausted) {
		t.Fatalf("expected ErrSafetyExhausted, got %v", err)
	}
}

func TestAdvisoriesAreSeparateFromFiltering(t *testing.T) {
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	f := NewSafetyFilter(cat)
	heart := []domain.Limitation{domain.LimitationHeart, domain.LimitationAsthma}

	if got := f.FilterSafe(cat.All(), heart); len(got) != len(cat.All()) {
		t.Errorf("heart_condition and asthma must not remove splits, kept %d of %d", len(got), len(cat.All()))
	}
	notes := f.Advisories(heart)
	if len(notes) != 2 {
		t.Fatalf("expected two advisories, got %v", notes)
	}
	if notes[0] != cat.Advisory(domain.LimitationAsthma) {
		t.Errorf("advisories should follow canonical tag order, got %v", notes)
	}
	if got := f.Advisories([]domain.Limitation{domain.LimitationKnee}); len(got) != 0 {
		t.Errorf("knee_issues carries no advisory, got %v", got)
	}
}
