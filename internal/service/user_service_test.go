package service

import (
	"context"
	"errors"
	"testing"

	"alcyxob/fitness-planner/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestUpdatePreferencesRoutesFrequencyChange(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	res, err := e.users.UpdatePreferences(ctx, user, PreferencesInput{
		WeeklyFrequency: intPtr(4),
		Equipment:       []string{" Dumbbells ", ""},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.FrequencyChange == nil || !res.FrequencyChange.ChangeDetected || res.FrequencyChange.NewFrequency != 4 {
		t.Fatalf("expected a detected change, got %+v", res.FrequencyChange)
	}
	if res.User.Preferences.WeeklyFrequency != 4 {
		t.Errorf("expected stored frequency 4, got %d", res.User.Preferences.WeeklyFrequency)
	}
	if eq := res.User.Preferences.Equipment; len(eq) != 1 || eq[0] != "dumbbells" {
		t.Errorf("expected cleaned equipment, got %v", eq)
	}
	if res.User.PasswordHash != "" {
		t.Error("password hash must not leave the service")
	}

	changes, err := e.frequencies.ListChanges(ctx, user)
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 1 || changes[0].Status != domain.ChangePending {
		t.Errorf("expected one pending change, got %+v", changes)
	}
}

func TestUpdatePreferencesSameFrequencyIsNoChange(t *testing.T) {
	e := newEngine(t)
	user := e.newUser(t, 3)

	res, err := e.users.UpdatePreferences(context.Background(), user, PreferencesInput{WeeklyFrequency: intPtr(3)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.FrequencyChange.ChangeDetected {
		t.Error("unchanged frequency should not be reported as a change")
	}
}

func TestUpdatePreferencesRefreshesUnsafeSchedule(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	res, err := e.users.UpdatePreferences(ctx, user, PreferencesInput{Limitations: []string{"knee_issues"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.ScheduleRefreshed {
		t.Fatal("legs day is unsafe for knee issues, schedule should be refreshed")
	}

	schedule, err := e.splits.GetSchedule(ctx, user)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(schedule) != 3 {
		t.Fatalf("expected 3 training days, got %d", len(schedule))
	}
	excluded := e.catalog.Excluded([]domain.Limitation{domain.LimitationKnee})
	for _, a := range schedule {
		for _, g := range a.Split.MuscleGroups {
			if excluded[g] {
				t.Errorf("%s: %s targets excluded group %s", a.Weekday, a.Split.ID, g)
			}
		}
	}
}

func TestUpdatePreferencesKeepsSafeSchedule(t *testing.T) {
	e := newEngine(t)
	user := scheduledUser(t, e, 3)

	res, err := e.users.UpdatePreferences(context.Background(), user, PreferencesInput{Limitations: []string{"asthma"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.ScheduleRefreshed {
		t.Error("asthma excludes nothing, schedule should stay")
	}
	if lims := res.User.Preferences.Limitations; len(lims) != 1 || lims[0] != domain.LimitationAsthma {
		t.Errorf("expected stored limitation, got %v", lims)
	}
}

func TestUpdatePreferencesValidation(t *testing.T) {
	e := newEngine(t)
	user := e.newUser(t, 3)

	cases := map[string]PreferencesInput{
		"unknown tag":    {Limitations: []string{"bad_knees"}},
		"zero frequency": {WeeklyFrequency: intPtr(0)},
		"eight per week": {WeeklyFrequency: intPtr(8)},
	}
	for name, input := range cases {
		if _, err := e.users.UpdatePreferences(context.Background(), user, input); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	got, err := e.users.UpdateProfile(ctx, user, domain.Profile{Age: 31, FitnessLevel: "intermediate"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Profile.Age != 31 {
		t.Errorf("expected age 31, got %d", got.Profile.Age)
	}
	if _, err := e.users.UpdateProfile(ctx, user, domain.Profile{Age: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
