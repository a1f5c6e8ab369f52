package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/generator"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func scheduledUser(t *testing.T, e *engine, frequency int) primitive.ObjectID {
	t.Helper()
	user := e.newUser(t, frequency)
	if _, err := e.splits.GenerateSchedule(context.Background(), user); err != nil {
		t.Fatalf("generate schedule: %v", err)
	}
	return user
}

func TestGetOrGenerateRestDay(t *testing.T) {
	e := newEngine(t)
	user := scheduledUser(t, e, 3)

	res, err := e.cache.GetOrGenerate(context.Background(), user, monday.AddDate(0, 0, 1), GenerateOptions{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Status != WorkoutRestDay || res.Workout != nil {
		t.Errorf("Tuesday should be a rest day, got %+v", res)
	}
}

func TestGetOrGenerateUsesCache(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)
	nextMonday := monday.AddDate(0, 0, 7)

	calls := e.provider.callCount()
	first, err := e.cache.GetOrGenerate(ctx, user, nextMonday, GenerateOptions{EnergyLevel: 4, AvailableTime: 30})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Status != WorkoutReady || first.Workout.SplitID != "push" || first.Workout.Confidence != generatedConfidence {
		t.Fatalf("expected generated push workout, got %+v", first)
	}
	if e.provider.callCount() != calls+1 {
		t.Errorf("expected one provider call, got %d", e.provider.callCount()-calls)
	}

	second, err := e.cache.GetOrGenerate(ctx, user, nextMonday, GenerateOptions{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.Workout.ID != first.Workout.ID {
		t.Error("expected the cached entry to be returned")
	}
	if e.provider.callCount() != calls+1 {
		t.Error("cached read must not call the provider")
	}
}

func TestGetOrGenerateDegradesOnTimeout(t *testing.T) {
	e := newEngine(t)
	user := scheduledUser(t, e, 3)
	e.provider.set(nil, true)

	start := time.Now()
	res, err := e.cache.GetOrGenerate(context.Background(), user, monday.AddDate(0, 0, 7), GenerateOptions{})
	if err != nil {
		t.Fatalf("timeout must degrade, got %v", err)
	}
	if res.Status != WorkoutUnavailable {
		t.Errorf("expected unavailable, got %s", res.Status)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("generation was not bounded: %s", elapsed)
	}
}

func TestGetOrGenerateFallsBackToExerciseBank(t *testing.T) {
	for _, providerErr := range []error{errors.New("provider returned 500"), generator.ErrNotConfigured} {
		e := newEngine(t)
		user := scheduledUser(t, e, 3)
		e.provider.set(providerErr, false)

		res, err := e.cache.GetOrGenerate(context.Background(), user, monday.AddDate(0, 0, 7), GenerateOptions{})
		if err != nil {
			t.Fatalf("%v: get: %v", providerErr, err)
		}
		w := res.Workout
		if w == nil || !w.Content.Fallback || w.Confidence != fallbackConfidence {
			t.Fatalf("%v: expected fallback content, got %+v", providerErr, res)
		}
		if len(w.Content.Exercises) == 0 {
			t.Fatalf("%v: expected bank exercises", providerErr)
		}
		for _, ex := range w.Content.Exercises {
			switch ex.MuscleGroup {
			case domain.MuscleChest, domain.MuscleShoulders, domain.MuscleTriceps:
			default:
				t.Errorf("%v: fallback exercise %s targets %s outside the push split", providerErr, ex.Name, ex.MuscleGroup)
			}
		}
	}
}

func TestGetOrGenerateValidatesOptions(t *testing.T) {
	e := newEngine(t)
	user := scheduledUser(t, e, 3)
	for _, opts := range []GenerateOptions{{EnergyLevel: 9}, {AvailableTime: 5}} {
		if _, err := e.cache.GetOrGenerate(context.Background(), user, monday, opts); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", opts, err)
		}
	}
}

func TestRegenerateFillsLookaheadWindow(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	upcoming, err := e.cache.ListUpcoming(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []domain.Weekday{domain.Monday, domain.Wednesday, domain.Friday}
	if len(upcoming) != len(want) {
		t.Fatalf("expected %d cached days, got %d", len(want), len(upcoming))
	}
	for i, w := range upcoming {
		if got := domain.WeekdayOf(w.TargetDate); got != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestRegenerateKeepsTransferredDays(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	plan, err := e.cache.TransferToDailyPlan(ctx, user, monday)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := e.cache.Regenerate(ctx, user); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	res, err := e.cache.GetOrGenerate(ctx, user, monday, GenerateOptions{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Status != WorkoutPlanned || res.Plan.ID != plan.ID {
		t.Errorf("transferred day should stay planned, got %+v", res)
	}

	upcoming, err := e.cache.ListUpcoming(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	unconsumed := 0
	for _, w := range upcoming {
		if !w.Consumed {
			unconsumed++
		}
	}
	if unconsumed != 2 {
		t.Errorf("expected Wednesday and Friday unconsumed, got %d", unconsumed)
	}
}

func TestRegenerateSkipsTimedOutDays(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)
	e.provider.set(nil, true)

	if err := e.cache.Regenerate(ctx, user); err != nil {
		t.Fatalf("timeouts must not fail regeneration: %v", err)
	}
	upcoming, err := e.cache.ListUpcoming(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(upcoming) != 0 {
		t.Errorf("expected timed-out days to be skipped, got %d entries", len(upcoming))
	}
}

func TestTransferIsIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	first, err := e.cache.TransferToDailyPlan(ctx, user, monday)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	second, err := e.cache.TransferToDailyPlan(ctx, user, monday)
	if err != nil {
		t.Fatalf("second transfer: %v", err)
	}
	if first.ID != second.ID || first.CachedWorkoutID != second.CachedWorkoutID {
		t.Errorf("expected the same plan, got %s and %s", first.ID.Hex(), second.ID.Hex())
	}
	if _, err := e.store.CachedWorkouts().GetUnconsumed(ctx, user, monday); err == nil {
		t.Error("transferred entry should be consumed")
	}
	if first.SplitID != "push" || len(first.MuscleGroups) == 0 {
		t.Errorf("plan should carry the split, got %+v", first)
	}
}

func TestTransferErrors(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	if _, err := e.cache.TransferToDailyPlan(ctx, user, monday.AddDate(0, 0, 1)); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("rest day: expected invalid state, got %v", err)
	}
	e.provider.set(nil, true)
	if _, err := e.cache.TransferToDailyPlan(ctx, user, monday.AddDate(0, 0, 7)); !errors.Is(err, domain.ErrDependencyTimeout) {
		t.Errorf("provider timeout: expected dependency timeout, got %v", err)
	}
}

func TestCompleteDailyPlanRecordsRecovery(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	if _, err := e.cache.TransferToDailyPlan(ctx, user, monday); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	plan, err := e.cache.CompleteDailyPlan(ctx, user, monday)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !plan.Completed || plan.CompletedAt == nil {
		t.Errorf("expected completed plan, got %+v", plan)
	}
	if _, err := e.cache.CompleteDailyPlan(ctx, user, monday); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second completion: expected invalid state, got %v", err)
	}

	report, err := e.recovery.QueryRecovery(ctx, user, []domain.MuscleGroup{domain.MuscleChest})
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if report.AllReady {
		t.Error("chest should be recovering right after push day")
	}

	status, err := e.cache.DailyStatus(ctx, user, monday)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Decision != DecisionRest || len(status.Reasons) == 0 {
		t.Errorf("expected rest while recovering, got %+v", status)
	}

	status, err = e.cache.DailyStatus(ctx, user, monday.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Decision != DecisionTrain || status.Split == nil || status.Split.ID != "pull" {
		t.Errorf("pull day targets other groups and should train, got %+v", status)
	}

	status, err = e.cache.DailyStatus(ctx, user, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Decision != DecisionRest || status.Split != nil {
		t.Errorf("Tuesday has no assignment, got %+v", status)
	}
}

func TestWarmAll(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	a := scheduledUser(t, e, 2)
	b := scheduledUser(t, e, 4)
	e.newUser(t, 3) // no schedule

	res, err := e.cache.WarmAll(ctx)
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if res.Users != 2 || res.Regenerated != 2 || res.Failed != 0 {
		t.Errorf("unexpected warm result %+v", res)
	}
	for user, want := range map[primitive.ObjectID]int{a: 2, b: 4} {
		upcoming, err := e.cache.ListUpcoming(ctx, user)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(upcoming) != want {
			t.Errorf("expected %d cached days, got %d", want, len(upcoming))
		}
	}
}

func TestPurgeStaleKeepsCurrentWindow(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	past := &domain.CachedWorkout{UserID: user, TargetDate: monday.AddDate(0, 0, -7), SplitID: "push"}
	if _, err := e.store.CachedWorkouts().InsertIfAbsent(ctx, past); err != nil {
		t.Fatalf("insert: %v", err)
	}

	calls := e.provider.callCount()
	if err := e.cache.PurgeStale(ctx, user); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if got := e.provider.callCount() - calls; got != 0 {
		t.Errorf("a current window must not be regenerated, got %d provider calls", got)
	}
	all, err := e.store.CachedWorkouts().ListByUser(ctx, user, monday.AddDate(0, 0, -14), monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected the past entry purged and 3 window entries kept, got %d", len(all))
	}
	for _, w := range all {
		if w.TargetDate.Before(domain.DateOnly(monday)) {
			t.Errorf("past-dated entry %s survived", w.TargetDate.Format("2006-01-02"))
		}
	}

	// Shrink the schedule underneath the cache: Wednesday and Friday are now stale.
	assignments, err := e.store.Assignments().GetByUser(ctx, user)
	if err != nil {
		t.Fatalf("assignments: %v", err)
	}
	var kept []domain.SplitAssignment
	for _, a := range assignments {
		if a.Weekday == domain.Monday {
			kept = append(kept, a)
		}
	}
	if err := e.store.Assignments().ReplaceForUser(ctx, user, kept); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if err := e.cache.PurgeStale(ctx, user); err != nil {
		t.Fatalf("purge: %v", err)
	}
	upcoming, err := e.cache.ListUpcoming(ctx, user)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(upcoming) != 1 || domain.WeekdayOf(upcoming[0].TargetDate) != domain.Monday {
		t.Errorf("expected only Monday after regeneration, got %+v", upcoming)
	}
}

func TestRegenerateSwapsWindowInOneStep(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := scheduledUser(t, e, 3)

	var (
		mu   sync.Mutex
		seen []int
	)
	e.provider.setHook(func() {
		list, err := e.cache.ListUpcoming(context.Background(), user)
		if err != nil {
			t.Errorf("list during regenerate: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, len(list))
	})
	if err := e.cache.Regenerate(ctx, user); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	e.provider.setHook(nil)

	if len(seen) != 3 {
		t.Fatalf("expected 3 generations, got %d", len(seen))
	}
	for _, n := range seen {
		if n != 3 {
			t.Errorf("a reader saw %d entries mid-regeneration, want the complete old window of 3", n)
		}
	}
}
