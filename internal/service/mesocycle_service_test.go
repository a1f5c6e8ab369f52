package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/domain"
)

const day = 24 * time.Hour

func TestCreateMesocycle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	m, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.SplitType != domain.SplitPushPullLegs || m.Status != domain.MesocycleActive {
		t.Errorf("expected active push_pull_legs, got %s/%s", m.SplitType, m.Status)
	}
	if m.DurationWeeks != 6 || m.EndDate.Sub(m.StartDate) != 42*day {
		t.Errorf("expected 6-week block, got %d weeks ending %s", m.DurationWeeks, m.EndDate)
	}
	if m.Metadata["origin"] != domain.OriginUser || m.Metadata["weeklyFrequency"] != 3 {
		t.Errorf("unexpected metadata %v", m.Metadata)
	}

	schedule, err := e.splits.GetSchedule(ctx, user)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(schedule) != 3 {
		t.Errorf("expected the block's schedule to be applied, got %d days", len(schedule))
	}

	_, err = e.mesocycles.Create(ctx, user, CreateMesocycleInput{SplitType: domain.SplitFullBody})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for a second active mesocycle, got %v", err)
	}
}

func TestCreateMesocycleValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	tests := []CreateMesocycleInput{
		{DurationWeeks: -1},
		{DurationWeeks: 53},
		{SplitType: "crossfit"},
	}
	for _, in := range tests {
		if _, err := e.mesocycles.Create(ctx, user, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", in, err)
		}
	}
	if n := e.activeCount(t, user); n != 0 {
		t.Errorf("failed creates must not leave an active mesocycle, found %d", n)
	}
}

func TestConcurrentCreateHasSingleWinner(t *testing.T) {
	e := newEngine(t)
	user := e.newUser(t, 3)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.mesocycles.Create(context.Background(), user, CreateMesocycleInput{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != workers-1 {
		t.Errorf("expected 1 winner and %d conflicts, got %d and %d", workers-1, wins, conflicts)
	}
	if n := e.activeCount(t, user); n != 1 {
		t.Errorf("expected exactly one active mesocycle, got %d", n)
	}
}

func TestCheckProgressionBoundary(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 4)

	m, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.clock.Set(m.EndDate.Add(-day).Add(10 * time.Hour))
	check, err := e.mesocycles.CheckProgression(ctx, user)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.ShouldChange || check.Advisory == "" {
		t.Errorf("day before end: expected final-week advisory without change, got %+v", check)
	}
	if check.CurrentWeek != 6 {
		t.Errorf("expected week 6, got %d", check.CurrentWeek)
	}

	e.clock.Set(m.EndDate.Add(8 * time.Hour))
	check, err = e.mesocycles.CheckProgression(ctx, user)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !check.ShouldChange || check.Reason != ReasonExpired {
		t.Errorf("end date: expected expired, got %+v", check)
	}
}

func TestCurrentWeek(t *testing.T) {
	start := domain.DateOnly(monday)
	m := &domain.Mesocycle{StartDate: start, EndDate: start.AddDate(0, 0, 42), DurationWeeks: 6}
	tests := []struct {
		days int
		want int
	}{
		{0, 1},
		{1, 1},
		{7, 1},
		{8, 2},
		{41, 6},
		{60, 6},
	}
	for _, tt := range tests {
		if got := currentWeek(m, start.AddDate(0, 0, tt.days)); got != tt.want {
			t.Errorf("day %d: expected week %d, got %d", tt.days, tt.want, got)
		}
	}
}

func TestAutoProgressAlternatesSplitType(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 4)

	first, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{SplitType: domain.SplitBodyPart})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.mesocycles.AutoProgress(ctx, user); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state before expiry, got %v", err)
	}

	e.clock.Set(first.EndDate.Add(time.Hour))
	res, err := e.mesocycles.AutoProgress(ctx, user)
	if err != nil {
		t.Fatalf("auto progress: %v", err)
	}
	if res.Completed.Status != domain.MesocycleCompleted || res.Completed.CompletedAt == nil {
		t.Errorf("predecessor should be completed, got %+v", res.Completed)
	}
	if res.Successor.SplitType != domain.SplitPushPullLegs || res.Successor.Status != domain.MesocycleActive {
		t.Errorf("expected active push_pull_legs successor, got %s/%s", res.Successor.SplitType, res.Successor.Status)
	}
	if res.Successor.Metadata["predecessorId"] != first.ID.Hex() {
		t.Errorf("successor should reference predecessor, got %v", res.Successor.Metadata)
	}
	if n := e.activeCount(t, user); n != 1 {
		t.Errorf("expected exactly one active mesocycle, got %d", n)
	}
}

func TestNextSplitType(t *testing.T) {
	tests := []struct {
		completed domain.SplitType
		frequency int
		want      domain.SplitType
	}{
		{domain.SplitBodyPart, 4, domain.SplitPushPullLegs},
		{domain.SplitPushPullLegs, 4, domain.SplitBodyPart},
		{domain.SplitPushPullLegs, 3, domain.SplitFullBody},
		{domain.SplitFullBody, 1, domain.SplitUpperLower},
		{domain.SplitUpperLower, 2, domain.SplitFullBody},
		{domain.SplitFullBody, 3, domain.SplitPushPullLegs},
		{domain.SplitUpperFocus, 5, domain.SplitPushPullLegs},
	}
	for _, tt := range tests {
		got := nextSplitType(tt.completed, tt.frequency)
		if got != tt.want {
			t.Errorf("after %s at f=%d: expected %s, got %s", tt.completed, tt.frequency, tt.want, got)
		}
		if got == tt.completed || !IsCompatible(tt.frequency, got) {
			t.Errorf("after %s at f=%d: %s must differ and be compatible", tt.completed, tt.frequency, got)
		}
	}
}

func TestBlendProgress(t *testing.T) {
	tests := []struct {
		name      string
		temporal  float64
		completed int64
		expected  float64
		program   float64
		want      float64
	}{
		{"no sessions caps at five percent", 0.5, 0, 12, 24, 0.05},
		{"no sessions early stays temporal", 0.02, 0, 1, 24, 0.02},
		{"high participation lets behavioral lead", 0.5, 20, 12, 24, 20.0 / 24},
		{"full participation keeps temporal", 0.5, 12, 12, 24, 0.5},
		{"low participation weights behavioral", 0.5, 3, 12, 24, 0.75*0.125 + 0.25*0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, _ := blendProgress(tt.temporal, tt.completed, tt.expected, tt.program)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.4f, got %.4f", tt.want, got)
			}
		})
	}
}

func TestProgressCountsCompletedPlans(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	if _, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	e.clock.Advance(21 * day)
	report, err := e.mesocycles.Progress(ctx, user)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if report.TemporalProgress != 0.5 || report.Progress != zeroSessionProgressCap {
		t.Errorf("expected temporal 0.5 capped to 0.05, got %+v", report)
	}

	// Today is Monday again: push is scheduled.
	if _, err := e.cache.TransferToDailyPlan(ctx, user, e.clock.Now()); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := e.cache.CompleteDailyPlan(ctx, user, e.clock.Now()); err != nil {
		t.Fatalf("complete plan: %v", err)
	}
	report, err = e.mesocycles.Progress(ctx, user)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if report.CompletedSessions != 1 {
		t.Errorf("expected 1 completed session, got %d", report.CompletedSessions)
	}
	if report.Progress <= zeroSessionProgressCap || report.Progress >= report.TemporalProgress {
		t.Errorf("expected blended progress between the cap and temporal, got %+v", report)
	}
}

func TestPauseResume(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 3)

	first, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	paused, err := e.mesocycles.Pause(ctx, user)
	if err != nil || paused.Status != domain.MesocyclePaused {
		t.Fatalf("pause: %v %+v", err, paused)
	}
	if _, err := e.mesocycles.Pause(ctx, user); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("pausing without an active block: expected not found, got %v", err)
	}

	if _, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{SplitType: domain.SplitFullBody}); err != nil {
		t.Fatalf("create while paused: %v", err)
	}
	if _, err := e.mesocycles.Resume(ctx, user); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("resume with another active block: expected conflict, got %v", err)
	}

	if _, err := e.mesocycles.Complete(ctx, user); err != nil {
		t.Fatalf("complete: %v", err)
	}
	resumed, err := e.mesocycles.Resume(ctx, user)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ID != first.ID || resumed.Status != domain.MesocycleActive {
		t.Errorf("expected first block active again, got %+v", resumed)
	}

	history, err := e.mesocycles.History(ctx, user)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("mesocycles are never deleted: expected 2, got %d", len(history))
	}
}

func TestAtMostOneActiveAcrossOperations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := e.newUser(t, 4)

	steps := []func() error{
		func() error { _, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{}); return err },
		func() error { _, err := e.mesocycles.Create(ctx, user, CreateMesocycleInput{}); return err },
		func() error { _, err := e.mesocycles.Migrate(ctx, user, domain.SplitUpperLower, "test"); return err },
		func() error { _, err := e.mesocycles.Pause(ctx, user); return err },
		func() error { _, err := e.mesocycles.Migrate(ctx, user, domain.SplitBodyPart, "test"); return err },
		func() error { _, err := e.mesocycles.Resume(ctx, user); return err },
		func() error { _, err := e.mesocycles.Complete(ctx, user); return err },
		func() error { _, err := e.mesocycles.Resume(ctx, user); return err },
		func() error { _, err := e.mesocycles.Migrate(ctx, user, "", "test"); return err },
	}
	for i, step := range steps {
		_ = step()
		if n := e.activeCount(t, user); n > 1 {
			t.Fatalf("step %d: %d active mesocycles", i, n)
		}
	}
	if n := e.activeCount(t, user); n != 1 {
		t.Errorf("expected the final migration to leave one active block, got %d", n)
	}
}
