package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func statusOf(t *testing.T, r *RecoveryReport, g domain.MuscleGroup) domain.RecoveryStatus {
	t.Helper()
	for _, m := range r.Muscles {
		if m.MuscleGroup == g {
			return m.Status
		}
	}
	t.Fatalf("muscle group %s missing from report", g)
	return ""
}

func TestRecoveryWithoutRecordsIsReady(t *testing.T) {
	e := newEngine(t)
	report, err := e.recovery.QueryRecovery(context.Background(), primitive.NewObjectID(), []domain.MuscleGroup{domain.MuscleChest, domain.MuscleBack})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !report.AllReady || len(report.Muscles) != 2 {
		t.Errorf("untracked groups should be ready, got %+v", report)
	}
	if report.Muscles[0].LastTrained != nil {
		t.Error("untracked group should have no last-trained time")
	}
}

func TestRecoveryLifecycle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	groups := []domain.MuscleGroup{domain.MuscleQuadriceps, domain.MuscleHamstrings}

	if err := e.recovery.RecordTraining(ctx, user, groups, 72); err != nil {
		t.Fatalf("record: %v", err)
	}

	steps := []struct {
		advance time.Duration
		want    domain.RecoveryStatus
	}{
		{0, domain.RecoveryRecovering},
		{71 * time.Hour, domain.RecoveryRecovering},
		{time.Hour, domain.RecoveryReady},
		{7 * 24 * time.Hour, domain.RecoveryReady},
		{time.Minute, domain.RecoveryOverdue},
	}
	for i, step := range steps {
		e.clock.Advance(step.advance)
		report, err := e.recovery.QueryRecovery(ctx, user, groups)
		if err != nil {
			t.Fatalf("step %d: query: %v", i, err)
		}
		if got := statusOf(t, report, domain.MuscleQuadriceps); got != step.want {
			t.Errorf("step %d: expected %s, got %s", i, step.want, got)
		}
		if wantReady := step.want != domain.RecoveryRecovering; report.AllReady != wantReady {
			t.Errorf("step %d: expected AllReady=%v", i, wantReady)
		}
	}
}

func TestRecoveryLastWriteWins(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	chest := []domain.MuscleGroup{domain.MuscleChest}

	if err := e.recovery.RecordTraining(ctx, user, chest, 24); err != nil {
		t.Fatalf("record: %v", err)
	}
	e.clock.Advance(20 * time.Hour)
	if err := e.recovery.RecordTraining(ctx, user, chest, 48); err != nil {
		t.Fatalf("record: %v", err)
	}
	e.clock.Advance(10 * time.Hour)

	report, err := e.recovery.QueryRecovery(ctx, user, chest)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if report.AllReady {
		t.Error("second session should push next-available out to 48h")
	}
	if want := monday.Add(68 * time.Hour); !report.Muscles[0].NextAvailable.Equal(want) {
		t.Errorf("expected next available %s, got %s", want, report.Muscles[0].NextAvailable)
	}
}

func TestRecoveryDefaultHours(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	abs := []domain.MuscleGroup{domain.MuscleAbs}

	if err := e.recovery.RecordTraining(ctx, user, abs, 0); err != nil {
		t.Fatalf("record: %v", err)
	}
	report, err := e.recovery.QueryRecovery(ctx, user, abs)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if want := monday.Add(48 * time.Hour); !report.Muscles[0].NextAvailable.Equal(want) {
		t.Errorf("expected default 48h recovery, got %s", report.Muscles[0].NextAvailable)
	}
}

func TestRecoveryRejectsBadGroups(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := primitive.NewObjectID()

	for _, groups := range [][]domain.MuscleGroup{nil, {"wings"}} {
		if err := e.recovery.RecordTraining(ctx, user, groups, 48); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("record %v: expected validation error, got %v", groups, err)
		}
		if _, err := e.recovery.QueryRecovery(ctx, user, groups); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("query %v: expected validation error, got %v", groups, err)
		}
	}
}
