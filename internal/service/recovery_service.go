package service

import (
	"context"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// overdueAfter is how long past next-available a muscle group turns overdue.
const overdueAfter = 7 * 24 * time.Hour

// MuscleRecovery is the derived state of one muscle group.
type MuscleRecovery struct {
	MuscleGroup   domain.MuscleGroup    `json:"muscleGroup"`
	Status        domain.RecoveryStatus `json:"status"`
	LastTrained   *time.Time            `json:"lastTrained,omitempty"`
	NextAvailable *time.Time            `json:"nextAvailable,omitempty"`
}

// Ready is true for both ready and overdue muscle groups.
func (m MuscleRecovery) Ready() bool {
	return m.Status != domain.RecoveryRecovering
}

type RecoveryReport struct {
	Muscles  []MuscleRecovery `json:"muscles"`
	AllReady bool             `json:"allReady"`
}

// Recovering lists the muscle groups that still block training.
func (r *RecoveryReport) Recovering() []domain.MuscleGroup {
	var out []domain.MuscleGroup
	for _, m := range r.Muscles {
		if !m.Ready() {
			out = append(out, m.MuscleGroup)
		}
	}
	return out
}

// RecoveryTracker records training per muscle group and derives readiness from elapsed time.
type RecoveryTracker interface {
	RecordTraining(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup, recoveryHours int) error
	QueryRecovery(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup) (*RecoveryReport, error)
	QueryRecoveryAt(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup, at time.Time) (*RecoveryReport, error)
}

type recoveryTracker struct {
	repo                 repository.RecoveryRepository
	defaultRecoveryHours int
	now                  Clock
	log                  *logger.Logger
}

func NewRecoveryTracker(repo repository.RecoveryRepository, defaultRecoveryHours int, clock Clock, log *logger.Logger) RecoveryTracker {
	if defaultRecoveryHours <= 0 {
		defaultRecoveryHours = 48
	}
	return &recoveryTracker{
		repo:                 repo,
		defaultRecoveryHours: defaultRecoveryHours,
		now:                  clock,
		log:                  log.With("service", "RecoveryTracker"),
	}
}

// RecordTraining marks every group as trained now. Last write wins.
func (s *recoveryTracker) RecordTraining(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup, recoveryHours int) error {
	if err := validateGroups(groups); err != nil {
		return err
	}
	if recoveryHours <= 0 {
		recoveryHours = s.defaultRecoveryHours
	}

	now := s.now()
	next := now.Add(time.Duration(recoveryHours) * time.Hour)
	records := make([]domain.MuscleRecoveryRecord, 0, len(groups))
	for _, g := range groups {
		records = append(records, domain.MuscleRecoveryRecord{
			UserID:        userID,
			MuscleGroup:   g,
			LastTrained:   now,
			Status:        domain.RecoveryRecovering,
			NextAvailable: next,
			UpdatedAt:     now,
		})
	}
	if err := s.repo.Upsert(ctx, records); err != nil {
		return translateRepoErr(err, "recovery records")
	}
	s.log.Debug("Recorded training", "user_id", userID.Hex(), "muscle_groups", groups, "recovery_hours", recoveryHours)
	return nil
}

func (s *recoveryTracker) QueryRecovery(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup) (*RecoveryReport, error) {
	return s.QueryRecoveryAt(ctx, userID, groups, s.now())
}

// QueryRecoveryAt derives status at the given instant. Storage failures and missing
// records both read as ready: absent telemetry never blocks training.
func (s *recoveryTracker) QueryRecoveryAt(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup, at time.Time) (*RecoveryReport, error) {
	if err := validateGroups(groups); err != nil {
		return nil, err
	}

	records, err := s.repo.GetByUser(ctx, userID, groups)
	if err != nil {
		s.log.Warn("Recovery lookup failed, treating muscle groups as ready", "user_id", userID.Hex(), "error", err)
		records = nil
	}
	byGroup := make(map[domain.MuscleGroup]domain.MuscleRecoveryRecord, len(records))
	for _, r := range records {
		byGroup[r.MuscleGroup] = r
	}

	report := &RecoveryReport{AllReady: true}
	for _, g := range groups {
		m := MuscleRecovery{MuscleGroup: g, Status: domain.RecoveryReady}
		if rec, ok := byGroup[g]; ok {
			last, next := rec.LastTrained, rec.NextAvailable
			m.LastTrained, m.NextAvailable = &last, &next
			m.Status = statusAt(rec, at)
		}
		if !m.Ready() {
			report.AllReady = false
		}
		report.Muscles = append(report.Muscles, m)
	}
	return report, nil
}

func statusAt(rec domain.MuscleRecoveryRecord, at time.Time) domain.RecoveryStatus {
	switch {
	case at.Before(rec.NextAvailable):
		return domain.RecoveryRecovering
	case at.Sub(rec.NextAvailable) > overdueAfter:
		return domain.RecoveryOverdue
	default:
		return domain.RecoveryReady
	}
}

func validateGroups(groups []domain.MuscleGroup) error {
	if len(groups) == 0 {
		return domain.NewValidationError("muscleGroups", "at least one muscle group is required")
	}
	for _, g := range groups {
		if !g.IsValid() {
			return domain.NewValidationError("muscleGroups", "unknown muscle group: "+string(g))
		}
	}
	return nil
}
