package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxDurationWeeks = 52
	finalWeekDays    = 7
	// sessionsPerWeek is the baseline used for expected sessions in progress reports.
	sessionsPerWeek = 4
	// zeroSessionProgressCap bounds reported progress while nothing has been completed.
	zeroSessionProgressCap = 0.05
	highParticipation      = 0.8
)

// ReasonExpired is reported once today reaches the mesocycle's end date.
const ReasonExpired = "expired"

type CreateMesocycleInput struct {
	Name          string           `json:"name"`
	SplitType     domain.SplitType `json:"splitType"`
	DurationWeeks int              `json:"durationWeeks"`
}

type ProgressionCheck struct {
	MesocycleID   primitive.ObjectID `json:"mesocycleId"`
	SplitType     domain.SplitType   `json:"splitType"`
	ShouldChange  bool               `json:"shouldChange"`
	Reason        string             `json:"reason,omitempty"`
	Advisory      string             `json:"advisory,omitempty"`
	CurrentWeek   int                `json:"currentWeek"`
	TotalWeeks    int                `json:"totalWeeks"`
	DaysRemaining int                `json:"daysRemaining"`
}

type ProgressReport struct {
	MesocycleID        primitive.ObjectID `json:"mesocycleId"`
	CurrentWeek        int                `json:"currentWeek"`
	TotalWeeks         int                `json:"totalWeeks"`
	TemporalProgress   float64            `json:"temporalProgress"`
	BehavioralProgress float64            `json:"behavioralProgress"`
	Participation      float64            `json:"participation"`
	CompletedSessions  int64              `json:"completedSessions"`
	ExpectedSessions   float64            `json:"expectedSessions"`
	Progress           float64            `json:"progress"`
}

type AutoProgressResult struct {
	Completed   *domain.Mesocycle        `json:"completed"`
	Successor   *domain.Mesocycle        `json:"successor"`
	Assignments []domain.SplitAssignment `json:"assignments"`
}

type MigrationResult struct {
	Previous    *domain.Mesocycle        `json:"previous,omitempty"`
	Current     *domain.Mesocycle        `json:"current"`
	Assignments []domain.SplitAssignment `json:"assignments"`
}

// MesocycleService owns the mesocycle state machine:
// active -> completed | paused, paused -> active. Completed is terminal.
type MesocycleService interface {
	Create(ctx context.Context, userID primitive.ObjectID, input CreateMesocycleInput) (*domain.Mesocycle, error)
	GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)
	CheckProgression(ctx context.Context, userID primitive.ObjectID) (*ProgressionCheck, error)
	AutoProgress(ctx context.Context, userID primitive.ObjectID) (*AutoProgressResult, error)
	Complete(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)
	Pause(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)
	Resume(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error)
	History(ctx context.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error)
	Progress(ctx context.Context, userID primitive.ObjectID) (*ProgressReport, error)
	// Migrate completes the active mesocycle, if any, and starts one of splitType.
	Migrate(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType, reason string) (*MigrationResult, error)
}

type mesocycleService struct {
	mesocycles      repository.MesocycleRepository
	users           repository.UserRepository
	plans           repository.DailyPlanRepository
	splits          SplitService
	locker          lock.Locker
	defaultDuration int
	now             Clock
	log             *logger.Logger
}

func NewMesocycleService(
	mesocycles repository.MesocycleRepository,
	users repository.UserRepository,
	plans repository.DailyPlanRepository,
	splits SplitService,
	locker lock.Locker,
	defaultDurationWeeks int,
	clock Clock,
	log *logger.Logger,
) MesocycleService {
	if defaultDurationWeeks <= 0 {
		defaultDurationWeeks = 6
	}
	return &mesocycleService{
		mesocycles:      mesocycles,
		users:           users,
		plans:           plans,
		splits:          splits,
		locker:          locker,
		defaultDuration: defaultDurationWeeks,
		now:             clock,
		log:             log.With("service", "MesocycleService"),
	}
}

func (s *mesocycleService) Create(ctx context.Context, userID primitive.ObjectID, input CreateMesocycleInput) (*domain.Mesocycle, error) {
	weeks := input.DurationWeeks
	if weeks == 0 {
		weeks = s.defaultDuration
	}
	if weeks < 1 || weeks > maxDurationWeeks {
		return nil, domain.NewValidationError("durationWeeks", fmt.Sprintf("must be between 1 and %d", maxDurationWeeks))
	}

	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	active, err := s.activeOrNil(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.NewConflictError("user already has an active mesocycle; complete or migrate it first").
			WithMetadata("mesocycleId", active.ID.Hex())
	}

	m, _, err := s.start(ctx, userID, input.SplitType, weeks, input.Name, map[string]interface{}{
		"origin": domain.OriginUser,
	})
	return m, err
}

// start plans first so an unsafe or invalid request fails before anything is written,
// then persists the mesocycle and its weekly schedule.
func (s *mesocycleService) start(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType, weeks int, name string, meta map[string]interface{}) (*domain.Mesocycle, []domain.SplitAssignment, error) {
	plan, err := s.splits.Plan(ctx, userID, splitType)
	if err != nil {
		return nil, nil, err
	}

	today := domain.DateOnly(s.now())
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("%s block from %s", humanSplitType(plan.SplitType), today.Format("2006-01-02"))
	}
	meta["weeklyFrequency"] = plan.Frequency
	if plan.Substituted {
		meta["substituted"] = true
	}

	m := &domain.Mesocycle{
		UserID:        userID,
		Name:          name,
		SplitType:     plan.SplitType,
		Status:        domain.MesocycleActive,
		StartDate:     today,
		EndDate:       today.AddDate(0, 0, weeks*7),
		DurationWeeks: weeks,
		Metadata:      meta,
	}
	if _, err := s.mesocycles.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, domain.NewConflictError("user already has an active mesocycle")
		}
		return nil, nil, translateRepoErr(err, "mesocycle")
	}

	assignments, err := s.splits.Apply(ctx, userID, plan)
	if err != nil {
		return m, nil, fmt.Errorf("mesocycle %s created but schedule was not applied: %w", m.ID.Hex(), err)
	}
	s.log.Info("Mesocycle started", "user_id", userID.Hex(), "mesocycle_id", m.ID.Hex(),
		"split_type", m.SplitType, "weeks", weeks, "origin", meta["origin"])
	return m, assignments, nil
}

func humanSplitType(t domain.SplitType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (s *mesocycleService) activeOrNil(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	m, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocycleActive)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateRepoErr(err, "active mesocycle")
	}
	return m, nil
}

func (s *mesocycleService) GetActive(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	m, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocycleActive)
	if err != nil {
		return nil, translateRepoErr(err, "active mesocycle")
	}
	return m, nil
}

func (s *mesocycleService) CheckProgression(ctx context.Context, userID primitive.ObjectID) (*ProgressionCheck, error) {
	m, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return evaluateProgression(m, s.now()), nil
}

func evaluateProgression(m *domain.Mesocycle, now time.Time) *ProgressionCheck {
	today := domain.DateOnly(now)
	check := &ProgressionCheck{
		MesocycleID:   m.ID,
		SplitType:     m.SplitType,
		TotalWeeks:    m.DurationWeeks,
		DaysRemaining: domain.DaysBetween(today, m.EndDate),
		CurrentWeek:   currentWeek(m, today),
	}
	switch {
	case check.DaysRemaining <= 0:
		check.ShouldChange = true
		check.Reason = ReasonExpired
		check.DaysRemaining = 0
	case check.DaysRemaining <= finalWeekDays:
		check.Advisory = fmt.Sprintf("Final week of %s: %d day(s) left before the next block starts.", m.Name, check.DaysRemaining)
	}
	return check
}

// currentWeek is ceil(elapsed days / 7), at least 1 and at most the duration.
func currentWeek(m *domain.Mesocycle, today time.Time) int {
	elapsed := domain.DaysBetween(m.StartDate, today)
	week := (elapsed + 6) / 7
	if week < 1 {
		week = 1
	}
	if m.DurationWeeks > 0 && week > m.DurationWeeks {
		week = m.DurationWeeks
	}
	return week
}

func (s *mesocycleService) AutoProgress(ctx context.Context, userID primitive.ObjectID) (*AutoProgressResult, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if check := evaluateProgression(current, s.now()); !check.ShouldChange {
		return nil, domain.NewInvalidStateError("current mesocycle has not expired yet").
			WithMetadata("daysRemaining", fmt.Sprint(check.DaysRemaining))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	next := nextSplitType(current.SplitType, user.Preferences.WeeklyFrequency)

	// Plan before completing so a failure leaves the expired block in place.
	if _, err := s.splits.Plan(ctx, userID, next); err != nil {
		return nil, err
	}
	completed, err := s.transition(ctx, current, domain.MesocycleActive, domain.MesocycleCompleted)
	if err != nil {
		return nil, err
	}
	successor, assignments, err := s.start(ctx, userID, next, current.DurationWeeks, "", map[string]interface{}{
		"origin":        domain.OriginAutoProgression,
		"predecessorId": current.ID.Hex(),
	})
	if err != nil {
		return nil, err
	}
	return &AutoProgressResult{Completed: completed, Successor: successor, Assignments: assignments}, nil
}

func (s *mesocycleService) transition(ctx context.Context, m *domain.Mesocycle, from, to domain.MesocycleStatus) (*domain.Mesocycle, error) {
	if err := s.mesocycles.Transition(ctx, m.ID, from, to, s.now()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("user already has an active mesocycle")
		}
		return nil, translateRepoErr(err, "mesocycle")
	}
	updated, err := s.mesocycles.GetByID(ctx, m.ID)
	if err != nil {
		return nil, translateRepoErr(err, "mesocycle")
	}
	s.log.Info("Mesocycle transitioned", "user_id", m.UserID.Hex(), "mesocycle_id", m.ID.Hex(), "from", from, "to", to)
	return updated, nil
}

func (s *mesocycleService) Complete(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, current, domain.MesocycleActive, domain.MesocycleCompleted)
}

func (s *mesocycleService) Pause(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, current, domain.MesocycleActive, domain.MesocyclePaused)
}

func (s *mesocycleService) Resume(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	paused, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocyclePaused)
	if err != nil {
		return nil, translateRepoErr(err, "paused mesocycle")
	}
	if active, err := s.activeOrNil(ctx, userID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, domain.NewConflictError("another mesocycle is active; complete it before resuming").
			WithMetadata("mesocycleId", active.ID.Hex())
	}
	return s.transition(ctx, paused, domain.MesocyclePaused, domain.MesocycleActive)
}

func (s *mesocycleService) History(ctx context.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error) {
	list, err := s.mesocycles.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "mesocycles")
	}
	return list, nil
}

func (s *mesocycleService) Progress(ctx context.Context, userID primitive.ObjectID) (*ProgressReport, error) {
	m, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := domain.DateOnly(s.now())
	completed, err := s.plans.CountCompleted(ctx, userID, m.StartDate, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, translateRepoErr(err, "daily plans")
	}
	return computeProgress(m, today, completed), nil
}

func computeProgress(m *domain.Mesocycle, today time.Time, completed int64) *ProgressReport {
	elapsed := domain.DaysBetween(m.StartDate, today)
	if elapsed < 0 {
		elapsed = 0
	}
	total := m.TotalDays()

	temporal := 1.0
	if total > 0 {
		temporal = clamp01(float64(elapsed) / float64(total))
	}
	expected := float64(elapsed) / 7 * sessionsPerWeek
	programSessions := float64(m.DurationWeeks * sessionsPerWeek)

	progress, behavioral, participation := blendProgress(temporal, completed, expected, programSessions)
	return &ProgressReport{
		MesocycleID:        m.ID,
		CurrentWeek:        currentWeek(m, today),
		TotalWeeks:         m.DurationWeeks,
		TemporalProgress:   round3(temporal),
		BehavioralProgress: round3(behavioral),
		Participation:      round3(participation),
		CompletedSessions:  completed,
		ExpectedSessions:   round3(expected),
		Progress:           round3(progress),
	}
}

// blendProgress combines calendar progress with training actually done.
// Participation is completed/expected-so-far; behavioral progress is completed
// sessions over the whole block's planned sessions.
func blendProgress(temporal float64, completed int64, expectedSoFar, programSessions float64) (progress, behavioral, participation float64) {
	if completed <= 0 {
		return math.Min(temporal, zeroSessionProgressCap), 0, 0
	}

	participation = 1
	if expectedSoFar > 0 {
		participation = clamp01(float64(completed) / expectedSoFar)
	}
	if programSessions > 0 {
		behavioral = clamp01(float64(completed) / programSessions)
	}

	if participation >= highParticipation {
		return math.Max(temporal, behavioral), behavioral, participation
	}
	// Lower participation shifts weight toward what was actually trained.
	wB := 1 - participation
	return wB*behavioral + (1-wB)*temporal, behavioral, participation
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (s *mesocycleService) Migrate(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType, reason string) (*MigrationResult, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.splits.Plan(ctx, userID, splitType); err != nil {
		return nil, err
	}

	result := &MigrationResult{}
	meta := map[string]interface{}{
		"origin": domain.OriginMigration,
		"reason": reason,
	}
	weeks := s.defaultDuration

	active, err := s.activeOrNil(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if result.Previous, err = s.transition(ctx, active, domain.MesocycleActive, domain.MesocycleCompleted); err != nil {
			return nil, err
		}
		meta["predecessorId"] = active.ID.Hex()
	}

	result.Current, result.Assignments, err = s.start(ctx, userID, splitType, weeks, "", meta)
	if err != nil {
		return nil, err
	}
	return result, nil
}
