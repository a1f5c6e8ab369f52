package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/generator"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	generatedConfidence = 0.9
	fallbackConfidence  = 0.3

	defaultEnergyLevel   = 3
	defaultAvailableTime = 45
	fallbackPerGroup     = 2
)

// Workout result statuses.
const (
	WorkoutReady       = "ready"
	WorkoutPlanned     = "planned"
	WorkoutRestDay     = "rest_day"
	WorkoutUnavailable = "unavailable"
)

// Daily decisions.
const (
	DecisionTrain = "train"
	DecisionRest  = "rest"
)

type CacheSettings struct {
	LookaheadDays     int
	Concurrency       int
	GenerationTimeout time.Duration
}

type GenerateOptions struct {
	EnergyLevel   int `json:"energyLevel" form:"energy"`
	AvailableTime int `json:"availableTime" form:"minutes"`
}

type WorkoutResult struct {
	Date    time.Time             `json:"date"`
	Status  string                `json:"status"`
	Workout *domain.CachedWorkout `json:"workout,omitempty"`
	Plan    *domain.DailyPlan     `json:"plan,omitempty"`
	Message string                `json:"message,omitempty"`
}

type DailyStatus struct {
	Date     time.Time       `json:"date"`
	Weekday  domain.Weekday  `json:"weekday"`
	Decision string          `json:"decision"`
	Split    *domain.Split   `json:"split,omitempty"`
	Reasons  []string        `json:"reasons"`
	Recovery *RecoveryReport `json:"recovery,omitempty"`
}

type WarmResult struct {
	Users       int `json:"users"`
	Regenerated int `json:"regenerated"`
	Failed      int `json:"failed"`
}

// WorkoutCacheService pre-generates workouts for upcoming training days and hands
// them over to the daily plan.
type WorkoutCacheService interface {
	GetOrGenerate(ctx context.Context, userID primitive.ObjectID, date time.Time, opts GenerateOptions) (*WorkoutResult, error)
	// Regenerate swaps the look-ahead window for freshly generated entries in one step.
	Regenerate(ctx context.Context, userID primitive.ObjectID) error
	// PurgeStale drops past-dated unconsumed entries and regenerates the window only when
	// an entry no longer matches the current schedule.
	PurgeStale(ctx context.Context, userID primitive.ObjectID) error
	TransferToDailyPlan(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error)
	CompleteDailyPlan(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error)
	DailyStatus(ctx context.Context, userID primitive.ObjectID, date time.Time) (*DailyStatus, error)
	ListUpcoming(ctx context.Context, userID primitive.ObjectID) ([]domain.CachedWorkout, error)
	// WarmAll regenerates the cache of every user with a weekly schedule.
	WarmAll(ctx context.Context) (*WarmResult, error)
}

type workoutCacheService struct {
	users       repository.UserRepository
	assignments repository.SplitAssignmentRepository
	cached      repository.CachedWorkoutRepository
	plans       repository.DailyPlanRepository
	exercises   ExerciseService
	recovery    RecoveryTracker
	filter      SafetyFilter
	provider    generator.ContentProvider
	locker      lock.Locker
	settings    CacheSettings
	now         Clock
	log         *logger.Logger
}

func NewWorkoutCacheService(
	users repository.UserRepository,
	assignments repository.SplitAssignmentRepository,
	cached repository.CachedWorkoutRepository,
	plans repository.DailyPlanRepository,
	exercises ExerciseService,
	recovery RecoveryTracker,
	filter SafetyFilter,
	provider generator.ContentProvider,
	locker lock.Locker,
	settings CacheSettings,
	clock Clock,
	log *logger.Logger,
) WorkoutCacheService {
	if settings.LookaheadDays <= 0 {
		settings.LookaheadDays = 7
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 3
	}
	if settings.GenerationTimeout <= 0 {
		settings.GenerationTimeout = 20 * time.Second
	}
	return &workoutCacheService{
		users:       users,
		assignments: assignments,
		cached:      cached,
		plans:       plans,
		exercises:   exercises,
		recovery:    recovery,
		filter:      filter,
		provider:    provider,
		locker:      locker,
		settings:    settings,
		now:         clock,
		log:         log.With("service", "WorkoutCacheService"),
	}
}

func (o GenerateOptions) withDefaults() (GenerateOptions, error) {
	if o.EnergyLevel == 0 {
		o.EnergyLevel = defaultEnergyLevel
	}
	if o.AvailableTime == 0 {
		o.AvailableTime = defaultAvailableTime
	}
	if o.EnergyLevel < 1 || o.EnergyLevel > 5 {
		return o, domain.NewValidationError("energyLevel", "must be between 1 and 5")
	}
	if o.AvailableTime < 10 || o.AvailableTime > 240 {
		return o, domain.NewValidationError("availableTime", "must be between 10 and 240 minutes")
	}
	return o, nil
}

func (s *workoutCacheService) GetOrGenerate(ctx context.Context, userID primitive.ObjectID, date time.Time, opts GenerateOptions) (*WorkoutResult, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	date = domain.DateOnly(date)

	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cached, err := s.cached.GetUnconsumed(ctx, userID, date)
	if err == nil {
		return &WorkoutResult{Date: date, Status: WorkoutReady, Workout: cached}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoErr(err, "cached workout")
	}

	plan, err := s.plans.GetByUserAndDate(ctx, userID, date)
	if err == nil {
		return &WorkoutResult{Date: date, Status: WorkoutPlanned, Plan: plan}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translateRepoErr(err, "daily plan")
	}

	assignment, err := s.assignments.GetByUserAndWeekday(ctx, userID, domain.WeekdayOf(date))
	if errors.Is(err, repository.ErrNotFound) {
		return &WorkoutResult{Date: date, Status: WorkoutRestDay, Message: "No workout scheduled: rest day."}, nil
	}
	if err != nil {
		return nil, translateRepoErr(err, "split assignment")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}

	w, err := s.generate(ctx, user, assignment, date, opts)
	if errors.Is(err, domain.ErrDependencyTimeout) {
		s.log.Warn("Workout generation timed out", "user_id", userID.Hex(), "date", date.Format("2006-01-02"))
		return &WorkoutResult{Date: date, Status: WorkoutUnavailable, Message: "No workout available right now, try again shortly."}, nil
	}
	if err != nil {
		return nil, err
	}

	stored, err := s.cached.InsertIfAbsent(ctx, w)
	if err != nil {
		return nil, translateRepoErr(err, "cached workout")
	}
	return &WorkoutResult{Date: date, Status: WorkoutReady, Workout: stored}, nil
}

// generate asks the provider for content within the configured timeout. Timeouts
// surface as ErrDependencyTimeout; any other provider failure yields bank content.
func (s *workoutCacheService) generate(ctx context.Context, user *domain.User, a *domain.SplitAssignment, date time.Time, opts GenerateOptions) (*domain.CachedWorkout, error) {
	req := generator.Request{
		SplitName:     a.Split.Name,
		MuscleGroups:  a.Split.MuscleGroups,
		EnergyLevel:   opts.EnergyLevel,
		AvailableTime: opts.AvailableTime,
		Rationale:     a.Rationale,
		FitnessLevel:  user.Profile.FitnessLevel,
		Equipment:     user.Preferences.Equipment,
		Advisories:    s.filter.Advisories(user.Preferences.Limitations),
	}

	genCtx, cancel := context.WithTimeout(ctx, s.settings.GenerationTimeout)
	defer cancel()

	confidence := generatedConfidence
	content, err := s.provider.Generate(genCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, domain.ErrDependencyTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewDependencyTimeoutError("workout generator", err)
		}
		if !errors.Is(err, generator.ErrNotConfigured) {
			s.log.Warn("Content provider failed, using exercise bank", "user_id", user.ID.Hex(), "error", err)
		}
		if content, err = s.fallbackContent(ctx, a.Split); err != nil {
			return nil, err
		}
		confidence = fallbackConfidence
	}

	recoveryHours := a.RecoveryHours
	if recoveryHours <= 0 {
		recoveryHours = a.Split.RecoveryHours
	}
	return &domain.CachedWorkout{
		UserID:        user.ID,
		TargetDate:    date,
		SplitID:       a.Split.ID,
		MuscleGroups:  a.Split.MuscleGroups,
		RecoveryHours: recoveryHours,
		Content:       *content,
		Confidence:    confidence,
	}, nil
}

// fallbackContent builds a plain session from the exercise bank.
func (s *workoutCacheService) fallbackContent(ctx context.Context, split domain.Split) (*domain.WorkoutContent, error) {
	keys := make([]string, len(split.MuscleGroups))
	for i, g := range split.MuscleGroups {
		keys[i] = string(g)
	}
	bank, err := s.exercises.ExercisesForMuscleGroups(ctx, keys)
	if err != nil {
		return nil, err
	}

	perGroup := make(map[domain.MuscleGroup]int)
	var exercises []domain.WorkoutExercise
	for _, g := range split.MuscleGroups {
		for _, e := range bank {
			if e.MuscleGroup != g || perGroup[g] >= fallbackPerGroup {
				continue
			}
			perGroup[g]++
			sets, reps := e.DefaultSets, e.DefaultReps
			if sets <= 0 {
				sets = 3
			}
			if reps == "" {
				reps = "10-12"
			}
			exercises = append(exercises, domain.WorkoutExercise{
				Name:        e.Name,
				MuscleGroup: g,
				Sets:        sets,
				Reps:        reps,
				Rest:        "60-90 s",
				Notes:       e.ExecutionTechnic,
			})
		}
	}

	notes := "Built from the exercise bank while the workout generator is unavailable."
	if len(exercises) == 0 {
		notes = fmt.Sprintf("Work %s at an easy, controlled effort for the available time.", strings.Join(keys, ", "))
	}
	return &domain.WorkoutContent{
		Title:     split.Name,
		Warmup:    "5-10 minutes of easy cardio and dynamic mobility.",
		Exercises: exercises,
		Cooldown:  "Light stretching for the muscles trained.",
		Notes:     notes,
		Fallback:  true,
	}, nil
}

func (s *workoutCacheService) Regenerate(ctx context.Context, userID primitive.ObjectID) error {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return err
	}
	defer unlock()

	assignments, err := s.assignments.GetByUser(ctx, userID)
	if err != nil {
		return translateRepoErr(err, "split assignments")
	}
	byDay := make(map[domain.Weekday]domain.SplitAssignment, len(assignments))
	for _, a := range assignments {
		byDay[a.Weekday] = a
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translateRepoErr(err, "user")
	}

	today := domain.DateOnly(s.now())
	opts, _ := GenerateOptions{}.withDefaults()
	staged := make([]*domain.CachedWorkout, s.settings.LookaheadDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)
	for i := 0; i < s.settings.LookaheadDays; i++ {
		date := today.AddDate(0, 0, i)
		a, ok := byDay[domain.WeekdayOf(date)]
		if !ok {
			continue
		}
		if _, err := s.plans.GetByUserAndDate(ctx, userID, date); err == nil {
			continue // already handed over
		} else if !errors.Is(err, repository.ErrNotFound) {
			return translateRepoErr(err, "daily plan")
		}

		i := i
		g.Go(func() error {
			w, err := s.generate(gctx, user, &a, date, opts)
			if errors.Is(err, domain.ErrDependencyTimeout) {
				s.log.Warn("Skipping cache entry after generator timeout", "user_id", userID.Hex(), "date", date.Format("2006-01-02"))
				return nil
			}
			if err != nil {
				return err
			}
			staged[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("generate cache window: %w", err)
	}

	entries := make([]domain.CachedWorkout, 0, len(staged))
	for _, w := range staged {
		if w != nil {
			entries = append(entries, *w)
		}
	}
	if err := s.cached.ReplaceWindow(ctx, userID, today, entries); err != nil {
		return translateRepoErr(err, "cached workouts")
	}
	s.log.Info("Workout cache regenerated", "user_id", userID.Hex(), "entries", len(entries), "lookahead_days", s.settings.LookaheadDays)
	return nil
}

func (s *workoutCacheService) PurgeStale(ctx context.Context, userID primitive.ObjectID) error {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return err
	}
	defer unlock()

	today := domain.DateOnly(s.now())
	purged, err := s.cached.DeleteUnconsumedBefore(ctx, userID, today)
	if err != nil {
		return translateRepoErr(err, "cached workouts")
	}

	stale, err := s.windowIsStale(ctx, userID, today)
	if err != nil {
		return err
	}
	s.log.Info("Purged stale cached workouts", "user_id", userID.Hex(), "count", purged, "window_stale", stale)
	if !stale {
		return nil
	}
	return s.Regenerate(ctx, userID)
}

// windowIsStale reports whether any unconsumed entry in the look-ahead window was
// generated for a split the weekday no longer carries.
func (s *workoutCacheService) windowIsStale(ctx context.Context, userID primitive.ObjectID, today time.Time) (bool, error) {
	assignments, err := s.assignments.GetByUser(ctx, userID)
	if err != nil {
		return false, translateRepoErr(err, "split assignments")
	}
	splitByDay := make(map[domain.Weekday]string, len(assignments))
	for _, a := range assignments {
		splitByDay[a.Weekday] = a.Split.ID
	}

	entries, err := s.cached.ListByUser(ctx, userID, today, today.AddDate(0, 0, s.settings.LookaheadDays))
	if err != nil {
		return false, translateRepoErr(err, "cached workouts")
	}
	for _, w := range entries {
		if w.Consumed {
			continue
		}
		if splitByDay[domain.WeekdayOf(w.TargetDate)] != w.SplitID {
			return true, nil
		}
	}
	return false, nil
}

func (s *workoutCacheService) TransferToDailyPlan(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error) {
	date = domain.DateOnly(date)
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := s.GetOrGenerate(ctx, userID, date, GenerateOptions{})
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case WorkoutPlanned:
		return res.Plan, nil
	case WorkoutRestDay:
		return nil, domain.NewInvalidStateError(date.Format("2006-01-02") + " is a rest day, nothing to transfer")
	case WorkoutUnavailable:
		return nil, domain.NewDependencyTimeoutError("workout generator", nil)
	}

	w := res.Workout
	plan, err := s.cached.Transfer(ctx, w.ID, &domain.DailyPlan{
		UserID:        userID,
		Date:          date,
		SplitID:       w.SplitID,
		MuscleGroups:  w.MuscleGroups,
		RecoveryHours: w.RecoveryHours,
		Content:       w.Content,
	})
	if err != nil {
		return nil, translateRepoErr(err, "daily plan")
	}
	s.log.Info("Cached workout transferred", "user_id", userID.Hex(), "date", date.Format("2006-01-02"), "cached_workout_id", w.ID.Hex())
	return plan, nil
}

func (s *workoutCacheService) CompleteDailyPlan(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error) {
	date = domain.DateOnly(date)
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := s.plans.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, translateRepoErr(err, "daily plan")
	}
	if plan.Completed {
		return nil, domain.NewInvalidStateError("daily plan is already completed")
	}

	now := s.now()
	if err := s.plans.MarkCompleted(ctx, plan.ID, now); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, domain.NewInvalidStateError("daily plan is already completed")
		}
		return nil, translateRepoErr(err, "daily plan")
	}
	if err := s.recovery.RecordTraining(ctx, userID, plan.MuscleGroups, plan.RecoveryHours); err != nil {
		return nil, err
	}
	plan.Completed = true
	plan.CompletedAt = &now
	return plan, nil
}

func (s *workoutCacheService) DailyStatus(ctx context.Context, userID primitive.ObjectID, date time.Time) (*DailyStatus, error) {
	date = domain.DateOnly(date)
	status := &DailyStatus{Date: date, Weekday: domain.WeekdayOf(date), Decision: DecisionRest}

	a, err := s.assignments.GetByUserAndWeekday(ctx, userID, status.Weekday)
	if errors.Is(err, repository.ErrNotFound) {
		status.Reasons = []string{"No split is assigned to " + status.Weekday.String() + "."}
		return status, nil
	}
	if err != nil {
		return nil, translateRepoErr(err, "split assignment")
	}
	status.Split = &a.Split

	at := s.now()
	if date.After(at) {
		at = date
	}
	report, err := s.recovery.QueryRecoveryAt(ctx, userID, a.Split.MuscleGroups, at)
	if err != nil {
		return nil, err
	}
	status.Recovery = report
	if report.AllReady {
		status.Decision = DecisionTrain
		status.Reasons = []string{a.Split.Name + " is scheduled and every muscle group is recovered."}
		return status, nil
	}
	recovering := report.Recovering()
	names := make([]string, len(recovering))
	for i, g := range recovering {
		names[i] = string(g)
	}
	status.Reasons = []string{"Still recovering: " + strings.Join(names, ", ") + "."}
	return status, nil
}

func (s *workoutCacheService) ListUpcoming(ctx context.Context, userID primitive.ObjectID) ([]domain.CachedWorkout, error) {
	today := domain.DateOnly(s.now())
	list, err := s.cached.ListByUser(ctx, userID, today, today.AddDate(0, 0, s.settings.LookaheadDays))
	if err != nil {
		return nil, translateRepoErr(err, "cached workouts")
	}
	return list, nil
}

// WarmAll runs users in parallel; users are independent of each other.
func (s *workoutCacheService) WarmAll(ctx context.Context) (*WarmResult, error) {
	ids, err := s.assignments.ListUserIDs(ctx)
	if err != nil {
		return nil, translateRepoErr(err, "split assignments")
	}

	result := &WarmResult{Users: len(ids)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			err := s.Regenerate(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				s.log.Error("Cache warm-up failed", "user_id", id.Hex(), "error", err)
				return nil
			}
			result.Regenerated++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}
