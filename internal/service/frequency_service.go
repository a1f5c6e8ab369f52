package service

import (
	"context"
	"errors"
	"fmt"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FrequencyComparison is what Detect reports back for user-facing confirmation.
type FrequencyComparison struct {
	ChangeDetected     bool                          `json:"changeDetected"`
	OldFrequency       int                           `json:"oldFrequency"`
	NewFrequency       int                           `json:"newFrequency"`
	CurrentSplitType   domain.SplitType              `json:"currentSplitType,omitempty"`
	SuggestedSplitType domain.SplitType              `json:"suggestedSplitType,omitempty"`
	Compatible         bool                          `json:"compatible"`
	ActiveMesocycle    *domain.Mesocycle             `json:"activeMesocycle,omitempty"`
	RemainingWeeks     int                           `json:"remainingWeeks"`
	Record             *domain.FrequencyChangeRecord `json:"record,omitempty"`
}

type DecisionResult struct {
	Record    *domain.FrequencyChangeRecord `json:"record"`
	Migration *MigrationResult              `json:"migration,omitempty"`
}

// IncompatibleMesocycle is an active mesocycle whose type no longer fits its owner's frequency.
type IncompatibleMesocycle struct {
	Mesocycle          domain.Mesocycle `json:"mesocycle"`
	Frequency          int              `json:"frequency"`
	SuggestedSplitType domain.SplitType `json:"suggestedSplitType"`
}

type SweepFailure struct {
	UserID primitive.ObjectID `json:"userId"`
	Error  string             `json:"error"`
}

type SweepResult struct {
	Flagged  int            `json:"flagged"`
	Migrated int            `json:"migrated"`
	Failures []SweepFailure `json:"failures,omitempty"`
}

// FrequencyService reacts to weekly frequency changes, either on request or by sweeping
// for active mesocycles that drifted out of their owner's compatible split types.
type FrequencyService interface {
	Detect(ctx context.Context, userID primitive.ObjectID, newFrequency int) (*FrequencyComparison, error)
	ApplyDecision(ctx context.Context, userID, changeID primitive.ObjectID, decision domain.FrequencyDecision) (*DecisionResult, error)
	ListChanges(ctx context.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error)
	// DetectIncompatible scans one user when userID is set, otherwise every active mesocycle.
	DetectIncompatible(ctx context.Context, userID *primitive.ObjectID) ([]IncompatibleMesocycle, error)
	MigrateAll(ctx context.Context, userID *primitive.ObjectID) (*SweepResult, error)
}

// StaleCachePurger drops cached workouts generated against an obsolete schedule.
type StaleCachePurger interface {
	PurgeStale(ctx context.Context, userID primitive.ObjectID) error
}

type frequencyService struct {
	changes    repository.FrequencyChangeRepository
	users      repository.UserRepository
	mesocycles repository.MesocycleRepository
	manager    MesocycleService
	cache      StaleCachePurger
	locker     lock.Locker
	now        Clock
	log        *logger.Logger
}

func NewFrequencyService(
	changes repository.FrequencyChangeRepository,
	users repository.UserRepository,
	mesocycles repository.MesocycleRepository,
	manager MesocycleService,
	cache StaleCachePurger,
	locker lock.Locker,
	clock Clock,
	log *logger.Logger,
) FrequencyService {
	return &frequencyService{
		changes:    changes,
		users:      users,
		mesocycles: mesocycles,
		manager:    manager,
		cache:      cache,
		locker:     locker,
		now:        clock,
		log:        log.With("service", "FrequencyService"),
	}
}

func (s *frequencyService) Detect(ctx context.Context, userID primitive.ObjectID, newFrequency int) (*FrequencyComparison, error) {
	if err := validateFrequency(newFrequency); err != nil {
		return nil, err
	}
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	cmp := &FrequencyComparison{OldFrequency: user.Preferences.WeeklyFrequency, NewFrequency: newFrequency}
	if cmp.OldFrequency == newFrequency {
		return cmp, nil
	}

	cmp.ChangeDetected = true
	if cmp.SuggestedSplitType, err = NaturalSplitType(newFrequency); err != nil {
		return nil, err
	}
	cmp.Compatible = true

	now := s.now()
	rec := &domain.FrequencyChangeRecord{
		UserID:             userID,
		OldFrequency:       cmp.OldFrequency,
		NewFrequency:       newFrequency,
		SuggestedSplitType: cmp.SuggestedSplitType,
		Decision:           domain.DecisionPending,
		Status:             domain.ChangePending,
		Source:             domain.ChangeSourceUser,
		CreatedAt:          now,
	}

	active, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocycleActive)
	switch {
	case err == nil:
		cmp.ActiveMesocycle = active
		cmp.CurrentSplitType = active.SplitType
		cmp.Compatible = IsCompatible(newFrequency, active.SplitType)
		cmp.RemainingWeeks = active.RemainingWeeks(domain.DateOnly(now))
		id := active.ID
		rec.MesocycleID = &id
		rec.OldSplitType = active.SplitType
		rec.RemainingWeeks = cmp.RemainingWeeks
	case !errors.Is(err, repository.ErrNotFound):
		return nil, translateRepoErr(err, "active mesocycle")
	}

	cancelled, err := s.changes.CancelPending(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "frequency changes")
	}
	if _, err := s.changes.Create(ctx, rec); err != nil {
		return nil, translateRepoErr(err, "frequency change")
	}

	prefs := user.Preferences
	prefs.WeeklyFrequency = newFrequency
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, translateRepoErr(err, "user preferences")
	}

	cmp.Record = rec
	s.log.Info("Frequency change detected",
		"user_id", userID.Hex(),
		"old_frequency", cmp.OldFrequency,
		"new_frequency", newFrequency,
		"suggested_split_type", cmp.SuggestedSplitType,
		"compatible", cmp.Compatible,
		"cancelled_pending", cancelled,
	)
	return cmp, nil
}

func (s *frequencyService) ApplyDecision(ctx context.Context, userID, changeID primitive.ObjectID, decision domain.FrequencyDecision) (*DecisionResult, error) {
	if decision != domain.DecisionKeepCurrent && decision != domain.DecisionCreateNew {
		return nil, domain.NewValidationError("decision", "must be keep_current or create_new")
	}
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.changes.GetByID(ctx, changeID)
	if err != nil {
		return nil, translateRepoErr(err, "frequency change")
	}
	if rec.UserID != userID {
		return nil, domain.NewNotFoundError("frequency change not found")
	}
	if rec.Status != domain.ChangePending {
		return nil, domain.NewInvalidStateError(fmt.Sprintf("frequency change is already %s", rec.Status))
	}

	// A decision only applies to the block that was active when the change was detected.
	active, err := s.activeMesocycle(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !refersTo(rec.MesocycleID, active) {
		if err := s.changes.MarkCancelled(ctx, rec.ID); err != nil && !errors.Is(err, repository.ErrStateChanged) {
			return nil, translateRepoErr(err, "frequency change")
		}
		s.log.Info("Cancelled frequency change for a superseded mesocycle", "user_id", userID.Hex(), "change_id", rec.ID.Hex())
		return nil, domain.NewInvalidStateError("the mesocycle this change refers to is no longer active; the change was cancelled")
	}

	result := &DecisionResult{}
	if decision == domain.DecisionCreateNew {
		reason := fmt.Sprintf("weekly frequency changed from %d to %d", rec.OldFrequency, rec.NewFrequency)
		if result.Migration, err = s.manager.Migrate(ctx, userID, rec.SuggestedSplitType, reason); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if err := s.changes.MarkProcessed(ctx, rec.ID, decision, now); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, domain.NewConflictError("frequency change was processed concurrently")
		}
		return nil, translateRepoErr(err, "frequency change")
	}
	rec.Decision = decision
	rec.Status = domain.ChangeProcessed
	rec.ProcessedAt = &now
	result.Record = rec

	s.log.Info("Frequency decision applied", "user_id", userID.Hex(), "change_id", rec.ID.Hex(), "decision", decision)
	return result, nil
}

func (s *frequencyService) activeMesocycle(ctx context.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
	m, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocycleActive)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateRepoErr(err, "active mesocycle")
	}
	return m, nil
}

// refersTo reports whether a record's mesocycle reference still matches the active block.
func refersTo(ref *primitive.ObjectID, active *domain.Mesocycle) bool {
	if ref == nil || active == nil {
		return ref == nil && active == nil
	}
	return *ref == active.ID
}

func (s *frequencyService) ListChanges(ctx context.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error) {
	list, err := s.changes.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "frequency changes")
	}
	return list, nil
}

func (s *frequencyService) DetectIncompatible(ctx context.Context, userID *primitive.ObjectID) ([]IncompatibleMesocycle, error) {
	var active []domain.Mesocycle
	if userID != nil {
		m, err := s.mesocycles.GetByUserAndStatus(ctx, *userID, domain.MesocycleActive)
		switch {
		case err == nil:
			active = append(active, *m)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, translateRepoErr(err, "active mesocycle")
		}
	} else {
		list, err := s.mesocycles.ListActive(ctx)
		if err != nil {
			return nil, translateRepoErr(err, "active mesocycles")
		}
		active = list
	}

	var flagged []IncompatibleMesocycle
	for _, m := range active {
		found, err := s.check(ctx, m)
		if err != nil {
			return nil, err
		}
		if found != nil {
			flagged = append(flagged, *found)
		}
	}
	return flagged, nil
}

// check flags m when its type is outside the owner's compatible set, unless the
// owner explicitly chose to keep it.
func (s *frequencyService) check(ctx context.Context, m domain.Mesocycle) (*IncompatibleMesocycle, error) {
	user, err := s.users.GetByID(ctx, m.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	frequency := user.Preferences.WeeklyFrequency
	suggested, err := NaturalSplitType(frequency)
	if err != nil {
		s.log.Warn("Skipping user with invalid weekly frequency", "user_id", m.UserID.Hex(), "frequency", frequency)
		return nil, nil
	}
	if IsCompatible(frequency, m.SplitType) {
		return nil, nil
	}
	kept, err := s.changes.HasKeepCurrent(ctx, m.ID)
	if err != nil {
		return nil, translateRepoErr(err, "frequency changes")
	}
	if kept {
		return nil, nil
	}
	return &IncompatibleMesocycle{Mesocycle: m, Frequency: frequency, SuggestedSplitType: suggested}, nil
}

func (s *frequencyService) MigrateAll(ctx context.Context, userID *primitive.ObjectID) (*SweepResult, error) {
	flagged, err := s.DetectIncompatible(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Flagged: len(flagged)}
	for _, f := range flagged {
		if err := s.migrateOne(ctx, f); err != nil {
			s.log.Error("Sweep migration failed", "user_id", f.Mesocycle.UserID.Hex(), "mesocycle_id", f.Mesocycle.ID.Hex(), "error", err)
			result.Failures = append(result.Failures, SweepFailure{UserID: f.Mesocycle.UserID, Error: err.Error()})
			continue
		}
		result.Migrated++
	}
	s.log.Info("Incompatibility sweep finished", "flagged", result.Flagged, "migrated", result.Migrated, "failed", len(result.Failures))
	return result, nil
}

// migrateOne re-checks under the user lock, since the mesocycle may have changed
// between the scan and now.
func (s *frequencyService) migrateOne(ctx context.Context, f IncompatibleMesocycle) error {
	userID := f.Mesocycle.UserID
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.mesocycles.GetByID(ctx, f.Mesocycle.ID)
	if err != nil {
		return translateRepoErr(err, "mesocycle")
	}
	if current.Status != domain.MesocycleActive {
		return nil
	}
	still, err := s.check(ctx, *current)
	if err != nil || still == nil {
		return err
	}

	reason := fmt.Sprintf("%s is incompatible with %d sessions per week", current.SplitType, still.Frequency)
	migration, err := s.manager.Migrate(ctx, userID, still.SuggestedSplitType, reason)
	if err != nil {
		return err
	}
	// Pending user decisions referred to the block that was just replaced.
	cancelled, err := s.changes.CancelPending(ctx, userID)
	if err != nil {
		return translateRepoErr(err, "frequency changes")
	}

	now := s.now()
	id := current.ID
	rec := &domain.FrequencyChangeRecord{
		UserID:             userID,
		OldFrequency:       still.Frequency,
		NewFrequency:       still.Frequency,
		OldSplitType:       current.SplitType,
		SuggestedSplitType: still.SuggestedSplitType,
		MesocycleID:        &id,
		RemainingWeeks:     current.RemainingWeeks(domain.DateOnly(now)),
		Decision:           domain.DecisionCreateNew,
		Status:             domain.ChangeProcessed,
		Source:             domain.ChangeSourceSweep,
		CreatedAt:          now,
		ProcessedAt:        &now,
	}
	if _, err := s.changes.Create(ctx, rec); err != nil {
		return translateRepoErr(err, "frequency change")
	}

	if s.cache != nil {
		if err := s.cache.PurgeStale(ctx, userID); err != nil {
			return err
		}
	}
	s.log.Info("Migrated incompatible mesocycle",
		"user_id", userID.Hex(),
		"previous_mesocycle_id", id.Hex(),
		"mesocycle_id", migration.Current.ID.Hex(),
		"split_type", migration.Current.SplitType,
		"cancelled_pending", cancelled,
	)
	return nil
}
