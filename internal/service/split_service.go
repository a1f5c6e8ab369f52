package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledDay is one weekday of a recommended week.
type ScheduledDay struct {
	Weekday        domain.Weekday `json:"weekday"`
	Split          domain.Split   `json:"split"`
	ActiveRecovery bool           `json:"activeRecovery,omitempty"`
}

type Recommendation struct {
	Frequency   int                  `json:"weeklyFrequency"`
	SplitType   domain.SplitType     `json:"splitType"`
	Splits      []domain.Split       `json:"splits"`
	Schedule    []ScheduledDay       `json:"schedule"`
	Rationale   string               `json:"rationale"`
	Substituted bool                 `json:"substituted"`
	Excluded    []domain.MuscleGroup `json:"excludedMuscleGroups,omitempty"`
	Advisories  []string             `json:"advisories,omitempty"`
}

// ManualEntry is one user-chosen (weekday, split) pair.
type ManualEntry struct {
	Weekday domain.Weekday `json:"weekday"`
	SplitID string         `json:"splitId"`
}

// ValidationReport carries non-fatal guidance about a manual schedule.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

type SaveResult struct {
	Assignments []domain.SplitAssignment `json:"assignments"`
	Warnings    []string                 `json:"warnings"`
}

// CacheRegenerator is notified whenever a user's weekly map changes.
type CacheRegenerator interface {
	Regenerate(ctx context.Context, userID primitive.ObjectID) error
}

// SplitService maps weekdays to splits.
type SplitService interface {
	Catalog() []domain.Split
	// Recommend is pure: it reads only the catalog and the safety filter.
	Recommend(ctx context.Context, frequency int, limitations []domain.Limitation) (*Recommendation, error)
	RecommendForUser(ctx context.Context, userID primitive.ObjectID) (*Recommendation, error)
	// Plan builds the week for a given split type from the user's stored preferences
	// without persisting anything. An empty splitType means the natural type.
	Plan(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType) (*Recommendation, error)
	// Apply overwrites the user's weekly map with rec and regenerates the workout cache.
	Apply(ctx context.Context, userID primitive.ObjectID, rec *Recommendation) ([]domain.SplitAssignment, error)
	// GenerateSchedule plans from the active mesocycle's type (or the natural type) and applies it.
	GenerateSchedule(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error)
	ValidateManualAssignment(ctx context.Context, userID primitive.ObjectID, entries []ManualEntry) (*ValidationReport, error)
	SaveAssignment(ctx context.Context, userID primitive.ObjectID, entries []ManualEntry) (*SaveResult, error)
	GetSchedule(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error)
}

type splitService struct {
	catalog       *catalog.Catalog
	filter        SafetyFilter
	users         repository.UserRepository
	assignments   repository.SplitAssignmentRepository
	mesocycles    repository.MesocycleRepository
	cache         CacheRegenerator
	locker        lock.Locker
	recoveryHours int
	log           *logger.Logger
}

func NewSplitService(
	cat *catalog.Catalog,
	filter SafetyFilter,
	users repository.UserRepository,
	assignments repository.SplitAssignmentRepository,
	mesocycles repository.MesocycleRepository,
	cache CacheRegenerator,
	locker lock.Locker,
	defaultRecoveryHours int,
	log *logger.Logger,
) SplitService {
	return &splitService{
		catalog:       cat,
		filter:        filter,
		users:         users,
		assignments:   assignments,
		mesocycles:    mesocycles,
		cache:         cache,
		locker:        locker,
		recoveryHours: defaultRecoveryHours,
		log:           log.With("service", "SplitService"),
	}
}

func (s *splitService) Catalog() []domain.Split {
	return s.catalog.All()
}

func (s *splitService) Recommend(ctx context.Context, frequency int, limitations []domain.Limitation) (*Recommendation, error) {
	natural, err := NaturalSplitType(frequency)
	if err != nil {
		return nil, err
	}
	return s.build(frequency, natural, limitations)
}

func (s *splitService) RecommendForUser(ctx context.Context, userID primitive.ObjectID) (*Recommendation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	return s.Recommend(ctx, user.Preferences.WeeklyFrequency, user.Preferences.Limitations)
}

func (s *splitService) Plan(ctx context.Context, userID primitive.ObjectID, splitType domain.SplitType) (*Recommendation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	frequency := user.Preferences.WeeklyFrequency
	if splitType == "" {
		if splitType, err = NaturalSplitType(frequency); err != nil {
			return nil, err
		}
	}
	return s.build(frequency, splitType, user.Preferences.Limitations)
}

// build lays out one week of splits of type t for the frequency.
func (s *splitService) build(frequency int, t domain.SplitType, limitations []domain.Limitation) (*Recommendation, error) {
	if err := validateFrequency(frequency); err != nil {
		return nil, err
	}
	if !t.IsValid() {
		return nil, domain.NewValidationError("splitType", "unknown split type: "+string(t))
	}
	limitations = canonicalLimitations(limitations)

	splits, note, err := s.selectSplits(frequency, t, limitations)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{
		Frequency:  frequency,
		SplitType:  t,
		Splits:     splits,
		Excluded:   s.filter.Excluded(limitations),
		Advisories: s.filter.Advisories(limitations),
	}
	reasons := []string{rationaleFor(frequency, t)}
	if note != "" {
		rec.Substituted = true
		reasons = append(reasons, note)
	}

	// Rotate through the splits in catalog order so repeats stay maximally spaced.
	for i, day := range TrainingDays(frequency) {
		rec.Schedule = append(rec.Schedule, ScheduledDay{Weekday: day, Split: splits[i%len(splits)]})
	}
	if frequency == 7 {
		if safe := s.filter.FilterSafe([]domain.Split{s.catalog.Conservative()}, limitations); len(safe) == 1 {
			rec.Schedule = append(rec.Schedule, ScheduledDay{Weekday: activeRecoveryDay, Split: safe[0], ActiveRecovery: true})
			reasons = append(reasons, "Sunday is an active-recovery session.")
		}
	}
	rec.Rationale = strings.Join(reasons, " ")
	return rec, nil
}

// selectSplits returns the ordered splits to rotate through, plus a note when the
// required type had to be substituted.
func (s *splitService) selectSplits(frequency int, t domain.SplitType, limitations []domain.Limitation) ([]domain.Split, string, error) {
	if t.IsLimitationVariant() {
		synth, err := s.filter.SynthesizeAlternatives(limitations)
		if err != nil {
			return nil, "", err
		}
		var ofType []domain.Split
		for _, sp := range synth {
			if sp.Type == t {
				ofType = append(ofType, sp)
			}
		}
		if len(ofType) == 0 {
			return synth, fmt.Sprintf("No %s split is safe for %s; using synthesized alternatives.", t, describeLimitations(limitations)), nil
		}
		return ofType, "", nil
	}

	candidates := s.catalog.ByType(t)
	safe := s.filter.FilterSafe(candidates, limitations)
	if len(candidates) > 0 && len(safe) == len(candidates) {
		return safe, "", nil
	}

	// One weekly session needs only one usable split.
	if frequency == 1 {
		if len(safe) > 0 {
			return safe, "", nil
		}
		for _, alt := range CompatibleSplitTypes(1) {
			if alt == t {
				continue
			}
			if altSafe := s.filter.FilterSafe(s.catalog.ByType(alt), limitations); len(altSafe) > 0 {
				return altSafe, fmt.Sprintf("No %s split is safe for %s; substituted %s.", t, describeLimitations(limitations), alt), nil
			}
		}
	}

	synth, err := s.filter.SynthesizeAlternatives(limitations)
	if err != nil {
		return nil, "", err
	}
	return synth, fmt.Sprintf("The catalog has no complete %s split that is safe for %s; substituted synthesized splits covering the unaffected body regions.", t, describeLimitations(limitations)), nil
}

func rationaleFor(frequency int, t domain.SplitType) string {
	natural, _ := NaturalSplitType(frequency)
	if t == natural {
		return frequencyRationale[frequency]
	}
	msg := fmt.Sprintf("%s requested at %d sessions per week.", t, frequency)
	if !IsCompatible(frequency, t) {
		msg += fmt.Sprintf(" %s is the usual structure for this frequency.", natural)
	}
	return msg
}

func describeLimitations(limitations []domain.Limitation) string {
	if len(limitations) == 0 {
		return "this catalog"
	}
	names := make([]string, len(limitations))
	for i, l := range limitations {
		names[i] = string(l)
	}
	return "the reported limitations (" + strings.Join(names, ", ") + ")"
}

func (s *splitService) Apply(ctx context.Context, userID primitive.ObjectID, rec *Recommendation) ([]domain.SplitAssignment, error) {
	if rec == nil || len(rec.Schedule) == 0 {
		return nil, domain.NewValidationError("schedule", "recommendation has no training days")
	}
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	assignments := make([]domain.SplitAssignment, 0, len(rec.Schedule))
	for _, day := range rec.Schedule {
		rationale := rec.Rationale
		if day.ActiveRecovery {
			rationale = "Active recovery day."
		}
		assignments = append(assignments, domain.SplitAssignment{
			Weekday:       day.Weekday,
			Split:         day.Split,
			AutoAssigned:  true,
			RecoveryHours: s.hoursFor(day.Split),
			Rationale:     rationale,
		})
	}
	return s.replace(ctx, userID, assignments)
}

func (s *splitService) GenerateSchedule(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var splitType domain.SplitType
	active, err := s.mesocycles.GetByUserAndStatus(ctx, userID, domain.MesocycleActive)
	switch {
	case err == nil:
		splitType = active.SplitType
	case !errors.Is(err, repository.ErrNotFound):
		return nil, translateRepoErr(err, "active mesocycle")
	}

	rec, err := s.Plan(ctx, userID, splitType)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, userID, rec)
}

func (s *splitService) ValidateManualAssignment(ctx context.Context, userID primitive.ObjectID, entries []ManualEntry) (*ValidationReport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	report, _, err := s.validateManual(user.Preferences.WeeklyFrequency, entries, user.Preferences.Limitations)
	return report, err
}

// validateManual rejects malformed or unsafe maps and warns about spacing. It
// returns the resolved splits in weekday order.
func (s *splitService) validateManual(frequency int, entries []ManualEntry, limitations []domain.Limitation) (*ValidationReport, []domain.SplitAssignment, error) {
	if err := validateFrequency(frequency); err != nil {
		return nil, nil, err
	}
	if frequency >= 5 {
		return nil, nil, domain.NewValidationError("weeklyFrequency", "manual schedules are accepted for up to 4 training days; higher frequencies are generated automatically")
	}
	if len(entries) == 0 {
		return nil, nil, domain.NewValidationError("assignments", "at least one training day is required")
	}

	sorted := append([]ManualEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Weekday < sorted[j].Weekday })

	synth, _ := s.filter.SynthesizeAlternatives(limitations)
	seen := make(map[domain.Weekday]bool, len(sorted))
	resolved := make([]domain.SplitAssignment, 0, len(sorted))
	for _, e := range sorted {
		if !e.Weekday.IsValid() {
			return nil, nil, domain.NewValidationError("assignments", fmt.Sprintf("weekday %d is out of range 1-7", e.Weekday))
		}
		if seen[e.Weekday] {
			return nil, nil, domain.NewValidationError("assignments", "weekday "+e.Weekday.String()+" is assigned more than once")
		}
		seen[e.Weekday] = true

		split, ok := s.lookupSplit(e.SplitID, synth)
		if !ok {
			return nil, nil, domain.NewValidationError("assignments", "unknown split: "+e.SplitID)
		}
		if len(s.filter.FilterSafe([]domain.Split{split}, limitations)) == 0 {
			return nil, nil, domain.NewValidationError("assignments",
				fmt.Sprintf("split %s targets muscle groups excluded by your limitations", split.ID))
		}
		resolved = append(resolved, domain.SplitAssignment{
			Weekday:       e.Weekday,
			Split:         split,
			RecoveryHours: s.hoursFor(split),
			Rationale:     "Manually assigned.",
		})
	}

	report := &ValidationReport{Valid: true, Warnings: []string{}}
	if len(resolved) != frequency {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("schedule has %d training days but the weekly frequency is %d", len(resolved), frequency))
	}
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			a, b := resolved[i], resolved[j]
			if a.Split.ID != b.Split.ID {
				continue
			}
			if gap := cyclicGapDays(a.Weekday, b.Weekday); gap*24 < 48 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("%s on %s and %s are less than 48 hours apart", a.Split.Name, a.Weekday, b.Weekday))
			}
		}
	}
	return report, resolved, nil
}

func (s *splitService) lookupSplit(id string, synthesized []domain.Split) (domain.Split, bool) {
	if sp, ok := s.catalog.ByID(id); ok {
		return sp, true
	}
	for _, sp := range synthesized {
		if sp.ID == id {
			return sp, true
		}
	}
	return domain.Split{}, false
}

// cyclicGapDays is the shorter distance between two weekdays around the week.
func cyclicGapDays(a, b domain.Weekday) int {
	d := int(b - a)
	if d < 0 {
		d = -d
	}
	if 7-d < d {
		d = 7 - d
	}
	return d
}

func (s *splitService) SaveAssignment(ctx context.Context, userID primitive.ObjectID, entries []ManualEntry) (*SaveResult, error) {
	ctx, unlock, err := lockUser(ctx, s.locker, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	report, assignments, err := s.validateManual(user.Preferences.WeeklyFrequency, entries, user.Preferences.Limitations)
	if err != nil {
		return nil, err
	}
	saved, err := s.replace(ctx, userID, assignments)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Assignments: saved, Warnings: report.Warnings}, nil
}

// replace writes the full weekly map, then asks the cache to follow it. A failed
// regeneration is logged; the stored schedule stays authoritative.
func (s *splitService) replace(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) ([]domain.SplitAssignment, error) {
	if err := s.assignments.ReplaceForUser(ctx, userID, assignments); err != nil {
		return nil, translateRepoErr(err, "split assignments")
	}
	s.log.Info("Weekly schedule replaced", "user_id", userID.Hex(), "days", len(assignments))

	if s.cache != nil {
		if err := s.cache.Regenerate(ctx, userID); err != nil {
			s.log.Error("Workout cache regeneration failed", "user_id", userID.Hex(), "error", err)
		}
	}
	return s.GetSchedule(ctx, userID)
}

func (s *splitService) GetSchedule(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	assignments, err := s.assignments.GetByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "split assignments")
	}
	return assignments, nil
}

func (s *splitService) hoursFor(split domain.Split) int {
	if split.RecoveryHours > 0 {
		return split.RecoveryHours
	}
	return s.recoveryHours
}
