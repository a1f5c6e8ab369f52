package service

import (
	"context"
	"strings"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultWeeklyFrequency = 3

type PreferencesInput struct {
	WeeklyFrequency *int     `json:"weeklyFrequency"`
	Equipment       []string `json:"equipment"`
	Limitations     []string `json:"limitations"`
}

type PreferencesResult struct {
	User              *domain.User         `json:"user"`
	FrequencyChange   *FrequencyComparison `json:"frequencyChange,omitempty"`
	ScheduleRefreshed bool                 `json:"scheduleRefreshed"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, profile domain.Profile) (*domain.User, error)
	// UpdatePreferences stores equipment and limitations directly and routes a frequency
	// change through the frequency detector. A stored schedule that the new limitations
	// make unsafe is regenerated.
	UpdatePreferences(ctx context.Context, userID primitive.ObjectID, input PreferencesInput) (*PreferencesResult, error)
}

type userService struct {
	users       repository.UserRepository
	assignments repository.SplitAssignmentRepository
	frequencies FrequencyService
	splits      SplitService
	filter      SafetyFilter
	locker      lock.Locker
	log         *logger.Logger
}

func NewUserService(
	users repository.UserRepository,
	assignments repository.SplitAssignmentRepository,
	frequencies FrequencyService,
	splits SplitService,
	filter SafetyFilter,
	locker lock.Locker,
	log *logger.Logger,
) UserService {
	return &userService{
		users:       users,
		assignments: assignments,
		frequencies: frequencies,
		splits:      splits,
		filter:      filter,
		locker:      locker,
		log:         log.With("service", "UserService"),
	}
}

// normalizePreferences validates tags and fills the default frequency.
func normalizePreferences(p domain.Preferences) (domain.Preferences, error) {
	if p.WeeklyFrequency == 0 {
		p.WeeklyFrequency = defaultWeeklyFrequency
	}
	if err := validateFrequency(p.WeeklyFrequency); err != nil {
		return p, err
	}
	raw := make([]string, len(p.Limitations))
	for i, l := range p.Limitations {
		raw[i] = string(l)
	}
	limitations, err := domain.ParseLimitations(raw)
	if err != nil {
		return p, err
	}
	p.Limitations = limitations
	p.Equipment = cleanEquipment(p.Equipment)
	return p, nil
}

func cleanEquipment(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (s *userService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "user")
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, profile domain.Profile) (*domain.User, error) {
	if profile.Age < 0 || profile.Weight < 0 || profile.Height < 0 {
		return nil, domain.NewValidationError("profile", "age, weight and height cannot be negative")
	}
	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		return nil, translateRepoErr(err, "user")
	}
	return s.GetProfile(ctx, userID)
}

func (s *userService) UpdatePreferences(ctx context.Context, userID primitive.ObjectID, input PreferencesInput) (*PreferencesResult, error) {
	limitations, err := domain.ParseLimitations(input.Limitations)
	if err != nil {
		return nil, err
	}
	if input.WeeklyFrequency != nil {
		if err := validateFrequency(*input.WeeklyFrequency); err != nil {
			return nil, err
		}
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
	limitationsChanged := !sameLimitations(user.Preferences.Limitations, limitations)

	prefs := user.Preferences
	prefs.Equipment = cleanEquipment(input.Equipment)
	prefs.Limitations = limitations
	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		return nil, translateRepoErr(err, "user preferences")
	}

	result := &PreferencesResult{}
	if input.WeeklyFrequency != nil {
		if result.FrequencyChange, err = s.frequencies.Detect(ctx, userID, *input.WeeklyFrequency); err != nil {
			return nil, err
		}
	}

	if limitationsChanged {
		if result.ScheduleRefreshed, err = s.refreshUnsafeSchedule(ctx, userID, limitations); err != nil {
			return nil, err
		}
	}

	if result.User, err = s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// refreshUnsafeSchedule regenerates the weekly map when any stored day now targets an
// excluded muscle group.
func (s *userService) refreshUnsafeSchedule(ctx context.Context, userID primitive.ObjectID, limitations []domain.Limitation) (bool, error) {
	assignments, err := s.assignments.GetByUser(ctx, userID)
	if err != nil {
		return false, translateRepoErr(err, "split assignments")
	}
	splits := make([]domain.Split, len(assignments))
	for i, a := range assignments {
		splits[i] = a.Split
	}
	if len(s.filter.FilterSafe(splits, limitations)) == len(splits) {
		return false, nil
	}

	s.log.Info("Stored schedule is unsafe for new limitations, regenerating", "user_id", userID.Hex())
	if _, err := s.splits.GenerateSchedule(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

func sameLimitations(a, b []domain.Limitation) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[domain.Limitation]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}
