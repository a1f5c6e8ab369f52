package service

import (
	"context"
	"strings"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"
)

// CreateExerciseInput carries the fields an admin supplies for a new bank entry.
type CreateExerciseInput struct {
	Name             string `json:"name"`
	MuscleGroup      string `json:"muscleGroup"`
	Equipment        string `json:"equipment"`
	Difficulty       string `json:"difficulty"`
	ExecutionTechnic string `json:"executionTechnic"`
	DefaultSets      int    `json:"defaultSets"`
	DefaultReps      string `json:"defaultReps"`
}

type ExerciseService interface {
	CreateExercise(ctx context.Context, input CreateExerciseInput) (*domain.Exercise, error)
	// ExercisesForMuscleGroups rejects unknown muscle-group keys instead of substituting another group.
	ExercisesForMuscleGroups(ctx context.Context, muscleGroups []string) ([]domain.Exercise, error)
	// SeedBank inserts the given exercises when the bank is empty.
	SeedBank(ctx context.Context, exercises []domain.Exercise) (int, error)
}

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	log          *logger.Logger
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository, log *logger.Logger) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		log:          log.With("service", "ExerciseService"),
	}
}

// CreateExercise validates and stores a new exercise.
func (s *exerciseService) CreateExercise(ctx context.Context, input CreateExerciseInput) (*domain.Exercise, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	group := domain.MuscleGroup(input.MuscleGroup)
	if !group.IsValid() {
		return nil, domain.NewValidationError("muscleGroup", "unknown muscle group: "+input.MuscleGroup)
	}
	difficulty := domain.Difficulty(input.Difficulty)
	switch difficulty {
	case "", domain.DifficultyBeginner, domain.DifficultyIntermediate, domain.DifficultyAdvanced:
	default:
		return nil, domain.NewValidationError("difficulty", "must be beginner, intermediate or advanced")
	}
	if input.DefaultSets < 0 {
		return nil, domain.NewValidationError("defaultSets", "cannot be negative")
	}

	exercise := &domain.Exercise{
		Name:             name,
		MuscleGroup:      group,
		Equipment:        input.Equipment,
		Difficulty:       difficulty,
		ExecutionTechnic: input.ExecutionTechnic,
		DefaultSets:      input.DefaultSets,
		DefaultReps:      input.DefaultReps,
	}
	if _, err := s.exerciseRepo.Create(ctx, exercise); err != nil {
		return nil, translateRepoErr(err, "exercise")
	}
	return exercise, nil
}

func (s *exerciseService) ExercisesForMuscleGroups(ctx context.Context, muscleGroups []string) ([]domain.Exercise, error) {
	groups, err := domain.ParseMuscleGroups(muscleGroups)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, domain.NewValidationError("muscleGroups", "at least one muscle group is required")
	}
	exercises, err := s.exerciseRepo.GetByMuscleGroups(ctx, groups)
	if err != nil {
		return nil, translateRepoErr(err, "exercises")
	}
	return exercises, nil
}

func (s *exerciseService) SeedBank(ctx context.Context, exercises []domain.Exercise) (int, error) {
	count, err := s.exerciseRepo.Count(ctx)
	if err != nil {
		return 0, translateRepoErr(err, "exercise bank")
	}
	if count > 0 {
		return 0, nil
	}
	inserted := 0
	for i := range exercises {
		e := exercises[i]
		if _, err := s.exerciseRepo.Create(ctx, &e); err != nil {
			return inserted, translateRepoErr(err, "exercise "+e.Name)
		}
		inserted++
	}
	s.log.Info("Seeded exercise bank", "count", inserted)
	return inserted, nil
}
