package api

import (
	"net/http"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

// CreateExerciseRequest defines the expected JSON for creating an exercise.
type CreateExerciseRequest struct {
	Name             string `json:"name" binding:"required"`
	MuscleGroup      string `json:"muscleGroup" binding:"required"` // e.g., "chest", "quadriceps"
	Equipment        string `json:"equipment"`                      // e.g., "bodyweight", "dumbbell"
	Difficulty       string `json:"difficulty"`                     // beginner, intermediate or advanced
	ExecutionTechnic string `json:"executionTechnic"`               // How to do it
	DefaultSets      int    `json:"defaultSets" binding:"omitempty,min=1"`
	DefaultReps      string `json:"defaultReps"`
}

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	MuscleGroup      domain.MuscleGroup `json:"muscleGroup"`
	Equipment        string             `json:"equipment,omitempty"`
	Difficulty       domain.Difficulty  `json:"difficulty,omitempty"`
	ExecutionTechnic string             `json:"executionTechnic,omitempty"`
	DefaultSets      int                `json:"defaultSets"`
	DefaultReps      string             `json:"defaultReps"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// MapExerciseToResponse converts a domain.Exercise to ExerciseResponse DTO.
func MapExerciseToResponse(ex *domain.Exercise) ExerciseResponse {
	if ex == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:               ex.ID.Hex(),
		Name:             ex.Name,
		MuscleGroup:      ex.MuscleGroup,
		Equipment:        ex.Equipment,
		Difficulty:       ex.Difficulty,
		ExecutionTechnic: ex.ExecutionTechnic,
		DefaultSets:      ex.DefaultSets,
		DefaultReps:      ex.DefaultReps,
		CreatedAt:        ex.CreatedAt,
	}
}

// MapExercisesToResponse converts a slice of domain.Exercise to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(exercises []domain.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(exercises))
	for i, ex := range exercises {
		responses[i] = MapExerciseToResponse(&ex)
	}
	return responses
}

// --- Handler Methods ---

// CreateExercise godoc
// @Summary Add an exercise to the bank
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body CreateExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse "Exercise created successfully"
// @Failure 400 {object} ErrorResponse "Invalid input (validation error)"
// @Failure 403 {object} gin.H "Forbidden (not an admin)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), service.CreateExerciseInput{
		Name:             req.Name,
		MuscleGroup:      req.MuscleGroup,
		Equipment:        req.Equipment,
		Difficulty:       req.Difficulty,
		ExecutionTechnic: req.ExecutionTechnic,
		DefaultSets:      req.DefaultSets,
		DefaultReps:      req.DefaultReps,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapExerciseToResponse(exercise))
}

// GetExercises godoc
// @Summary List bank exercises for muscle groups
// @Description Unknown muscle groups are rejected rather than replaced.
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param muscleGroups query string true "Comma separated muscle groups"
// @Success 200 {array} ExerciseResponse "List of exercises"
// @Failure 400 {object} ErrorResponse
// @Router /exercises [get]
func (h *ExerciseHandler) GetExercises(c *gin.Context) {
	exercises, err := h.exerciseService.ExercisesForMuscleGroups(c.Request.Context(), splitQuery(c.Query("muscleGroups")))
	if err != nil {
		respondError(c, err)
		return
	}

	if exercises == nil {
		c.JSON(http.StatusOK, []ExerciseResponse{})
		return
	}

	c.JSON(http.StatusOK, MapExercisesToResponse(exercises))
}
