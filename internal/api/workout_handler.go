package api

import (
	"net/http"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler serves cached workouts, daily plans and recovery state.
type WorkoutHandler struct {
	cacheService    service.WorkoutCacheService
	recoveryTracker service.RecoveryTracker
	now             func() time.Time
}

func NewWorkoutHandler(cacheService service.WorkoutCacheService, recoveryTracker service.RecoveryTracker, now func() time.Time) *WorkoutHandler {
	return &WorkoutHandler{cacheService: cacheService, recoveryTracker: recoveryTracker, now: now}
}

type RecordTrainingRequest struct {
	MuscleGroups  []domain.MuscleGroup `json:"muscleGroups" binding:"required,min=1"`
	RecoveryHours int                  `json:"recoveryHours" binding:"omitempty,min=1,max=168"`
}

// GetWorkout godoc
// @Summary Get the workout for a date, generating it when not cached
// @Description A generator timeout yields status "unavailable" rather than an error.
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD or today"
// @Param energy query int false "Energy level 1-5"
// @Param minutes query int false "Available minutes 10-240"
// @Success 200 {object} service.WorkoutResult
// @Failure 400 {object} ErrorResponse
// @Router /workouts/{date} [get]
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	date, ok := parseDateParam(c, "date", h.now())
	if !ok {
		return
	}
	var opts service.GenerateOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.WorkoutResult, error) {
		return h.cacheService.GetOrGenerate(c.Request.Context(), userID, date, opts)
	})
}

// ListUpcoming godoc
// @Summary List cached workouts in the look-ahead window
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.CachedWorkout
// @Router /workouts/upcoming [get]
func (h *WorkoutHandler) ListUpcoming(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) ([]domain.CachedWorkout, error) {
		list, err := h.cacheService.ListUpcoming(c.Request.Context(), userID)
		if list == nil && err == nil {
			list = []domain.CachedWorkout{}
		}
		return list, err
	})
}

// Regenerate godoc
// @Summary Regenerate the look-ahead cache
// @Tags Workouts
// @Security BearerAuth
// @Success 204
// @Router /workouts/regenerate [post]
func (h *WorkoutHandler) Regenerate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.cacheService.Regenerate(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transfer godoc
// @Summary Move the cached workout for a date into the daily plan
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD or today"
// @Success 200 {object} domain.DailyPlan
// @Failure 409 {object} ErrorResponse "Rest day"
// @Failure 503 {object} ErrorResponse "Generator timed out"
// @Router /workouts/{date}/transfer [post]
func (h *WorkoutHandler) Transfer(c *gin.Context) {
	date, ok := parseDateParam(c, "date", h.now())
	if !ok {
		return
	}
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.DailyPlan, error) {
		return h.cacheService.TransferToDailyPlan(c.Request.Context(), userID, date)
	})
}

// CompletePlan godoc
// @Summary Mark the daily plan done and record training for its muscle groups
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD or today"
// @Success 200 {object} domain.DailyPlan
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already completed"
// @Router /plans/{date}/complete [post]
func (h *WorkoutHandler) CompletePlan(c *gin.Context) {
	date, ok := parseDateParam(c, "date", h.now())
	if !ok {
		return
	}
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.DailyPlan, error) {
		return h.cacheService.CompleteDailyPlan(c.Request.Context(), userID, date)
	})
}

// DailyStatus godoc
// @Summary Train or rest for a date, with reasons
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "YYYY-MM-DD or today"
// @Success 200 {object} service.DailyStatus
// @Router /status/{date} [get]
func (h *WorkoutHandler) DailyStatus(c *gin.Context) {
	date, ok := parseDateParam(c, "date", h.now())
	if !ok {
		return
	}
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.DailyStatus, error) {
		return h.cacheService.DailyStatus(c.Request.Context(), userID, date)
	})
}

// GetRecovery godoc
// @Summary Recovery state of muscle groups
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param groups query string true "Comma separated muscle groups"
// @Success 200 {object} service.RecoveryReport
// @Failure 400 {object} ErrorResponse
// @Router /recovery [get]
func (h *WorkoutHandler) GetRecovery(c *gin.Context) {
	groups := splitQuery(c.Query("groups"))
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.RecoveryReport, error) {
		parsed, err := domain.ParseMuscleGroups(groups)
		if err != nil {
			return nil, err
		}
		return h.recoveryTracker.QueryRecovery(c.Request.Context(), userID, parsed)
	})
}

// RecordTraining godoc
// @Summary Record a session done outside the plan
// @Tags Recovery
// @Accept json
// @Security BearerAuth
// @Param session body RecordTrainingRequest true "Trained muscle groups"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /recovery [post]
func (h *WorkoutHandler) RecordTraining(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req RecordTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if err := h.recoveryTracker.RecordTraining(c.Request.Context(), userID, req.MuscleGroups, req.RecoveryHours); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// WarmAll godoc
// @Summary Regenerate the cache of every scheduled user
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.WarmResult
// @Router /admin/cache/warm [post]
func (h *WorkoutHandler) WarmAll(c *gin.Context) {
	res, err := h.cacheService.WarmAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
