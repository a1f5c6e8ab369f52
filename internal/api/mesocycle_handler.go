package api

import (
	"net/http"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MesocycleHandler drives the mesocycle lifecycle of the authenticated user.
type MesocycleHandler struct {
	mesocycleService service.MesocycleService
}

func NewMesocycleHandler(mesocycleService service.MesocycleService) *MesocycleHandler {
	return &MesocycleHandler{mesocycleService: mesocycleService}
}

type CreateMesocycleRequest struct {
	Name          string           `json:"name"`
	SplitType     domain.SplitType `json:"splitType" binding:"required"`
	DurationWeeks int              `json:"durationWeeks" binding:"omitempty,min=1"`
}

// CreateMesocycle godoc
// @Summary Start a mesocycle
// @Tags Mesocycles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param mesocycle body CreateMesocycleRequest true "Mesocycle"
// @Success 201 {object} domain.Mesocycle
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "An active mesocycle already exists"
// @Router /mesocycles [post]
func (h *MesocycleHandler) CreateMesocycle(c *gin.Context) {
	var req CreateMesocycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	withUser(c, http.StatusCreated, func(c *gin.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
		return h.mesocycleService.Create(c.Request.Context(), userID, service.CreateMesocycleInput{
			Name:          req.Name,
			SplitType:     req.SplitType,
			DurationWeeks: req.DurationWeeks,
		})
	})
}

// GetActive godoc
// @Summary Get the active mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Mesocycle
// @Failure 404 {object} ErrorResponse
// @Router /mesocycles/active [get]
func (h *MesocycleHandler) GetActive(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
		return h.mesocycleService.GetActive(c.Request.Context(), userID)
	})
}

// History godoc
// @Summary List every mesocycle of the user, newest first
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Mesocycle
// @Router /mesocycles [get]
func (h *MesocycleHandler) History(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error) {
		list, err := h.mesocycleService.History(c.Request.Context(), userID)
		if list == nil && err == nil {
			list = []domain.Mesocycle{}
		}
		return list, err
	})
}

// CheckProgression godoc
// @Summary Check whether the active mesocycle should end
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProgressionCheck
// @Failure 404 {object} ErrorResponse
// @Router /mesocycles/active/progression [get]
func (h *MesocycleHandler) CheckProgression(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.ProgressionCheck, error) {
		return h.mesocycleService.CheckProgression(c.Request.Context(), userID)
	})
}

// Progress godoc
// @Summary Blended temporal and behavioral progress of the active mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ProgressReport
// @Failure 404 {object} ErrorResponse
// @Router /mesocycles/active/progress [get]
func (h *MesocycleHandler) Progress(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.ProgressReport, error) {
		return h.mesocycleService.Progress(c.Request.Context(), userID)
	})
}

// AutoProgress godoc
// @Summary Complete an expired mesocycle and start its successor
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AutoProgressResult
// @Failure 409 {object} ErrorResponse "The mesocycle has not expired"
// @Router /mesocycles/active/auto-progress [post]
func (h *MesocycleHandler) AutoProgress(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.AutoProgressResult, error) {
		return h.mesocycleService.AutoProgress(c.Request.Context(), userID)
	})
}

// Complete godoc
// @Summary Complete the active mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Mesocycle
// @Router /mesocycles/active/complete [post]
func (h *MesocycleHandler) Complete(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
		return h.mesocycleService.Complete(c.Request.Context(), userID)
	})
}

// Pause godoc
// @Summary Pause the active mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Mesocycle
// @Router /mesocycles/active/pause [post]
func (h *MesocycleHandler) Pause(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
		return h.mesocycleService.Pause(c.Request.Context(), userID)
	})
}

// Resume godoc
// @Summary Resume the paused mesocycle
// @Tags Mesocycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Mesocycle
// @Failure 409 {object} ErrorResponse "Another mesocycle is active"
// @Router /mesocycles/paused/resume [post]
func (h *MesocycleHandler) Resume(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*domain.Mesocycle, error) {
		return h.mesocycleService.Resume(c.Request.Context(), userID)
	})
}
