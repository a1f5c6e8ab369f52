package api

import (
	"net/http"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FrequencyHandler serves frequency-change records and the admin migration sweep.
type FrequencyHandler struct {
	frequencyService service.FrequencyService
}

func NewFrequencyHandler(frequencyService service.FrequencyService) *FrequencyHandler {
	return &FrequencyHandler{frequencyService: frequencyService}
}

type DecisionRequest struct {
	Decision domain.FrequencyDecision `json:"decision" binding:"required,oneof=keep_current create_new"`
}

// ListChanges godoc
// @Summary List frequency changes, newest first
// @Tags Frequency
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.FrequencyChangeRecord
// @Router /frequency-changes [get]
func (h *FrequencyHandler) ListChanges(c *gin.Context) {
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error) {
		list, err := h.frequencyService.ListChanges(c.Request.Context(), userID)
		if list == nil && err == nil {
			list = []domain.FrequencyChangeRecord{}
		}
		return list, err
	})
}

// ApplyDecision godoc
// @Summary Resolve a pending frequency change
// @Description keep_current leaves the mesocycle as is; create_new completes it and starts one of the suggested type.
// @Tags Frequency
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Frequency change ID"
// @Param decision body DecisionRequest true "Decision"
// @Success 200 {object} service.DecisionResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already processed"
// @Router /frequency-changes/{id}/decision [post]
func (h *FrequencyHandler) ApplyDecision(c *gin.Context) {
	changeID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	withUser(c, http.StatusOK, func(c *gin.Context, userID primitive.ObjectID) (*service.DecisionResult, error) {
		return h.frequencyService.ApplyDecision(c.Request.Context(), userID, changeID, req.Decision)
	})
}

// sweepScope reads the optional userId query parameter of the admin sweep.
func sweepScope(c *gin.Context) (*primitive.ObjectID, bool) {
	raw := c.Query("userId")
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid userId format.")
		return nil, false
	}
	return &id, true
}

// DetectIncompatible godoc
// @Summary List active mesocycles whose split type no longer fits the user's frequency
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Restrict to one user"
// @Success 200 {array} service.IncompatibleMesocycle
// @Router /admin/sweep/incompatible [get]
func (h *FrequencyHandler) DetectIncompatible(c *gin.Context) {
	scope, ok := sweepScope(c)
	if !ok {
		return
	}
	list, err := h.frequencyService.DetectIncompatible(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []service.IncompatibleMesocycle{}
	}
	c.JSON(http.StatusOK, list)
}

// MigrateAll godoc
// @Summary Migrate every incompatible mesocycle
// @Description Per-user failures are reported in the result; the sweep continues past them.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Restrict to one user"
// @Success 200 {object} service.SweepResult
// @Router /admin/sweep/migrate [post]
func (h *FrequencyHandler) MigrateAll(c *gin.Context) {
	scope, ok := sweepScope(c)
	if !ok {
		return
	}
	res, err := h.frequencyService.MigrateAll(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
