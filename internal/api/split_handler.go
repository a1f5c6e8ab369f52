package api

import (
	"net/http"
	"strconv"
	"strings"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// SplitHandler exposes the split catalog, recommendations and the weekly schedule.
type SplitHandler struct {
	splitService service.SplitService
}

func NewSplitHandler(splitService service.SplitService) *SplitHandler {
	return &SplitHandler{splitService: splitService}
}

type ScheduleRequest struct {
	Entries []service.ManualEntry `json:"entries" binding:"required,min=1,max=7"`
}

type ScheduleResponse struct {
	Assignments []domain.SplitAssignment `json:"assignments"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListSplits godoc
// @Summary List the split catalog
// @Tags Splits
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Split
// @Router /splits [get]
func (h *SplitHandler) ListSplits(c *gin.Context) {
	c.JSON(http.StatusOK, h.splitService.Catalog())
}

// Recommend godoc
// @Summary Recommend a week of splits
// @Description Without query parameters the stored preferences are used.
// @Tags Splits
// @Produce json
// @Security BearerAuth
// @Param frequency query int false "Training days per week (1-7)"
// @Param limitations query string false "Comma separated limitation tags"
// @Success 200 {object} service.Recommendation
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "No safe split exists"
// @Router /splits/recommendations [get]
func (h *SplitHandler) Recommend(c *gin.Context) {
	ctx := c.Request.Context()
	raw := c.Query("frequency")
	if raw == "" {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		rec, err := h.splitService.RecommendForUser(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	frequency, err := strconv.Atoi(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "frequency must be an integer")
		return
	}
	limitations, err := domain.ParseLimitations(splitQuery(c.Query("limitations")))
	if err != nil {
		respondError(c, err)
		return
	}
	rec, err := h.splitService.Recommend(ctx, frequency, limitations)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetSchedule godoc
// @Summary Get the weekly split schedule
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ScheduleResponse
// @Router /schedule [get]
func (h *SplitHandler) GetSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignments, err := h.splitService.GetSchedule(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if assignments == nil {
		assignments = []domain.SplitAssignment{}
	}
	c.JSON(http.StatusOK, ScheduleResponse{Assignments: assignments})
}

// SaveSchedule godoc
// @Summary Replace the weekly schedule with a manual assignment
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schedule body ScheduleRequest true "Weekday to split entries"
// @Success 200 {object} ScheduleResponse
// @Failure 400 {object} ErrorResponse
// @Router /schedule [put]
func (h *SplitHandler) SaveSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.splitService.SaveAssignment(c.Request.Context(), userID, req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScheduleResponse{Assignments: res.Assignments, Warnings: res.Warnings})
}

// ValidateSchedule godoc
// @Summary Check a manual assignment without saving it
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schedule body ScheduleRequest true "Weekday to split entries"
// @Success 200 {object} service.ValidationReport
// @Failure 400 {object} ErrorResponse
// @Router /schedule/validate [post]
func (h *SplitHandler) ValidateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	report, err := h.splitService.ValidateManualAssignment(c.Request.Context(), userID, req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GenerateSchedule godoc
// @Summary Generate the weekly schedule
// @Description Uses the given split type, else the active mesocycle's type, else the natural type for the stored frequency.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param type query string false "Split type"
// @Success 200 {object} ScheduleResponse
// @Failure 422 {object} ErrorResponse "No safe split exists"
// @Router /schedule/generate [post]
func (h *SplitHandler) GenerateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		assignments []domain.SplitAssignment
		err         error
	)
	if t := domain.SplitType(c.Query("type")); t != "" {
		if !t.IsValid() {
			abortWithError(c, http.StatusBadRequest, "Unknown split type: "+string(t))
			return
		}
		var rec *service.Recommendation
		if rec, err = h.splitService.Plan(ctx, userID, t); err == nil {
			assignments, err = h.splitService.Apply(ctx, userID, rec)
		}
	} else {
		assignments, err = h.splitService.GenerateSchedule(ctx, userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScheduleResponse{Assignments: assignments})
}
