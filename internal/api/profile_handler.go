package api

import (
	"net/http"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the authenticated user's own account.
type ProfileHandler struct {
	userService service.UserService
}

func NewProfileHandler(userService service.UserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

type PreferencesResponse struct {
	User              UserResponse                 `json:"user"`
	FrequencyChange   *service.FrequencyComparison `json:"frequencyChange,omitempty"`
	ScheduleRefreshed bool                         `json:"scheduleRefreshed"`
}

// GetMe godoc
// @Summary Get the current user
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Router /me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdateProfile godoc
// @Summary Replace the profile (fitness level, goal, body measurements)
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body domain.Profile true "Profile"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Router /me/profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req domain.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// UpdatePreferences godoc
// @Summary Replace training preferences
// @Description A changed weekly frequency is reported as a pending frequency change.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param preferences body service.PreferencesInput true "Preferences"
// @Success 200 {object} PreferencesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Another operation is running for this user"
// @Failure 422 {object} ErrorResponse "No safe split for the new limitations"
// @Router /me/preferences [put]
func (h *ProfileHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.PreferencesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	res, err := h.userService.UpdatePreferences(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PreferencesResponse{
		User:              MapUserToResponse(res.User),
		FrequencyChange:   res.FrequencyChange,
		ScheduleRefreshed: res.ScheduleRefreshed,
	})
}
