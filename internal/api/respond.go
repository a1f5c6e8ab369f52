package api

import (
	"errors"
	"net/http"
	"time"

	"alcyxob/fitness-planner/internal/domain"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dateLayout = "2006-01-02"

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindConflict:          http.StatusConflict,
	domain.KindInvalidState:      http.StatusConflict,
	domain.KindSafetyExhausted:   http.StatusUnprocessableEntity,
	domain.KindDependencyTimeout: http.StatusServiceUnavailable,
}

// ErrorResponse is the body of every engine error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    domain.ErrorKind  `json:"kind,omitempty"`
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// respondError maps engine error kinds to HTTP statuses. Anything else is a 500
// whose cause is recorded on the context for the request logger.
func respondError(c *gin.Context, err error) {
	var engineErr *domain.Error
	if !errors.As(err, &engineErr) {
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	status, ok := kindStatus[engineErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "30")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   engineErr.Message,
		Kind:    engineErr.Kind,
		Field:   engineErr.Field,
		Details: engineErr.Metadata,
	})
}

// parseDateParam reads a YYYY-MM-DD path parameter; "today" resolves against now.
func parseDateParam(c *gin.Context, name string, now time.Time) (time.Time, bool) {
	raw := c.Param(name)
	if raw == "today" {
		return domain.DateOnly(now), true
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
		return time.Time{}, false
	}
	return date, true
}

func parseObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// withUser runs fn for the current user and writes its result as JSON.
func withUser[T any](c *gin.Context, status int, fn func(c *gin.Context, userID primitive.ObjectID) (T, error)) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	res, err := fn(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, res)
}
