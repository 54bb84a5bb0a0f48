package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/dispatcher"
)

// mapError translates a sentinel domain error into an HTTP status and
// stable error_code, grounded on the teacher's mapDomainError
// (delivery/server/http/error_mapper.go). Returns (0, "") for an
// unrecognised error, letting the caller fall back to 500.
func mapError(err error) (status int, code string) {
	switch {
	case errors.Is(err, dispatcher.ErrValidation):
		return http.StatusBadRequest, ""
	case errors.Is(err, dispatcher.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, dispatcher.ErrConflict):
		return http.StatusConflict, ""
	case errors.Is(err, dispatcher.ErrLicenseNotActivated):
		return http.StatusForbidden, "LICENSE_NOT_ACTIVATED"
	case errors.Is(err, dispatcher.ErrLicenseExpired):
		return http.StatusForbidden, "LICENSE_EXPIRED"
	case errors.Is(err, dispatcher.ErrTaskLimitReached):
		return http.StatusForbidden, "TASK_LIMIT_REACHED"
	default:
		return 0, ""
	}
}

// writeError writes the spec §6 error shape
// {success:false, error, error_code?, error_type?}, mapping err to a
// status/code if it matches a known sentinel, else falling back to
// defaultStatus / 500.
func writeError(c *gin.Context, err error, defaultStatus int) {
	status, code := mapError(err)
	if status == 0 {
		status = defaultStatus
	}
	body := gin.H{"success": false, "error": err.Error()}
	if code != "" {
		body["error_code"] = code
		body["error_type"] = "license"
	}
	c.JSON(status, body)
}
