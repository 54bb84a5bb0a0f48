package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psdyuan2/AiMediaOps/internal/license"
)

func (s *Server) handleLicenseStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":                   true,
		"activated":                 s.License.IsActivated(),
		"expired":                   s.License.IsExpired(),
		"max_tasks":                 s.License.GetMaxTasks(),
		"can_execute_immediately":   s.License.CanExecuteImmediately(),
		"interval_limit_seconds":    s.License.GetIntervalLimit(),
	})
}

type activateRequest struct {
	LicenseCode string `json:"license_code"`
	ProductID   string `json:"product_id"`
}

func (s *Server) handleLicenseActivate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LicenseCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "license_code is required"})
		return
	}
	productID := req.ProductID
	if productID == "" {
		productID = "amediaops"
	}

	cfg, err := s.License.Activate(c.Request.Context(), productID, req.LicenseCode)
	if err != nil {
		switch {
		case errors.Is(err, license.ErrInvalidLicense):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": "LICENSE_INVALID", "error_type": "license"})
		case errors.Is(err, license.ErrServiceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error(), "error_code": "LICENSE_SERVICE_UNAVAILABLE", "error_type": "license"})
		default:
			writeError(c, err, http.StatusInternalServerError)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": cfg})
}
