package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLoginQRCode(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	png, err := s.Login.QRCode(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleLoginStatus(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	state, err := s.Login.LoginState(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": state})
}

func (s *Server) handleLoginConfirm(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	if err := s.Login.ConfirmLogin(c.Request.Context(), accountID); err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
