package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) accountForTask(c *gin.Context) (string, bool) {
	task, err := s.Tasks.Get(c.Param("id"))
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return "", false
	}
	return task.AccountID, true
}

func (s *Server) handleGetSource(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	data, err := s.Resources.ReadSource(accountID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	if data == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "source": nil})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handlePutSource(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read body"})
		return
	}
	if err := s.Resources.WriteSource(accountID, data); err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListImages(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	names, err := s.Resources.ListImages(accountID)
	if err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": names})
}

func (s *Server) handleGetImage(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	path, err := s.Resources.ImagePath(accountID, c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.File(path)
}

func (s *Server) handleUploadSource(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing file field"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to open upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to read upload"})
		return
	}
	if err := s.Resources.SaveUploadedSource(accountID, data); err != nil {
		writeError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDownloadSource(c *gin.Context) {
	accountID, ok := s.accountForTask(c)
	if !ok {
		return
	}
	c.FileAttachment(s.Resources.SourceDownloadPath(accountID), "source.json")
}
