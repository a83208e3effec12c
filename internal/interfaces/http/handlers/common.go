// internal/interfaces/http/handlers/common.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
)

// respondError writes a domain error with the status its kind maps to.
// Infrastructure failures are logged and hidden from the caller.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperror.HTTPStatus(err)
	kind := apperror.KindOf(err)

	if kind == "" {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).WithError(err).Error("Request failed")

		c.JSON(status, gin.H{
			"error": "Internal server error",
		})
		return
	}

	body := gin.H{
		"error": err.Error(),
		"kind":  kind,
	}
	if field := apperror.FieldOf(err); field != "" {
		body["field"] = field
	}
	if kind == apperror.KindConsistency {
		logger.WithError(err).Error("Ledger consistency check failed")
	}
	c.JSON(status, body)
}

// respondBindError reports a malformed request body or query
func respondBindError(c *gin.Context, err error) {
	body := gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	}
	if fields := validation.Fields(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(http.StatusBadRequest, body)
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

// batchRequest is the body of the bulk status endpoints
type batchRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=100,dive,gt=0"`
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    data,
	})
}

func created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"data":    data,
	})
}
