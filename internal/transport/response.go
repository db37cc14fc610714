package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool             `json:"success"`
	Kind    entity.ErrorKind `json:"kind"`
	Error   string           `json:"error"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError maps an error kind to an HTTP status. Internal details are logged, not returned.
func respondError(c *gin.Context, err error) {
	kind := entity.KindOf(err)

	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case entity.KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case entity.KindConflict:
		status, message = http.StatusConflict, err.Error()
	case entity.KindInvalid:
		status, message = http.StatusBadRequest, err.Error()
	default:
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err).Error("Request failed")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Kind:    kind,
		Error:   message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Kind:    entity.KindInvalid,
		Error:   message,
	})
}

// parseID reads a positive int64 path parameter.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
