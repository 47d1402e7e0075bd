package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lifeline/models"
	"lifeline/utils"
)

// ErrorHandler provides centralized panic recovery and error translation
// for the REST surface. A panic in one handler must never take the
// coordinator process down with it.
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			eh.handleGinErrors(c)
		}
	})
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic": err,
		"path":  c.Request.URL.Path,
		"stack": string(debug.Stack()),
	}).Error("Panic recovered")

	utils.InternalServerErrorResponse(c, "Internal server error")
	c.Abort()
}

func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	err := c.Errors.Last().Err

	if serviceErr, ok := utils.GetServiceError(err); ok {
		status := http.StatusInternalServerError
		switch {
		case utils.IsNotFound(err):
			status = http.StatusNotFound
		case utils.IsMalformedInput(err):
			status = http.StatusBadRequest
		case utils.IsAlreadyResolved(err):
			status = http.StatusConflict
		}
		utils.ErrorResponse(c, status, serviceErr.Code, serviceErr.Message)
		return
	}

	eh.logger.Errorf("Unhandled error on %s: %v", c.Request.URL.Path, err)
	utils.ErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error")
}
