// authorizer/util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
)

const RequestIDKey = "requestID"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("requestID", GetRequestIDFromContext(c)))
	c.JSON(code, gin.H{"error": message})
}

func GetRequestIDFromContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
