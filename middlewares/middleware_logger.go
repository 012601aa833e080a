package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/utils"
)

const RequestIDHeader = "X-Request-ID"

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"path":       path,
			"client_ip":  c.ClientIP(),
		}
		if session, ok := GetSession(c); ok {
			fields["user_id"] = session.UserID
		}

		entry := utils.InfoLogger.WithFields(fields)
		if c.Writer.Status() >= 500 {
			utils.ErrorLogger.WithFields(fields).Error(c.Errors.String())
			return
		}
		entry.Info("request handled")
	}
}
