package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/middleware/requestid"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records successful mutating requests to the audit trail. Write
// failures are logged and never change the response.
func Audit(repo auditWriter, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:     action,
			Resource:   resource,
			StatusCode: status,
			RequestID:  requestid.Value(c),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
			Details: map[string]string{
				"method":     c.Request.Method,
				"path":       c.FullPath(),
				"latency_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			},
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		} else if key := c.Param("key"); key != "" {
			entry.ResourceID = &key
		}
		if claims, ok := CurrentUser(c); ok {
			userID := claims.UserID
			entry.UserID = &userID
			entry.Role = string(claims.Role)
		}

		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("audit log not written",
				zap.String("action", action),
				zap.String("request_id", entry.RequestID),
				zap.Error(err),
			)
		}
	}
}
