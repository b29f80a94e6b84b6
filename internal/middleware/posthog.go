package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UsageTracker records API usage events.
type UsageTracker interface {
	IsInitialized() bool
	Track(ctx context.Context, distinctID, eventName string, properties map[string]any)
}

// pathsToSkip contains paths that should not be tracked
var pathsToSkip = map[string]bool{
	"/health": true,
}

// UsageTrackingMiddleware reports each successful authenticated call as an event named
// after its route, e.g. "/api/v1/workplaces/:workplace_id/entries" -> "api_v1_workplaces_:workplace_id_entries".
func UsageTrackingMiddleware(tracker UsageTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tracker == nil || !tracker.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		userID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		eventName := strings.ReplaceAll(strings.TrimPrefix(c.FullPath(), "/"), "/", "_")
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
		}
		if len(c.Params) > 0 {
			params := make(map[string]string, len(c.Params))
			for _, param := range c.Params {
				params[param.Key] = param.Value
			}
			props["params"] = params
		}

		tracker.Track(c.Request.Context(), userID, eventName, props)
	}
}
