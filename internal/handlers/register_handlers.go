package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/SscSPs/journal_ledger/cmd/docs"
	portssvc "github.com/SscSPs/journal_ledger/internal/core/ports/services"
	"github.com/SscSPs/journal_ledger/internal/middleware"
	"github.com/SscSPs/journal_ledger/internal/platform/config"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RegisterRoutes sets up all application routes. apiMiddleware runs on every /api/v1 route
// after authentication.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	health HealthCheck,
	apiMiddleware ...gin.HandlerFunc,
) {
	r.GET("/health", healthHandler(health))

	setupAPIV1Routes(r, cfg, services, apiMiddleware...)

	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	apiMiddleware ...gin.HandlerFunc,
) {
	handlers := append([]gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWTSecret)}, apiMiddleware...)
	v1 := r.Group("/api/v1", handlers...)

	workplace := v1.Group("/workplaces/:workplace_id")
	registerJournalEntryRoutes(workplace, services.JournalEntry)
	registerApprovalRoutes(workplace, services.Approval)
	registerReversalRoutes(workplace, services.Reversal)
	registerBatchRoutes(workplace, services.Batch, cfg.ImportMaxBytes)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthHandler godoc
// @Summary Show the status of server.
// @Tags root
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 503 {string} string "Unavailable"
// @Router /health [get]
func healthHandler(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				middleware.GetLoggerFromCtx(c.Request.Context()).Error("Health check failed", slog.String("error", err.Error()))
				c.String(http.StatusServiceUnavailable, "Unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	}
}
