package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "benefits-backend/internal/auth"
	"benefits-backend/internal/documents"
	"benefits-backend/internal/services/health"
	sharedauth "benefits-backend/internal/shared/auth"
	"benefits-backend/internal/shared/config"
	"benefits-backend/internal/shared/metrics"
	"benefits-backend/internal/shared/server/middleware"
	"benefits-backend/internal/shared/server/respond"
	"benefits-backend/internal/workflow"
)

// RouterDeps carries the handlers wired by bootstrap.
type RouterDeps struct {
	Config           config.Config
	Signer           *sharedauth.Signer
	DocumentsHandler *documents.Handler
	WorkflowHandler  *workflow.Handler
	GoogleAuth       *googleauth.GoogleService
	Health           *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Signer),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.WorkflowHandler != nil {
		deps.WorkflowHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
