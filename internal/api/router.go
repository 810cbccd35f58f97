package api

import (
	v1 "github.com/adforge/adforge/internal/api/v1"
	"github.com/adforge/adforge/internal/auth"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Job          *v1.JobHandler
	Organization *v1.OrganizationHandler
	Credits      *v1.CreditsHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, authProvider auth.Provider) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware(cfg),
		middleware.SentryMiddleware(cfg),
		middleware.PyroscopeMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	private := router.Group("/api")
	private.Use(
		middleware.AuthenticateMiddleware(authProvider, logger),
		middleware.SentryScopeMiddleware(cfg),
	)

	jobs := private.Group("/jobs")
	{
		jobs.POST("", handlers.Job.CreateJob)
		jobs.GET("/:id", handlers.Job.GetJob)
		jobs.POST("/:id/launch", handlers.Job.LaunchJob)
		jobs.POST("/:id/launch-and-charge", handlers.Job.LaunchAndCharge)
	}

	orgs := private.Group("/orgs")
	{
		orgs.POST("", handlers.Organization.CreateAndJoin)
		orgs.GET("/me", handlers.Organization.GetMyOrg)
		orgs.GET("/:id/owner", handlers.Organization.GetOwner)
		orgs.POST("/:id/owner/claim", handlers.Organization.ClaimOwnership)

		orgs.GET("/:id/credits/balance", handlers.Credits.Balance)
		orgs.GET("/:id/credits/entries", handlers.Credits.ListEntries)
		orgs.POST("/:id/credits/consume", handlers.Credits.Consume)
		orgs.POST("/:id/credits/add", handlers.Credits.Add)
	}

	return router
}
