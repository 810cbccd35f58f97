package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adforge/adforge/internal/api"
	v1 "github.com/adforge/adforge/internal/api/v1"
	"github.com/adforge/adforge/internal/auth"
	"github.com/adforge/adforge/internal/cache"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/httpclient"
	"github.com/adforge/adforge/internal/lock"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/provider/static"
	"github.com/adforge/adforge/internal/provider/veo3"
	"github.com/adforge/adforge/internal/publisher"
	"github.com/adforge/adforge/internal/pubsub"
	"github.com/adforge/adforge/internal/pyroscope"
	"github.com/adforge/adforge/internal/repository"
	"github.com/adforge/adforge/internal/sentry"
	"github.com/adforge/adforge/internal/service"
	"github.com/adforge/adforge/internal/types"
	"github.com/adforge/adforge/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,
			pyroscope.NewPyroscopeService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			postgres.NewClient,

			// Events
			publisher.NewPubSub,
			publisher.NewEventPublisher,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewLedgerRepository,
			repository.NewOrganizationRepository,
			repository.NewJobRepository,

			// Dispatch
			lock.NewLocker,
			provideProviders,

			// Auth
			auth.NewProvider,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewLedgerService,
			service.NewOwnershipService,
			service.NewOrganizationService,
			service.NewJobService,
			service.NewDispatchService,
			service.NewJobReconciler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			pyroscope.RegisterHooks,
			registerShutdown,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideProviders registers the static adapter everywhere and Veo3 when a
// Google Cloud project is configured
func provideProviders(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) (*provider.Registry, error) {
	providers := []provider.Provider{static.New()}

	if cfg.Provider.Veo3.ProjectID != "" {
		// the token source refreshes with this context for the life of the process
		v, err := veo3.NewFromConfig(context.Background(), cfg, client, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, v)
	}

	registry := provider.NewConfiguredRegistry(cfg, providers...)
	log.Infow("generation providers registered",
		"providers", registry.Names(),
		"default", cfg.Provider.Default,
	)
	return registry, nil
}

func provideHandlers(
	logger *logger.Logger,
	ledgerService service.LedgerService,
	ownershipService service.OwnershipService,
	orgService service.OrganizationService,
	jobService service.JobService,
	dispatchService service.DispatchService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(logger),
		Job:          v1.NewJobHandler(jobService, dispatchService, logger),
		Organization: v1.NewOrganizationHandler(orgService, ownershipService, logger),
		Credits:      v1.NewCreditsHandler(ledgerService, orgService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, authProvider auth.Provider) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, cfg, logger, authProvider)
}

func registerShutdown(lc fx.Lifecycle, db *postgres.DB, ps pubsub.Publisher, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := ps.Close(); err != nil {
				log.Errorw("failed to close pubsub", "error", err)
			}
			db.Close()
			_ = log.Sync()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	reconciler *service.JobReconciler,
	profiler *pyroscope.Service,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startReconciler(lc, reconciler, profiler, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startReconciler(lc, reconciler, profiler, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startReconciler(
	lc fx.Lifecycle,
	reconciler *service.JobReconciler,
	profiler *pyroscope.Service,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				profiler.TagWrapper(ctx, map[string]string{"component": "job_reconciler"}, reconciler.Run)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Stopping job reconciler...")
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
