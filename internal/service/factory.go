package service

import (
	"github.com/adforge/adforge/internal/cache"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/domain/ledger"
	"github.com/adforge/adforge/internal/domain/organization"
	"github.com/adforge/adforge/internal/lock"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/publisher"
	"github.com/adforge/adforge/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentry.Service

	// Repositories
	LedgerRepo ledger.Repository
	OrgRepo    organization.Repository
	JobRepo    job.Repository

	// Dispatch
	Locker    lock.Locker
	Providers *provider.Registry

	// Publishers
	EventPublisher publisher.EventPublisher
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	sentry *sentry.Service,
	ledgerRepo ledger.Repository,
	orgRepo organization.Repository,
	jobRepo job.Repository,
	locker lock.Locker,
	providers *provider.Registry,
	eventPublisher publisher.EventPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		DB:             db,
		Cache:          cache,
		Sentry:         sentry,
		LedgerRepo:     ledgerRepo,
		OrgRepo:        orgRepo,
		JobRepo:        jobRepo,
		Locker:         locker,
		Providers:      providers,
		EventPublisher: eventPublisher,
	}
}
