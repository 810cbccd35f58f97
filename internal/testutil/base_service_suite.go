package testutil

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/cache"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/lock"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/sentry"
	"github.com/adforge/adforge/internal/types"
	"github.com/adforge/adforge/internal/validator"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository fakes for testing
type Stores struct {
	LedgerRepo *InMemoryLedgerStore
	OrgRepo    *InMemoryOrganizationStore
	JobRepo    *InMemoryJobStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryPublisherService
	db        *MockPostgresClient
	cache     cache.Cache
	sentry    *sentry.Service
	locker    lock.Locker
	provider  *MockPollingProvider
	registry  *provider.Registry
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupConfig()
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupConfig() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Ledger.SeedCredits = 0
	cfg.Provider.Default = types.ProviderVeo3
	cfg.Provider.Timeout = time.Second
	cfg.Dispatch.LockWait = 5 * time.Second
	cfg.Dispatch.RefundMaxElapsed = time.Second
	cfg.Dispatch.MaxWait = time.Hour
	s.config = cfg
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		LedgerRepo: NewInMemoryLedgerStore(),
		OrgRepo:    NewInMemoryOrganizationStore(),
		JobRepo:    NewInMemoryJobStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.publisher = NewInMemoryEventPublisher()
	s.cache = cache.NewInMemoryCache(s.config)
	s.sentry = sentry.NewSentryService(s.config, s.logger)
	s.locker = lock.NewMemoryLocker(s.config.Dispatch.LockWait)
	s.provider = NewMockPollingProvider(types.ProviderVeo3)
	s.registry = provider.NewRegistry(s.config.Provider.Default, s.provider)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.LedgerRepo.Clear()
	s.stores.OrgRepo.Clear()
	s.stores.JobRepo.Clear()
	s.publisher.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the test event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryPublisherService {
	return s.publisher
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetSentry returns a disabled Sentry service
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetLocker returns the in-process job locker
func (s *BaseServiceTestSuite) GetLocker() lock.Locker {
	return s.locker
}

// GetProvider returns the scripted provider registered as the default
func (s *BaseServiceTestSuite) GetProvider() *MockPollingProvider {
	return s.provider
}

// GetRegistry returns the provider registry
func (s *BaseServiceTestSuite) GetRegistry() *provider.Registry {
	return s.registry
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// CreateDraftJob stores a draft job owned by createdBy in orgID with both
// inputs set
func (s *BaseServiceTestSuite) CreateDraftJob(orgID, createdBy string) *job.ContentJob {
	j := &job.ContentJob{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTENT_JOB),
		OrgID:         orgID,
		ProjectID:     "proj_1",
		JobType:       types.JobTypeVideo,
		Provider:      types.ProviderVeo3,
		InputMediaURL: lo.ToPtr("https://cdn.example.com/in.png"),
		PromptText:    lo.ToPtr("a red sneaker on a beach"),
		Status:        types.JobStatusDraft,
		CreatedBy:     createdBy,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
	s.Require().NoError(s.stores.JobRepo.Create(s.ctx, j))
	return j
}
