package service

import (
	"github.com/adforge/adforge/internal/domain/ledger"
	"github.com/adforge/adforge/internal/testutil"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

// serviceTestSuite wires ServiceParams from the in-memory fakes of the base suite
type serviceTestSuite struct {
	testutil.BaseServiceTestSuite
}

func (s *serviceTestSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		Cache:          s.GetCache(),
		Sentry:         s.GetSentry(),
		LedgerRepo:     stores.LedgerRepo,
		OrgRepo:        stores.OrgRepo,
		JobRepo:        stores.JobRepo,
		Locker:         s.GetLocker(),
		Providers:      s.GetRegistry(),
		EventPublisher: s.GetPublisher(),
	}
}

// fund appends a credit directly to the ledger store
func (s *serviceTestSuite) fund(orgID string, amount int64) {
	_, err := s.GetStores().LedgerRepo.Append(s.GetContext(), &ledger.Entry{
		OrgID:          orgID,
		Delta:          amount,
		Reason:         types.LedgerReasonSeed,
		IdempotencyKey: lo.ToPtr(types.SeedIdempotencyKey(orgID) + ":" + s.GetUUID()),
		CreatedBy:      types.DefaultUserID,
	}, false)
	s.Require().NoError(err)
}

func (s *serviceTestSuite) balance(orgID string) int64 {
	balance, err := s.GetStores().LedgerRepo.GetBalance(s.GetContext(), orgID)
	s.Require().NoError(err)
	return balance
}
