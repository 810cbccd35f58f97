package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adforge/adforge/internal/api/dto"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/domain/job"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
)

type DispatchServiceSuite struct {
	serviceTestSuite
	ledger  LedgerService
	service DispatchService
	orgID   string
	userID  string
}

func TestDispatchService(t *testing.T) {
	suite.Run(t, new(DispatchServiceSuite))
}

func (s *DispatchServiceSuite) SetupTest() {
	s.serviceTestSuite.SetupTest()
	s.orgID = "org_jobs"
	s.userID = "user_a"
	s.GetStores().OrgRepo.SeedOrg(s.GetContext(), s.orgID, s.userID, "user_b")
	s.setupService()
}

func (s *DispatchServiceSuite) setupService() {
	params := s.params()
	s.ledger = NewLedgerService(params)
	s.service = NewDispatchService(params, s.ledger)
}

func (s *DispatchServiceSuite) getJob(id string) *job.ContentJob {
	j, err := s.GetStores().JobRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return j
}

func (s *DispatchServiceSuite) saveJob(j *job.ContentJob) {
	s.Require().NoError(s.GetStores().JobRepo.Update(s.GetContext(), j))
}

func (s *DispatchServiceSuite) TestLaunchPreconditions() {
	tests := []struct {
		name      string
		mutate    func(j *job.ContentJob)
		requester string
		check     func(error) bool
		hint      string
	}{
		{
			name:      "missing prompt",
			mutate:    func(j *job.ContentJob) { j.PromptText = nil },
			requester: "user_a",
			check:     ierr.IsValidation,
			hint:      "Missing prompt_text",
		},
		{
			name:      "blank prompt",
			mutate:    func(j *job.ContentJob) { j.PromptText = lo.ToPtr("   ") },
			requester: "user_a",
			check:     ierr.IsValidation,
			hint:      "Missing prompt_text",
		},
		{
			name:      "missing input media",
			mutate:    func(j *job.ContentJob) { j.InputMediaURL = nil },
			requester: "user_a",
			check:     ierr.IsValidation,
			hint:      "Missing input_media_url",
		},
		{
			name:      "completed job",
			mutate:    func(j *job.ContentJob) { j.Status = types.JobStatusCompleted },
			requester: "user_a",
			check:     ierr.IsAlreadyCompleted,
			hint:      "Job already completed",
		},
		{
			name:      "running job",
			mutate:    func(j *job.ContentJob) { j.Status = types.JobStatusRunning },
			requester: "user_a",
			check:     ierr.IsInvalidOperation,
			hint:      "Job is already running",
		},
		{
			name:      "not the creator",
			requester: "user_b",
			check:     ierr.IsPermissionDenied,
			hint:      "Forbidden",
		},
		{
			name:      "no caller",
			requester: "",
			check:     ierr.IsUnauthorized,
			hint:      "Unauthorized",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			j := s.CreateDraftJob(s.orgID, s.userID)
			if tt.mutate != nil {
				tt.mutate(j)
				s.saveJob(j)
			}
			before := j.Status

			resp, err := s.service.Launch(s.GetContext(), j.ID, tt.requester)
			s.Require().Error(err)
			s.Nil(resp)
			s.True(tt.check(err), "unexpected error: %v", err)
			s.Equal(tt.hint, ierr.DisplayMessage(err))

			s.Equal(before, s.getJob(j.ID).Status)
			s.Equal(0, s.GetProvider().Calls())
			s.Empty(s.GetStores().LedgerRepo.Entries(s.orgID))
		})
	}
}

func (s *DispatchServiceSuite) TestLaunchUnknownJob() {
	_, err := s.service.Launch(s.GetContext(), "job_missing", s.userID)
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
	s.Equal("Job not found", ierr.DisplayMessage(err))
}

func (s *DispatchServiceSuite) TestLaunchWithOutputCompletes() {
	s.GetProvider().SetResult(&provider.Result{
		ProviderJobID:  lo.ToPtr("operations/123"),
		OutputMediaURL: lo.ToPtr("https://x/y.png"),
	})
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
	s.Require().NoError(err)
	s.True(resp.OK)
	s.Equal(types.JobStatusCompleted, resp.Status)
	s.Equal("https://x/y.png", lo.FromPtr(resp.OutputMediaURL))

	stored := s.getJob(j.ID)
	s.Equal(types.JobStatusCompleted, stored.Status)
	s.Equal("https://x/y.png", lo.FromPtr(stored.OutputMediaURL))
	s.Equal("operations/123", lo.FromPtr(stored.ProviderJobID))
	s.Equal(1, stored.Attempts)
	s.NotNil(stored.DispatchedAt)
	s.Equal(1, s.GetProvider().Calls())
	s.Equal([]string{events.EventJobCompleted}, s.GetPublisher().EventNames())

	// Launch never touches the ledger
	s.Empty(s.GetStores().LedgerRepo.Entries(s.orgID))
}

func (s *DispatchServiceSuite) TestLaunchWithoutOutputIsRunning() {
	s.GetProvider().SetResult(&provider.Result{ProviderJobID: lo.ToPtr("operations/456")})
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
	s.Require().NoError(err)
	s.Equal(types.JobStatusRunning, resp.Status)
	s.Nil(resp.OutputMediaURL)

	stored := s.getJob(j.ID)
	s.Equal(types.JobStatusRunning, stored.Status)
	s.Nil(stored.OutputMediaURL)
	s.Equal("operations/456", lo.FromPtr(stored.ProviderJobID))
}

func (s *DispatchServiceSuite) TestLaunchProviderErrorFailsJob() {
	s.GetProvider().SetError(provider.NewProviderError(types.ProviderVeo3, errors.New("quota exceeded"), "Provider request failed"))
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
	s.Require().NotNil(resp)
	s.False(resp.OK)
	s.Equal(types.JobStatusFailed, resp.Status)

	stored := s.getJob(j.ID)
	s.Equal(types.JobStatusFailed, stored.Status)
	s.Contains(lo.FromPtr(stored.ErrorMessage), "quota exceeded")
	s.Equal([]string{events.EventJobFailed}, s.GetPublisher().EventNames())

	s.Run("failed job can be retried", func() {
		s.GetProvider().SetResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/retry.png")})
		resp, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusCompleted, resp.Status)
		s.Nil(resp.ErrorMessage)
		s.Equal(2, s.getJob(j.ID).Attempts)
	})
}

func (s *DispatchServiceSuite) TestLaunchPlainErrorIsProviderError() {
	s.GetProvider().SetError(errors.New("connection refused"))
	j := s.CreateDraftJob(s.orgID, s.userID)

	_, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
	s.Equal("Provider request failed: connection refused", lo.FromPtr(s.getJob(j.ID).ErrorMessage))
}

func (s *DispatchServiceSuite) TestLaunchTimeout() {
	s.GetConfig().Provider.Timeout = 50 * time.Millisecond
	s.GetProvider().SetDelay(5 * time.Second)
	j := s.CreateDraftJob(s.orgID, s.userID)

	start := time.Now()
	resp, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
	s.Less(time.Since(start), 2*time.Second)

	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
	s.Equal(types.JobStatusFailed, resp.Status)
	s.Equal("provider timed out", lo.FromPtr(s.getJob(j.ID).ErrorMessage))
}

func (s *DispatchServiceSuite) TestConcurrentLaunchCallsProviderOnce() {
	s.GetProvider().SetResult(&provider.Result{ProviderJobID: lo.ToPtr("operations/once")})
	s.GetProvider().SetDelay(20 * time.Millisecond)
	j := s.CreateDraftJob(s.orgID, s.userID)

	var (
		mu      sync.Mutex
		ok      int
		running int
	)
	var wg conc.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Go(func() {
			_, err := s.service.Launch(s.GetContext(), j.ID, s.userID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if ierr.IsInvalidOperation(err) {
				running++
			}
		})
	}
	wg.Wait()

	s.Equal(1, ok)
	s.Equal(9, running)
	s.Equal(1, s.GetProvider().Calls())
}

func (s *DispatchServiceSuite) TestLaunchAndChargeDebitsAndQueues() {
	s.fund(s.orgID, 100)
	s.GetProvider().SetResult(&provider.Result{ProviderJobID: lo.ToPtr("operations/789")})
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 30})
	s.Require().NoError(err)
	s.Equal(types.JobStatusRunning, resp.Status)
	s.False(resp.Refunded)
	s.Require().NotNil(resp.ChargeEntryID)
	s.Equal(int64(70), s.balance(s.orgID))

	charge, err := s.GetStores().LedgerRepo.Get(s.GetContext(), *resp.ChargeEntryID)
	s.Require().NoError(err)
	s.Equal(int64(-30), charge.Delta)
	s.Equal(j.ID, lo.FromPtr(charge.RelatedJobID))
	s.Equal(types.JobChargeIdempotencyKey(j.ID, 1), charge.Key())

	s.Equal([]string{
		events.EventLedgerDebit,
		events.EventJobQueued,
		events.EventJobRunning,
	}, s.GetPublisher().EventNames())
}

func (s *DispatchServiceSuite) TestLaunchAndChargeRefundsOnProviderFailure() {
	s.fund(s.orgID, 100)
	s.GetProvider().SetError(provider.NewProviderError(types.ProviderVeo3, errors.New("boom"), "Provider request failed"))
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 30})
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
	s.Require().NotNil(resp)
	s.True(resp.Refunded)
	s.Equal(types.JobStatusFailed, resp.Status)
	s.Equal(int64(100), s.balance(s.orgID))

	entries := s.GetStores().LedgerRepo.Entries(s.orgID)
	s.Require().Len(entries, 3)
	s.Equal(types.LedgerReasonRefund, entries[2].Reason)
	s.Equal(types.RefundIdempotencyKey(*resp.ChargeEntryID), entries[2].Key())
	s.Contains(s.GetPublisher().EventNames(), events.EventJobRefunded)

	s.Run("retry charges a fresh attempt", func() {
		s.GetProvider().SetResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/ok.png")})
		resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 30})
		s.Require().NoError(err)
		s.Equal(types.JobStatusCompleted, resp.Status)
		s.Equal(int64(70), s.balance(s.orgID))

		charge, err := s.GetStores().LedgerRepo.Get(s.GetContext(), *resp.ChargeEntryID)
		s.Require().NoError(err)
		s.Equal(types.JobChargeIdempotencyKey(j.ID, 2), charge.Key())
	})
}

func (s *DispatchServiceSuite) TestLaunchAndChargeInsufficientFundsDoesNotDispatch() {
	s.fund(s.orgID, 10)
	j := s.CreateDraftJob(s.orgID, s.userID)

	resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 30})
	s.Require().Error(err)
	s.Nil(resp)
	s.True(ierr.IsInsufficientFunds(err))

	s.Equal(0, s.GetProvider().Calls())
	s.Equal(types.JobStatusDraft, s.getJob(j.ID).Status)
	s.Equal(int64(10), s.balance(s.orgID))
}

func (s *DispatchServiceSuite) TestLaunchAndChargeValidatesBeforeCharging() {
	s.fund(s.orgID, 100)
	j := s.CreateDraftJob(s.orgID, s.userID)
	j.PromptText = nil
	s.saveJob(j)

	_, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 30})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(int64(100), s.balance(s.orgID))

	_, err = s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, &dto.LaunchAndChargeRequest{Amount: 0})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(0, s.GetProvider().Calls())
}

func (s *DispatchServiceSuite) TestLaunchAndChargeRejectsRefundedChargeKey() {
	s.fund(s.orgID, 10)
	s.GetProvider().SetError(provider.NewProviderError(types.ProviderVeo3, errors.New("boom"), "Provider request failed"))
	j := s.CreateDraftJob(s.orgID, s.userID)
	req := &dto.LaunchAndChargeRequest{Amount: 10, IdempotencyKey: "launch-1"}

	resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, req)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.True(resp.Refunded)
	s.Equal(int64(10), s.balance(s.orgID))

	s.GetProvider().SetResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/ok.png")})
	resp, err = s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID, req)
	s.Require().Error(err)
	s.Nil(resp)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal("Idempotency key already used for a refunded charge", ierr.DisplayMessage(err))
	s.Equal(1, s.GetProvider().Calls())
	s.Equal(types.JobStatusFailed, s.getJob(j.ID).Status)
	s.Equal(int64(10), s.balance(s.orgID))

	s.Run("a fresh key charges again", func() {
		resp, err := s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID,
			&dto.LaunchAndChargeRequest{Amount: 10, IdempotencyKey: "launch-2"})
		s.Require().NoError(err)
		s.Equal(types.JobStatusCompleted, resp.Status)
		s.Equal(int64(0), s.balance(s.orgID))
	})
}

func (s *DispatchServiceSuite) TestLaunchAndChargeScopesCallerKeyToJob() {
	s.fund(s.orgID, 100)
	s.GetProvider().SetResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/a.png")})
	first := s.CreateDraftJob(s.orgID, s.userID)
	second := s.CreateDraftJob(s.orgID, s.userID)
	req := &dto.LaunchAndChargeRequest{Amount: 30, IdempotencyKey: "shared"}

	firstResp, err := s.service.LaunchAndCharge(s.GetContext(), first.ID, s.userID, req)
	s.Require().NoError(err)
	s.Equal(types.JobStatusCompleted, firstResp.Status)
	s.Equal(int64(70), s.balance(s.orgID))

	s.GetProvider().SetError(provider.NewProviderError(types.ProviderVeo3, errors.New("boom"), "Provider request failed"))
	secondResp, err := s.service.LaunchAndCharge(s.GetContext(), second.ID, s.userID, req)
	s.Require().Error(err)
	s.Require().NotNil(secondResp)
	s.True(secondResp.Refunded)
	s.NotEqual(*firstResp.ChargeEntryID, *secondResp.ChargeEntryID)

	charge, err := s.GetStores().LedgerRepo.Get(s.GetContext(), *secondResp.ChargeEntryID)
	s.Require().NoError(err)
	s.Equal(second.ID, lo.FromPtr(charge.RelatedJobID))
	s.Equal(types.JobCallerChargeIdempotencyKey(second.ID, "shared"), charge.Key())

	// the completed job keeps its charge
	_, err = s.GetStores().LedgerRepo.GetByIdempotencyKey(s.GetContext(), s.orgID,
		types.RefundIdempotencyKey(*firstResp.ChargeEntryID))
	s.True(ierr.IsNotFound(err))
	s.Equal(int64(70), s.balance(s.orgID))
}

func (s *DispatchServiceSuite) TestLaunchAndChargeRejectsForeignChargeEntry() {
	s.fund(s.orgID, 100)
	j := s.CreateDraftJob(s.orgID, s.userID)

	// a plain debit that happens to carry the job scoped key
	_, err := s.ledger.Debit(s.GetContext(), &dto.DebitRequest{
		OrgID:          s.orgID,
		Amount:         5,
		IdempotencyKey: types.JobCallerChargeIdempotencyKey(j.ID, "k"),
	})
	s.Require().NoError(err)

	_, err = s.service.LaunchAndCharge(s.GetContext(), j.ID, s.userID,
		&dto.LaunchAndChargeRequest{Amount: 5, IdempotencyKey: "k"})
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.GetProvider().Calls())
	s.Equal(types.JobStatusDraft, s.getJob(j.ID).Status)
	s.Equal(int64(95), s.balance(s.orgID))
}

// chargedRunningJob stores a running job that was charged amount credits
func (s *DispatchServiceSuite) chargedRunningJob(amount int64, dispatchedAt time.Time) *job.ContentJob {
	j := s.CreateDraftJob(s.orgID, s.userID)
	key := types.JobChargeIdempotencyKey(j.ID, 1)
	_, err := s.ledger.Debit(s.GetContext(), &dto.DebitRequest{
		OrgID:          s.orgID,
		Amount:         amount,
		IdempotencyKey: key,
		JobID:          j.ID,
	})
	s.Require().NoError(err)
	charge, err := s.GetStores().LedgerRepo.GetByIdempotencyKey(s.GetContext(), s.orgID, key)
	s.Require().NoError(err)

	j.Status = types.JobStatusRunning
	j.Attempts = 1
	j.ChargeEntryID = lo.ToPtr(charge.ID)
	j.ProviderJobID = lo.ToPtr("operations/" + j.ID)
	j.DispatchedAt = lo.ToPtr(dispatchedAt)
	s.saveJob(j)
	s.GetPublisher().Clear()
	return j
}

func (s *DispatchServiceSuite) TestReconcile() {
	s.fund(s.orgID, 100)

	s.Run("pending stays running", func() {
		j := s.chargedRunningJob(10, time.Now())
		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusRunning, got.Status)
	})

	s.Run("output completes", func() {
		j := s.chargedRunningJob(10, time.Now())
		s.GetProvider().SetPollResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/done.mp4")})
		defer s.GetProvider().SetPollResult(&provider.Result{})

		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusCompleted, got.Status)
		s.Equal("https://x/done.mp4", lo.FromPtr(s.getJob(j.ID).OutputMediaURL))
		s.Equal([]string{events.EventJobCompleted}, s.GetPublisher().EventNames())
	})

	s.Run("transport failure keeps waiting", func() {
		j := s.chargedRunningJob(10, time.Now())
		s.GetProvider().SetPollError(provider.NewProviderError(types.ProviderVeo3, errors.New("502"), "Provider request failed"))
		defer s.GetProvider().SetPollResult(&provider.Result{})

		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusRunning, got.Status)
	})

	s.Run("generation failure fails and refunds", func() {
		before := s.balance(s.orgID)
		j := s.chargedRunningJob(10, time.Now())
		s.GetProvider().SetPollError(provider.NewGenerationFailedError(types.ProviderVeo3, errors.New("unsafe content"), "Provider rejected the request"))
		defer s.GetProvider().SetPollResult(&provider.Result{})

		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusFailed, got.Status)
		s.Contains(lo.FromPtr(got.ErrorMessage), "unsafe content")
		s.Equal(before, s.balance(s.orgID))
	})

	s.Run("max wait fails and refunds", func() {
		before := s.balance(s.orgID)
		j := s.chargedRunningJob(10, time.Now().Add(-2*s.GetConfig().Dispatch.MaxWait))
		polls := s.GetProvider().Polls()

		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusFailed, got.Status)
		s.Equal("provider timed out", lo.FromPtr(got.ErrorMessage))
		s.Equal(before, s.balance(s.orgID))
		s.Equal(polls, s.GetProvider().Polls())
		s.Contains(s.GetPublisher().EventNames(), events.EventJobRefunded)
	})

	s.Run("non running job is untouched", func() {
		j := s.CreateDraftJob(s.orgID, s.userID)
		got, err := s.service.Reconcile(s.GetContext(), j.ID)
		s.Require().NoError(err)
		s.Equal(types.JobStatusDraft, got.Status)
	})
}

func (s *DispatchServiceSuite) TestReconcilerRunOnce() {
	s.fund(s.orgID, 100)
	first := s.chargedRunningJob(10, time.Now().Add(-time.Minute))
	second := s.chargedRunningJob(10, time.Now())
	s.GetProvider().SetPollResult(&provider.Result{OutputMediaURL: lo.ToPtr("https://x/batch.mp4")})

	reconciler := NewJobReconciler(s.params(), s.service)
	settled, err := reconciler.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(2, settled)
	s.Equal(types.JobStatusCompleted, s.getJob(first.ID).Status)
	s.Equal(types.JobStatusCompleted, s.getJob(second.ID).Status)

	settled, err = reconciler.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(0, settled)
}
