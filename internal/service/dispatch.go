package service

import (
	"context"
	"fmt"
	"time"

	"github.com/adforge/adforge/internal/api/dto"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/domain/ledger"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/lock"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	errMsgProviderTimedOut = "provider timed out"
	maxErrorMessageLength  = 1000
)

// DispatchService moves content jobs through their lifecycle against the
// generation providers. Every operation on a job holds the job's lock from
// validation until the resulting state is written.
type DispatchService interface {
	// Launch validates the job and submits it to its provider. The job ends up
	// completed when the provider returned media, running when the result is
	// pending and failed when the provider call failed or timed out. A failed
	// launch returns the provider error together with the failed job. Launch
	// never touches the ledger.
	Launch(ctx context.Context, jobID, requester string) (*dto.LaunchJobResponse, error)

	// LaunchAndCharge debits the organization and queues the job in one
	// transaction, then dispatches it. Credits are refunded when the provider
	// fails. Nothing is dispatched when the debit fails.
	LaunchAndCharge(ctx context.Context, jobID, requester string, req *dto.LaunchAndChargeRequest) (*dto.LaunchJobResponse, error)

	// Reconcile polls the provider for a running job and records the outcome.
	// Jobs running for longer than the configured max wait are failed.
	Reconcile(ctx context.Context, jobID string) (*job.ContentJob, error)
}

type dispatchService struct {
	ServiceParams
	ledger LedgerService
}

func NewDispatchService(params ServiceParams, ledger LedgerService) DispatchService {
	return &dispatchService{
		ServiceParams: params,
		ledger:        ledger,
	}
}

func (s *dispatchService) Launch(ctx context.Context, jobID, requester string) (*dto.LaunchJobResponse, error) {
	l, err := s.acquire(ctx, jobID, requester)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, l, jobID)

	j, err := s.loadLaunchable(ctx, jobID, requester)
	if err != nil {
		return nil, err
	}

	j, err = s.dispatch(ctx, j)
	if j == nil {
		return nil, err
	}
	return dto.NewLaunchJobResponse(j), err
}

func (s *dispatchService) LaunchAndCharge(ctx context.Context, jobID, requester string, req *dto.LaunchAndChargeRequest) (*dto.LaunchJobResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	l, err := s.acquire(ctx, jobID, requester)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, l, jobID)

	j, err := s.loadLaunchable(ctx, jobID, requester)
	if err != nil {
		return nil, err
	}

	key := types.JobChargeIdempotencyKey(j.ID, j.Attempts+1)
	if req.IdempotencyKey != "" {
		key = types.JobCallerChargeIdempotencyKey(j.ID, req.IdempotencyKey)
	}

	queued := *j
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.Debit(ctx, &dto.DebitRequest{
			OrgID:          j.OrgID,
			Amount:         req.Amount,
			Reason:         types.LedgerReasonJobCharge,
			IdempotencyKey: key,
			JobID:          j.ID,
		}); err != nil {
			return err
		}

		charge, err := s.LedgerRepo.GetByIdempotencyKey(ctx, j.OrgID, key)
		if err != nil {
			return err
		}
		if err := s.checkChargeUsable(ctx, j, charge); err != nil {
			return err
		}

		queued.Status = types.JobStatusQueued
		queued.ChargeEntryID = lo.ToPtr(charge.ID)
		queued.ErrorMessage = nil
		queued.UpdatedAt = time.Now().UTC()
		return s.JobRepo.Update(ctx, &queued)
	})
	if err != nil {
		s.Logger.Infow("job charge failed, not dispatching",
			"job_id", j.ID,
			"org_id", j.OrgID,
			"amount", req.Amount,
			"error", err,
		)
		return nil, err
	}
	j = &queued
	s.publish(ctx, events.EventJobQueued, j)

	dispatched, dispatchErr := s.dispatch(ctx, j)
	if dispatched == nil {
		return nil, dispatchErr
	}

	response := dto.NewLaunchJobResponse(dispatched)
	if dispatchErr != nil && ierr.IsProvider(dispatchErr) {
		if err := s.refund(ctx, dispatched); err != nil {
			return response, errors.CombineErrors(dispatchErr, err)
		}
		response.Refunded = true
	}
	return response, dispatchErr
}

// checkChargeUsable rejects a replayed charge that belongs to another job or
// was already refunded. Queuing against such an entry would dispatch the job
// without a live charge.
func (s *dispatchService) checkChargeUsable(ctx context.Context, j *job.ContentJob, charge *ledger.Entry) error {
	if lo.FromPtr(charge.RelatedJobID) != j.ID {
		return ierr.NewError("charge entry belongs to another job").
			WithHint("Idempotency key already used for another job").
			WithReportableDetails(map[string]any{
				"job_id":          j.ID,
				"charge_entry_id": charge.ID,
				"related_job_id":  lo.FromPtr(charge.RelatedJobID),
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	_, err := s.LedgerRepo.GetByIdempotencyKey(ctx, j.OrgID, types.RefundIdempotencyKey(charge.ID))
	if err == nil {
		return ierr.NewError("charge entry was already refunded").
			WithHint("Idempotency key already used for a refunded charge").
			WithReportableDetails(map[string]any{
				"job_id":          j.ID,
				"charge_entry_id": charge.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !ierr.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *dispatchService) Reconcile(ctx context.Context, jobID string) (*job.ContentJob, error) {
	l, err := s.Locker.Acquire(ctx, lock.JobKey(jobID))
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, l, jobID)

	j, err := s.JobRepo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != types.JobStatusRunning {
		return j, nil
	}

	if s.exceededMaxWait(j) {
		s.Logger.Warnw("job exceeded max wait",
			"job_id", j.ID,
			"dispatched_at", j.DispatchedAt,
			"max_wait", s.Config.Dispatch.MaxWait,
		)
		cause := ierr.NewErrorf("no result after %s", s.Config.Dispatch.MaxWait).
			WithHint("Provider timed out").
			Mark(ierr.ErrProvider)
		return s.failAndRefund(ctx, j, cause, errMsgProviderTimedOut)
	}

	p, err := s.Providers.Get(j.Provider)
	if err != nil {
		return j, err
	}
	poller, ok := provider.AsPoller(p)
	if !ok || lo.FromPtr(j.ProviderJobID) == "" {
		return j, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.Config.Provider.Timeout)
	defer cancel()

	result, err := poller.Poll(pollCtx, *j.ProviderJobID)
	if err != nil {
		if provider.IsGenerationFailed(err) {
			return s.failAndRefund(ctx, j, err, errorMessage(err))
		}
		// transport failures leave the job running until the max wait
		s.Logger.Warnw("failed to poll provider",
			"job_id", j.ID,
			"provider", j.Provider,
			"error", err,
		)
		return j, nil
	}
	if !result.HasOutput() {
		return j, nil
	}

	j.OutputMediaURL = result.OutputMediaURL
	j.Status = types.JobStatusCompleted
	j.UpdatedAt = time.Now().UTC()
	if err := s.JobRepo.Update(context.WithoutCancel(ctx), j); err != nil {
		return nil, err
	}
	s.Logger.Infow("job completed by reconciliation", "job_id", j.ID)
	s.publish(ctx, events.EventJobCompleted, j)
	return j, nil
}

// failAndRefund ends a job found failed during reconciliation and returns any
// credits it was charged. The job is the result, not an error.
func (s *dispatchService) failAndRefund(ctx context.Context, j *job.ContentJob, cause error, message string) (*job.ContentJob, error) {
	failed, err := s.fail(ctx, j, cause, message)
	if failed == nil {
		return nil, err
	}
	if err := s.refund(ctx, failed); err != nil {
		return failed, err
	}
	return failed, nil
}

func (s *dispatchService) acquire(ctx context.Context, jobID, requester string) (lock.Lock, error) {
	if requester == "" {
		return nil, ierr.NewError("missing requester").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}
	return s.Locker.Acquire(ctx, lock.JobKey(jobID))
}

func (s *dispatchService) release(ctx context.Context, l lock.Lock, jobID string) {
	if err := l.Release(context.WithoutCancel(ctx)); err != nil {
		s.Logger.Warnw("failed to release job lock", "job_id", jobID, "error", err)
	}
}

// loadLaunchable applies the launch checks in order: existence, ownership,
// terminal state, in-flight state and finally the required inputs
func (s *dispatchService) loadLaunchable(ctx context.Context, jobID, requester string) (*job.ContentJob, error) {
	j, err := s.JobRepo.Get(ctx, jobID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("Job not found").
				WithReportableDetails(map[string]any{
					"job_id": jobID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	if j.CreatedBy != requester {
		return nil, ierr.NewError("requester does not own the job").
			WithHint("Forbidden").
			WithReportableDetails(map[string]any{
				"job_id": jobID,
			}).
			Mark(ierr.ErrPermissionDenied)
	}

	if j.Status.IsTerminal() {
		return nil, ierr.NewError("job already completed").
			WithHint("Job already completed").
			WithReportableDetails(map[string]any{
				"job_id": jobID,
			}).
			Mark(ierr.ErrAlreadyCompleted)
	}

	if j.Status.IsInFlight() {
		return nil, ierr.NewError("job is running").
			WithHint("Job is already running").
			WithReportableDetails(map[string]any{
				"job_id":          jobID,
				"provider_job_id": j.ProviderJobID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if j.InputURL() == "" {
		return nil, ierr.NewError("input_media_url is empty").
			WithHint("Missing input_media_url").
			Mark(ierr.ErrValidation)
	}
	if j.Prompt() == "" {
		return nil, ierr.NewError("prompt_text is empty").
			WithHint("Missing prompt_text").
			Mark(ierr.ErrValidation)
	}

	return j, nil
}

// dispatch calls the provider and writes the outcome. On provider failure the
// failed job is returned together with the provider error.
func (s *dispatchService) dispatch(ctx context.Context, j *job.ContentJob) (*job.ContentJob, error) {
	// every attempt counts so a charged retry derives a fresh charge key
	j.Attempts++

	p, err := s.Providers.Get(j.Provider)
	if err != nil {
		return s.fail(ctx, j, err, errorMessage(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Config.Provider.Timeout)
	span, callCtx := s.Sentry.StartProviderSpan(callCtx, string(p.Name()), map[string]interface{}{
		"job_id": j.ID,
	})
	result, err := p.Generate(callCtx, j.Prompt(), j.InputURL())
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	if span != nil {
		span.Finish()
	}
	cancel()

	if err != nil {
		if timedOut {
			err = ierr.WithError(err).
				WithHint("Provider timed out").
				Mark(ierr.ErrProvider)
			return s.fail(ctx, j, err, errMsgProviderTimedOut)
		}
		if !ierr.IsProvider(err) {
			err = provider.NewProviderError(p.Name(), err, "Provider request failed")
		}
		return s.fail(ctx, j, err, errorMessage(err))
	}

	now := time.Now().UTC()
	j.ProviderJobID = result.ProviderJobID
	j.ErrorMessage = nil
	j.DispatchedAt = lo.ToPtr(now)
	j.UpdatedAt = now
	eventName := events.EventJobRunning
	if result.HasOutput() {
		j.Status = types.JobStatusCompleted
		j.OutputMediaURL = result.OutputMediaURL
		eventName = events.EventJobCompleted
	} else {
		j.Status = types.JobStatusRunning
		j.OutputMediaURL = nil
	}

	if err := s.JobRepo.Update(context.WithoutCancel(ctx), j); err != nil {
		s.Logger.Errorw("failed to record dispatch outcome",
			"job_id", j.ID,
			"status", j.Status,
			"provider_job_id", j.ProviderJobID,
			"error", err,
		)
		return nil, err
	}

	s.Logger.Infow("job dispatched",
		"job_id", j.ID,
		"org_id", j.OrgID,
		"provider", p.Name(),
		"status", j.Status,
		"provider_job_id", lo.FromPtr(j.ProviderJobID),
	)
	s.publish(ctx, eventName, j)
	return j, nil
}

// fail records the job as failed with message and returns cause. Only the
// status, error message and timestamps change.
func (s *dispatchService) fail(ctx context.Context, j *job.ContentJob, cause error, message string) (*job.ContentJob, error) {
	j.Status = types.JobStatusFailed
	j.ErrorMessage = lo.ToPtr(message)
	j.UpdatedAt = time.Now().UTC()

	s.Logger.Errorw("job failed",
		"job_id", j.ID,
		"org_id", j.OrgID,
		"provider", j.Provider,
		"error", cause,
	)
	s.Sentry.CaptureWithContext(ctx, cause, map[string]string{
		"job_id":   j.ID,
		"provider": string(j.Provider),
	})

	if err := s.JobRepo.Update(context.WithoutCancel(ctx), j); err != nil {
		s.Logger.Errorw("failed to record job failure", "job_id", j.ID, "error", err)
		return nil, errors.CombineErrors(cause, err)
	}
	s.publish(ctx, events.EventJobFailed, j)
	return j, cause
}

// refund returns the charge of j, retrying transient failures. The refund key
// is derived from the charge entry so it is applied at most once.
func (s *dispatchService) refund(ctx context.Context, j *job.ContentJob) error {
	if j.ChargeEntryID == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.Config.Dispatch.RefundMaxElapsed
	balance, err := backoff.RetryWithData(func() (int64, error) {
		balance, err := s.ledger.Refund(ctx, *j.ChargeEntryID)
		if err != nil && (ierr.IsNotFound(err) || ierr.IsInvalidOperation(err) || ierr.IsValidation(err)) {
			return 0, backoff.Permanent(err)
		}
		return balance, err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		s.Logger.Errorw("failed to refund job charge",
			"job_id", j.ID,
			"charge_entry_id", *j.ChargeEntryID,
			"error", err,
		)
		s.Sentry.CaptureWithContext(ctx, err, map[string]string{
			"job_id":          j.ID,
			"charge_entry_id": *j.ChargeEntryID,
		})
		return err
	}

	s.Logger.Infow("job charge refunded",
		"job_id", j.ID,
		"charge_entry_id", *j.ChargeEntryID,
		"balance", balance,
	)
	s.publish(ctx, events.EventJobRefunded, j)
	return nil
}

func (s *dispatchService) exceededMaxWait(j *job.ContentJob) bool {
	if s.Config.Dispatch.MaxWait <= 0 || j.DispatchedAt == nil {
		return false
	}
	return time.Since(*j.DispatchedAt) > s.Config.Dispatch.MaxWait
}

func (s *dispatchService) publish(ctx context.Context, name string, j *job.ContentJob) {
	event, err := events.NewEvent(ctx, name, j.OrgID, dto.FromContentJob(j))
	if err != nil {
		s.Logger.Errorw("failed to build job event", "job_id", j.ID, "error", err)
		return
	}
	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorf("failed to publish %s event: %v", event.EventName, err)
	}
}

// errorMessage is what gets stored on a failed job
func errorMessage(err error) string {
	msg := ierr.DisplayMessage(err)
	if cause := errors.UnwrapAll(err); cause != nil && cause.Error() != msg {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}
	if len(msg) > maxErrorMessageLength {
		msg = msg[:maxErrorMessageLength]
	}
	return msg
}
