package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/types"
)

// MockProvider is a scripted generation provider that counts its calls
type MockProvider struct {
	name  types.ProviderName
	calls atomic.Int64

	mu     sync.Mutex
	result *provider.Result
	err    error
	delay  time.Duration
}

var _ provider.Provider = (*MockProvider)(nil)

// NewMockProvider returns a provider named name that answers with no output
func NewMockProvider(name types.ProviderName) *MockProvider {
	return &MockProvider{
		name:   name,
		result: &provider.Result{},
	}
}

func (m *MockProvider) Name() types.ProviderName {
	return m.name
}

// SetResult makes Generate return result
func (m *MockProvider) SetResult(result *provider.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result, m.err = result, nil
}

// SetError makes Generate fail with err
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result, m.err = nil, err
}

// SetDelay makes Generate wait d, or until its context is done, before answering
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times Generate was called
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}

func (m *MockProvider) Generate(ctx context.Context, prompt, inputMediaURL string) (*provider.Result, error) {
	m.calls.Add(1)

	m.mu.Lock()
	result, err, delay := m.result, m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	c := *result
	return &c, nil
}

// MockPollingProvider is a MockProvider whose jobs can be polled
type MockPollingProvider struct {
	*MockProvider

	pollMu     sync.Mutex
	pollResult *provider.Result
	pollErr    error
	polls      atomic.Int64
}

var _ provider.Poller = (*MockPollingProvider)(nil)

func NewMockPollingProvider(name types.ProviderName) *MockPollingProvider {
	return &MockPollingProvider{
		MockProvider: NewMockProvider(name),
		pollResult:   &provider.Result{},
	}
}

// SetPollResult makes Poll return result
func (m *MockPollingProvider) SetPollResult(result *provider.Result) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	m.pollResult, m.pollErr = result, nil
}

// SetPollError makes Poll fail with err
func (m *MockPollingProvider) SetPollError(err error) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	m.pollResult, m.pollErr = nil, err
}

// Polls returns how many times Poll was called
func (m *MockPollingProvider) Polls() int {
	return int(m.polls.Load())
}

func (m *MockPollingProvider) Poll(ctx context.Context, providerJobID string) (*provider.Result, error) {
	m.polls.Add(1)

	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	if m.pollErr != nil {
		return nil, m.pollErr
	}
	c := *m.pollResult
	if c.ProviderJobID == nil {
		c.ProviderJobID = &providerJobID
	}
	return &c, nil
}
