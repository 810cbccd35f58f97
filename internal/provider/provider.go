package provider

import (
	"context"
	"encoding/json"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Result is what a provider reports for one generation request.
// A nil OutputMediaURL means the generation is still pending.
type Result struct {
	ProviderJobID  *string         `json:"provider_job_id"`
	OutputMediaURL *string         `json:"output_media_url"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// HasOutput reports whether the provider already produced the media
func (r *Result) HasOutput() bool {
	return r != nil && lo.FromPtr(r.OutputMediaURL) != ""
}

// Provider starts AI generation jobs
type Provider interface {
	Name() types.ProviderName
	// Generate submits prompt and the input media to the provider. Failures are
	// returned as errors marked ierr.ErrProvider.
	Generate(ctx context.Context, prompt, inputMediaURL string) (*Result, error)
}

// Poller is implemented by providers whose jobs complete asynchronously
type Poller interface {
	// Poll fetches the current state of a job previously started by Generate.
	// A provider side failure of the job is returned as an ierr.ErrProvider error.
	Poll(ctx context.Context, providerJobID string) (*Result, error)
}

// NewProviderError wraps a failure of the named provider
func NewProviderError(name types.ProviderName, err error, hint string) error {
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"provider": name,
		}).
		Mark(ierr.ErrProvider)
}

// ErrGenerationFailed marks jobs the provider itself reported as failed, as
// opposed to failures to reach the provider
var ErrGenerationFailed = errors.New("generation failed")

// NewGenerationFailedError is a provider error that ends the job for good
func NewGenerationFailedError(name types.ProviderName, err error, hint string) error {
	return errors.Mark(NewProviderError(name, err, hint), ErrGenerationFailed)
}

// IsGenerationFailed reports whether err is a final failure of the job
func IsGenerationFailed(err error) bool {
	return errors.Is(err, ErrGenerationFailed)
}
