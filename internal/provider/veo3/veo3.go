// Package veo3 talks to the Veo video generation models on Vertex AI.
package veo3

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/httpclient"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Poller   = (*Provider)(nil)
)

// Provider submits long running video predictions and polls their operations
type Provider struct {
	cfg    config.Veo3Config
	http   httpclient.Client
	tokens oauth2.TokenSource
	logger *logger.Logger
}

// New creates the adapter with an explicit token source
func New(cfg config.Veo3Config, client httpclient.Client, tokens oauth2.TokenSource, logger *logger.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		http:   client,
		tokens: tokens,
		logger: logger,
	}
}

// NewFromConfig creates the adapter authenticated with application default credentials
func NewFromConfig(ctx context.Context, cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) (*Provider, error) {
	if cfg.Provider.Veo3.ProjectID == "" {
		return nil, ierr.NewError("provider.veo3.project_id is required").
			WithHint("Veo3 provider is not configured").
			Mark(ierr.ErrValidation)
	}
	tokens, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, provider.NewProviderError(types.ProviderVeo3, err, "Failed to load Google Cloud credentials")
	}
	return New(cfg.Provider.Veo3, client, tokens, logger), nil
}

func (p *Provider) Name() types.ProviderName {
	return types.ProviderVeo3
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string      `json:"prompt"`
	Image  *imageInput `json:"image,omitempty"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount,omitempty"`
	StorageURI  string `json:"storageUri,omitempty"`
}

type fetchOperationRequest struct {
	OperationName string `json:"operationName"`
}

func (p *Provider) Generate(ctx context.Context, prompt, inputMediaURL string) (*provider.Result, error) {
	image, err := resolveImage(ctx, p.http, inputMediaURL)
	if err != nil {
		if ierr.IsValidation(err) {
			return nil, provider.NewProviderError(p.Name(), err, "Input media must be an image")
		}
		return nil, provider.NewProviderError(p.Name(), err, "Failed to read input media")
	}

	body, err := json.Marshal(predictRequest{
		Instances: []predictInstance{{
			Prompt: prompt,
			Image:  image,
		}},
		Parameters: predictParameters{
			SampleCount: lo.Max([]int{p.cfg.SampleCount, 1}),
			StorageURI:  p.cfg.OutputGCSURI,
		},
	})
	if err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Failed to encode provider request")
	}

	raw, err := p.call(ctx, "predictLongRunning", body)
	if err != nil {
		return nil, err
	}

	op, err := parseOperation(raw)
	if err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Provider returned an unreadable response")
	}

	p.logger.Debugw("veo3 prediction submitted",
		"operation", op.Name,
		"done", op.Done,
	)
	return p.toResult(op, raw)
}

func (p *Provider) Poll(ctx context.Context, providerJobID string) (*provider.Result, error) {
	body, err := json.Marshal(fetchOperationRequest{OperationName: providerJobID})
	if err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Failed to encode provider request")
	}

	raw, err := p.call(ctx, "fetchPredictOperation", body)
	if err != nil {
		return nil, err
	}

	op, err := parseOperation(raw)
	if err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Provider returned an unreadable response")
	}
	if op.Name == "" {
		op.Name = providerJobID
	}
	return p.toResult(op, raw)
}

// toResult maps an operation onto the dispatch outcome. A finished operation
// without media is a failure, an unfinished one is pending.
func (p *Provider) toResult(op *operation, raw []byte) (*provider.Result, error) {
	if op.Error != nil {
		return nil, provider.NewGenerationFailedError(p.Name(),
			fmt.Errorf("operation %s failed with code %d: %s", op.Name, op.Error.Code, op.Error.Message),
			lo.Ternary(op.Error.Message != "", op.Error.Message, "Provider failed to generate media"))
	}

	result := &provider.Result{
		Raw: raw,
	}
	if op.Name != "" {
		result.ProviderJobID = lo.ToPtr(op.Name)
	}
	if uri := op.firstOutputURI(); uri != "" {
		result.OutputMediaURL = lo.ToPtr(uri)
		return result, nil
	}

	if op.Done && len(op.Candidates) == 0 {
		reason := "Provider finished without producing media"
		if op.Response != nil && op.Response.RAIMediaFilteredCount > 0 {
			reason = "Generated media was blocked by the provider's safety filters"
		}
		return nil, provider.NewGenerationFailedError(p.Name(),
			fmt.Errorf("operation %s finished without media", op.Name), reason)
	}
	return result, nil
}

func (p *Provider) call(ctx context.Context, method string, body []byte) ([]byte, error) {
	token, err := p.tokens.Token()
	if err != nil {
		return nil, provider.NewProviderError(p.Name(), err, "Failed to authenticate with the provider")
	}

	resp, err := p.http.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    p.modelURL(method),
		Headers: map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
		},
		Body: body,
	})
	if err != nil {
		hint := "Provider request failed"
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			hint = fmt.Sprintf("Provider request failed with status %d", httpErr.StatusCode)
			p.logger.Warnw("veo3 request rejected",
				"method", method,
				"status", httpErr.StatusCode,
				"response", string(httpErr.Response),
			)
		}
		return nil, provider.NewProviderError(p.Name(), err, hint)
	}
	return resp.Body, nil
}

func (p *Provider) modelURL(method string) string {
	base := strings.TrimSuffix(p.cfg.Endpoint, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", p.cfg.Location)
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		base, p.cfg.ProjectID, p.cfg.Location, p.cfg.Model, method)
}
