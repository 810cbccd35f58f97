package veo3

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/httpclient"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/provider"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type Veo3Suite struct {
	suite.Suite
	server   *httptest.Server
	provider *Provider

	mu          sync.Mutex
	predictBody predictRequest
	authHeader  string
	predictResp string
	fetchResp   string
	fetchStatus int
}

func TestVeo3(t *testing.T) {
	suite.Run(t, new(Veo3Suite))
}

func (s *Veo3Suite) SetupTest() {
	s.predictResp = `{"name":"projects/p/locations/us-central1/publishers/google/models/veo-3/operations/op-1"}`
	s.fetchResp = `{"name":"projects/p/locations/us-central1/publishers/google/models/veo-3/operations/op-1","done":false}`
	s.fetchStatus = http.StatusOK

	mux := http.NewServeMux()
	mux.HandleFunc("/media/in.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	})
	mux.HandleFunc("/media/in.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not an image"))
	})
	mux.HandleFunc("/v1/projects/p/locations/us-central1/publishers/google/models/veo-3:predictLongRunning",
		func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			defer s.mu.Unlock()
			s.authHeader = r.Header.Get("Authorization")
			_ = json.Unmarshal(body, &s.predictBody)
			_, _ = w.Write([]byte(s.predictResp))
		})
	mux.HandleFunc("/v1/projects/p/locations/us-central1/publishers/google/models/veo-3:fetchPredictOperation",
		func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			w.WriteHeader(s.fetchStatus)
			_, _ = w.Write([]byte(s.fetchResp))
		})
	s.server = httptest.NewServer(mux)

	log := logger.NewNopLogger()
	client := httpclient.NewClient(httpclient.ClientConfig{
		Timeout:      2 * time.Second,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, log)

	s.provider = New(config.Veo3Config{
		ProjectID:    "p",
		Location:     "us-central1",
		Model:        "veo-3",
		Endpoint:     s.server.URL + "/",
		OutputGCSURI: "gs://bucket/out/",
		SampleCount:  0,
	}, client, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}), log)
}

func (s *Veo3Suite) setFetch(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchStatus, s.fetchResp = status, body
}

func (s *Veo3Suite) TearDownTest() {
	s.server.Close()
}

func (s *Veo3Suite) TestGenerateSubmitsInlineImage() {
	result, err := s.provider.Generate(context.Background(), "a red sneaker", s.server.URL+"/media/in.png")
	s.Require().NoError(err)
	s.False(result.HasOutput())
	s.Equal("projects/p/locations/us-central1/publishers/google/models/veo-3/operations/op-1", lo.FromPtr(result.ProviderJobID))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equal("Bearer test-token", s.authHeader)
	s.Require().Len(s.predictBody.Instances, 1)
	instance := s.predictBody.Instances[0]
	s.Equal("a red sneaker", instance.Prompt)
	s.Require().NotNil(instance.Image)
	s.Equal("image/png", instance.Image.MimeType)
	s.Equal(base64.StdEncoding.EncodeToString(pngBytes), instance.Image.BytesBase64Encoded)
	s.Equal(1, s.predictBody.Parameters.SampleCount)
	s.Equal("gs://bucket/out/", s.predictBody.Parameters.StorageURI)
}

func (s *Veo3Suite) TestGenerateReferencesCloudStorageImages() {
	_, err := s.provider.Generate(context.Background(), "prompt", "gs://bucket/in.jpg")
	s.Require().NoError(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	image := s.predictBody.Instances[0].Image
	s.Equal("gs://bucket/in.jpg", image.GCSURI)
	s.Equal("image/jpeg", image.MimeType)
	s.Empty(image.BytesBase64Encoded)
}

func (s *Veo3Suite) TestGenerateImmediateOutput() {
	s.mu.Lock()
	s.predictResp = `{"name":"operations/2","done":true,"response":{"videos":[{"gcsUri":"gs://bucket/out/v.mp4"}]}}`
	s.mu.Unlock()

	result, err := s.provider.Generate(context.Background(), "prompt", "gs://bucket/in.png")
	s.Require().NoError(err)
	s.True(result.HasOutput())
	s.Equal("gs://bucket/out/v.mp4", lo.FromPtr(result.OutputMediaURL))
	s.NotEmpty(result.Raw)
}

func (s *Veo3Suite) TestGenerateRejectsNonImageInput() {
	_, err := s.provider.Generate(context.Background(), "prompt", s.server.URL+"/media/in.txt")
	s.Require().Error(err)
	s.True(ierr.IsProvider(err))
	s.Equal("Input media must be an image", ierr.DisplayMessage(err))
	s.False(provider.IsGenerationFailed(err))
}

func (s *Veo3Suite) TestPoll() {
	jobID := "projects/p/locations/us-central1/publishers/google/models/veo-3/operations/op-1"

	s.Run("pending", func() {
		result, err := s.provider.Poll(context.Background(), jobID)
		s.Require().NoError(err)
		s.False(result.HasOutput())
	})

	s.Run("done with media", func() {
		s.setFetch(http.StatusOK, `{"done":true,"response":{"videos":[{"gcsUri":"gs://bucket/out/final.mp4"}]}}`)
		result, err := s.provider.Poll(context.Background(), jobID)
		s.Require().NoError(err)
		s.Equal("gs://bucket/out/final.mp4", lo.FromPtr(result.OutputMediaURL))
		s.Equal(jobID, lo.FromPtr(result.ProviderJobID))
	})

	s.Run("operation error", func() {
		s.setFetch(http.StatusOK, `{"done":true,"error":{"code":3,"message":"prompt violates usage guidelines"}}`)
		_, err := s.provider.Poll(context.Background(), jobID)
		s.Require().Error(err)
		s.True(provider.IsGenerationFailed(err))
		s.Equal("prompt violates usage guidelines", ierr.DisplayMessage(err))
	})

	s.Run("filtered output", func() {
		s.setFetch(http.StatusOK, `{"done":true,"response":{"raiMediaFilteredCount":1}}`)
		_, err := s.provider.Poll(context.Background(), jobID)
		s.Require().Error(err)
		s.True(provider.IsGenerationFailed(err))
		s.True(strings.Contains(ierr.DisplayMessage(err), "safety filters"))
	})

	s.Run("upstream rejection is not a generation failure", func() {
		s.setFetch(http.StatusBadRequest, `{"error":{"message":"bad operation"}}`)
		_, err := s.provider.Poll(context.Background(), jobID)
		s.Require().Error(err)
		s.True(ierr.IsProvider(err))
		s.False(provider.IsGenerationFailed(err))
		s.Equal("Provider request failed with status 400", ierr.DisplayMessage(err))
	})
}
