package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/adforge/adforge/internal/api/v1"
	"github.com/adforge/adforge/internal/auth"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/provider"
	"github.com/adforge/adforge/internal/service"
	"github.com/adforge/adforge/internal/testutil"
	"github.com/adforge/adforge/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const routerTestSecret = "router-secret"

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := s.GetConfig()
	cfg.Auth.Secret = routerTestSecret
	cfg.Ledger.SeedCredits = 100
	cfg.Server.AllowedOrigins = []string{"https://app.adforge.io"}

	stores := s.GetStores()
	params := service.NewServiceParams(
		s.GetLogger(), cfg, s.GetDB(), s.GetCache(), s.GetSentry(),
		stores.LedgerRepo, stores.OrgRepo, stores.JobRepo,
		s.GetLocker(), s.GetRegistry(), s.GetPublisher(),
	)
	ledgerService := service.NewLedgerService(params)
	orgService := service.NewOrganizationService(params, ledgerService)
	ownershipService := service.NewOwnershipService(params)
	jobService := service.NewJobService(params)
	dispatchService := service.NewDispatchService(params, ledgerService)

	authProvider, err := auth.NewProvider(cfg)
	s.Require().NoError(err)

	log := s.GetLogger()
	s.router = NewRouter(Handlers{
		Health:       v1.NewHealthHandler(log),
		Job:          v1.NewJobHandler(jobService, dispatchService, log),
		Organization: v1.NewOrganizationHandler(orgService, ownershipService, log),
		Credits:      v1.NewCreditsHandler(ledgerService, orgService, log),
	}, cfg, log, authProvider)
}

func (s *RouterSuite) token(userID string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(routerTestSecret))
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, userID string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func (s *RouterSuite) createOrg(userID, name string) string {
	w, body := s.do(http.MethodPost, "/api/orgs", userID, map[string]any{"name": name})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return body["id"].(string)
}

func (s *RouterSuite) TestHealth() {
	w, body := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["ok"])
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestRejectsMissingToken() {
	w, body := s.do(http.MethodGet, "/api/orgs/me", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(false, body["ok"])
	s.Equal("Unauthorized", body["error"])
}

func (s *RouterSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/orgs/me", nil)
	req.Header.Set("Origin", "https://app.adforge.io")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("https://app.adforge.io", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func (s *RouterSuite) TestCreditsFlow() {
	orgID := s.createOrg("user_owner", "Acme Ads")

	w, body := s.do(http.MethodGet, "/api/orgs/"+orgID+"/credits/balance", "user_owner", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(100), body["balance"])

	w, body = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/consume", "user_owner", map[string]any{
		"amount": 30, "idempotency_key": "consume-1",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(float64(70), body["new_balance"])

	// replay returns the same balance without a second debit
	w, body = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/consume", "user_owner", map[string]any{
		"amount": 30, "idempotency_key": "consume-1",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(70), body["new_balance"])

	w, body = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/consume", "user_owner", map[string]any{"amount": 100})
	s.Equal(http.StatusPaymentRequired, w.Code)
	s.Equal("Insufficient credits", body["error"])

	w, _ = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/consume", "user_owner", map[string]any{"amount": 0})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/consume", "user_stranger", map[string]any{"amount": 1})
	s.Equal(http.StatusForbidden, w.Code)

	w, body = s.do(http.MethodPost, "/api/orgs/"+orgID+"/credits/add", "user_owner", map[string]any{"amount": 50})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(float64(120), body["new_balance"])

	w, body = s.do(http.MethodGet, "/api/orgs/"+orgID+"/credits/entries?limit=2", "user_owner", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	items := body["items"].([]any)
	s.Len(items, 2)
	s.Equal(float64(50), items[0].(map[string]any)["delta"])
}

func (s *RouterSuite) TestOwnership() {
	s.GetStores().OrgRepo.SeedOrg(s.GetContext(), "org_open", "user_a", "user_b")

	w, body := s.do(http.MethodGet, "/api/orgs/org_open/owner", "user_a", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Nil(body["owner_id"])

	w, body = s.do(http.MethodPost, "/api/orgs/org_open/owner/claim", "user_a", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("user_a", body["owner_id"])

	w, body = s.do(http.MethodPost, "/api/orgs/org_open/owner/claim", "user_b", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Organization already has an owner", body["error"])

	w, _ = s.do(http.MethodGet, "/api/orgs/org_open/owner", "user_outsider", nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestJobLifecycle() {
	orgID := s.createOrg("user_owner", "Acme Ads")
	s.GetProvider().SetResult(&provider.Result{
		ProviderJobID:  lo.ToPtr("op-1"),
		OutputMediaURL: lo.ToPtr("gs://bucket/out.mp4"),
	})

	w, body := s.do(http.MethodPost, "/api/jobs", "user_owner", map[string]any{
		"org_id":          orgID,
		"project_id":      "proj_1",
		"job_type":        "video",
		"input_media_url": "https://cdn.adforge.io/in.png",
		"prompt_text":     "sneaker on a beach",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("draft", body["status"])
	jobID := body["id"].(string)

	w, body = s.do(http.MethodPost, "/api/jobs/"+jobID+"/launch-and-charge", "user_owner", map[string]any{"amount": 25})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("completed", body["status"])
	s.Equal("gs://bucket/out.mp4", body["output_media_url"])

	w, body = s.do(http.MethodPost, "/api/jobs/"+jobID+"/launch", "user_owner", nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Job already completed", body["error"])

	w, body = s.do(http.MethodGet, "/api/orgs/"+orgID+"/credits/balance", "user_owner", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(75), body["balance"])

	w, _ = s.do(http.MethodGet, "/api/jobs/"+jobID, "user_stranger", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, body = s.do(http.MethodPost, "/api/jobs/job_missing/launch", "user_owner", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Job not found", body["error"])
}

func (s *RouterSuite) TestLaunchMissingPrompt() {
	orgID := s.createOrg("user_owner", "Acme Ads")

	w, body := s.do(http.MethodPost, "/api/jobs", "user_owner", map[string]any{
		"org_id":          orgID,
		"project_id":      "proj_1",
		"job_type":        "image",
		"input_media_url": "https://cdn.adforge.io/in.png",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, body = s.do(http.MethodPost, "/api/jobs/"+body["id"].(string)+"/launch", "user_owner", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Missing prompt_text", body["error"])
	s.Equal(0, s.GetProvider().Calls())
}

func (s *RouterSuite) TestLaunchProviderFailure() {
	orgID := s.createOrg("user_owner", "Acme Ads")
	cause := ierr.NewError("input media is not an image").
		WithHint("Input media must be an image").
		Mark(ierr.ErrValidation)
	s.GetProvider().SetError(provider.NewProviderError(types.ProviderVeo3, cause, "Input media must be an image"))

	w, body := s.do(http.MethodPost, "/api/jobs", "user_owner", map[string]any{
		"org_id":          orgID,
		"project_id":      "proj_1",
		"job_type":        "video",
		"input_media_url": "https://cdn.adforge.io/in.txt",
		"prompt_text":     "sneaker on a beach",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	jobID := body["id"].(string)

	for i := 0; i < 5; i++ {
		w, body = s.do(http.MethodPost, "/api/jobs/"+jobID+"/launch", "user_owner", nil)
		s.Equal(http.StatusInternalServerError, w.Code, w.Body.String())
		s.Equal(false, body["ok"])
		s.Equal("Input media must be an image", body["error"])
	}

	w, body = s.do(http.MethodGet, "/api/jobs/"+jobID, "user_owner", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("failed", body["status"])
}
