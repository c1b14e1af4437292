package check

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verisafe/humancheck/internal/common/middleware"
	"github.com/verisafe/humancheck/pkg/decision"
	"github.com/verisafe/humancheck/pkg/nonce"
	"github.com/verisafe/humancheck/pkg/passrate"
	"github.com/verisafe/humancheck/pkg/risk"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// httptest requests present this peer address to gin.
const httptestIP = "192.0.2.1"

func setupRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()

	env := newTestEnv(t, defaultEngineConfig())
	handler := NewHandler(env.service)

	router := gin.New()
	router.Use(middleware.RequestID())
	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1, nil)
	return router, env
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUA)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// issueNonce drives GET /nonce and returns the issued id.
func issueNonce(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doRequest(t, router, http.MethodGet, "/api/v1/check/nonce", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IssueNonceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Nonce)
	return resp.Nonce
}

// routerToken builds a passing token for a nonce issued through the router.
func routerToken(t *testing.T, nonceID string) string {
	t.Helper()
	rec := &nonce.Record{ID: nonceID, ClientIP: httptestIP, UserAgent: testUA}
	return humanToken(t, rec)
}

func TestHandler_IssueNonce(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/check/nonce", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp IssueNonceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Nonce)
	assert.True(t, resp.ExpiresAt.After(resp.IssuedAt))
}

func TestHandler_VerifyPass(t *testing.T) {
	router, _ := setupRouter(t)

	nonceID := issueNonce(t, router)
	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify",
		VerifyRequest{Token: routerToken(t, nonceID)})

	assert.Equal(t, http.StatusOK, w.Code)

	var result VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, string(decision.OutcomePass), result.Outcome)
	assert.NotEmpty(t, result.TraceID)
}

func TestHandler_VerifyMissingToken(t *testing.T) {
	router, _ := setupRouter(t)

	for _, body := range []any{nil, VerifyRequest{Token: ""}} {
		w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "MISSING_TOKEN", resp.ErrorCode)
	}
}

func TestHandler_VerifyInvalidToken(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify",
		VerifyRequest{Token: "!!!garbage!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_TOKEN", resp.ErrorCode)
	assert.False(t, resp.Retryable)
}

func TestHandler_VerifyUnknownNonce(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify",
		VerifyRequest{Token: routerToken(t, "never-issued")})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NONCE_NOT_FOUND", resp.ErrorCode)
	assert.False(t, resp.Retryable)
}

func TestHandler_VerifyReplay(t *testing.T) {
	router, _ := setupRouter(t)

	nonceID := issueNonce(t, router)
	token := routerToken(t, nonceID)

	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify", VerifyRequest{Token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/check/verify", VerifyRequest{Token: token})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REPLAY_DETECTED", resp.ErrorCode)
}

func TestHandler_VerifyExpiredNonce(t *testing.T) {
	store := nonce.NewMemoryStore(time.Nanosecond, time.Minute, zap.NewNop())
	tracker := passrate.New(time.Hour, 4)
	scorer := risk.NewScorer(risk.Config{RequiredPowBits: testPowBits})
	engine := decision.NewEngine(defaultEngineConfig())
	service := NewService(store, tracker, scorer, engine, &captureRecorder{}, zap.NewNop())

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewHandler(service).RegisterRoutes(v1, nil)

	nonceID := issueNonce(t, router)
	time.Sleep(5 * time.Millisecond)

	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify",
		VerifyRequest{Token: routerToken(t, nonceID)})
	assert.Equal(t, http.StatusGone, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NONCE_EXPIRED", resp.ErrorCode)
	assert.True(t, resp.Retryable)
}

func TestHandler_VerifyRejectAnswers403(t *testing.T) {
	router, _ := setupRouter(t)

	nonceID := issueNonce(t, router)
	rec := &nonce.Record{ID: nonceID, ClientIP: httptestIP, UserAgent: testUA}
	token := tokenFor(t, rec, func(sig *risk.Signals) {
		sig.PoW.Salt = "wrong"
	})

	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify", VerifyRequest{Token: token})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var result VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, string(decision.OutcomeFail), result.Outcome)
	assert.False(t, result.ChallengeRequired)
}

func TestHandler_VerifyChallengeAnswers403(t *testing.T) {
	cfg := defaultEngineConfig()
	cfg.ThresholdBase = 0.99
	env := newTestEnv(t, cfg)

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewHandler(env.service).RegisterRoutes(v1, nil)

	nonceID := issueNonce(t, router)
	w := doRequest(t, router, http.MethodPost, "/api/v1/check/verify",
		VerifyRequest{Token: routerToken(t, nonceID)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var result VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.ChallengeRequired)
	assert.Equal(t, string(decision.OutcomeChallenge), result.Outcome)
}

func TestHandler_Stats(t *testing.T) {
	router, _ := setupRouter(t)

	for i := 0; i < 2; i++ {
		issueNonce(t, router)
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/check/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Stats.OutstandingNonces)
}

func TestHandler_RouteRegistration(t *testing.T) {
	router, _ := setupRouter(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/check/nonce"},
		{http.MethodPost, "/api/v1/check/verify"},
		{http.MethodGet, "/api/v1/check/stats"},
	} {
		w := doRequest(t, router, tc.method, tc.path, nil)
		assert.NotEqual(t, http.StatusNotFound, w.Code,
			fmt.Sprintf("route %s %s not registered", tc.method, tc.path))
	}
}
