package check

import (
	"time"

	"github.com/verisafe/humancheck/pkg/passrate"
)

// ============================================================================
// Request DTOs
// ============================================================================

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	Token string `json:"token" example:"eyJub25jZSI6Ii4uLiJ9"`
}

// ============================================================================
// Response DTOs
// ============================================================================

// IssueNonceResponse is returned by GET /nonce.
type IssueNonceResponse struct {
	Success   bool      `json:"success" example:"true"`
	Nonce     string    `json:"nonce" example:"3q2-7_9kXhlaURJtO5rGzw"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerificationResult is the immutable outcome of one verify call. It is
// created once per call, never mutated afterwards, and handed to the
// caller (who may forward it to the audit trail).
type VerificationResult struct {
	Success           bool      `json:"success"`
	Outcome           string    `json:"outcome" example:"PASS"`
	ErrorCode         string    `json:"errorCode,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	Retryable         bool      `json:"retryable"`
	Score             float64   `json:"score"`
	ThresholdBase     float64   `json:"thresholdBase"`
	ThresholdUsed     float64   `json:"thresholdUsed"`
	PassRateIP        float64   `json:"passRateIp"`
	PassRateUA        float64   `json:"passRateUa"`
	Policy            string    `json:"policy,omitempty"`
	RiskLevel         string    `json:"riskLevel,omitempty"`
	RiskScore         float64   `json:"riskScore"`
	RiskReasons       []string  `json:"riskReasons,omitempty"`
	ChallengeRequired bool      `json:"challengeRequired"`
	Timestamp         time.Time `json:"timestamp"`
	TraceID           string    `json:"traceId"`
}

// Stats is the read-only aggregate returned by GET /stats.
type Stats struct {
	OutstandingNonces int               `json:"outstandingNonces"`
	PassRates         passrate.Snapshot `json:"passRates"`
}

// StatsResponse wraps Stats with the response envelope.
type StatsResponse struct {
	Success   bool      `json:"success" example:"true"`
	Stats     Stats     `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}
