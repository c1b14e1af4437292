package check

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/verisafe/humancheck/internal/common/errors"
	"github.com/verisafe/humancheck/internal/metrics"
	"github.com/verisafe/humancheck/pkg/audit"
	"github.com/verisafe/humancheck/pkg/decision"
	"github.com/verisafe/humancheck/pkg/nonce"
	"github.com/verisafe/humancheck/pkg/passrate"
	"github.com/verisafe/humancheck/pkg/risk"
)

// Service is the verification façade: it orchestrates the nonce store,
// risk scorer, pass-rate tracker and decision engine for the two public
// operations (issue, verify) and exposes read-only statistics.
type Service struct {
	store    nonce.Store
	tracker  *passrate.Tracker
	scorer   *risk.Scorer
	engine   *decision.Engine
	recorder audit.Recorder
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates the verification service.
func NewService(
	store nonce.Store,
	tracker *passrate.Tracker,
	scorer *risk.Scorer,
	engine *decision.Engine,
	recorder audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		tracker:  tracker,
		scorer:   scorer,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Tracker keys are namespaced so an IP can never collide with a UA string.
func ipKey(clientIP string) string { return "ip:" + clientIP }
func uaKey(userAgent string) string { return "ua:" + userAgent }

// IssueNonce creates a single-use challenge nonce bound to the caller.
func (s *Service) IssueNonce(ctx context.Context, clientIP, userAgent string) (*IssueNonceResponse, error) {
	rec, err := s.store.Issue(ctx, clientIP, userAgent)
	if err != nil {
		s.logger.Error("nonce issuance failed",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return nil, apperrors.ServerError(err)
	}

	metrics.NoncesIssuedTotal.Inc()

	return &IssueNonceResponse{
		Success:   true,
		Nonce:     rec.ID,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// VerifyToken runs the full verification pipeline over a submitted proof
// token. Nonce failures return immediately: an expired, replayed or
// missing nonce is not evidence about humanness, so no scoring happens
// and the pass-rate tracker is left untouched.
func (s *Service) VerifyToken(ctx context.Context, token, clientIP, userAgent string) (*VerificationResult, error) {
	now := s.now()
	traceID := uuid.New().String()

	if strings.TrimSpace(token) == "" {
		// Rejected before any store access; nothing to audit.
		return nil, apperrors.MissingToken()
	}

	sig, err := risk.Decode(token)
	if err != nil {
		return nil, s.failEarly(ctx, traceID, now, clientIP, userAgent, apperrors.InvalidToken())
	}

	rec, err := s.store.Consume(ctx, sig.Nonce)
	if err != nil {
		return nil, s.failEarly(ctx, traceID, now, clientIP, userAgent, s.nonceError(err))
	}

	// Consistency is checked against the context the nonce was issued
	// under, so a token minted for one client cannot be replayed by
	// another even within the nonce's lifetime.
	assessment := s.scorer.Score(sig, rec.ClientIP, rec.UserAgent)

	rateIP := s.tracker.Rate(ipKey(clientIP))
	rateUA := s.tracker.Rate(uaKey(userAgent))

	dec := s.engine.Decide(assessment.Score, rateIP, rateUA, assessment.Level)

	// CHALLENGE_REQUIRED is an intermediate state; only final outcomes
	// feed back into the adaptive threshold.
	if dec.Outcome != decision.OutcomeChallenge {
		passed := dec.Outcome == decision.OutcomePass
		s.tracker.RecordOutcome(ipKey(clientIP), passed)
		s.tracker.RecordOutcome(uaKey(userAgent), passed)
	}

	result := &VerificationResult{
		Success:           dec.Outcome == decision.OutcomePass,
		Outcome:           string(dec.Outcome),
		Score:             assessment.Score,
		ThresholdBase:     dec.ThresholdBase,
		ThresholdUsed:     dec.ThresholdUsed,
		PassRateIP:        rateIP,
		PassRateUA:        rateUA,
		Policy:            dec.Policy,
		RiskLevel:         string(assessment.Level),
		RiskScore:         1 - assessment.Score,
		RiskReasons:       assessment.Reasons,
		ChallengeRequired: dec.ChallengeRequired,
		Timestamp:         now,
		TraceID:           traceID,
	}

	metrics.VerificationsTotal.WithLabelValues(result.Outcome).Inc()

	s.recordAudit(ctx, audit.Entry{
		TraceID:     traceID,
		Time:        now,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
		Outcome:     result.Outcome,
		Score:       result.Score,
		Threshold:   result.ThresholdUsed,
		Policy:      result.Policy,
		RiskLevel:   result.RiskLevel,
		RiskReasons: result.RiskReasons,
	})

	s.logger.Info("verification completed",
		zap.String("trace_id", traceID),
		zap.String("outcome", result.Outcome),
		zap.String("policy", result.Policy),
		zap.Float64("score", result.Score),
		zap.Float64("threshold", result.ThresholdUsed),
		zap.String("client_ip", clientIP),
	)

	return result, nil
}

// Stats returns a point-in-time snapshot of engine state.
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	size, err := s.store.Size(ctx)
	if err != nil {
		return nil, apperrors.ServerError(err)
	}

	metrics.OutstandingNonces.Set(float64(size))

	return &StatsResponse{
		Success: true,
		Stats: Stats{
			OutstandingNonces: size,
			PassRates:         s.tracker.Snapshot(),
		},
		Timestamp: s.now(),
	}, nil
}

// failEarly audits and counts a pre-scoring failure, then returns the
// application error for the handler to map.
func (s *Service) failEarly(ctx context.Context, traceID string, now time.Time, clientIP, userAgent string, appErr *apperrors.AppError) *apperrors.AppError {
	metrics.VerificationFailuresTotal.WithLabelValues(appErr.Code).Inc()

	s.recordAudit(ctx, audit.Entry{
		TraceID:   traceID,
		Time:      now,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Outcome:   string(decision.OutcomeFail),
		ErrorCode: appErr.Code,
		Policy:    decision.PolicyStructuralReject,
	})

	return appErr
}

// nonceError translates store sentinels into the public error taxonomy.
// Anything unexpected is normalized to SERVER_ERROR so storage internals
// never leak to callers.
func (s *Service) nonceError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, nonce.ErrNotFound):
		return apperrors.NonceNotFound()
	case errors.Is(err, nonce.ErrExpired):
		return apperrors.NonceExpired()
	case errors.Is(err, nonce.ErrReplayed):
		return apperrors.ReplayDetected()
	default:
		s.logger.Error("nonce store failure", zap.Error(err))
		return apperrors.ServerError(err)
	}
}

// recordAudit hands the entry to the audit recorder. Persistence failures
// are logged and swallowed; they never fail the verification request.
func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("trace_id", entry.TraceID),
			zap.Error(err),
		)
	}
}
