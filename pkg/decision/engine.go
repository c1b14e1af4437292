// Package decision combines the base threshold, the adaptive adjustment
// from historical pass rates, and the risk assessment into a verdict.
package decision

import (
	"github.com/verisafe/humancheck/pkg/risk"
)

// Outcome is the final verdict over one verification attempt.
type Outcome string

const (
	OutcomePass      Outcome = "PASS"
	OutcomeFail      Outcome = "FAIL"
	OutcomeChallenge Outcome = "CHALLENGE_REQUIRED"
)

// Policy labels identify which decision rule fired. They are stable for
// identical inputs and surface in results and analytics.
const (
	PolicyStructuralReject = "structural_reject"
	PolicyScorePass        = "score_pass"
	PolicyRiskReject       = "risk_reject"
	PolicyChallengeMargin  = "challenge_margin"
	PolicyScoreReject      = "score_reject"
)

// Config tunes the threshold adaptation and the challenge margin.
type Config struct {
	// ThresholdBase is the unadjusted minimum humanness score.
	ThresholdBase float64
	// ChallengeMargin is how far below the threshold a score may fall and
	// still earn a secondary challenge instead of an outright reject.
	ChallengeMargin float64
	// MaxRaise bounds how much an implausibly high pass rate can raise
	// the threshold per key.
	MaxRaise float64
	// MaxLower bounds how much an abnormally low pass rate can lower
	// the threshold per key.
	MaxLower float64
	// HighWatermark is the pass rate above which the bar starts rising.
	HighWatermark float64
	// LowWatermark is the pass rate below which the bar starts dropping.
	LowWatermark float64
}

// DefaultConfig returns production decision defaults.
func DefaultConfig() Config {
	return Config{
		ThresholdBase:   0.6,
		ChallengeMargin: 0.15,
		MaxRaise:        0.2,
		MaxLower:        0.15,
		HighWatermark:   0.9,
		LowWatermark:    0.2,
	}
}

// Decision is the engine's output for one attempt.
type Decision struct {
	Outcome           Outcome
	Policy            string
	ThresholdBase     float64
	ThresholdUsed     float64
	ChallengeRequired bool
}

// Engine renders verdicts. It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine; non-positive config fields fall back to
// defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ThresholdBase <= 0 {
		cfg.ThresholdBase = def.ThresholdBase
	}
	if cfg.ChallengeMargin <= 0 {
		cfg.ChallengeMargin = def.ChallengeMargin
	}
	if cfg.MaxRaise <= 0 {
		cfg.MaxRaise = def.MaxRaise
	}
	if cfg.MaxLower <= 0 {
		cfg.MaxLower = def.MaxLower
	}
	if cfg.HighWatermark <= 0 || cfg.HighWatermark >= 1 {
		cfg.HighWatermark = def.HighWatermark
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark >= 1 {
		cfg.LowWatermark = def.LowWatermark
	}
	return &Engine{cfg: cfg}
}

// adjust maps one key's historical pass rate onto a threshold delta.
// Piecewise linear: rates above the high watermark raise the bar up to
// MaxRaise (a key that passes suspiciously often looks scripted), rates
// below the low watermark lower it up to MaxLower (a key rejected that
// often is likelier a legitimate but unusual environment). The function
// is monotonically non-decreasing in the rate.
func (e *Engine) adjust(rate float64) float64 {
	switch {
	case rate > e.cfg.HighWatermark:
		return e.cfg.MaxRaise * (rate - e.cfg.HighWatermark) / (1 - e.cfg.HighWatermark)
	case rate < e.cfg.LowWatermark:
		return -e.cfg.MaxLower * (e.cfg.LowWatermark - rate) / e.cfg.LowWatermark
	default:
		return 0
	}
}

// Threshold computes the adapted threshold for the given historical pass
// rates. Low rates only ever subtract, so the result never exceeds the
// base unless a rate sits above the high watermark.
func (e *Engine) Threshold(rateIP, rateUA float64) float64 {
	return clamp(e.cfg.ThresholdBase+e.adjust(rateIP)+e.adjust(rateUA), 0, 1)
}

// Decide renders the verdict for a scored attempt. Rules evaluate in
// order: pass when the score clears the adapted threshold and risk is not
// HIGH; offer a secondary challenge when the score lands within the
// margin below the threshold and risk is LOW or MEDIUM; fail otherwise.
func (e *Engine) Decide(score, rateIP, rateUA float64, level risk.Level) Decision {
	used := e.Threshold(rateIP, rateUA)

	d := Decision{
		ThresholdBase: e.cfg.ThresholdBase,
		ThresholdUsed: used,
	}

	switch {
	case score >= used && level != risk.LevelHigh:
		d.Outcome = OutcomePass
		d.Policy = PolicyScorePass
	case score >= used:
		// Cleared the bar numerically but carries a hard risk signal.
		d.Outcome = OutcomeFail
		d.Policy = PolicyRiskReject
	case score >= used-e.cfg.ChallengeMargin && level != risk.LevelHigh:
		d.Outcome = OutcomeChallenge
		d.Policy = PolicyChallengeMargin
		d.ChallengeRequired = true
	default:
		d.Outcome = OutcomeFail
		d.Policy = PolicyScoreReject
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
