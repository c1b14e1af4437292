// Package risk extracts a humanness score and discrete risk reasons from
// the behavioral signals of a submitted proof token. Scoring is
// deterministic: the same signals against the same request context always
// produce the same assessment.
package risk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/bits"
)

// Level is a coarse bucketing of the humanness score.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Risk reason labels. Stable strings; they surface in results, audit
// entries and metrics.
const (
	ReasonPowInvalid     = "pow_invalid"
	ReasonPowWeak        = "pow_weak"
	ReasonSolveTooFast   = "solve_too_fast"
	ReasonSolveTooSlow   = "solve_too_slow"
	ReasonFewSignals     = "few_signals"
	ReasonUniformTiming  = "uniform_timing"
	ReasonSignalMismatch = "signal_mismatch"
)

// Assessment is the scorer's verdict over one token.
type Assessment struct {
	Score   float64
	Level   Level
	Reasons []string
}

// Config tunes the scorer.
type Config struct {
	// RequiredPowBits is the minimum proof-of-work difficulty accepted.
	RequiredPowBits int
	// MinSolveMS is the fastest credible human solve time.
	MinSolveMS int64
	// MaxSolveMS is the slowest solve time still considered fresh.
	MaxSolveMS int64
}

// DefaultConfig returns production scoring defaults.
func DefaultConfig() Config {
	return Config{
		RequiredPowBits: 12,
		MinSolveMS:      300,
		MaxSolveMS:      10 * 60 * 1000,
	}
}

// Scorer computes assessments from decoded signals.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer; zero config fields fall back to defaults.
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.RequiredPowBits <= 0 {
		cfg.RequiredPowBits = def.RequiredPowBits
	}
	if cfg.MinSolveMS <= 0 {
		cfg.MinSolveMS = def.MinSolveMS
	}
	if cfg.MaxSolveMS <= 0 {
		cfg.MaxSolveMS = def.MaxSolveMS
	}
	return &Scorer{cfg: cfg}
}

// Score evaluates decoded signals against the presenting client.
// Hard failures (broken proof-of-work, signals minted for a different
// client) force LevelHigh regardless of the numeric score.
func (s *Scorer) Score(sig *Signals, clientIP, userAgent string) Assessment {
	var reasons []string
	hard := false

	powScore, powReasons, powHard := s.scorePow(sig)
	reasons = append(reasons, powReasons...)
	hard = hard || powHard

	timeScore, timeReasons := s.scoreSolveTime(sig.ElapsedMS)
	reasons = append(reasons, timeReasons...)

	entropyScore, entropyReasons := scoreTimingEntropy(sig.Intervals)
	reasons = append(reasons, entropyReasons...)

	consistScore, consistReasons, consistHard := scoreConsistency(sig, clientIP, userAgent)
	reasons = append(reasons, consistReasons...)
	hard = hard || consistHard

	score := 0.35*powScore + 0.20*timeScore + 0.25*entropyScore + 0.20*consistScore

	level := bucket(score)
	if hard {
		level = LevelHigh
	}

	return Assessment{Score: score, Level: level, Reasons: reasons}
}

func bucket(score float64) Level {
	switch {
	case score >= 0.7:
		return LevelLow
	case score >= 0.4:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// scorePow validates the hashcash solution over the nonce.
func (s *Scorer) scorePow(sig *Signals) (float64, []string, bool) {
	if sig.PoW.Bits < s.cfg.RequiredPowBits {
		return 0, []string{ReasonPowWeak}, true
	}
	if !VerifyPow(sig.Nonce, sig.PoW.Salt, sig.PoW.Bits) {
		return 0, []string{ReasonPowInvalid}, true
	}
	return 1, nil, false
}

// scoreSolveTime maps the reported solve duration onto plausibility.
// Sub-human speed scores zero; a slow ramp above MinSolveMS rewards
// interaction that took a human amount of time.
func (s *Scorer) scoreSolveTime(elapsedMS int64) (float64, []string) {
	switch {
	case elapsedMS <= 0:
		return 0, []string{ReasonSolveTooFast}
	case elapsedMS < s.cfg.MinSolveMS:
		return 0, []string{ReasonSolveTooFast}
	case elapsedMS > s.cfg.MaxSolveMS:
		return 0.3, []string{ReasonSolveTooSlow}
	}

	// Linear ramp from MinSolveMS to 4*MinSolveMS, then full credit.
	rampEnd := 4 * s.cfg.MinSolveMS
	if elapsedMS >= rampEnd {
		return 1, nil
	}
	return float64(elapsedMS-s.cfg.MinSolveMS) / float64(rampEnd-s.cfg.MinSolveMS), nil
}

// scoreTimingEntropy measures variability of interaction cadence.
// Scripted clients emit events at constant or near-constant intervals,
// which shows up as low Shannon entropy over bucketed deltas.
func scoreTimingEntropy(intervals []int64) (float64, []string) {
	if len(intervals) < 3 {
		return 0.4, []string{ReasonFewSignals}
	}

	// Bucket deltas to 50ms resolution and build a histogram.
	hist := make(map[int64]int)
	for _, iv := range intervals {
		if iv < 0 {
			iv = 0
		}
		hist[iv/50]++
	}

	total := float64(len(intervals))
	entropy := 0.0
	for _, count := range hist {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}

	maxEntropy := math.Log2(total)
	if maxEntropy == 0 {
		return 0.4, []string{ReasonFewSignals}
	}
	normalized := entropy / maxEntropy

	if normalized < 0.3 {
		return normalized, []string{ReasonUniformTiming}
	}
	return normalized, nil
}

// scoreConsistency checks that the signals were minted for the client now
// presenting them. A mismatch means the token was produced elsewhere and
// is a hard failure.
func scoreConsistency(sig *Signals, clientIP, userAgent string) (float64, []string, bool) {
	if sig.UAHash != SignalHash(userAgent) || sig.IPHash != SignalHash(clientIP) {
		return 0, []string{ReasonSignalMismatch}, true
	}
	return 1, nil, false
}

// SignalHash is the shared hash binding a token to its client context.
func SignalHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16]
}

// VerifyPow checks that sha256("{nonce}:{salt}") carries at least
// difficulty leading zero bits.
func VerifyPow(nonce, salt string, difficulty int) bool {
	if difficulty <= 0 || difficulty > 256 {
		return false
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", nonce, salt)))

	zeros := 0
	for _, b := range sum {
		if b == 0 {
			zeros += 8
			continue
		}
		zeros += bits.LeadingZeros8(b)
		break
	}
	return zeros >= difficulty
}
