package risk

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIP = "198.51.100.7"
	testUA = "Mozilla/5.0 (X11; Linux x86_64)"
)

// solvePow brute-forces a salt for the given nonce and difficulty.
// Cheap at test difficulties (a few thousand hashes).
func solvePow(t *testing.T, nonce string, bits int) string {
	t.Helper()
	for i := 0; i < 1<<(bits+6); i++ {
		salt := strconv.Itoa(i)
		if VerifyPow(nonce, salt, bits) {
			return salt
		}
	}
	t.Fatalf("no pow solution found for %q at %d bits", nonce, bits)
	return ""
}

func humanSignals(t *testing.T, nonce string, bits int) *Signals {
	t.Helper()
	return &Signals{
		Nonce:     nonce,
		ElapsedMS: 2000,
		Intervals: []int64{120, 260, 80, 400, 150, 90, 310},
		PoW:       ProofOfWork{Bits: bits, Salt: solvePow(t, nonce, bits)},
		UAHash:    SignalHash(testUA),
		IPHash:    SignalHash(testIP),
	}
}

func TestDecode_MalformedTokens(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not base64", "!!!not-base64!!!"},
		{"not json", "bm90LWpzb24"},
		{"missing nonce", "e30"}, // {}
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	sig := humanSignals(t, "abc123", 4)

	token, err := Encode(sig)
	require.NoError(t, err)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)

	first := scorer.Score(sig, testIP, testUA)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, scorer.Score(sig, testIP, testUA))
	}
}

func TestScore_HumanLikeSignalsScoreHigh(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)

	a := scorer.Score(sig, testIP, testUA)
	assert.Greater(t, a.Score, 0.8)
	assert.Equal(t, LevelLow, a.Level)
	assert.Empty(t, a.Reasons)
}

func TestScore_InvalidPowForcesHigh(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)
	sig.PoW.Salt = "wrong"

	a := scorer.Score(sig, testIP, testUA)
	assert.Equal(t, LevelHigh, a.Level)
	assert.Contains(t, a.Reasons, ReasonPowInvalid)
}

func TestScore_WeakPowForcesHigh(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 8})
	sig := humanSignals(t, "nonce-1", 4) // solved below the requirement

	a := scorer.Score(sig, testIP, testUA)
	assert.Equal(t, LevelHigh, a.Level)
	assert.Contains(t, a.Reasons, ReasonPowWeak)
}

func TestScore_SignalMismatchForcesHigh(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)

	// Token minted for a different client context.
	a := scorer.Score(sig, "203.0.113.50", testUA)
	assert.Equal(t, LevelHigh, a.Level)
	assert.Contains(t, a.Reasons, ReasonSignalMismatch)
}

func TestScore_SubHumanSolveTime(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)
	sig.ElapsedMS = 50

	a := scorer.Score(sig, testIP, testUA)
	assert.Contains(t, a.Reasons, ReasonSolveTooFast)

	good := humanSignals(t, "nonce-1", 4)
	assert.Less(t, a.Score, scorer.Score(good, testIP, testUA).Score)
}

func TestScore_UniformTimingFlagged(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)
	// Scripted constant cadence: every interval lands in the same bucket.
	sig.Intervals = []int64{100, 100, 100, 100, 100, 100, 100, 100}

	a := scorer.Score(sig, testIP, testUA)
	assert.Contains(t, a.Reasons, ReasonUniformTiming)
}

func TestScore_FewSignalsFlagged(t *testing.T) {
	scorer := NewScorer(Config{RequiredPowBits: 4})
	sig := humanSignals(t, "nonce-1", 4)
	sig.Intervals = []int64{100}

	a := scorer.Score(sig, testIP, testUA)
	assert.Contains(t, a.Reasons, ReasonFewSignals)
}

func TestBucket_Boundaries(t *testing.T) {
	assert.Equal(t, LevelLow, bucket(0.7))
	assert.Equal(t, LevelMedium, bucket(0.69))
	assert.Equal(t, LevelMedium, bucket(0.4))
	assert.Equal(t, LevelHigh, bucket(0.39))
	assert.Equal(t, LevelHigh, bucket(0.0))
}

func TestVerifyPow_RejectsBogusDifficulty(t *testing.T) {
	assert.False(t, VerifyPow("n", "s", 0))
	assert.False(t, VerifyPow("n", "s", -4))
	assert.False(t, VerifyPow("n", "s", 257))
}

func TestVerifyPow_AcceptsSolvedSalt(t *testing.T) {
	for _, bits := range []int{1, 4, 8} {
		nonce := fmt.Sprintf("nonce-%d", bits)
		salt := solvePow(t, nonce, bits)
		assert.True(t, VerifyPow(nonce, salt, bits))
	}
}
