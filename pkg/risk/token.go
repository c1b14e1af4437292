package risk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedToken is returned when a submitted proof token cannot be
// decoded into signals. Malformed tokens never enter scoring.
var ErrMalformedToken = errors.New("malformed proof token")

// ProofOfWork carries the client's hashcash-style solution: sha256 of
// "{nonce}:{salt}" must start with Bits zero bits.
type ProofOfWork struct {
	Bits int    `json:"bits"`
	Salt string `json:"salt"`
}

// Signals is the decoded payload of a proof token: the referenced nonce
// plus the behavioral measurements collected client-side.
type Signals struct {
	Nonce     string      `json:"nonce"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Intervals []int64     `json:"intervals"`
	PoW       ProofOfWork `json:"pow"`
	UAHash    string      `json:"ua_hash"`
	IPHash    string      `json:"ip_hash"`
}

// Decode parses a proof token (base64url-encoded JSON) into signals.
// Structural problems return ErrMalformedToken.
func Decode(token string) (*Signals, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate padded variants from older clients.
		raw, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, ErrMalformedToken
		}
	}

	var sig Signals
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, ErrMalformedToken
	}
	if sig.Nonce == "" {
		return nil, ErrMalformedToken
	}
	return &sig, nil
}

// Encode builds a proof token from signals. Used by tests and client SDKs.
func Encode(sig *Signals) (string, error) {
	raw, err := json.Marshal(sig)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
