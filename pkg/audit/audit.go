// Package audit defines the boundary to the verification audit trail.
// Recording is best-effort everywhere: a failed write must never fail the
// verification that produced it.
package audit

import (
	"context"
	"time"
)

// Entry is one verification trace handed to the audit store.
type Entry struct {
	TraceID     string    `json:"trace_id"`
	Time        time.Time `json:"time"`
	ClientIP    string    `json:"client_ip"`
	UserAgent   string    `json:"user_agent"`
	Outcome     string    `json:"outcome"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Score       float64   `json:"score"`
	Threshold   float64   `json:"threshold"`
	Policy      string    `json:"policy,omitempty"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	RiskReasons []string  `json:"risk_reasons,omitempty"`
}

// Recorder persists verification traces.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}
