package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogRecorder writes audit entries to the structured log. Default backend
// for single-instance deployments without a database.
type LogRecorder struct {
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Recorder = (*LogRecorder)(nil)

// NewLogRecorder creates a log-backed recorder.
func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record emits the entry as one structured log line.
func (r *LogRecorder) Record(ctx context.Context, entry Entry) error {
	r.logger.Info("verification audit",
		zap.String("trace_id", entry.TraceID),
		zap.Time("time", entry.Time),
		zap.String("client_ip", entry.ClientIP),
		zap.String("user_agent", entry.UserAgent),
		zap.String("outcome", entry.Outcome),
		zap.String("error_code", entry.ErrorCode),
		zap.Float64("score", entry.Score),
		zap.Float64("threshold", entry.Threshold),
		zap.String("policy", entry.Policy),
		zap.String("risk_level", entry.RiskLevel),
		zap.Strings("risk_reasons", entry.RiskReasons),
	)
	return nil
}
