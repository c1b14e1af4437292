package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS verification_audit (
    id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    trace_id      CHAR(36)     NOT NULL,
    recorded_at   DATETIME(6)  NOT NULL,
    client_ip     VARCHAR(45)  NOT NULL,
    user_agent    VARCHAR(512) NOT NULL,
    outcome       VARCHAR(32)  NOT NULL,
    error_code    VARCHAR(32)  NOT NULL DEFAULT '',
    score         DOUBLE       NOT NULL DEFAULT 0,
    threshold     DOUBLE       NOT NULL DEFAULT 0,
    policy        VARCHAR(64)  NOT NULL DEFAULT '',
    risk_level    VARCHAR(16)  NOT NULL DEFAULT '',
    risk_reasons  VARCHAR(512) NOT NULL DEFAULT '',
    PRIMARY KEY (id),
    UNIQUE KEY uq_trace_id (trace_id),
    KEY idx_recorded_at (recorded_at),
    KEY idx_client_ip (client_ip)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const insertStmt = `
INSERT INTO verification_audit
    (trace_id, recorded_at, client_ip, user_agent, outcome, error_code,
     score, threshold, policy, risk_level, risk_reasons)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// MySQLRecorder persists audit entries to MySQL for later inspection.
type MySQLRecorder struct {
	db     *sql.DB
	logger *zap.Logger
}

// Compile-time interface compliance check
var _ Recorder = (*MySQLRecorder)(nil)

// NewMySQLRecorder creates a MySQL-backed recorder.
func NewMySQLRecorder(db *sql.DB, logger *zap.Logger) *MySQLRecorder {
	return &MySQLRecorder{db: db, logger: logger}
}

// Migrate creates the audit table when it does not exist yet.
func (r *MySQLRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableStmt); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Record inserts one trace row.
func (r *MySQLRecorder) Record(ctx context.Context, entry Entry) error {
	_, err := r.db.ExecContext(ctx, insertStmt,
		entry.TraceID,
		entry.Time,
		entry.ClientIP,
		entry.UserAgent,
		entry.Outcome,
		entry.ErrorCode,
		entry.Score,
		entry.Threshold,
		entry.Policy,
		entry.RiskLevel,
		strings.Join(entry.RiskReasons, ","),
	)
	if err != nil {
		r.logger.Error("failed to record audit entry",
			zap.String("trace_id", entry.TraceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
