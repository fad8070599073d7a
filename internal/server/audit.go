package server

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"relationshipai/apps/backend/internal/analysis"
)

const outcomeOK = "ok"

// AuditEntry is the classification metadata kept for one analysis. It never
// holds the user's text or the generated suggestions.
type AuditEntry struct {
	RequestID      string
	Outcome        string
	PrimaryEmotion string
	RiskLevel      string
	Blocked        bool
	Escalation     bool
	UpstreamStatus int
}

type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type dbExecer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

// PostgresAudit writes entries to the "AnalysisAudit" table.
type PostgresAudit struct {
	db dbExecer
}

func NewPostgresAudit(db dbExecer) *PostgresAudit {
	return &PostgresAudit{db: db}
}

func (p *PostgresAudit) Record(ctx context.Context, entry AuditEntry) error {
	_, err := p.db.Exec(
		ctx,
		`INSERT INTO "AnalysisAudit" (id, "requestId", outcome, "primaryEmotion", "riskLevel", blocked, escalation, "upstreamStatus", "createdAt")
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		uuid.NewString(),
		entry.RequestID,
		entry.Outcome,
		nullableString(entry.PrimaryEmotion),
		nullableString(entry.RiskLevel),
		entry.Blocked,
		entry.Escalation,
		nullableInt(entry.UpstreamStatus),
	)
	return err
}

func auditEntryFor(requestID string, resp analysis.Response, err error) AuditEntry {
	entry := AuditEntry{RequestID: requestID, Outcome: outcomeOK}
	if err != nil {
		entry.Outcome = "error"
		var analysisErr *analysis.Error
		if errors.As(err, &analysisErr) {
			entry.Outcome = string(analysisErr.Kind)
			entry.UpstreamStatus = analysisErr.UpstreamStatus
		}
		return entry
	}
	entry.PrimaryEmotion = resp.Emotion.PrimaryEmotion
	entry.RiskLevel = resp.Context.RiskLevel
	entry.Blocked = resp.Safety.Blocked
	entry.Escalation = resp.Safety.Escalation
	return entry
}

// recordAudit is best-effort: failures are logged and never change the response.
func (a *App) recordAudit(c *gin.Context, resp analysis.Response, err error) {
	if a.audit == nil {
		return
	}
	entry := auditEntryFor(c.GetString(requestIDKey), resp, err)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 3*time.Second)
	defer cancel()
	if recordErr := a.audit.Record(ctx, entry); recordErr != nil {
		a.logger.Warn("audit record failed",
			zap.String("request_id", entry.RequestID),
			zap.Error(recordErr),
		)
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}
