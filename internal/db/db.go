package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var supportedPGQueryKeys = map[string]struct{}{
	"application_name":     {},
	"channel_binding":      {},
	"client_encoding":      {},
	"connect_timeout":      {},
	"host":                 {},
	"options":              {},
	"pool_max_conns":       {},
	"pool_min_conns":       {},
	"sslcert":              {},
	"sslkey":               {},
	"sslmode":              {},
	"sslrootcert":          {},
	"target_session_attrs": {},
}

// Connect opens a pool and verifies the server is reachable.
func Connect(ctx context.Context, rawURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(normalizeDatabaseURL(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = "relationshipai-api"
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

const auditSchema = `CREATE TABLE IF NOT EXISTS "AnalysisAudit" (
	id               TEXT PRIMARY KEY,
	"requestId"      TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	"primaryEmotion" TEXT,
	"riskLevel"      TEXT,
	blocked          BOOLEAN NOT NULL DEFAULT FALSE,
	escalation       BOOLEAN NOT NULL DEFAULT FALSE,
	"upstreamStatus" INTEGER,
	"createdAt"      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the audit table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create AnalysisAudit: %w", err)
	}
	return nil
}

func normalizeDatabaseURL(rawURL string) string {
	normalized := strings.TrimSpace(rawURL)
	for _, prefix := range []string{"postgresql+psycopg://", "postgresql://"} {
		if strings.HasPrefix(normalized, prefix) {
			normalized = "postgres://" + strings.TrimPrefix(normalized, prefix)
			break
		}
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Scheme != "postgres" {
		return normalized
	}

	filtered := make(url.Values)
	for key, values := range parsed.Query() {
		if _, ok := supportedPGQueryKeys[key]; !ok {
			continue
		}
		for _, v := range values {
			filtered.Add(key, v)
		}
	}
	parsed.RawQuery = filtered.Encode()
	return parsed.String()
}
