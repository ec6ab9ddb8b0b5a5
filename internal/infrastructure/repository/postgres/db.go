// Package postgres persists documents, OCR runs, classification runs
// and the audit history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID = 7741002

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist. An advisory lock
// serializes concurrent starts of the api and worker binaries.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire schema connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", schemaLockID) //nolint:errcheck

	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		member_id BIGINT,
		status TEXT NOT NULL DEFAULT 'uploaded',
		ocr_done BOOLEAN NOT NULL DEFAULT FALSE,
		is_classified BOOLEAN NOT NULL DEFAULT FALSE,
		agency TEXT NOT NULL DEFAULT '',
		document_type TEXT NOT NULL DEFAULT '',
		confidence_agency DOUBLE PRECISION NOT NULL DEFAULT 0,
		confidence_document_type DOUBLE PRECISION NOT NULL DEFAULT 0,
		classified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ocr_results (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		full_text TEXT NOT NULL,
		page_data JSONB NOT NULL,
		ocr_engine TEXT NOT NULL,
		processing_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Columns added after the initial release; additive so existing
	// deployments migrate on startup.
	`ALTER TABLE documents ADD COLUMN IF NOT EXISTS member_id BIGINT`,
	`ALTER TABLE documents ADD COLUMN IF NOT EXISTS page_count INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS idx_ocr_results_document_id ON ocr_results (document_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS classification_results (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		result_data JSONB NOT NULL,
		model_id TEXT NOT NULL DEFAULT '',
		model_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classification_results_document_id ON classification_results (document_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS classification_history (
		id BIGSERIAL PRIMARY KEY,
		document_id BIGINT NOT NULL,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		prev_agency TEXT NOT NULL DEFAULT '',
		prev_document_type TEXT NOT NULL DEFAULT '',
		new_agency TEXT NOT NULL DEFAULT '',
		new_document_type TEXT NOT NULL DEFAULT '',
		change_kind TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classification_history_created_at ON classification_history (created_at DESC)`,
}
