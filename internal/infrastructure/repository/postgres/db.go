package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates all tables on startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	role TEXT NOT NULL,
	api_token TEXT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	polygon JSONB,
	status TEXT NOT NULL,
	has_pending_checklist BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (name, address)
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id TEXT NOT NULL REFERENCES projects(id),
	user_id TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS checklist_templates (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
	requires_initialization BOOLEAN NOT NULL DEFAULT FALSE,
	items JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS checklist_completions (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL REFERENCES checklist_templates(id),
	project_id TEXT NOT NULL REFERENCES projects(id),
	completed_by_id TEXT NOT NULL,
	completion_date TIMESTAMPTZ NOT NULL,
	items_data JSONB NOT NULL DEFAULT '{}'::jsonb,
	photos JSONB NOT NULL DEFAULT '[]'::jsonb,
	notes TEXT,
	geolocation JSONB,
	completion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	approval_status TEXT NOT NULL,
	approved_by_id TEXT,
	approved_at TIMESTAMPTZ,
	rejection_reason TEXT,
	attached_document TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completions_project_template
	ON checklist_completions(project_id, template_id, completion_date DESC);
CREATE INDEX IF NOT EXISTS idx_completions_approval
	ON checklist_completions(project_id, approval_status);

CREATE TABLE IF NOT EXISTS materials (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	unit TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS work_plan_items (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	name TEXT NOT NULL,
	planned_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit TEXT,
	start_date TIMESTAMPTZ,
	end_date TIMESTAMPTZ,
	progress DOUBLE PRECISION NOT NULL DEFAULT 0,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_work_items_project ON work_plan_items(project_id, status);

CREATE TABLE IF NOT EXISTS required_materials (
	work_item_id TEXT NOT NULL REFERENCES work_plan_items(id),
	material_id TEXT NOT NULL REFERENCES materials(id),
	planned_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (work_item_id, material_id)
);

CREATE TABLE IF NOT EXISTS delivery_documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	uploader_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	recognized JSONB,
	error_message TEXT,
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	verified_by_id TEXT,
	verified_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON delivery_documents(project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS material_deliveries (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	document_id TEXT NOT NULL REFERENCES delivery_documents(id),
	material_id TEXT NOT NULL REFERENCES materials(id),
	quantity DOUBLE PRECISION NOT NULL,
	delivered_at TIMESTAMPTZ NOT NULL,
	recorded_by_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_project_material
	ON material_deliveries(project_id, material_id);

CREATE TABLE IF NOT EXISTS consumption_log (
	id TEXT PRIMARY KEY,
	work_item_id TEXT NOT NULL REFERENCES work_plan_items(id),
	material_id TEXT NOT NULL REFERENCES materials(id),
	quantity_used DOUBLE PRECISION NOT NULL,
	foreman_id TEXT NOT NULL,
	consumed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_consumption_material ON consumption_log(material_id);
CREATE INDEX IF NOT EXISTS idx_consumption_work_item ON consumption_log(work_item_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
