// Package migrator applies a sqlgen.Plan to a PostgreSQL sink: the staged
// rebuild of §4.5, run idempotently (skip an already-migrated target),
// transactionally when the sink supports BeginTx, or dry-run rendered to
// an io.Writer.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen"
)

// dormMigrationsDDL creates the tracking table recording the checksum of
// the last target schema successfully migrated into, mirroring the
// teacher's migrations-tracking-table idiom.
const dormMigrationsDDL = `
CREATE TABLE IF NOT EXISTS dorm_migrations (
	id BIGSERIAL PRIMARY KEY,
	target_checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Options controls Apply's behavior.
type Options struct {
	// DryRun, if non-nil, renders the plan's SQL to the writer instead of
	// executing it against the sink.
	DryRun io.Writer
	// Force re-applies the plan even if target_checksum already matches
	// the last recorded migration.
	Force bool
}

// Migrator applies sqlgen migration Plans to a PostgreSQL sink.
type Migrator struct {
	db Execer
}

// NewMigrator constructs a Migrator over db, typically *sql.DB but
// accepting *sql.Tx or *sql.Conn for testing or nested transactions.
func NewMigrator(db Execer) *Migrator {
	return &Migrator{db: db}
}

// Apply runs a migration Plan (§4.5) against the sink: idempotent via the
// plan's target checksum, transactional when the sink supports BeginTx,
// and cooperatively cancellable between steps via ctx.
//
// Returns skipped=true if the target schema was already migrated and
// opts.Force is false.
func (m *Migrator) Apply(ctx context.Context, plan sqlgen.Plan, opts Options) (skipped bool, err error) {
	if opts.DryRun != nil {
		m.renderDryRun(opts.DryRun, plan)
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: before first step", dorm.ErrCancelled)
	}

	if !opts.Force {
		last, exists, err := m.getLastChecksum(ctx, m.db)
		if err != nil {
			return false, fmt.Errorf("checking last migration: %w", err)
		}
		if exists && last == plan.Checksum {
			return true, nil
		}
	}

	if txer, ok := m.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return false, fmt.Errorf("starting transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := m.runSteps(ctx, tx, plan); err != nil {
			return false, err
		}
		return false, tx.Commit()
	}

	if err := m.runSteps(ctx, m.db, plan); err != nil {
		return false, err
	}
	return false, nil
}

// runSteps applies every step in order, checking ctx between steps so a
// cancellation surfaces as dorm.ErrCancelled rather than a partial,
// unreported apply.
func (m *Migrator) runSteps(ctx context.Context, db Execer, plan sqlgen.Plan) error {
	if _, err := db.ExecContext(ctx, dormMigrationsDDL); err != nil {
		return fmt.Errorf("applying migrations tracking DDL: %w", err)
	}

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: step %d (%s)", dorm.ErrCancelled, i, step.SetName)
		}
		stmt := step.Statement.SQL()
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: step %d (%s): %v", dorm.ErrSink, i, step.SetName, err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO dorm_migrations (target_checksum) VALUES ($1)`, plan.Checksum,
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func (m *Migrator) getLastChecksum(ctx context.Context, db Execer) (checksum string, exists bool, err error) {
	var tableExists bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relname = 'dorm_migrations'
			AND n.nspname = current_schema()
		)
	`).Scan(&tableExists)
	if err != nil {
		return "", false, fmt.Errorf("checking dorm_migrations table: %w", err)
	}
	if !tableExists {
		return "", false, nil
	}

	err = db.QueryRowContext(ctx, `
		SELECT target_checksum FROM dorm_migrations ORDER BY id DESC LIMIT 1
	`).Scan(&checksum)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying last migration: %w", err)
	}
	return checksum, true, nil
}

// renderDryRun writes the plan's SQL to w without touching the sink.
func (m *Migrator) renderDryRun(w io.Writer, plan sqlgen.Plan) {
	_, _ = fmt.Fprintf(w, "-- dorm migration plan (dry-run)\n-- target checksum: %s\n\n", plan.Checksum)
	for i, step := range plan.Steps {
		_, _ = fmt.Fprintf(w, "-- step %d: %s (%s)\n%s;\n\n", i, step.SetName, stepKindName(step.Kind), step.Statement.SQL())
	}
}

func stepKindName(k sqlgen.StepKind) string {
	switch k {
	case sqlgen.StepCreateTable:
		return "create_table"
	case sqlgen.StepInsertInto:
		return "insert_into"
	case sqlgen.StepAnalyze:
		return "analyze"
	default:
		return "unknown"
	}
}

// Status reports the current migration state of the sink.
type Status struct {
	TrackingTableExists bool
	LastChecksum        string
}

// GetStatus reports whether dorm_migrations exists and, if so, the
// checksum of the last plan successfully applied.
func (m *Migrator) GetStatus(ctx context.Context) (*Status, error) {
	checksum, exists, err := m.getLastChecksum(ctx, m.db)
	if err != nil {
		return nil, err
	}
	return &Status{TrackingTableExists: exists, LastChecksum: checksum}, nil
}
