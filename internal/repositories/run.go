package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/syncdeck/syncdeck/internal/models"
	"github.com/syncdeck/syncdeck/internal/shared"
)

// RunRepository implements models.Repository[*models.Run] for run history.
//
// Handles run CRUD operations with soft delete support and run-key lookups.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, sequence, run_key, started_at, finished_at, exit_code,
			had_error, snap_done, snap_total, apply_done, apply_total,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.RunKey(),
		nullTime(run.StartedAt()),
		nullTime(run.FinishedAt()),
		nullInt(run.ExitCode()),
		run.HadError(),
		run.SnapDone(),
		run.SnapTotal(),
		run.ApplyDone(),
		run.ApplyTotal(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := selectRuns + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRunKey retrieves the most recent run recorded for a run key
func (r *RunRepository) GetByRunKey(runKey string) (*models.Run, error) {
	query := selectRuns + ` WHERE run_key = ? AND deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`
	return r.scanOne(r.db.QueryRow(query, runKey))
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE runs
		SET started_at = ?, finished_at = ?, exit_code = ?, had_error = ?,
		    snap_done = ?, snap_total = ?, apply_done = ?, apply_total = ?,
		    updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullTime(run.StartedAt()),
		nullTime(run.FinishedAt()),
		nullInt(run.ExitCode()),
		run.HadError(),
		run.SnapDone(),
		run.SnapTotal(),
		run.ApplyDone(),
		run.ApplyTotal(),
		run.UpdatedAt(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID())
	}

	return nil
}

// Delete soft-deletes a run by setting deleted_at
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(
		"UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "had_error" (bool), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := selectRuns + ` WHERE deleted_at IS NULL`
	args := []any{}

	if hadError, ok := criteria["had_error"].(bool); ok {
		query += " AND had_error = ?"
		args = append(args, hadError)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

const selectRuns = `
	SELECT id, sequence, run_key, started_at, finished_at, exit_code,
	       had_error, snap_done, snap_total, apply_done, apply_total,
	       created_at, updated_at, deleted_at
	FROM runs
`

type scannable interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanOne(row *sql.Row) (*models.Run, error) {
	run, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, shared.ErrRunNotFound
	}
	return run, err
}

func (r *RunRepository) scanRow(row scannable) (*models.Run, error) {
	var (
		id, runKey             string
		sequence               int
		startedAt, finishedAt  sql.NullTime
		exitCode               sql.NullInt64
		hadError               bool
		snapDone, snapTotal    int
		applyDone, applyTotal  int
		createdAt, updatedAt   time.Time
		deletedAt              sql.NullTime
	)

	err := row.Scan(&id, &sequence, &runKey, &startedAt, &finishedAt, &exitCode,
		&hadError, &snapDone, &snapTotal, &applyDone, &applyTotal,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	var code *int
	if exitCode.Valid {
		c := int(exitCode.Int64)
		code = &c
	}
	var deleted *time.Time
	if deletedAt.Valid {
		d := deletedAt.Time
		deleted = &d
	}

	return models.RehydrateRun(id, sequence, runKey, startedAt.Time, finishedAt.Time,
		code, hadError, snapDone, snapTotal, applyDone, applyTotal,
		createdAt, updatedAt, deleted), nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
