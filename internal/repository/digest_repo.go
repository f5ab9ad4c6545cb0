package repository

import (
	"context"
	"fmt"

	"chorequest/internal/database"
	"chorequest/internal/models"
)

// DigestRepository records weekly digest runs
type DigestRepository struct {
	db database.DBTX
}

// NewDigestRepository creates a new digest repository
func NewDigestRepository(db database.DBTX) *DigestRepository {
	return &DigestRepository{db: db}
}

// RecordRun stores a finished digest run
func (r *DigestRepository) RecordRun(ctx context.Context, run *models.DigestRun) error {
	query := `
		INSERT INTO digest_runs (id, family_id, status, recipients, dry_run, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.FamilyID, run.Status, run.Recipients, run.DryRun, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record digest run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent digest runs for a family, newest first
func (r *DigestRepository) ListRuns(ctx context.Context, familyID int64, limit int) ([]models.DigestRun, error) {
	query := `
		SELECT id, family_id, status, recipients, dry_run, error, started_at, finished_at
		FROM digest_runs
		WHERE family_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest runs: %w", err)
	}
	defer rows.Close()

	var runs []models.DigestRun
	for rows.Next() {
		var run models.DigestRun
		if err := rows.Scan(
			&run.ID,
			&run.FamilyID,
			&run.Status,
			&run.Recipients,
			&run.DryRun,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan digest run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
