package repository

import (
	"context"
	"fmt"
	"time"

	"chorequest/internal/database"
	"chorequest/internal/models"
)

// CompletionRepository reads and writes the points ledger
type CompletionRepository struct {
	db database.DBTX
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db database.DBTX) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// RecordCompletion appends a ledger entry and sets its ID
func (r *CompletionRepository) RecordCompletion(ctx context.Context, event *models.CompletionEvent) error {
	query := "INSERT INTO point_transactions (family_id, kid_id, points, reason, created_at) VALUES (?, ?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, event.FamilyID, event.KidID, event.Points, event.Reason, event.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	event.ID = id
	return nil
}

// ListCompletions retrieves the family's positive-point entries with
// from <= occurred_at < to, oldest first.
func (r *CompletionRepository) ListCompletions(ctx context.Context, familyID int64, from, to time.Time) ([]models.CompletionEvent, error) {
	query := `
		SELECT id, family_id, kid_id, points, reason, created_at
		FROM point_transactions
		WHERE family_id = ? AND points > 0 AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var events []models.CompletionEvent
	for rows.Next() {
		var e models.CompletionEvent
		if err := rows.Scan(&e.ID, &e.FamilyID, &e.KidID, &e.Points, &e.Reason, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
