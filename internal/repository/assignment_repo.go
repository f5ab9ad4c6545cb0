package repository

import (
	"context"
	"fmt"

	"chorequest/internal/database"
	"chorequest/internal/models"
)

// AssignmentRepository handles manually scheduled chores
type AssignmentRepository struct {
	db database.DBTX
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db database.DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CreateAssignment schedules a chore for a kid on a local date and sets its ID
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a *models.ChoreAssignment) error {
	query := "INSERT INTO chore_assignments (family_id, kid_id, chore_name, assigned_date) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, a.FamilyID, a.KidID, a.ChoreName, a.AssignedDate)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	a.ID = id
	return nil
}

// ListAssignments retrieves the family's assignments dated fromDate through
// toDate inclusive (YYYY-MM-DD).
func (r *AssignmentRepository) ListAssignments(ctx context.Context, familyID int64, fromDate, toDate string) ([]models.ChoreAssignment, error) {
	query := `
		SELECT id, family_id, kid_id, chore_name, assigned_date
		FROM chore_assignments
		WHERE family_id = ? AND assigned_date >= ? AND assigned_date <= ?
		ORDER BY assigned_date ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.ChoreAssignment
	for rows.Next() {
		var a models.ChoreAssignment
		if err := rows.Scan(&a.ID, &a.FamilyID, &a.KidID, &a.ChoreName, &a.AssignedDate); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
