package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chorequest/internal/database"
	"chorequest/internal/models"
)

// FamilyRepository handles database operations for families and their parents
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family with its analytics settings
func (r *FamilyRepository) CreateFamily(ctx context.Context, name, timezone, scheduleConfig string) (*models.Family, error) {
	if timezone == "" {
		timezone = models.DefaultTimezone
	}
	query := "INSERT INTO families (name, timezone, schedule_config) VALUES (?, ?, ?)"
	familyID, err := r.db.ExecReturningID(ctx, query, name, timezone, scheduleConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	now := time.Now().UTC()
	return &models.Family{
		ID:             familyID,
		Name:           name,
		Timezone:       timezone,
		ScheduleConfig: scheduleConfig,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

const familyColumns = "id, name, timezone, schedule_config, created_at, updated_at"

func scanFamily(row interface{ Scan(...any) error }) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.Timezone,
		&family.ScheduleConfig,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	return family, err
}

// GetFamilyByID retrieves a family by ID, or nil when it does not exist
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE id = ?"
	family, err := scanFamily(r.db.QueryRowContext(ctx, query, familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// ListFamilies retrieves every family ordered by ID
func (r *FamilyRepository) ListFamilies(ctx context.Context) ([]models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families ORDER BY id ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

// UpdateSettings changes a family's timezone and schedule document
func (r *FamilyRepository) UpdateSettings(ctx context.Context, familyID int64, timezone, scheduleConfig string) error {
	query := "UPDATE families SET timezone = ?, schedule_config = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, timezone, scheduleConfig, familyID); err != nil {
		return fmt.Errorf("failed to update family settings: %w", err)
	}
	return nil
}

// AddParent adds a digest recipient to a family
func (r *FamilyRepository) AddParent(ctx context.Context, familyID int64, name, email string) (*models.Parent, error) {
	query := "INSERT INTO parents (family_id, name, email, digest_opt_in) VALUES (?, ?, ?, ?)"
	parentID, err := r.db.ExecReturningID(ctx, query, familyID, name, email, true)
	if err != nil {
		return nil, fmt.Errorf("failed to add parent: %w", err)
	}
	return &models.Parent{
		ID:          parentID,
		FamilyID:    familyID,
		Name:        name,
		Email:       email,
		DigestOptIn: true,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SetDigestOptIn turns the weekly digest on or off for a parent
func (r *FamilyRepository) SetDigestOptIn(ctx context.Context, parentID int64, optIn bool) error {
	query := "UPDATE parents SET digest_opt_in = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, optIn, parentID); err != nil {
		return fmt.Errorf("failed to update digest preference: %w", err)
	}
	return nil
}

// GetDigestRecipients retrieves the parents of a family who receive the digest
func (r *FamilyRepository) GetDigestRecipients(ctx context.Context, familyID int64) ([]models.Parent, error) {
	query := `
		SELECT id, family_id, name, email, digest_opt_in, created_at
		FROM parents
		WHERE family_id = ? AND digest_opt_in = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query parents: %w", err)
	}
	defer rows.Close()

	var parents []models.Parent
	for rows.Next() {
		var p models.Parent
		if err := rows.Scan(&p.ID, &p.FamilyID, &p.Name, &p.Email, &p.DigestOptIn, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parent: %w", err)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}
