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

// KidRepository handles database operations for kids
type KidRepository struct {
	db database.DBTX
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db database.DBTX) *KidRepository {
	return &KidRepository{db: db}
}

// CreateKid creates a new kid profile
func (r *KidRepository) CreateKid(ctx context.Context, familyID int64, name, avatarColor string) (*models.Kid, error) {
	query := "INSERT INTO kids (family_id, name, avatar_color) VALUES (?, ?, ?)"
	kidID, err := r.db.ExecReturningID(ctx, query, familyID, name, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("failed to create kid: %w", err)
	}

	now := time.Now().UTC()
	return &models.Kid{
		ID:          kidID,
		FamilyID:    familyID,
		Name:        name,
		AvatarColor: avatarColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetKidByID retrieves a kid by ID, or nil when it does not exist
func (r *KidRepository) GetKidByID(ctx context.Context, kidID int64) (*models.Kid, error) {
	query := "SELECT id, family_id, name, avatar_color, created_at, updated_at FROM kids WHERE id = ?"
	kid := &models.Kid{}
	err := r.db.QueryRowContext(ctx, query, kidID).Scan(
		&kid.ID,
		&kid.FamilyID,
		&kid.Name,
		&kid.AvatarColor,
		&kid.CreatedAt,
		&kid.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// GetFamilyKids retrieves all kids in a family in creation order
func (r *KidRepository) GetFamilyKids(ctx context.Context, familyID int64) ([]models.Kid, error) {
	query := `
		SELECT id, family_id, name, avatar_color, created_at, updated_at
		FROM kids
		WHERE family_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	var kids []models.Kid
	for rows.Next() {
		var kid models.Kid
		if err := rows.Scan(
			&kid.ID,
			&kid.FamilyID,
			&kid.Name,
			&kid.AvatarColor,
			&kid.CreatedAt,
			&kid.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, kid)
	}
	return kids, rows.Err()
}

// UpdateKid updates a kid's information
func (r *KidRepository) UpdateKid(ctx context.Context, kidID int64, name, avatarColor string) error {
	query := "UPDATE kids SET name = ?, avatar_color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, avatarColor, kidID); err != nil {
		return fmt.Errorf("failed to update kid: %w", err)
	}
	return nil
}

// DeleteKid deletes a kid profile
func (r *KidRepository) DeleteKid(ctx context.Context, kidID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM kids WHERE id = ?", kidID); err != nil {
		return fmt.Errorf("failed to delete kid: %w", err)
	}
	return nil
}
