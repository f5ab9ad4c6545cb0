package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"chorequest/internal/logger"
	"chorequest/internal/models"
	"chorequest/internal/validation"
)

var (
	ErrKidNotFound     = errors.New("kid not found")
	ErrNotFamilyMember = errors.New("kid does not belong to this family")
)

const defaultAvatarColor = "#4A90E2"

// FamilyWriter is the family storage the household service writes through
type FamilyWriter interface {
	CreateFamily(ctx context.Context, name, timezone, scheduleConfig string) (*models.Family, error)
	GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error)
	UpdateSettings(ctx context.Context, familyID int64, timezone, scheduleConfig string) error
	AddParent(ctx context.Context, familyID int64, name, email string) (*models.Parent, error)
	SetDigestOptIn(ctx context.Context, parentID int64, optIn bool) error
}

// KidWriter is the kid storage the household service writes through
type KidWriter interface {
	CreateKid(ctx context.Context, familyID int64, name, avatarColor string) (*models.Kid, error)
	GetKidByID(ctx context.Context, kidID int64) (*models.Kid, error)
	UpdateKid(ctx context.Context, kidID int64, name, avatarColor string) error
	DeleteKid(ctx context.Context, kidID int64) error
}

// CompletionRecorder appends to the completion ledger
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, event *models.CompletionEvent) error
}

// AssignmentStore saves manually scheduled chores
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a *models.ChoreAssignment) error
}

// InsightsInvalidator drops cached insights after a household write
type InsightsInvalidator interface {
	Invalidate(ctx context.Context, familyID int64) error
}

// FamilyService validates and stores household setup: families, parents,
// kids, chore assignments and completions.
type FamilyService struct {
	families    FamilyWriter
	kids        KidWriter
	completions CompletionRecorder
	assignments AssignmentStore
	insights    InsightsInvalidator
	logger      *logger.Logger
}

// NewFamilyService creates a new family service. A nil invalidator leaves
// cached insights to expire on their own.
func NewFamilyService(
	families FamilyWriter,
	kids KidWriter,
	completions CompletionRecorder,
	assignments AssignmentStore,
	insights InsightsInvalidator,
	log *logger.Logger,
) *FamilyService {
	if log == nil {
		log = logger.NewNop()
	}
	return &FamilyService{
		families:    families,
		kids:        kids,
		completions: completions,
		assignments: assignments,
		insights:    insights,
		logger:      log.Named("family"),
	}
}

// CreateFamily validates and creates a family
func (s *FamilyService) CreateFamily(ctx context.Context, name, timezone, scheduleConfig string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validateSettings(timezone, scheduleConfig); err != nil {
		return nil, err
	}

	family, err := s.families.CreateFamily(ctx, name, timezone, scheduleConfig)
	if err != nil {
		return nil, err
	}
	s.logger.Info("family created", zap.Int64("family_id", family.ID), zap.String("timezone", family.TimezoneName()))
	return family, nil
}

// UpdateSettings replaces a family's timezone and schedule document
func (s *FamilyService) UpdateSettings(ctx context.Context, familyID int64, timezone, scheduleConfig string) error {
	if _, err := s.getFamily(ctx, familyID); err != nil {
		return err
	}
	if err := validateSettings(timezone, scheduleConfig); err != nil {
		return err
	}
	if err := s.families.UpdateSettings(ctx, familyID, timezone, scheduleConfig); err != nil {
		return err
	}
	s.changed(ctx, familyID)
	return nil
}

// AddParent adds an opted-in digest recipient to a family
func (s *FamilyService) AddParent(ctx context.Context, familyID int64, name, email string) (*models.Parent, error) {
	if _, err := s.getFamily(ctx, familyID); err != nil {
		return nil, err
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	return s.families.AddParent(ctx, familyID, name, email)
}

// SetDigestOptIn turns the weekly digest on or off for a parent
func (s *FamilyService) SetDigestOptIn(ctx context.Context, parentID int64, optIn bool) error {
	return s.families.SetDigestOptIn(ctx, parentID, optIn)
}

// CreateKid creates a kid profile in a family
func (s *FamilyService) CreateKid(ctx context.Context, familyID int64, name, avatarColor string) (*models.Kid, error) {
	if _, err := s.getFamily(ctx, familyID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.Error{Field: "name", Message: "name is required"}
	}
	if err := validation.ValidateAvatarColor(avatarColor); err != nil {
		return nil, err
	}
	if avatarColor == "" {
		avatarColor = defaultAvatarColor
	}
	kid, err := s.kids.CreateKid(ctx, familyID, name, avatarColor)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, familyID)
	return kid, nil
}

// UpdateKid renames a kid and changes the avatar color. An empty color
// keeps the current one.
func (s *FamilyService) UpdateKid(ctx context.Context, familyID, kidID int64, name, avatarColor string) (*models.Kid, error) {
	kid, err := s.familyKid(ctx, familyID, kidID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.Error{Field: "name", Message: "name is required"}
	}
	if err := validation.ValidateAvatarColor(avatarColor); err != nil {
		return nil, err
	}
	if avatarColor == "" {
		avatarColor = kid.AvatarColor
	}
	if err := s.kids.UpdateKid(ctx, kidID, name, avatarColor); err != nil {
		return nil, err
	}
	kid.Name, kid.AvatarColor = name, avatarColor
	s.changed(ctx, familyID)
	return kid, nil
}

// RemoveKid deletes a kid profile together with its ledger and assignments
func (s *FamilyService) RemoveKid(ctx context.Context, familyID, kidID int64) error {
	if _, err := s.familyKid(ctx, familyID, kidID); err != nil {
		return err
	}
	if err := s.kids.DeleteKid(ctx, kidID); err != nil {
		return err
	}
	s.logger.Info("kid removed", zap.Int64("family_id", familyID), zap.Int64("kid_id", kidID))
	s.changed(ctx, familyID)
	return nil
}

// RecordCompletion appends a ledger entry for a kid. A zero occurredAt
// records the entry at the current time.
func (s *FamilyService) RecordCompletion(ctx context.Context, familyID, kidID int64, points int, reason string, occurredAt time.Time) (*models.CompletionEvent, error) {
	if err := s.checkKid(ctx, familyID, kidID); err != nil {
		return nil, err
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	event := &models.CompletionEvent{
		FamilyID:   familyID,
		KidID:      kidID,
		Points:     points,
		Reason:     strings.TrimSpace(reason),
		OccurredAt: occurredAt.UTC(),
	}
	if err := s.completions.RecordCompletion(ctx, event); err != nil {
		return nil, err
	}
	s.changed(ctx, familyID)
	return event, nil
}

// AssignChore schedules a chore for a kid on a local YYYY-MM-DD date
func (s *FamilyService) AssignChore(ctx context.Context, familyID, kidID int64, chore, date string) (*models.ChoreAssignment, error) {
	if err := s.checkKid(ctx, familyID, kidID); err != nil {
		return nil, err
	}
	chore = strings.TrimSpace(chore)
	if chore == "" {
		return nil, validation.Error{Field: "chore", Message: "chore is required"}
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, validation.Error{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	a := &models.ChoreAssignment{FamilyID: familyID, KidID: kidID, ChoreName: chore, AssignedDate: date}
	if err := s.assignments.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	s.changed(ctx, familyID)
	return a, nil
}

// changed invalidates the family's cached insights. The write has already
// succeeded, so a failure is only logged.
func (s *FamilyService) changed(ctx context.Context, familyID int64) {
	if s.insights == nil {
		return
	}
	if err := s.insights.Invalidate(ctx, familyID); err != nil {
		s.logger.Warn("failed to invalidate insights", zap.Int64("family_id", familyID), zap.Error(err))
	}
}

func (s *FamilyService) getFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

func (s *FamilyService) checkKid(ctx context.Context, familyID, kidID int64) error {
	_, err := s.familyKid(ctx, familyID, kidID)
	return err
}

func (s *FamilyService) familyKid(ctx context.Context, familyID, kidID int64) (*models.Kid, error) {
	kid, err := s.kids.GetKidByID(ctx, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil {
		return nil, ErrKidNotFound
	}
	if kid.FamilyID != familyID {
		return nil, ErrNotFamilyMember
	}
	return kid, nil
}

func validateSettings(timezone, scheduleConfig string) error {
	if err := validation.ValidateTimezone(timezone); err != nil {
		return err
	}
	return validation.ValidateSchedule(scheduleConfig)
}
