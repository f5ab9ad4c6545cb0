package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorequest/internal/database"
	"chorequest/internal/repository"
	"chorequest/internal/validation"
)

type householdFixture struct {
	svc         *FamilyService
	families    *repository.FamilyRepository
	kids        *repository.KidRepository
	completions *repository.CompletionRepository
	assignments *repository.AssignmentRepository
	insights    *InsightsService
	cache       *mapCache
}

func newHouseholdFixture(t *testing.T) *householdFixture {
	t.Helper()
	db, err := database.OpenDialect(database.NewPureSQLiteDialect(), database.DialectConfig{
		Path: filepath.Join(t.TempDir(), "household.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	f := &householdFixture{
		families:    repository.NewFamilyRepository(db),
		kids:        repository.NewKidRepository(db),
		completions: repository.NewCompletionRepository(db),
		assignments: repository.NewAssignmentRepository(db),
	}
	f.cache = &mapCache{}
	f.insights = NewInsightsService(f.families, f.kids, f.completions, f.assignments, f.cache, time.Minute, nil)
	f.svc = NewFamilyService(f.families, f.kids, f.completions, f.assignments, f.insights, nil)
	return f
}

func TestCreateFamilyValidates(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFamily(ctx, "R", "UTC", "")
	var verr validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = f.svc.CreateFamily(ctx, "Rivera", "Nowhere/Land", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "timezone", verr.Field)

	_, err = f.svc.CreateFamily(ctx, "Rivera", "UTC", `{"mode":"monthly"}`)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schedule", verr.Field)

	family, err := f.svc.CreateFamily(ctx, "  Rivera ", "America/Chicago", `{"mode":"dynamic"}`)
	require.NoError(t, err)
	assert.Equal(t, "Rivera", family.Name)
	assert.Equal(t, "America/Chicago", family.Timezone)
}

func TestUpdateSettings(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	family, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.UpdateSettings(ctx, 999, "UTC", ""), ErrFamilyNotFound)
	assert.Error(t, f.svc.UpdateSettings(ctx, family.ID, "Nowhere/Land", ""))

	require.NoError(t, f.svc.UpdateSettings(ctx, family.ID, "Europe/Madrid", ""))
	got, err := f.families.GetFamilyByID(ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", got.Timezone)
}

func TestAddParentAndOptOut(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	family, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)

	_, err = f.svc.AddParent(ctx, family.ID, "Maria", "not-an-email")
	assert.Error(t, err)
	_, err = f.svc.AddParent(ctx, 999, "Maria", "maria@example.com")
	assert.ErrorIs(t, err, ErrFamilyNotFound)

	parent, err := f.svc.AddParent(ctx, family.ID, "Maria", " maria@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", parent.Email)
	assert.True(t, parent.DigestOptIn)

	recipients, err := f.families.GetDigestRecipients(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, recipients, 1)

	require.NoError(t, f.svc.SetDigestOptIn(ctx, parent.ID, false))
	recipients, err = f.families.GetDigestRecipients(ctx, family.ID)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestCreateKid(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	family, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)

	kid, err := f.svc.CreateKid(ctx, family.ID, "Ana", "")
	require.NoError(t, err)
	assert.Equal(t, defaultAvatarColor, kid.AvatarColor)

	_, err = f.svc.CreateKid(ctx, family.ID, "Luis", "green")
	assert.Error(t, err)
	_, err = f.svc.CreateKid(ctx, family.ID, " ", "")
	assert.Error(t, err)
}

func TestRecordCompletionAndAssignChore(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	rivera, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)
	okafor, err := f.svc.CreateFamily(ctx, "Okafor", "UTC", "")
	require.NoError(t, err)
	ana, err := f.svc.CreateKid(ctx, rivera.ID, "Ana", "")
	require.NoError(t, err)

	at := time.Date(2026, 1, 26, 8, 0, 0, 0, time.UTC)
	event, err := f.svc.RecordCompletion(ctx, rivera.ID, ana.ID, 5, "dishes", at)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)

	_, err = f.svc.RecordCompletion(ctx, okafor.ID, ana.ID, 5, "dishes", at)
	assert.ErrorIs(t, err, ErrNotFamilyMember)
	_, err = f.svc.RecordCompletion(ctx, rivera.ID, 999, 5, "dishes", at)
	assert.ErrorIs(t, err, ErrKidNotFound)

	events, err := f.completions.ListCompletions(ctx, rivera.ID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "dishes", events[0].Reason)

	_, err = f.svc.AssignChore(ctx, rivera.ID, ana.ID, "trash", "Jan 27")
	assert.Error(t, err)
	assignment, err := f.svc.AssignChore(ctx, rivera.ID, ana.ID, "trash", "2026-01-27")
	require.NoError(t, err)
	assert.NotZero(t, assignment.ID)

	planned, err := f.assignments.ListAssignments(ctx, rivera.ID, "2026-01-25", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "trash", planned[0].ChoreName)
}

func TestUpdateAndRemoveKid(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	rivera, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)
	okafor, err := f.svc.CreateFamily(ctx, "Okafor", "UTC", "")
	require.NoError(t, err)
	ana, err := f.svc.CreateKid(ctx, rivera.ID, "Ana", "#FF8800")
	require.NoError(t, err)

	updated, err := f.svc.UpdateKid(ctx, rivera.ID, ana.ID, "Ana Sofia", "")
	require.NoError(t, err)
	assert.Equal(t, "Ana Sofia", updated.Name)
	assert.Equal(t, "#FF8800", updated.AvatarColor)

	_, err = f.svc.UpdateKid(ctx, okafor.ID, ana.ID, "Ana", "")
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	at := time.Date(2026, 1, 26, 8, 0, 0, 0, time.UTC)
	_, err = f.svc.RecordCompletion(ctx, rivera.ID, ana.ID, 5, "dishes", at)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveKid(ctx, okafor.ID, ana.ID), ErrNotFamilyMember)
	require.NoError(t, f.svc.RemoveKid(ctx, rivera.ID, ana.ID))
	assert.ErrorIs(t, f.svc.RemoveKid(ctx, rivera.ID, ana.ID), ErrKidNotFound)

	events, err := f.completions.ListCompletions(ctx, rivera.ID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHouseholdWritesRefreshCachedInsights(t *testing.T) {
	f := newHouseholdFixture(t)
	ctx := context.Background()
	family, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", `{"mode":"dynamic"}`)
	require.NoError(t, err)
	ana, err := f.svc.CreateKid(ctx, family.ID, "Ana", "")
	require.NoError(t, err)

	before, err := f.insights.ForFamily(ctx, family.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalActiveDays)
	assert.Len(t, f.cache.data, 1)

	_, err = f.svc.RecordCompletion(ctx, family.ID, ana.ID, 5, "dishes", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, f.cache.data)

	after, err := f.insights.ForFamily(ctx, family.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, after.TotalActiveDays)

	// Removing the kid must not leave the old roster cached.
	require.NoError(t, f.svc.RemoveKid(ctx, family.ID, ana.ID))
	gone, err := f.insights.ForFamily(ctx, family.ID, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, gone.Streaks)
}

type failingInvalidator struct{ calls int }

func (f *failingInvalidator) Invalidate(context.Context, int64) error {
	f.calls++
	return errors.New("redis down")
}

func TestHouseholdWriteSurvivesInvalidationFailure(t *testing.T) {
	f := newHouseholdFixture(t)
	inv := &failingInvalidator{}
	f.svc = NewFamilyService(f.families, f.kids, f.completions, f.assignments, inv, nil)
	ctx := context.Background()
	family, err := f.svc.CreateFamily(ctx, "Rivera", "UTC", "")
	require.NoError(t, err)
	ana, err := f.svc.CreateKid(ctx, family.ID, "Ana", "")
	require.NoError(t, err)

	_, err = f.svc.AssignChore(ctx, family.ID, ana.ID, "dishes", "2026-01-27")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)
}
