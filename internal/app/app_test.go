package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorequest/internal/config"
	"chorequest/internal/logger"
	"chorequest/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.DatabaseType = "sqlite-purego"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "app.db")
	cfg.DefaultTimezone = "America/Chicago"
	return cfg
}

func TestNewWiresServices(t *testing.T) {
	var steps []Step
	a, err := New(context.Background(), testConfig(t), logger.NewNop(), Options{
		OnStep: func(s Step) { steps = append(steps, s) },
	})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []Step{StepDatabase, StepMigrations, StepCache, StepServices}, steps)
	assert.False(t, a.Email.IsEnabled())

	ctx := context.Background()
	family, err := a.Families.CreateFamily(ctx, "Rivera", "", "")
	require.NoError(t, err)
	kid, err := a.Kids.CreateKid(ctx, family.ID, "Ana", "#ff8800")
	require.NoError(t, err)

	fi, err := a.Insights.ForFamily(ctx, family.ID, time.Date(2026, 1, 27, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, fi.Results, 1)
	assert.Equal(t, kid.ProfileID(), fi.Results[0].ProfileID)

	summary, err := a.Digest.Run(ctx, service.DigestOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped, "no parents have opted in")

	assert.NoError(t, a.Close())
}
