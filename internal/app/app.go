// Package app wires configuration, storage and services into one container
// shared by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chorequest/internal/cache"
	"chorequest/internal/config"
	"chorequest/internal/database"
	"chorequest/internal/logger"
	"chorequest/internal/repository"
	"chorequest/internal/service"
)

// App holds the wired dependencies
type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *database.DB

	Families    *repository.FamilyRepository
	Kids        *repository.KidRepository
	Completions *repository.CompletionRepository
	Assignments *repository.AssignmentRepository
	DigestRuns  *repository.DigestRepository

	Cache service.InsightsCache

	Household *service.FamilyService
	Insights  *service.InsightsService
	Grid      *service.GridService
	Email     *service.EmailService
	Digest    *service.DigestService
	Export    *service.ExportService

	closers []func() error
}

// Step names a startup phase reported through Options.OnStep
type Step string

// Startup phases
const (
	StepDatabase   Step = "database"
	StepMigrations Step = "migrations"
	StepCache      Step = "cache"
	StepServices   Step = "services"
)

// Options tunes New
type Options struct {
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
	// OnStep is called after each startup phase completes.
	OnStep func(Step)
}

// New opens the database, runs migrations, connects the cache and builds
// every service. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	done := func(step Step) {
		if opts.OnStep != nil {
			opts.OnStep(step)
		}
	}
	a := &App{Config: cfg, Logger: log}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	log.Info("database connection established", zap.String("type", db.Dialect.Name()))
	done(StepDatabase)

	if !opts.SkipMigrations {
		applied, err := db.RunMigrations(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", zap.Strings("applied", applied))
	}
	done(StepMigrations)

	a.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig(cfg.RedisAddr)
		cacheCfg.Password = cfg.RedisPassword
		cacheCfg.DB = cfg.RedisDB
		rc, err := cache.NewRedisCache(cacheCfg)
		if err != nil {
			log.Warn("insights cache unavailable, continuing without it", zap.Error(err))
		} else {
			a.Cache = rc
			a.closers = append(a.closers, rc.Close)
			log.Info("insights cache connected", zap.String("addr", cfg.RedisAddr))
		}
	}
	done(StepCache)

	a.Families = repository.NewFamilyRepository(db)
	a.Kids = repository.NewKidRepository(db)
	a.Completions = repository.NewCompletionRepository(db)
	a.Assignments = repository.NewAssignmentRepository(db)
	a.DigestRuns = repository.NewDigestRepository(db)

	a.Insights = service.NewInsightsService(a.Families, a.Kids, a.Completions, a.Assignments, a.Cache, cfg.InsightsCacheTTL, log)
	a.Household = service.NewFamilyService(a.Families, a.Kids, a.Completions, a.Assignments, a.Insights, log)
	a.Insights.SetDefaultTimezone(cfg.DefaultTimezone)
	a.Grid = service.NewGridService(a.Insights)

	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	a.Email = email
	a.Digest = service.NewDigestService(a.Families, a.Insights, a.DigestRuns, a.Email, cfg.AppBaseURL, cfg.DigestTimeout, log)
	a.Export = service.NewExportService(a.Families, a.Kids, a.Insights, log)
	done(StepServices)

	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
