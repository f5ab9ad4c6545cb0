package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chorequest/internal/analytics"
	"chorequest/internal/cache"
	"chorequest/internal/logger"
	"chorequest/internal/metrics"
	"chorequest/internal/models"
)

// completionLookbackDays bounds the single ledger fetch per computation.
const completionLookbackDays = 90

var (
	ErrFamilyNotFound = errors.New("family not found")
)

// CompletionSource supplies positive-point ledger entries for a family with
// from <= occurred_at < to.
type CompletionSource interface {
	ListCompletions(ctx context.Context, familyID int64, from, to time.Time) ([]models.CompletionEvent, error)
}

// AssignmentSource supplies manually scheduled chores dated fromDate through
// toDate inclusive.
type AssignmentSource interface {
	ListAssignments(ctx context.Context, familyID int64, fromDate, toDate string) ([]models.ChoreAssignment, error)
}

// FamilyStore loads family settings.
type FamilyStore interface {
	GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error)
}

// KidStore loads a family's child profiles.
type KidStore interface {
	GetFamilyKids(ctx context.Context, familyID int64) ([]models.Kid, error)
}

// InsightsCache stores serialized insights.
type InsightsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PartialComputationError reports that one child's insights could not be
// computed. Siblings are unaffected.
type PartialComputationError struct {
	ProfileID string
	Err       error
}

func (e *PartialComputationError) Error() string {
	return fmt.Sprintf("insights for profile %s: %v", e.ProfileID, e.Err)
}

func (e *PartialComputationError) Unwrap() error {
	return e.Err
}

// InsightsRequest is everything one computation needs. Now is the reference
// instant; the wall clock is used only when it is zero.
type InsightsRequest struct {
	FamilyID int64
	Schedule analytics.ScheduleConfig
	Children []models.Kid
	Timezone string
	Now      time.Time
}

// StreakResult is a child's streak summary.
type StreakResult struct {
	ProfileID          string                  `json:"profile_id"`
	CurrentStreak      int                     `json:"current_streak"`
	LongestStreak      int                     `json:"longest_streak"`
	ConsistencyPercent int                     `json:"consistency_percent"`
	MilestoneTier      analytics.MilestoneTier `json:"milestone_tier"`
}

// ChildInsights is every metric computed for one child.
type ChildInsights struct {
	ProfileID           string                  `json:"profile_id"`
	Name                string                  `json:"name"`
	ExpectedDaysPerWeek int                     `json:"expected_days_per_week"`
	Trend               analytics.Trend         `json:"trend"`
	Streak              StreakResult            `json:"streak"`
	Routine             analytics.Routine       `json:"routine"`
	ThisWeek            []analytics.DayActivity `json:"this_week"`
}

// ChildResult pairs a child's insights with the failure that replaced them
// with zero values, if any.
type ChildResult struct {
	ProfileID string        `json:"profile_id"`
	Insights  ChildInsights `json:"insights"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
}

// FamilyInsights is the aggregate result for one family.
type FamilyInsights struct {
	FamilyID         int64                              `json:"family_id"`
	Timezone         string                             `json:"timezone"`
	Today            string                             `json:"today"`
	GeneratedAt      time.Time                          `json:"generated_at"`
	Structured       bool                               `json:"structured"`
	Trends           []analytics.Trend                  `json:"trends"`
	Streaks          []StreakResult                     `json:"streaks"`
	Routines         []analytics.Routine                `json:"routines"`
	TotalActiveDays  int                                `json:"total_active_days"`
	ThisWeekActivity map[string][]analytics.DayActivity `json:"this_week_activity"`
	Results          []ChildResult                      `json:"results"`
	Assignments      []models.ChoreAssignment           `json:"assignments,omitempty"`
}

// Failed returns the results whose computation failed.
func (fi *FamilyInsights) Failed() []ChildResult {
	var failed []ChildResult
	for _, r := range fi.Results {
		if r.Err != nil || r.Error != "" {
			failed = append(failed, r)
		}
	}
	return failed
}

// Child returns the insights for a profile, or false when it is unknown.
func (fi *FamilyInsights) Child(profileID string) (ChildInsights, bool) {
	for _, r := range fi.Results {
		if r.ProfileID == profileID {
			return r.Insights, true
		}
	}
	return ChildInsights{}, false
}

// InsightsService computes behavioral insights for families
type InsightsService struct {
	families    FamilyStore
	kids        KidStore
	completions CompletionSource
	assignments AssignmentSource
	cache       InsightsCache
	cacheTTL    time.Duration
	defaultTZ   string
	logger      *logger.Logger
	now         func() time.Time
}

// NewInsightsService creates a new insights service. A nil cache disables caching.
func NewInsightsService(
	families FamilyStore,
	kids KidStore,
	completions CompletionSource,
	assignments AssignmentSource,
	insightsCache InsightsCache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *InsightsService {
	if insightsCache == nil {
		insightsCache = cache.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &InsightsService{
		families:    families,
		kids:        kids,
		completions: completions,
		assignments: assignments,
		cache:       insightsCache,
		cacheTTL:    cacheTTL,
		defaultTZ:   models.DefaultTimezone,
		logger:      log.Named("insights"),
		now:         time.Now,
	}
}

// SetDefaultTimezone sets the timezone used for families that have none.
func (s *InsightsService) SetDefaultTimezone(tz string) {
	if tz != "" {
		s.defaultTZ = tz
	}
}

// LoadFamily returns the family and its kids, or ErrFamilyNotFound.
func (s *InsightsService) LoadFamily(ctx context.Context, familyID int64) (*models.Family, []models.Kid, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, nil, ErrFamilyNotFound
	}
	kids, err := s.kids.GetFamilyKids(ctx, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load kids: %w", err)
	}
	return family, kids, nil
}

// RequestFor builds the computation request for a stored family. A schedule
// document that cannot be decoded is treated as a manual household.
func (s *InsightsService) RequestFor(family *models.Family, kids []models.Kid, now time.Time) InsightsRequest {
	schedule, err := analytics.DecodeScheduleConfig([]byte(family.ScheduleConfig))
	if err != nil {
		s.logger.Warn("ignoring unreadable schedule config",
			zap.Int64("family_id", family.ID),
			zap.Error(err),
		)
		schedule = analytics.NoSchedule{}
	}
	timezone := family.Timezone
	if timezone == "" {
		timezone = s.defaultTZ
	}
	return InsightsRequest{
		FamilyID: family.ID,
		Schedule: schedule,
		Children: kids,
		Timezone: timezone,
		Now:      now,
	}
}

// ForFamily loads a family and returns its insights. With a zero now the
// result for the current local day is served from the cache when possible.
func (s *InsightsService) ForFamily(ctx context.Context, familyID int64, now time.Time) (*FamilyInsights, error) {
	family, kids, err := s.LoadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}

	live := now.IsZero()
	if live {
		now = s.now()
	}
	req := s.RequestFor(family, kids, now)
	if !live {
		return s.GetInsights(ctx, req)
	}

	loc, err := analytics.LoadTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}
	key := cache.InsightsKey(familyID, analytics.LocalDate(now, loc))

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	insights, err := s.GetInsights(ctx, req)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, insights)
	return insights, nil
}

// Invalidate drops a family's cached insights. Every timezone's local date
// is within a day of the UTC date, so those three keys cover any setting.
func (s *InsightsService) Invalidate(ctx context.Context, familyID int64) error {
	today := analytics.LocalDate(s.now(), time.UTC)
	keys := make([]string, 0, 3)
	for offset := -1; offset <= 1; offset++ {
		keys = append(keys, cache.InsightsKey(familyID, analytics.AddDays(today, offset)))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate insights: %w", err)
	}
	return nil
}

func (s *InsightsService) fromCache(ctx context.Context, key string) (*FamilyInsights, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		s.logger.Warn("insights cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	var insights FamilyInsights
	if err := json.Unmarshal(data, &insights); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		s.logger.Warn("discarding corrupt insights cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &insights, true
}

func (s *InsightsService) toCache(ctx context.Context, key string, insights *FamilyInsights) {
	data, err := json.Marshal(insights)
	if err != nil {
		s.logger.Warn("failed to encode insights for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("insights cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetInsights computes trends, streaks, routines and this-week activity for
// every child in the request.
//
// The ledger is read once for the trailing 90 local days. Manual households
// also read their assignments for the 12-week trend window; both reads run
// concurrently. Each child is computed in its own goroutine; a failure for one
// child is recorded on its ChildResult and replaced by zero values.
func (s *InsightsService) GetInsights(ctx context.Context, req InsightsRequest) (*FamilyInsights, error) {
	start := time.Now()
	defer func() { metrics.InsightsDuration.Observe(time.Since(start).Seconds()) }()

	loc, err := analytics.LoadTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}

	now := req.Now
	if now.IsZero() {
		now = s.now()
	}
	today := analytics.LocalDate(now, loc)
	structured := analytics.IsStructured(req.Schedule)
	windowStart := analytics.AddDays(analytics.WeekStart(today), -(analytics.TrendWindowDays - 7))

	var (
		completions []models.CompletionEvent
		assignments []models.ChoreAssignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		from := analytics.StartOfDay(analytics.AddDays(today, -(completionLookbackDays-1)), loc)
		to := analytics.StartOfDay(analytics.AddDays(today, 1), loc)
		events, err := s.completions.ListCompletions(gctx, req.FamilyID, from, to)
		if err != nil {
			return fmt.Errorf("failed to fetch completions: %w", err)
		}
		completions = events
		return nil
	})
	if !structured && s.assignments != nil {
		g.Go(func() error {
			// Through Saturday so the grid can list upcoming chores; the
			// trend ignores anything after today.
			toDate := analytics.AddDays(analytics.WeekStart(today), 6)
			rows, err := s.assignments.ListAssignments(gctx, req.FamilyID, windowStart, toDate)
			if err != nil {
				return fmt.Errorf("failed to fetch assignments: %w", err)
			}
			assignments = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eventsByChild := make(map[string][]analytics.LocalEvent, len(req.Children))
	activeDates := make(map[string]struct{})
	known := make(map[string]struct{}, len(req.Children))
	for _, kid := range req.Children {
		known[kid.ProfileID()] = struct{}{}
	}
	for _, c := range completions {
		id := c.ProfileID()
		if _, ok := known[id]; !ok {
			continue
		}
		e := analytics.LocalEvent{
			ProfileID: id,
			Date:      analytics.LocalDate(c.OccurredAt, loc),
			Hour:      analytics.LocalHour(c.OccurredAt, loc),
			Points:    c.Points,
		}
		eventsByChild[id] = append(eventsByChild[id], e)
		if e.Active() && e.Date >= windowStart && e.Date <= today {
			activeDates[e.Date] = struct{}{}
		}
	}

	assignedByChild := make(map[string][]string)
	for _, a := range assignments {
		assignedByChild[a.ProfileID()] = append(assignedByChild[a.ProfileID()], a.AssignedDate)
	}

	results := make([]ChildResult, len(req.Children))
	var wg sync.WaitGroup
	for i, kid := range req.Children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := kid.ProfileID()
			insights, err := computeChild(childInput{
				kid:        kid,
				events:     eventsByChild[id],
				assigned:   assignedByChild[id],
				schedule:   req.Schedule,
				structured: structured,
				today:      today,
			})
			results[i] = ChildResult{ProfileID: id, Insights: insights}
			if err != nil {
				results[i].Err = err
				results[i].Error = err.Error()
				results[i].Insights = zeroChild(kid, today)
			}
		}()
	}
	wg.Wait()

	fi := &FamilyInsights{
		FamilyID:         req.FamilyID,
		Timezone:         loc.String(),
		Today:            today,
		GeneratedAt:      now.UTC(),
		Structured:       structured,
		Trends:           make([]analytics.Trend, 0, len(results)),
		Streaks:          make([]StreakResult, 0, len(results)),
		Routines:         make([]analytics.Routine, 0, len(results)),
		TotalActiveDays:  len(activeDates),
		ThisWeekActivity: make(map[string][]analytics.DayActivity, len(results)),
		Results:          results,
		Assignments:      assignments,
	}
	for _, r := range results {
		if r.Err != nil {
			metrics.ChildFailures.Inc()
			s.logger.Error("child insights failed",
				zap.Int64("family_id", req.FamilyID),
				zap.String("profile_id", r.ProfileID),
				zap.Error(r.Err),
			)
		}
		fi.Trends = append(fi.Trends, r.Insights.Trend)
		fi.Streaks = append(fi.Streaks, r.Insights.Streak)
		fi.Routines = append(fi.Routines, r.Insights.Routine)
		fi.ThisWeekActivity[r.ProfileID] = r.Insights.ThisWeek
	}

	s.logger.Debug("computed insights",
		zap.Int64("family_id", req.FamilyID),
		zap.String("today", today),
		zap.Int("children", len(results)),
		zap.Int("completions", len(completions)),
		zap.Int("assignments", len(assignments)),
	)
	return fi, nil
}

type childInput struct {
	kid        models.Kid
	events     []analytics.LocalEvent
	assigned   []string
	schedule   analytics.ScheduleConfig
	structured bool
	today      string
}

// computeChild runs every calculator for one child. A panic in any of them
// is returned as a *PartialComputationError.
func computeChild(in childInput) (ci ChildInsights, err error) {
	id := in.kid.ProfileID()
	defer func() {
		if r := recover(); r != nil {
			err = &PartialComputationError{ProfileID: id, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	baseline := analytics.ExpectedDaysPerWeek(in.schedule, id)

	trend, err := analytics.CalculateTrend(analytics.TrendInput{
		ProfileID:     id,
		Events:        in.events,
		Baseline:      baseline,
		Structured:    in.structured,
		AssignedDates: in.assigned,
		Today:         in.today,
	})
	if err != nil {
		return ChildInsights{}, &PartialComputationError{ProfileID: id, Err: err}
	}

	var dates []string
	for _, e := range in.events {
		if e.Active() {
			dates = append(dates, e.Date)
		}
	}
	streak := analytics.CalculateStreak(dates, in.today)

	return ChildInsights{
		ProfileID:           id,
		Name:                in.kid.Name,
		ExpectedDaysPerWeek: baseline,
		Trend:               trend,
		Streak: StreakResult{
			ProfileID:          id,
			CurrentStreak:      streak.Current,
			LongestStreak:      streak.Longest,
			ConsistencyPercent: analytics.CalculateConsistency(dates, baseline, in.today),
			MilestoneTier:      analytics.MilestoneFor(streak.Current),
		},
		Routine:  analytics.ClassifyRoutine(id, in.events, in.today),
		ThisWeek: analytics.ComposeThisWeek(in.events, in.today),
	}, nil
}

// zeroChild is the neutral substitute for a child whose computation failed.
func zeroChild(kid models.Kid, today string) ChildInsights {
	id := kid.ProfileID()
	return ChildInsights{
		ProfileID: id,
		Name:      kid.Name,
		Trend:     analytics.EmptyTrend(id, today),
		Streak:    StreakResult{ProfileID: id, MilestoneTier: analytics.MilestoneNone},
		Routine:   analytics.Routine{ProfileID: id},
		ThisWeek:  analytics.ComposeThisWeek(nil, today),
	}
}
