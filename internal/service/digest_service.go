package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chorequest/internal/analytics"
	"chorequest/internal/logger"
	"chorequest/internal/metrics"
	"chorequest/internal/models"
)

//go:embed templates/*.tmpl
var digestTemplates embed.FS

// trendThreshold is the week-over-week change, in percentage points, that
// counts as a real move up or down.
const trendThreshold = 10

// Trend directions shown in the digest.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendSteady = "steady"
)

// DigestFamilies lists families and their digest recipients.
type DigestFamilies interface {
	ListFamilies(ctx context.Context) ([]models.Family, error)
	GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error)
	GetDigestRecipients(ctx context.Context, familyID int64) ([]models.Parent, error)
}

// FamilyInsightsProvider computes insights for one stored family.
type FamilyInsightsProvider interface {
	ForFamily(ctx context.Context, familyID int64, now time.Time) (*FamilyInsights, error)
}

// DigestRunStore records digest attempts.
type DigestRunStore interface {
	RecordRun(ctx context.Context, run *models.DigestRun) error
	ListRuns(ctx context.Context, familyID int64, limit int) ([]models.DigestRun, error)
}

const defaultHistoryLimit = 10

// ChildDigest is one child's section of the weekly digest.
type ChildDigest struct {
	ProfileID          string                  `json:"profile_id"`
	Name               string                  `json:"name"`
	CurrentStreak      int                     `json:"current_streak"`
	LongestStreak      int                     `json:"longest_streak"`
	ConsistencyPercent int                     `json:"consistency_percent"`
	Milestone          analytics.MilestoneTier `json:"milestone"`
	ChoresThisWeek     int                     `json:"chores_this_week"`
	PointsThisWeek     int                     `json:"points_this_week"`
	TrendDirection     string                  `json:"trend_direction"`
	PreferredRoutine   string                  `json:"preferred_routine,omitempty"`
	Unavailable        bool                    `json:"unavailable,omitempty"`
}

// Digest is a rendered weekly digest for one family.
type Digest struct {
	FamilyID     int64         `json:"family_id"`
	FamilyName   string        `json:"family_name"`
	WeekStart    string        `json:"week_start"`
	WeekEnd      string        `json:"week_end"`
	Children     []ChildDigest `json:"children"`
	DashboardURL string        `json:"dashboard_url,omitempty"`
	Subject      string        `json:"subject"`
	Text         string        `json:"text"`
	HTML         string        `json:"html"`
}

// DigestOptions controls a digest batch. A zero Now uses the wall clock.
type DigestOptions struct {
	DryRun bool
	Now    time.Time
}

// DigestSummary totals one digest batch.
type DigestSummary struct {
	Families int                `json:"families"`
	Sent     int                `json:"sent"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Runs     []models.DigestRun `json:"runs"`
}

// DigestService builds and delivers the weekly family digest
type DigestService struct {
	families DigestFamilies
	insights FamilyInsightsProvider
	runs     DigestRunStore
	sender   EmailSender
	baseURL  string
	timeout  time.Duration
	logger   *logger.Logger
	text     *texttemplate.Template
	html     *htmltemplate.Template
}

// NewDigestService creates a new digest service. timeout bounds a whole batch;
// zero leaves the caller's context in charge.
func NewDigestService(
	families DigestFamilies,
	insights FamilyInsightsProvider,
	runs DigestRunStore,
	sender EmailSender,
	baseURL string,
	timeout time.Duration,
	log *logger.Logger,
) *DigestService {
	if log == nil {
		log = logger.NewNop()
	}
	funcs := map[string]any{
		"days":       formatDays,
		"milestone":  milestoneLabel,
		"trendLabel": trendLabel,
	}
	return &DigestService{
		families: families,
		insights: insights,
		runs:     runs,
		sender:   sender,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		logger:   log.Named("digest"),
		text:     texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(digestTemplates, "templates/*.txt.tmpl")),
		html:     htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(digestTemplates, "templates/*.html.tmpl")),
	}
}

// History returns a family's most recent digest runs, newest first
func (s *DigestService) History(ctx context.Context, familyID int64, limit int) ([]models.DigestRun, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return s.runs.ListRuns(ctx, familyID, limit)
}

// Preview renders the digest a family would receive without sending it.
func (s *DigestService) Preview(ctx context.Context, familyID int64, now time.Time) (*Digest, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return s.build(ctx, family, now)
}

// Run sends the weekly digest to every family. Families are processed one at
// a time; a failing family is recorded and the batch moves on. Run stops early
// only when its context is done.
func (s *DigestService) Run(ctx context.Context, opts DigestOptions) (*DigestSummary, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	families, err := s.families.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}

	s.logger.Info("starting digest run",
		zap.Int("families", len(families)),
		zap.Bool("dry_run", opts.DryRun),
	)

	summary := &DigestSummary{Runs: make([]models.DigestRun, 0, len(families))}
	for i := range families {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("digest run interrupted",
				zap.Int("remaining", len(families)-i),
				zap.Error(err),
			)
			return summary, fmt.Errorf("digest run interrupted: %w", err)
		}

		run := s.RunFamily(ctx, &families[i], opts)
		summary.Families++
		summary.Runs = append(summary.Runs, *run)
		switch run.Status {
		case models.DigestStatusSent, models.DigestStatusDryRun:
			summary.Sent++
		case models.DigestStatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	s.logger.Info("digest run finished",
		zap.Int("families", summary.Families),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// RunFamily builds and delivers one family's digest and records the attempt.
// Failures are reported on the returned run rather than as an error.
func (s *DigestService) RunFamily(ctx context.Context, family *models.Family, opts DigestOptions) *models.DigestRun {
	run := &models.DigestRun{
		ID:        uuid.NewString(),
		FamilyID:  family.ID,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With(zap.String("run_id", run.ID), zap.Int64("family_id", family.ID))

	s.deliver(ctx, family, opts, run, log)

	run.FinishedAt = time.Now().UTC()
	metrics.DigestFamilies.WithLabelValues(run.Status).Inc()
	if run.Status == models.DigestStatusFailed {
		log.Error("family digest failed", zap.String("error", run.Error))
	}
	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, run); err != nil {
			log.Warn("failed to record digest run", zap.Error(err))
		}
	}
	return run
}

func (s *DigestService) deliver(ctx context.Context, family *models.Family, opts DigestOptions, run *models.DigestRun, log *logger.Logger) {
	recipients, err := s.families.GetDigestRecipients(ctx, family.ID)
	if err != nil {
		run.Status = models.DigestStatusFailed
		run.Error = fmt.Sprintf("failed to load recipients: %v", err)
		return
	}
	if len(recipients) == 0 {
		run.Status = models.DigestStatusSkipped
		log.Debug("no digest recipients")
		return
	}

	digest, err := s.build(ctx, family, opts.Now)
	if err != nil {
		run.Status = models.DigestStatusFailed
		run.Error = err.Error()
		return
	}

	if opts.DryRun {
		run.Status = models.DigestStatusDryRun
		run.Recipients = len(recipients)
		log.Info("dry run: digest rendered",
			zap.Int("recipients", len(recipients)),
			zap.String("subject", digest.Subject),
		)
		return
	}
	if s.sender == nil || !s.sender.IsEnabled() {
		run.Status = models.DigestStatusSkipped
		run.Error = "email delivery disabled"
		metrics.DigestEmails.WithLabelValues("skipped").Add(float64(len(recipients)))
		return
	}

	var failures []string
	for _, parent := range recipients {
		if err := s.sender.SendEmail(ctx, parent.Email, digest.Subject, digest.HTML, digest.Text); err != nil {
			metrics.DigestEmails.WithLabelValues("failed").Inc()
			log.Warn("failed to send digest", zap.Int64("parent_id", parent.ID), zap.Error(err))
			failures = append(failures, err.Error())
			continue
		}
		metrics.DigestEmails.WithLabelValues("sent").Inc()
		run.Recipients++
	}

	run.Status = models.DigestStatusSent
	if run.Recipients == 0 {
		run.Status = models.DigestStatusFailed
	}
	if len(failures) > 0 {
		run.Error = strings.Join(failures, "; ")
	}
}

// build computes insights once and renders both bodies.
func (s *DigestService) build(ctx context.Context, family *models.Family, now time.Time) (*Digest, error) {
	insights, err := s.insights.ForFamily(ctx, family.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute insights: %w", err)
	}

	weekStart := analytics.WeekStart(insights.Today)
	digest := &Digest{
		FamilyID:   family.ID,
		FamilyName: family.Name,
		WeekStart:  weekStart,
		WeekEnd:    analytics.AddDays(weekStart, 6),
		Children:   make([]ChildDigest, 0, len(insights.Results)),
	}
	if s.baseURL != "" {
		digest.DashboardURL = fmt.Sprintf("%s/families/%d/dashboard", s.baseURL, family.ID)
	}
	for _, r := range insights.Results {
		digest.Children = append(digest.Children, summarizeChild(r))
	}
	digest.Subject = fmt.Sprintf("%s: weekly chore digest for %s", family.Name, weekStart)

	var buf bytes.Buffer
	if err := s.text.ExecuteTemplate(&buf, "digest.txt", digest); err != nil {
		return nil, fmt.Errorf("failed to render text digest: %w", err)
	}
	digest.Text = buf.String()

	buf.Reset()
	if err := s.html.ExecuteTemplate(&buf, "digest.html", digest); err != nil {
		return nil, fmt.Errorf("failed to render html digest: %w", err)
	}
	digest.HTML = buf.String()
	return digest, nil
}

// summarizeChild reduces a child's insights to its digest section.
func summarizeChild(r ChildResult) ChildDigest {
	ci := r.Insights
	cd := ChildDigest{
		ProfileID: r.ProfileID,
		Name:      ci.Name,
	}
	if r.Err != nil || r.Error != "" {
		cd.Unavailable = true
		return cd
	}

	cd.CurrentStreak = ci.Streak.CurrentStreak
	cd.LongestStreak = ci.Streak.LongestStreak
	cd.ConsistencyPercent = ci.Streak.ConsistencyPercent
	cd.Milestone = ci.Streak.MilestoneTier
	cd.TrendDirection = TrendDirection(ci.Trend.DeltaFromPrev)
	cd.PreferredRoutine = ci.Routine.Preferred
	for _, day := range ci.ThisWeek {
		cd.ChoresThisWeek += day.Completions
		cd.PointsThisWeek += day.PointsEarned
	}
	return cd
}

// TrendDirection classifies a week-over-week change in percentage points.
func TrendDirection(delta int) string {
	switch {
	case delta >= trendThreshold:
		return TrendUp
	case delta <= -trendThreshold:
		return TrendDown
	default:
		return TrendSteady
	}
}

func formatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func milestoneLabel(tier analytics.MilestoneTier) string {
	switch tier {
	case analytics.MilestoneBuilding:
		return "building a habit"
	case analytics.MilestoneStrengthening:
		return "habit strengthening"
	case analytics.MilestoneForming:
		return "habit forming"
	case analytics.MilestoneFormed:
		return "habit formed"
	default:
		return ""
	}
}

func trendLabel(direction string) string {
	switch direction {
	case TrendUp:
		return "trending up"
	case TrendDown:
		return "trending down"
	default:
		return "holding steady"
	}
}
