package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"chorequest/internal/logger"
	"chorequest/internal/models"
)

// SnapshotVersion is the format version written to exports
const SnapshotVersion = "1.0"

// SnapshotData is a point-in-time export of every family's insights
type SnapshotData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Families   []FamilySnapshot `json:"families"`
}

// FamilySnapshot is one family's settings, kids and computed insights
type FamilySnapshot struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Timezone       string          `json:"timezone"`
	ScheduleConfig string          `json:"schedule_config,omitempty"`
	Kids           []KidSnapshot   `json:"kids"`
	Insights       *FamilyInsights `json:"insights,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// KidSnapshot is a kid record in an export
type KidSnapshot struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	AvatarColor string    `json:"avatar_color"`
	CreatedAt   time.Time `json:"created_at"`
}

// FamilyLister lists every family
type FamilyLister interface {
	ListFamilies(ctx context.Context) ([]models.Family, error)
}

// ExportService writes insights snapshots
type ExportService struct {
	families FamilyLister
	kids     KidStore
	insights FamilyInsightsProvider
	logger   *logger.Logger
}

// NewExportService creates a new export service
func NewExportService(families FamilyLister, kids KidStore, insights FamilyInsightsProvider, log *logger.Logger) *ExportService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ExportService{
		families: families,
		kids:     kids,
		insights: insights,
		logger:   log.Named("export"),
	}
}

// Snapshot computes insights for every family as of now. A family whose
// insights fail is exported with its error instead of aborting the export.
func (s *ExportService) Snapshot(ctx context.Context, now time.Time) (*SnapshotData, error) {
	if now.IsZero() {
		now = time.Now()
	}
	families, err := s.families.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}

	snapshot := &SnapshotData{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Families:   make([]FamilySnapshot, 0, len(families)),
	}
	for _, family := range families {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fs := FamilySnapshot{
			ID:             family.ID,
			Name:           family.Name,
			Timezone:       family.TimezoneName(),
			ScheduleConfig: family.ScheduleConfig,
		}

		kids, err := s.kids.GetFamilyKids(ctx, family.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export kids for family %d: %w", family.ID, err)
		}
		fs.Kids = make([]KidSnapshot, 0, len(kids))
		for _, kid := range kids {
			fs.Kids = append(fs.Kids, KidSnapshot{
				ID:          kid.ID,
				Name:        kid.Name,
				AvatarColor: kid.AvatarColor,
				CreatedAt:   kid.CreatedAt,
			})
		}

		insights, err := s.insights.ForFamily(ctx, family.ID, now)
		if err != nil {
			s.logger.Warn("exporting family without insights", zap.Int64("family_id", family.ID), zap.Error(err))
			fs.Error = err.Error()
		} else {
			fs.Insights = insights
		}
		snapshot.Families = append(snapshot.Families, fs)
	}
	return snapshot, nil
}

// Export writes an indented JSON snapshot to w
func (s *ExportService) Export(ctx context.Context, w io.Writer, now time.Time) (*SnapshotData, error) {
	snapshot, err := s.Snapshot(ctx, now)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.logger.Info("snapshot exported", zap.Int("families", len(snapshot.Families)))
	return snapshot, nil
}

// ExportToFile writes a snapshot to outputPath
func (s *ExportService) ExportToFile(ctx context.Context, outputPath string, now time.Time) (*SnapshotData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	snapshot, err := s.Export(ctx, file, now)
	if err != nil {
		return nil, err
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("failed to flush output file: %w", err)
	}
	return snapshot, nil
}
