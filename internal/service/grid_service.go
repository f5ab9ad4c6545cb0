package service

import (
	"context"
	"time"

	"chorequest/internal/analytics"
	"chorequest/internal/models"
)

// Where a weekly grid's chore names come from.
const (
	GridSourceAssignments = "assignments"
	GridSourceRotation    = "rotation"
	GridSourceNone        = "none"
)

// GridInsights is the part of the insights service the grid composer uses.
type GridInsights interface {
	LoadFamily(ctx context.Context, familyID int64) (*models.Family, []models.Kid, error)
	RequestFor(family *models.Family, kids []models.Kid, now time.Time) InsightsRequest
	ForFamily(ctx context.Context, familyID int64, now time.Time) (*FamilyInsights, error)
}

// GridDay is one day of a child's week with the chores planned for it.
type GridDay struct {
	analytics.DayActivity
	Chores []string `json:"chores,omitempty"`
}

// ChildGrid is a child's row in the weekly grid.
type ChildGrid struct {
	ProfileID   string    `json:"profile_id"`
	Name        string    `json:"name"`
	Days        []GridDay `json:"days"`
	Unavailable bool      `json:"unavailable,omitempty"`
}

// WeeklyGrid is the Sunday-to-Saturday activity grid for a family.
type WeeklyGrid struct {
	FamilyID  int64       `json:"family_id"`
	Today     string      `json:"today"`
	WeekStart string      `json:"week_start"`
	WeekEnd   string      `json:"week_end"`
	Source    string      `json:"source"`
	Children  []ChildGrid `json:"children"`
}

// GridService composes weekly chore grids
type GridService struct {
	insights GridInsights
}

// NewGridService creates a new grid service
func NewGridService(insights GridInsights) *GridService {
	return &GridService{insights: insights}
}

// ForFamily returns the current week's grid for a family.
func (s *GridService) ForFamily(ctx context.Context, familyID int64, now time.Time) (*WeeklyGrid, error) {
	family, kids, err := s.insights.LoadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	schedule := s.insights.RequestFor(family, kids, now).Schedule

	fi, err := s.insights.ForFamily(ctx, familyID, now)
	if err != nil {
		return nil, err
	}
	return ComposeGrid(fi, schedule), nil
}

// ComposeGrid overlays chore names onto each child's this-week activity.
// Manual households use their assignments; fixed rotations use the child's
// slot in the rotation week active on each date. Dynamic rotations have no
// fixed plan and get activity only.
func ComposeGrid(fi *FamilyInsights, schedule analytics.ScheduleConfig) *WeeklyGrid {
	weekStart := analytics.WeekStart(fi.Today)
	weekEnd := analytics.AddDays(weekStart, 6)

	grid := &WeeklyGrid{
		FamilyID:  fi.FamilyID,
		Today:     fi.Today,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Source:    GridSourceNone,
		Children:  make([]ChildGrid, 0, len(fi.Results)),
	}

	var choresOn func(profileID, date string) []string
	switch cfg := schedule.(type) {
	case analytics.FixedRotation:
		grid.Source = GridSourceRotation
		choresOn = cfg.ChoresOn
	case analytics.DynamicRotation:
	default:
		grid.Source = GridSourceAssignments
		planned := make(map[string]map[string][]string)
		for _, a := range fi.Assignments {
			if a.AssignedDate < weekStart || a.AssignedDate > weekEnd {
				continue
			}
			id := a.ProfileID()
			if planned[id] == nil {
				planned[id] = make(map[string][]string)
			}
			planned[id][a.AssignedDate] = append(planned[id][a.AssignedDate], a.ChoreName)
		}
		choresOn = func(profileID, date string) []string {
			return planned[profileID][date]
		}
	}

	for _, r := range fi.Results {
		days := r.Insights.ThisWeek
		if len(days) != 7 {
			days = analytics.ComposeThisWeek(nil, fi.Today)
		}
		row := ChildGrid{
			ProfileID:   r.ProfileID,
			Name:        r.Insights.Name,
			Days:        make([]GridDay, len(days)),
			Unavailable: r.Err != nil || r.Error != "",
		}
		for i, day := range days {
			row.Days[i] = GridDay{DayActivity: day}
			if choresOn != nil {
				row.Days[i].Chores = choresOn(r.ProfileID, day.Date)
			}
		}
		grid.Children = append(grid.Children, row)
	}
	return grid
}
