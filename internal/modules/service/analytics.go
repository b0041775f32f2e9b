package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
)

const (
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

type PomodoroStat struct {
	Day       string `json:"day"`
	Sessions  int    `json:"sessions"`
	FocusTime int    `json:"focusTime"`
}

type TaskStat struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type StudyStat struct {
	Title   string `json:"title"`
	Watched bool   `json:"watched"`
}

type TrendPoint struct {
	Day          string `json:"day"`
	Productivity int    `json:"productivity"`
}

type CategoryShare struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type WeeklyPoint struct {
	Day       string `json:"day"`
	Date      string `json:"date"`
	Pomodoros int    `json:"pomodoros"`
	Tasks     int    `json:"tasks"`
}

type AnalyticsReport struct {
	TimeRange            string          `json:"timeRange"`
	PomodoroStats        []PomodoroStat  `json:"pomodoroStats"`
	TaskStats            []TaskStat      `json:"taskStats"`
	StudyStats           []StudyStat     `json:"studyStats"`
	ProductivityTrends   []TrendPoint    `json:"productivityTrends"`
	CategoryDistribution []CategoryShare `json:"categoryDistribution"`
	WeeklyProgress       []WeeklyPoint   `json:"weeklyProgress"`
}

type AnalyticsService interface {
	// Report aggregates the caller's activity over week, month or year; other values fall back to week.
	Report(ctx context.Context, userID uuid.UUID, timeRange string) (*AnalyticsReport, error)
}

type analyticsService struct {
	r   repo.AnalyticsRepo
	now func() time.Time
}

func NewAnalyticsService(r repo.AnalyticsRepo) AnalyticsService {
	return &analyticsService{r: r, now: time.Now}
}

func rangeDays(timeRange string) (string, int) {
	switch timeRange {
	case RangeMonth:
		return RangeMonth, 30
	case RangeYear:
		return RangeYear, 365
	default:
		return RangeWeek, 7
	}
}

func (s *analyticsService) Report(ctx context.Context, userID uuid.UUID, timeRange string) (*AnalyticsReport, error) {
	timeRange, days := rangeDays(timeRange)
	start := truncateDay(s.now()).AddDate(0, 0, -(days - 1))

	pomodoros, err := s.r.PomodoroByDay(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("pomodoro stats: %w", err)
	}
	completed, err := s.r.CompletedTasksByDay(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	categories, err := s.r.TaskCategories(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	videos, err := s.r.StudyVideos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("study stats: %w", err)
	}

	report := &AnalyticsReport{
		TimeRange:            timeRange,
		PomodoroStats:        make([]PomodoroStat, 0, len(pomodoros)),
		TaskStats:            make([]TaskStat, 0, len(categories)),
		StudyStats:           make([]StudyStat, 0, len(videos)),
		ProductivityTrends:   make([]TrendPoint, 0, days),
		CategoryDistribution: make([]CategoryShare, 0, len(categories)),
		WeeklyProgress:       []WeeklyPoint{},
	}

	sessionsByDay := make(map[string]int, len(pomodoros))
	for _, p := range pomodoros {
		sessionsByDay[p.Day] = p.Sessions
		report.PomodoroStats = append(report.PomodoroStats, PomodoroStat{Day: p.Day, Sessions: p.Sessions, FocusTime: p.FocusMinutes})
	}
	tasksByDay := make(map[string]int, len(completed))
	for _, t := range completed {
		tasksByDay[t.Day] = t.Tasks
	}

	total := 0
	for _, c := range categories {
		total += c.Count
	}
	for _, c := range categories {
		category := c.Category
		if category == "" {
			category = "general"
		}
		report.TaskStats = append(report.TaskStats, TaskStat{Category: category, Count: c.Count})
		share := 0
		if total > 0 {
			share = int(math.Round(float64(c.Count) / float64(total) * 100))
		}
		report.CategoryDistribution = append(report.CategoryDistribution, CategoryShare{Category: category, Count: c.Count, Percentage: share})
	}

	for _, v := range videos {
		report.StudyStats = append(report.StudyStats, StudyStat{Title: v.Title, Watched: v.Status == model.VideoCompleted})
	}

	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(model.ReviewDateLayout)
		report.ProductivityTrends = append(report.ProductivityTrends, TrendPoint{
			Day:          key,
			Productivity: min(100, sessionsByDay[key]*20+tasksByDay[key]*10),
		})
		if timeRange == RangeWeek {
			report.WeeklyProgress = append(report.WeeklyProgress, WeeklyPoint{
				Day:       day.Format("Mon"),
				Date:      key,
				Pomodoros: sessionsByDay[key],
				Tasks:     tasksByDay[key],
			})
		}
	}
	return report, nil
}
