package repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lexflow/lexflow-api/internal/modules/model"
)

type PomodoroDay struct {
	Day          string `db:"day"`
	Sessions     int    `db:"sessions"`
	FocusMinutes int    `db:"focus"`
}

type TaskDay struct {
	Day   string `db:"day"`
	Tasks int    `db:"tasks"`
}

type CategoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"count"`
}

type StudyRow struct {
	Title  string `db:"title"`
	Status string `db:"status"`
}

// AnalyticsRepo runs the read-only aggregate queries behind the analytics
// dashboard. Day values are normalised to YYYY-MM-DD.
type AnalyticsRepo interface {
	PomodoroByDay(ctx context.Context, userID uuid.UUID, since time.Time) ([]PomodoroDay, error)
	CompletedTasksByDay(ctx context.Context, userID uuid.UUID, since time.Time) ([]TaskDay, error)
	TaskCategories(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryCount, error)
	StudyVideos(ctx context.Context, userID uuid.UUID) ([]StudyRow, error)
}

type analyticsRepo struct {
	db *sqlx.DB
	sq squirrel.StatementBuilderType
}

func NewAnalyticsRepo(db *sqlx.DB) AnalyticsRepo {
	return &analyticsRepo{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *analyticsRepo) PomodoroByDay(ctx context.Context, userID uuid.UUID, since time.Time) ([]PomodoroDay, error) {
	q, args, err := r.sq.
		Select("DATE(start_time) AS day", "COUNT(*) AS sessions", "COALESCE(SUM(duration_minutes), 0) AS focus").
		From("pomodoro_sessions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"start_time": since}).
		GroupBy("DATE(start_time)").
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []PomodoroDay
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Day = normalizeDay(rows[i].Day)
	}
	return rows, nil
}

func (r *analyticsRepo) CompletedTasksByDay(ctx context.Context, userID uuid.UUID, since time.Time) ([]TaskDay, error) {
	q, args, err := r.sq.
		Select("DATE(t.completed_at) AS day", "COUNT(*) AS tasks").
		From("tasks t").
		Join("projects p ON p.id = t.project_id").
		Where(squirrel.Eq{"p.owner_id": userID, "t.status": model.TaskStatusCompleted}).
		Where(squirrel.GtOrEq{"t.completed_at": since}).
		GroupBy("DATE(t.completed_at)").
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []TaskDay
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Day = normalizeDay(rows[i].Day)
	}
	return rows, nil
}

func (r *analyticsRepo) TaskCategories(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryCount, error) {
	q, args, err := r.sq.
		Select("t.category AS category", "COUNT(*) AS count").
		From("tasks t").
		Join("projects p ON p.id = t.project_id").
		Where(squirrel.Eq{"p.owner_id": userID}).
		Where(squirrel.GtOrEq{"t.created_at": since}).
		GroupBy("t.category").
		OrderBy("count DESC", "category ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []CategoryCount
	return rows, r.db.SelectContext(ctx, &rows, q, args...)
}

func (r *analyticsRepo) StudyVideos(ctx context.Context, userID uuid.UUID) ([]StudyRow, error) {
	q, args, err := r.sq.
		Select("COALESCE(title, '') AS title", "status").
		From("study_videos").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []StudyRow
	return rows, r.db.SelectContext(ctx, &rows, q, args...)
}

// normalizeDay trims driver specific date renderings (postgres returns a
// full RFC3339 timestamp for DATE columns) down to YYYY-MM-DD.
func normalizeDay(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
