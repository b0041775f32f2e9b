package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewAnalyticsRepo(sqlx.NewDb(db, "pgx"))
	ctx := context.Background()
	userID := uuid.New()
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("PomodoroByDay", func(t *testing.T) {
		mock.ExpectQuery(`SELECT DATE\(start_time\) AS day, COUNT\(\*\) AS sessions, COALESCE\(SUM\(duration_minutes\), 0\) AS focus FROM pomodoro_sessions WHERE user_id = \$1 AND start_time >= \$2 GROUP BY DATE\(start_time\)`).
			WithArgs(userID.String(), since).
			WillReturnRows(sqlmock.NewRows([]string{"day", "sessions", "focus"}).
				AddRow("2025-01-02T00:00:00Z", 3, 75).
				AddRow("2025-01-03", 1, 25))

		rows, err := r.PomodoroByDay(ctx, userID, since)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, PomodoroDay{Day: "2025-01-02", Sessions: 3, FocusMinutes: 75}, rows[0])
		assert.Equal(t, "2025-01-03", rows[1].Day)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompletedTasksByDay", func(t *testing.T) {
		mock.ExpectQuery(`SELECT DATE\(t.completed_at\) AS day, COUNT\(\*\) AS tasks FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.owner_id = \$1 AND t.status = \$2 AND t.completed_at >= \$3`).
			WithArgs(userID.String(), "completed", since).
			WillReturnRows(sqlmock.NewRows([]string{"day", "tasks"}).AddRow("2025-01-02", 4))

		rows, err := r.CompletedTasksByDay(ctx, userID, since)
		require.NoError(t, err)
		assert.Equal(t, []TaskDay{{Day: "2025-01-02", Tasks: 4}}, rows)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TaskCategories", func(t *testing.T) {
		mock.ExpectQuery(`SELECT t.category AS category, COUNT\(\*\) AS count FROM tasks t JOIN projects p ON p.id = t.project_id WHERE p.owner_id = \$1 AND t.created_at >= \$2 GROUP BY t.category ORDER BY count DESC`).
			WithArgs(userID.String(), since).
			WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("work", 3).AddRow("general", 1))

		rows, err := r.TaskCategories(ctx, userID, since)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "work", rows[0].Category)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StudyVideos", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COALESCE\(title, ''\) AS title, status FROM study_videos WHERE user_id = \$1`).
			WithArgs(userID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"title", "status"}).AddRow("Go talk", "Completed"))

		rows, err := r.StudyVideos(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []StudyRow{{Title: "Go talk", Status: "Completed"}}, rows)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
