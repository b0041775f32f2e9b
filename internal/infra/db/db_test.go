package db

import (
	"testing"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLiteMigrates(t *testing.T) {
	cfg := &config.Config{Database: config.DBCfg{DSN: "sqlite::memory:"}}

	d, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(d))

	assert.Equal(t, "sqlite", DriverName(d))
	for _, table := range []string{"users", "projects", "tasks", "telos_reviews", "cloud_syncs"} {
		assert.True(t, d.Migrator().HasTable(table), table)
	}

	var fk int
	require.NoError(t, d.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
