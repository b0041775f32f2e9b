package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	_ "modernc.org/sqlite" // pure Go sqlite driver registered as "sqlite"
)

const sqlitePrefix = "sqlite:"

// New opens the configured database. DSNs starting with "sqlite:" use the
// embedded sqlite driver, anything else is treated as a postgres DSN.
func New(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return NewSQLite(strings.TrimPrefix(dsn, sqlitePrefix))
	}

	d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        utcNow,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := d.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpen)
	}
	if cfg.Database.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdle)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return d, nil
}

// NewSQLite opens a sqlite database with foreign keys enforced. Pass
// ":memory:" for a throwaway database.
func NewSQLite(path string) (*gorm.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; an in-memory database also lives per connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	d, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: utcNow,
	})
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return d, nil
}

func utcNow() time.Time { return time.Now().UTC() }

// RegisterOpenTelemetryPlugin adds query spans; call after the tracer provider is set.
func RegisterOpenTelemetryPlugin(d *gorm.DB) error {
	return d.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// Migrate creates or updates every table.
func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(model.All()...)
}

// DriverName reports the database/sql driver behind d, for wrapping the
// pool with sqlx.
func DriverName(d *gorm.DB) string {
	if d.Dialector.Name() == "sqlite" {
		return "sqlite"
	}
	return "pgx"
}
