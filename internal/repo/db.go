// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver, development and tests) and Postgres (Supabase in
// production), schema migrations, and the development copies of the
// reporting views.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/CachoMX/vhlabs/internal/config"
	"github.com/CachoMX/vhlabs/internal/domain"
)

// Options tune Open.
type Options struct {
	// Tracing attaches the GORM OpenTelemetry plugin.
	Tracing bool
	// LogLevel controls GORM's own SQL logger (silent by default).
	LogLevel logger.LogLevel
}

// Open connects to the configured driver and applies pool settings.
func Open(cfg config.DBConfig, opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = OpenPostgres(cfg.URL, opts)
	case config.DriverSQLite, "":
		db, err = OpenSQLite(cfg.Path, opts)
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		if cfg.MaxOpen > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpen)
		}
		if cfg.MaxIdle > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdle)
		}
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(opts))
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	return db, nil
}

// OpenPostgres connects to Postgres using pgx through GORM's driver.
func OpenPostgres(dsn string, opts Options) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), gormConfig(opts))
}

func gormConfig(opts Options) *gorm.Config {
	lvl := opts.LogLevel
	if lvl == 0 {
		lvl = logger.Silent
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(lvl),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// IsPostgres reports whether db talks to Postgres.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// Models lists every table owned by this service, in dependency order.
func Models() []any {
	return []any{
		&domain.Segment{},
		&domain.InvestorStatus{},
		&domain.Contact{},
		&domain.VoiceCall{},
		&domain.Content{},
		&domain.Hook{},
		&domain.Distribution{},
		&domain.Prompt{},
		&domain.AnalyticsEvent{},
		&domain.WorkflowLog{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// viewDDL holds SQLite definitions of the reporting views. On Postgres the
// views (and the get_distributions_by_channel function) are owned by the
// Supabase migrations and are never touched from here.
var viewDDL = []struct{ name, body string }{
	{"v_contact_overview", `
SELECT c.*, s.name AS segment_name, st.name AS investor_status_name
FROM contacts_sync c
LEFT JOIN segments s ON s.slug = c.segment
LEFT JOIN investor_statuses st ON st.slug = c.investor_status`},
	{"v_all_distributions", `
SELECT d.id AS id, 'distribution' AS source, d.content_id AS content_id,
       d.ghl_contact_id AS ghl_id, d.channel AS channel, d.message_type AS message_type,
       d.subject AS subject, d.status AS status, d.sent_at AS sent_at,
       d.response_received AS response_received, d.created_at AS created_at
FROM distributions d
UNION ALL
SELECT v.id, 'voice_call', NULL, v.ghl_id, 'voice', v.direction, '', v.status,
       v.created_at, FALSE, v.created_at
FROM voice_calls v`},
	{"v_distribution_performance", `
SELECT channel, COALESCE(message_type, '') AS message_type,
       COUNT(*) AS total_sent,
       SUM(CASE WHEN opened_at IS NOT NULL THEN 1 ELSE 0 END) AS opened,
       SUM(CASE WHEN clicked_at IS NOT NULL THEN 1 ELSE 0 END) AS clicked,
       SUM(CASE WHEN response_received THEN 1 ELSE 0 END) AS responded,
       ROUND(100.0 * SUM(CASE WHEN opened_at IS NOT NULL THEN 1 ELSE 0 END) / COUNT(*), 2) AS open_rate,
       ROUND(100.0 * SUM(CASE WHEN clicked_at IS NOT NULL THEN 1 ELSE 0 END) / COUNT(*), 2) AS click_rate,
       ROUND(100.0 * SUM(CASE WHEN response_received THEN 1 ELSE 0 END) / COUNT(*), 2) AS response_rate
FROM distributions
WHERE sent_at IS NOT NULL
GROUP BY channel, COALESCE(message_type, '')`},
}

// CreateViews (re)creates the reporting views on SQLite. It is a no-op on
// Postgres.
func CreateViews(db *gorm.DB) error {
	if IsPostgres(db) {
		return nil
	}
	for _, v := range viewDDL {
		if err := db.Exec("DROP VIEW IF EXISTS " + v.name).Error; err != nil {
			return err
		}
		if err := db.Exec("CREATE VIEW " + v.name + " AS " + v.body).Error; err != nil {
			return fmt.Errorf("create view %s: %w", v.name, err)
		}
	}
	return nil
}

// Migrate runs AutoMigrate followed by CreateViews.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	return CreateViews(db)
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// TableCounts counts the rows of every table in Models, in the same order.
func TableCounts(ctx context.Context, db *gorm.DB) ([]TableCount, error) {
	models := Models()
	out := make([]TableCount, 0, len(models))
	for _, m := range models {
		name := fmt.Sprintf("%T", m)
		if t, ok := m.(interface{ TableName() string }); ok {
			name = t.TableName()
		}
		var n int64
		if err := db.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out = append(out, TableCount{Table: name, Rows: n})
	}
	return out, nil
}
