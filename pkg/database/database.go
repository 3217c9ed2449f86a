// Package database owns the relational connection. Instead of the
// process-wide lazy singleton of earlier revisions, a Gateway is
// constructed once at startup and injected into repositories; the pool
// underneath hands connections out per statement and reclaims them on
// every exit path.
package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dimria/internal/errs"
	"dimria/internal/models"
)

// Config selects the engine family and pool sizing.
type Config struct {
	// Driver is "sqlite" (embedded) or "postgres".
	Driver string
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Gateway wraps the pooled GORM handle. All statements issued through it
// are parameterized; only identifiers outside user control appear in query
// text.
type Gateway struct {
	db     *gorm.DB
	driver string
}

// New connects to the configured engine and returns a ready Gateway.
// On the embedded engine the schema is provisioned if absent (users first,
// properties second so the owner reference can be created with
// ON DELETE SET NULL). Postgres schemas are managed externally.
func New(cfg Config) (*Gateway, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "dimria.sqlite"
		}
		db, err = gorm.Open(sqlite.Open(sqliteDSN(dsn)), gormCfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, errs.Persistence("connect", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Persistence("connect", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	gw := &Gateway{db: db, driver: cfg.Driver}
	if gw.driver == "" {
		gw.driver = "sqlite"
	}

	if gw.driver == "sqlite" {
		if err := db.AutoMigrate(&models.User{}, &models.Property{}); err != nil {
			return nil, errs.Persistence("migrate", err)
		}
	}

	return gw, nil
}

// sqliteDSN appends the foreign-key pragma to the connection string.
// SQLite leaves referential enforcement off per connection unless asked,
// which would turn the owner reference's ON DELETE SET NULL into a no-op;
// carrying the pragma in the DSN applies it to every pooled connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// DB exposes the pooled handle for repository construction.
func (g *Gateway) DB() *gorm.DB {
	return g.db
}

// Execute runs a parameterized statement and returns the affected row
// count. Driver errors come back wrapped as persistence errors.
func (g *Gateway) Execute(sql string, params ...any) (int64, error) {
	res := g.db.Exec(sql, params...)
	if res.Error != nil {
		return 0, errs.Persistence("execute", res.Error)
	}
	return res.RowsAffected, nil
}

// LastInsertID returns the id assigned by the most recent insert on this
// session. Repositories normally read ids straight from the echoed model;
// this exists for raw-statement callers.
func (g *Gateway) LastInsertID() (int64, error) {
	var id int64
	query := "SELECT last_insert_rowid()"
	if g.driver == "postgres" {
		query = "SELECT lastval()"
	}
	if err := g.db.Raw(query).Scan(&id).Error; err != nil {
		return 0, errs.Persistence("last insert id", err)
	}
	return id, nil
}

// Close releases the pool. Primarily a test seam: a subsequent New
// establishes a fresh pool.
func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return errs.Persistence("close", err)
	}
	if err := sqlDB.Close(); err != nil {
		return errs.Persistence("close", err)
	}
	return nil
}
