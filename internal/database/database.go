// Package database opens the snapshot store through GORM.
// It supports SQLite, PostgreSQL, and MySQL.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/miraview/internal/config"
	"github.com/jmylchreest/miraview/internal/database/migrations"
)

// DB wraps a GORM database connection.
type DB struct {
	*gorm.DB
	cfg    config.DatabaseConfig
	logger *slog.Logger
}

// New opens a database connection based on cfg.
func New(cfg config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	dialector, err := getDialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("getting dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 &slogGormLogger{logger: log, level: gormLogLevel(cfg.LogLevel)},
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if isMemorySQLite(cfg) {
		// Every connection to :memory: is a separate database.
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Debug("database opened",
		slog.String("driver", cfg.Driver),
		slog.Int("max_open_conns", maxOpen),
	)

	return &DB{DB: db, cfg: cfg, logger: log}, nil
}

func isMemorySQLite(cfg config.DatabaseConfig) bool {
	return cfg.Driver == "sqlite" && (strings.HasPrefix(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory"))
}

// getDialector returns the GORM dialector for the configured driver.
func getDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		// Pure Go driver; pragmas go through the DSN so every pooled
		// connection gets them.
		sep := "?"
		if strings.Contains(cfg.DSN, "?") {
			sep = "&"
		}
		dsn := cfg.DSN + sep +
			"_pragma=busy_timeout(10000)" +
			"&_pragma=journal_mode(WAL)" +
			"&_pragma=synchronous(NORMAL)" +
			"&_pragma=foreign_keys(ON)"
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	m := migrations.NewMigrator(db.DB, db.logger)
	m.RegisterAll(migrations.AllMigrations())
	return m.Up(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Driver returns the database driver name.
func (db *DB) Driver() string {
	return db.cfg.Driver
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// slowQueryThreshold is the duration above which queries are logged at warn.
const slowQueryThreshold = 500 * time.Millisecond

const maxSQLLogLength = 200

// slogGormLogger implements GORM's logger.Interface using slog.
type slogGormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
}

func (l *slogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &slogGormLogger{logger: l.logger, level: level}
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	isError := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	isSlow := elapsed > slowQueryThreshold

	// fc builds the interpolated SQL string, so only call it when logging.
	switch {
	case isError && l.level >= logger.Error:
		sql, rows := fc()
		l.logger.ErrorContext(ctx, "database error",
			slog.String("sql", truncateSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case isSlow && l.level >= logger.Warn:
		sql, rows := fc()
		l.logger.WarnContext(ctx, "slow query",
			slog.String("sql", truncateSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.level >= logger.Info && l.logger.Enabled(ctx, slog.LevelDebug):
		sql, rows := fc()
		l.logger.DebugContext(ctx, "database query",
			slog.String("sql", truncateSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLogLength {
		return sql
	}
	return sql[:maxSQLLogLength] + "... (truncated)"
}
