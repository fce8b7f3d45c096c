package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"degenecho/internal/config"
	"degenecho/internal/retry"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

func Open(cfg config.DBConfig) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("db dsn is empty")
	}
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

// OpenWithRetry opens and pings the database, backing off while postgres is
// still coming up.
func OpenWithRetry(ctx context.Context, cfg config.DBConfig, log *zap.Logger) (*DB, error) {
	rc := retry.DefaultConfig()
	if cfg.OpenRetries > 0 {
		rc.MaxAttempts = cfg.OpenRetries
	}
	if cfg.OpenRetryDelay > 0 {
		rc.InitialDelay = cfg.OpenRetryDelay
	}
	var out *DB
	err := retry.Do(ctx, rc, log, "db open", func() error {
		conn, err := Open(cfg)
		if err != nil {
			return err
		}
		if err := Ping(conn); err != nil {
			_ = Close(conn)
			return err
		}
		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

func SetTimezone(db *DB, tz string) error {
	if db == nil || db.SQL == nil || tz == "" {
		return nil
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + strings.ReplaceAll(tz, "'", "") + "'")
	return err
}
