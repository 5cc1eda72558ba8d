package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"arena-breakout-backend/pkg/database/migrations"

	"github.com/lib/pq"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

var postgresDialect = dialect{
	name:              "postgres",
	numbered:          true,
	migrations:        migrations.Postgres,
	migrationRoot:     "postgres",
	isUniqueViolation: isPostgresUniqueViolation,
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*SQLDatabase, error) {
	// 尝试多种连接策略来解决Vercel Lambda的网络问题
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		dsn,
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			slog.Warn("postgres open failed", "strategy", i+1, "error", err)
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = db.PingContext(ctx)
		if err != nil {
			cancel()
			slog.Warn("postgres ping failed", "strategy", i+1, "error", err)
			_ = db.Close()
			lastErr = err
			continue
		}

		store, err := newSQLDatabase(ctx, db, postgresDialect)
		cancel()
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("postgres connection established", "strategy", i+1)
		return store, nil
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL with all strategies: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value DSNs take space separated params
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}
