// Package database 提供排班库的连接与访问封装
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paiche/paiche/internal/config"
	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// slowQueryThreshold 超过该耗时的SQL记入慢查询日志
// 排班查询都是小表单周范围扫描，正常远低于此阈值
const slowQueryThreshold = 100 * time.Millisecond

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 创建新的数据库连接
//
// 连接池参数取自配置；启动时即 Ping，排班服务没有数据库
// 也能以纯内存模式运行，但一旦启用就要求启动时可达。
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("component", "database").
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("排班库连接成功")

	return &DB{DB: db, cfg: cfg}, nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Str("component", "database").Msg("关闭排班库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// StartPoolReporter 周期性上报连接池指标
//
// ctx 取消后停止。指标未启用时 Record 为空操作，不必判断。
func (db *DB) StartPoolReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := db.DB.Stats()
				metrics.RecordDBConnections(s.OpenConnections, s.Idle, s.InUse)
			}
		}
	}()
}

// Transaction 执行事务
//
// 排班落库（rosters + roster_assignments 两表写入）走这里，
// 保证半成品周排班不会出现在库里。
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	return nil
}

// Stats 返回数据库统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext 执行SQL语句，耗时超阈值记慢查询日志
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return result, err
}

// QueryContext 执行查询，耗时超阈值记慢查询日志
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	logSlow(query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// logSlow 记录慢SQL
func logSlow(query string, duration time.Duration) {
	if duration <= slowQueryThreshold {
		return
	}
	logger.Warn().
		Str("component", "database").
		Str("query", truncateQuery(query)).
		Dur("duration", duration).
		Msg("慢SQL查询")
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
