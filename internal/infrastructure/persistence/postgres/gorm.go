package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schooldesk/schooldesk/config"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GORM SESSION
// ══════════════════════════════════════════════════════════════════════════════

// OpenGorm opens GORM over the connection's pool.
func OpenGorm(conn *Connection, cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn.DB()}), GormConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open gorm: %w", err)
	}
	return db, nil
}

// GormConfig builds the GORM settings shared by every dialect.
func GormConfig(cfg config.DatabaseConfig, log *logger.Logger) *gorm.Config {
	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         newGormLogger(log, level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTIONS
// Handlers never see *gorm.DB. They pass a ctx into ReadSnapshot/WithTx and
// every repository called with that ctx joins the open transaction.
// ══════════════════════════════════════════════════════════════════════════════

type txKey struct{}

// TxManager starts transactions and hands them to repositories via ctx.
type TxManager struct {
	db       *gorm.DB
	readOpts *sql.TxOptions
}

// NewTxManager creates a new TxManager. Snapshot reads use REPEATABLE READ
// on PostgreSQL; SQLite transactions are serializable already.
func NewTxManager(db *gorm.DB) *TxManager {
	m := &TxManager{db: db}
	if db.Dialector.Name() == "postgres" {
		m.readOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return m
}

// ReadSnapshot runs fn in one read-only transaction.
func (m *TxManager) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn, m.readOpts)
}

// WithTx runs fn in one read-write transaction.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn, nil)
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error, opts *sql.TxOptions) error {
	// Nested calls join the outer transaction.
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	var txOpts []*sql.TxOptions
	if opts != nil {
		txOpts = append(txOpts, opts)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}, txOpts...)
}

// conn returns the transaction bound to ctx, or db scoped to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// gormLogger forwards GORM's messages to the structured logger.
type gormLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, level gormlogger.LogLevel) *gormLogger {
	if log == nil {
		log = logger.Nop()
	}
	return &gormLogger{log: log.With(logger.Component("gorm")), level: level, slow: 200 * time.Millisecond}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !isNotFound(err):
		sqlText, rows := fc()
		l.log.Error("query failed", logger.String("sql", sqlText), logger.Int64("rows", rows),
			logger.Latency(elapsed), logger.Err(err))
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		sqlText, rows := fc()
		l.log.Warn("slow query", logger.String("sql", sqlText), logger.Int64("rows", rows), logger.Latency(elapsed))
	case l.level >= gormlogger.Info:
		sqlText, rows := fc()
		l.log.Debug("query", logger.String("sql", sqlText), logger.Int64("rows", rows), logger.Latency(elapsed))
	}
}
