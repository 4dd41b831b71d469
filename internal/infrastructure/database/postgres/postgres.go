package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/janhq/chat-api/internal/infrastructure/database/postgres/entities"
	"github.com/janhq/chat-api/internal/infrastructure/metrics"
)

const backendLabel = "postgres"

// Config controls GORM/PostgreSQL connectivity.
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the GORM handle shared by both repositories.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Connect opens the pool, creating the named database on first boot. SQL logging follows the
// level of log: statements at debug, slow queries and warnings otherwise.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	logger := log.With().Str("component", "postgres").Logger()

	created, err := ensureDatabaseExists(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}
	if created != "" {
		logger.Info().Str("database", created).Msg("created chat database")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		PrepareStmt:    true,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         gormlogger.Default.LogMode(gormLogLevel(log.GetLevel())),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Store{db: db, log: logger}, nil
}

func gormLogLevel(level zerolog.Level) gormlogger.LogLevel {
	switch {
	case level == zerolog.Disabled:
		return gormlogger.Silent
	case level <= zerolog.DebugLevel:
		return gormlogger.Info
	case level >= zerolog.ErrorLevel:
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// AutoMigrate applies the chat schema.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&entities.Chat{},
		&entities.UserChats{},
	); err != nil {
		return err
	}
	s.log.Info().Msg("database schema up to date")
	return nil
}

// Ping checks the pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Chats returns the chat repository.
func (s *Store) Chats() *ChatRepository {
	return &ChatRepository{store: s}
}

// Index returns the user chat index repository.
func (s *Store) Index() *IndexRepository {
	return &IndexRepository{store: s}
}

// ensureDatabaseExists connects to the maintenance database and creates the one named in dsn when it is
// missing. It returns the name of the database it created, if any. Key/value DSNs are left alone.
func ensureDatabaseExists(ctx context.Context, dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", nil
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" || name == "postgres" {
		return "", nil
	}

	admin := *u
	admin.Path = "/postgres"
	conn, err := sql.Open("postgres", admin.String())
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var exists bool
	if err := conn.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return "", err
	}
	return name, nil
}

func observe(operation string, start time.Time, err error) {
	metrics.RecordStoreOperation(backendLabel, operation, err, time.Since(start).Seconds())
}
