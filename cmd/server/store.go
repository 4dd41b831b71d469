package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/database/mongodb"
	"github.com/janhq/chat-api/internal/infrastructure/database/postgres"
	"github.com/janhq/chat-api/internal/infrastructure/repository/inmemory"
	"github.com/janhq/chat-api/internal/infrastructure/repository/unavailable"
)

// Store bundles the repositories of the selected backend.
type Store struct {
	Chats   chat.ChatRepository
	Index   chat.IndexRepository
	Tx      chat.Transactor
	Backend string
	pinger  interface{ Ping(context.Context) error }
	closer  func(context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}

// provideStore opens the configured backend. A backend that cannot be opened is logged and replaced by a
// store whose every call fails, so the process keeps serving static assets and upload parameters.
func provideStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) *Store {
	switch cfg.DBBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory chat store; data is lost on restart")
		repo := inmemory.NewRepository()
		return &Store{Chats: repo, Index: repo, Backend: cfg.DBBackend, pinger: repo}

	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			DSN:             cfg.DBPostgresqlWriteDSN,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		}, log)
		if err != nil {
			return unavailableStore(cfg, log, err)
		}
		if err := db.AutoMigrate(ctx); err != nil {
			log.Error().Err(err).Msg("migrate database")
		}
		store := &Store{Chats: db.Chats(), Index: db.Index(), Backend: cfg.DBBackend, pinger: db, closer: db.Close}
		if cfg.DBTransactions {
			store.Tx = db
		}
		return store

	default:
		db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabaseName(),
			ConnectTimeout: cfg.StoreConnectTimeout,
		}, log)
		if err != nil {
			return unavailableStore(cfg, log, err)
		}
		store := &Store{Chats: db.Chats(), Index: db.Index(), Backend: cfg.DBBackend, pinger: db, closer: db.Close}
		if cfg.DBTransactions {
			store.Tx = db
		}
		return store
	}
}

func unavailableStore(cfg *config.Config, log zerolog.Logger, err error) *Store {
	log.Error().Err(err).Str("backend", cfg.DBBackend).Msg("chat store unavailable; chat routes will fail until restart")
	repo := unavailable.New(err)
	return &Store{Chats: repo, Index: repo, Backend: cfg.DBBackend, pinger: repo}
}
