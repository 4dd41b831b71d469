package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/janhq/chat-api/internal/infrastructure/metrics"
)

const (
	chatsCollection     = "chats"
	userChatsCollection = "userchats"
	backendLabel        = "mongo"
)

// Config controls MongoDB connectivity.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store owns the MongoDB client and the two collections the chat service writes to.
type Store struct {
	client    *mongo.Client
	chats     *mongo.Collection
	userChats *mongo.Collection
	indexes   *indexGate
	log       zerolog.Logger
}

// indexGate runs ensure until it succeeds once. Failed attempts are retried by the next caller.
type indexGate struct {
	mu     sync.Mutex
	done   bool
	ensure func(ctx context.Context) error
}

func (g *indexGate) Ensure(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	if err := g.ensure(ctx); err != nil {
		return err
	}
	g.done = true
	return nil
}

// Connect builds the client and pings the deployment. A failed ping is logged and the store is still
// returned: the driver keeps reconnecting in the background and individual operations fail until it does.
// Index creation is then deferred to the first successful Ping or index write.
// Only a malformed URI or invalid options return an error.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	logger := log.With().Str("component", "mongodb").Logger()

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	store := &Store{
		client:    client,
		chats:     db.Collection(chatsCollection),
		userChats: db.Collection(userChatsCollection),
		log:       logger,
	}
	store.indexes = &indexGate{ensure: store.EnsureIndexes}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		logger.Error().Err(err).Msg("mongodb unreachable at startup; serving anyway")
		return store, nil
	}

	if err := store.indexes.Ensure(ctx); err != nil {
		logger.Error().Err(err).Msg("ensure mongodb indexes")
	}
	logger.Info().Str("database", cfg.Database).Msg("Connected to MongoDB")
	return store, nil
}

// EnsureIndexes creates the unique per-user index key and the owner lookup index on chats.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.userChats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("userchats index: %w", err)
	}
	if _, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("chats index: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable and finishes index creation skipped at startup.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return err
	}
	if err := s.indexes.Ensure(ctx); err != nil {
		s.log.Error().Err(err).Msg("ensure mongodb indexes")
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// WithinTransaction runs fn in a multi-document transaction. Requires a replica set or sharded cluster.
// Repository calls made with the ctx passed to fn join the transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Chats returns the chat repository.
func (s *Store) Chats() *ChatRepository {
	return &ChatRepository{collection: s.chats, userChats: s.userChats}
}

// Index returns the user chat index repository.
func (s *Store) Index() *IndexRepository {
	return &IndexRepository{collection: s.userChats, ensureIndexes: s.indexes.Ensure, log: s.log}
}

func observe(operation string, start time.Time, err error) {
	metrics.RecordStoreOperation(backendLabel, operation, err, time.Since(start).Seconds())
}
