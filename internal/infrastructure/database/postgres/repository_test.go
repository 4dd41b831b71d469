package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/database/postgres/entities"
	"github.com/janhq/chat-api/internal/utils/idgen"
)

// dryRunDB renders SQL without a server; pgx does not dial until the first query.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 port=1 user=chat dbname=chat sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		NamingStrategy:       schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	return db
}

func TestAppendMessagesConcatenatesJSONB(t *testing.T) {
	db := dryRunDB(t)
	payload, err := entities.MarshalMessages([]domain.Message{domain.NewUserMessage("q", ""), domain.NewModelMessage("a")})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return appendMessages(tx, "65f1c0ffee0000000000abcd", "user_1", payload, time.Now().UTC())
	})

	assert.Contains(t, sql, `UPDATE "chats" SET`)
	assert.Contains(t, sql, `"history"=history ||`)
	assert.Contains(t, sql, `::jsonb`)
	assert.Contains(t, sql, `id = '65f1c0ffee0000000000abcd'`)
	assert.Contains(t, sql, `user_id = 'user_1'`)
}

func TestUpsertSummariesAppendsOnConflict(t *testing.T) {
	db := dryRunDB(t)
	chats, err := entities.MarshalSummaries([]domain.Summary{{ChatID: "65f1c0ffee0000000000abcd", Title: "t"}})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return upsertSummaries(tx, &entities.UserChats{UserID: "user_1", Chats: chats})
	})

	assert.Contains(t, sql, `INSERT INTO "user_chats"`)
	assert.Contains(t, sql, `ON CONFLICT ("user_id") DO UPDATE SET`)
	assert.Contains(t, sql, `user_chats.chats || EXCLUDED.chats`)
}

// newTestStore connects to DB_POSTGRESQL_WRITE_DSN and migrates the schema. Tests use unique user ids.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DB_POSTGRESQL_WRITE_DSN")
	if dsn == "" {
		t.Skip("DB_POSTGRESQL_WRITE_DSN not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, Config{DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(ctx))
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func testUser(t *testing.T, store *Store) string {
	t.Helper()
	userID := fmt.Sprintf("test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		store.db.Where("user_id = ?", userID).Delete(&entities.Chat{})
		store.db.Where("user_id = ?", userID).Delete(&entities.UserChats{})
	})
	return userID
}

func newTestChat(userID, seed string, createdAt time.Time) *domain.Chat {
	return &domain.Chat{
		ID:        idgen.NewChatID(),
		UserID:    userID,
		History:   []domain.Message{domain.NewUserMessage(seed, "")},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestChatRepositoryAppendAndOwnership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := testUser(t, store)
	chats := store.Chats()

	c := newTestChat(userID, "seed", time.Now().UTC())
	require.NoError(t, chats.Create(ctx, c))

	exchange := []domain.Message{domain.NewUserMessage("q", "/a.png"), domain.NewModelMessage("a")}
	res, err := chats.AppendMessages(ctx, c.ID, userID, exchange)
	require.NoError(t, err)
	assert.Equal(t, domain.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, res)

	res, err = chats.AppendMessages(ctx, c.ID, "someone_else", exchange)
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount)

	got, err := chats.FindByIDAndUser(ctx, c.ID, userID)
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, "/a.png", got.History[1].Img)

	_, err = chats.FindByIDAndUser(ctx, c.ID, "someone_else")
	require.Error(t, err)
}

func TestIndexRepositoryConcurrentFirstWritesShareOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := testUser(t, store)
	index := store.Index()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, index.AppendSummary(ctx, userID, domain.Summary{
				ChatID:    idgen.NewChatID(),
				Title:     fmt.Sprintf("chat %d", i),
				CreatedAt: time.Now().UTC(),
			}))
		}(i)
	}
	wg.Wait()

	summaries, err := index.ListSummaries(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, summaries, writers)

	empty, err := index.ListSummaries(ctx, userID+"_none")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestChatRepositoryFindOrphans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := testUser(t, store)
	chats := store.Chats()
	old := time.Now().UTC().Add(-time.Hour)

	indexed := newTestChat(userID, "indexed", old)
	orphan := newTestChat(userID, "orphaned seed", old)
	for _, c := range []*domain.Chat{indexed, orphan} {
		require.NoError(t, chats.Create(ctx, c))
	}
	require.NoError(t, store.Index().AppendSummary(ctx, userID, domain.Summary{ChatID: indexed.ID, Title: "indexed", CreatedAt: old}))

	orphans, err := chats.FindOrphans(ctx, time.Now().UTC().Add(-time.Minute), 0)
	require.NoError(t, err)

	var mine []domain.Orphan
	for _, o := range orphans {
		if o.UserID == userID {
			mine = append(mine, o)
		}
	}
	require.Len(t, mine, 1)
	assert.Equal(t, orphan.ID, mine[0].ChatID)
	assert.Equal(t, "orphaned seed", mine[0].SeedText)
}

func TestWithinTransactionRollsBackBothWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := testUser(t, store)
	c := newTestChat(userID, "seed", time.Now().UTC())

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Chats().Create(ctx, c))
		require.NoError(t, store.Index().AppendSummary(ctx, userID, domain.Summary{ChatID: c.ID, Title: "seed", CreatedAt: c.CreatedAt}))
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = store.Chats().FindByIDAndUser(ctx, c.ID, userID)
	assert.Error(t, err)
	summaries, err := store.Index().ListSummaries(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
