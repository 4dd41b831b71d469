package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/domain/upload"
	"github.com/janhq/chat-api/internal/infrastructure/auth"
	"github.com/janhq/chat-api/internal/infrastructure/repository/inmemory"
	"github.com/janhq/chat-api/internal/infrastructure/repository/unavailable"
)

var signingKey = []byte("router-test-key")

// spyRepository counts every store call on top of the in-memory store.
type spyRepository struct {
	*inmemory.Repository
	calls atomic.Int32
}

func (s *spyRepository) Create(ctx context.Context, c *chat.Chat) error {
	s.calls.Add(1)
	return s.Repository.Create(ctx, c)
}

func (s *spyRepository) FindByIDAndUser(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	s.calls.Add(1)
	return s.Repository.FindByIDAndUser(ctx, chatID, userID)
}

func (s *spyRepository) AppendMessages(ctx context.Context, chatID, userID string, messages []chat.Message) (chat.UpdateResult, error) {
	s.calls.Add(1)
	return s.Repository.AppendMessages(ctx, chatID, userID, messages)
}

func (s *spyRepository) AppendSummary(ctx context.Context, userID string, summary chat.Summary) error {
	s.calls.Add(1)
	return s.Repository.AppendSummary(ctx, userID, summary)
}

func (s *spyRepository) ListSummaries(ctx context.Context, userID string) ([]chat.Summary, error) {
	s.calls.Add(1)
	return s.Repository.ListSummaries(ctx, userID)
}

type stubIssuer struct {
	params upload.Params
	err    error
}

func (s stubIssuer) Issue(context.Context) (upload.Params, error) { return s.params, s.err }
func (s stubIssuer) Provider() string                           { return "stub" }

type fixture struct {
	handler http.Handler
	repo    *spyRepository
}

func newFixture(t *testing.T, issuer upload.Issuer) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	cfg := &config.Config{
		ServiceName:     "chat-api",
		ClientURL:       "http://localhost:5173",
		StaticDir:       staticDir,
		AuthEnabled:     true,
		ShutdownTimeout: time.Second,
	}
	log := zerolog.Nop()
	validator := auth.NewValidatorWithKeyfunc(cfg, log, func(*jwt.Token) (interface{}, error) { return signingKey, nil }, "HS256")

	repo := &spyRepository{Repository: inmemory.NewRepository()}
	chatService := chat.NewService(repo, repo, nil, log)
	if issuer == nil {
		issuer = stubIssuer{params: upload.Params{"token": "t", "expire": 1, "signature": "s"}}
	}
	server := New(cfg, log, chatService, upload.NewService(issuer, log), validator, repo)
	return &fixture{handler: server.Handler(), repo: repo}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

func (f *fixture) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) createChat(t *testing.T, userID, text string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/chats", userID, `{"text":"`+text+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var id string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &id))
	return id
}

func TestUnauthenticatedRequestsNeverReachTheStore(t *testing.T) {
	f := newFixture(t, nil)

	requests := []struct{ method, path, body string }{
		{http.MethodPost, "/api/chats", `{"text":"hi"}`},
		{http.MethodGet, "/api/userchats", ""},
		{http.MethodGet, "/api/chats/65f1c0ffee0000000000abcd", ""},
		{http.MethodPut, "/api/chats/65f1c0ffee0000000000abcd", `{"question":"q","answer":"a"}`},
	}
	for _, r := range requests {
		w := f.do(t, r.method, r.path, "", r.body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, r.method+" "+r.path)
		assert.Equal(t, "Unauthenticated!", w.Body.String())
	}
	assert.Equal(t, int32(0), f.repo.calls.Load())
}

func TestChatLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	id := f.createChat(t, "alice", "Hello")

	w := f.do(t, http.MethodGet, "/api/userchats", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []chat.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ChatID)
	assert.Equal(t, "Hello", summaries[0].Title)

	w = f.do(t, http.MethodPut, "/api/chats/"+id, "alice", `{"question":"What is 2+2?","answer":"4","img":"https://cdn/x.png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"matchedCount":1,"modifiedCount":1}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/chats/"+id, "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got chat.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, []chat.Message{
		{Role: chat.RoleUser, Parts: []chat.Part{{Text: "Hello"}}},
		{Role: chat.RoleUser, Parts: []chat.Part{{Text: "What is 2+2?"}}, Img: "https://cdn/x.png"},
		{Role: chat.RoleModel, Parts: []chat.Part{{Text: "4"}}},
	}, got.History)
}

func TestEmptyIndexIsEmptyArray(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/userchats", "nobody", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestChatErrors(t *testing.T) {
	f := newFixture(t, nil)
	id := f.createChat(t, "alice", "mine")

	tests := []struct {
		name     string
		method   string
		path     string
		user     string
		body     string
		wantCode int
		wantBody string
	}{
		{"empty text", http.MethodPost, "/api/chats", "alice", `{"text":""}`, http.StatusBadRequest, "No text provided!"},
		{"missing text", http.MethodPost, "/api/chats", "alice", `{}`, http.StatusBadRequest, "No text provided!"},
		{"invalid json", http.MethodPost, "/api/chats", "alice", `{`, http.StatusBadRequest, "No text provided!"},
		{"missing answer", http.MethodPut, "/api/chats/" + id, "alice", `{"question":"q"}`, http.StatusBadRequest, "Question and answer are required!"},
		{"foreign chat", http.MethodGet, "/api/chats/" + id, "bob", "", http.StatusNotFound, "Chat not found!"},
		{"foreign append", http.MethodPut, "/api/chats/" + id, "bob", `{"question":"q","answer":"a"}`, http.StatusNotFound, "Chat not found!"},
		{"malformed id", http.MethodGet, "/api/chats/not-an-id", "alice", "", http.StatusNotFound, "Chat not found!"},
		{"unknown chat", http.MethodPut, "/api/chats/65f1c0ffee0000000000abcd", "alice", `{"question":"q","answer":"a"}`, http.StatusNotFound, "Chat not found!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}

	w := f.do(t, http.MethodGet, "/api/chats/"+id, "alice", "")
	var got chat.Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.History, 1, "rejected appends leave history untouched")
}

func TestStoreFailureIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{AuthEnabled: false, StaticDir: t.TempDir(), ShutdownTimeout: time.Second}
	log := zerolog.Nop()
	validator, err := auth.NewValidator(context.Background(), cfg, log)
	require.NoError(t, err)

	repo := unavailable.New(errors.New("connection refused"))
	server := New(cfg, log, chat.NewService(repo, repo, nil, log), upload.NewService(stubIssuer{}, log), validator, repo)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(auth.DevUserHeader, "dev")
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/chats", `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error creating chat!", w.Body.String())

	w = do(http.MethodGet, "/api/userchats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(http.MethodGet, "/api/chats/65f1c0ffee0000000000abcd", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error fetching chat!", w.Body.String())

	w = do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUploadParams(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/upload", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"t","expire":1,"signature":"s"}`, w.Body.String())

	failing := newFixture(t, stubIssuer{err: errors.New("cdn down")})
	w = failing.do(t, http.MethodGet, "/api/upload", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error issuing upload parameters!", w.Body.String())
}

func TestStaticFallback(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/chats/65f1c0ffee0000000000abcd", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>spa</html>", w.Body.String())

	w = f.do(t, http.MethodGet, "/assets/app.js", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = f.do(t, http.MethodGet, "/api/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/health/auth", "/metrics"} {
		w := f.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
