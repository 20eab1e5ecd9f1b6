package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeone/internal/apperr"
	"lifeone/internal/blueprint"
	"lifeone/internal/coach"
	"lifeone/internal/database/testutil"
	"lifeone/internal/food"
	"lifeone/internal/workout"
)

func setupSend(t *testing.T) (context.Context, *sql.DB, string) {
	t.Helper()
	testdb := testutil.NewTestDB(t)
	Init(testdb, blueprint.NewStore(blueprint.KindProgram, t.TempDir()))
	coach.Init(testdb)
	food.Init(testdb)
	workout.Init(testdb)
	t.Setenv("OPENROUTER_API_KEY", "fallback-key")
	return context.Background(), testdb, testutil.NewProfile(t, testdb, "alex")
}

func withUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	old := completionURL
	completionURL = srv.URL
	t.Cleanup(func() {
		completionURL = old
		srv.Close()
	})
	return srv
}

func messageCount(t *testing.T, testdb *sql.DB, profileID string) int {
	t.Helper()
	var n int
	require.NoError(t, testdb.QueryRow(
		`SELECT COUNT(*) FROM chat_messages WHERE profile_id = ?`, profileID).Scan(&n))
	return n
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	ctx, testdb, profileID := setupSend(t)
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for empty messages")
	})

	_, err := SendMessage(ctx, profileID, "   ")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	assert.Zero(t, messageCount(t, testdb, profileID))
}

func TestSendMessagePersistsExchange(t *testing.T) {
	ctx, testdb, profileID := setupSend(t)

	var captured completionRequest
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fallback-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Squat more."}}]}`))
	})

	reply, err := SendMessage(ctx, profileID, "How do I progress my squat?")
	require.NoError(t, err)
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, "Squat more.", reply.Content)
	assert.NotEmpty(t, reply.ID)

	assert.Equal(t, "openai/gpt-4o", captured.Model)
	assert.InDelta(t, 0.7, captured.Temperature, 0.0001)
	require.NotEmpty(t, captured.Messages)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[len(captured.Messages)-1].Role)
	assert.Equal(t, "How do I progress my squat?", captured.Messages[len(captured.Messages)-1].Content)

	assert.Equal(t, 2, messageCount(t, testdb, profileID))
}

func TestSendMessageReplaysHistoryOldestFirst(t *testing.T) {
	ctx, _, profileID := setupSend(t)

	_, err := saveExchange(ctx, profileID, "first question", "first answer")
	require.NoError(t, err)

	var captured completionRequest
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err = SendMessage(ctx, profileID, "second question")
	require.NoError(t, err)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "first question", captured.Messages[1].Content)
	assert.Equal(t, "first answer", captured.Messages[2].Content)
	assert.Equal(t, "second question", captured.Messages[3].Content)
}

func TestSendMessageUsesProfileSettings(t *testing.T) {
	ctx, _, profileID := setupSend(t)

	key := "profile-key"
	model := "anthropic/claude-sonnet"
	temp := 5.0 // stored clamped to 2
	maxTokens := 512
	_, err := PutSettings(ctx, profileID, SettingsPatch{
		APIKey: &key, APIKeySet: true,
		Model: &model, ModelSet: true,
		Temperature: &temp,
		MaxTokens:   &maxTokens, MaxTokSet: true,
	})
	require.NoError(t, err)

	var captured completionRequest
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer profile-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err = SendMessage(ctx, profileID, "hello")
	require.NoError(t, err)
	assert.Equal(t, model, captured.Model)
	assert.InDelta(t, 2.0, captured.Temperature, 0.0001)
	require.NotNil(t, captured.MaxTokens)
	assert.Equal(t, 512, *captured.MaxTokens)
}

func TestSendMessageCredentialRejected(t *testing.T) {
	ctx, testdb, profileID := setupSend(t)
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid key","code":401}}`))
	})

	_, err := SendMessage(ctx, profileID, "hello")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
	assert.Contains(t, err.Error(), "rejected the API key")
	assert.Contains(t, err.Error(), "openrouter.ai/keys")
	assert.Contains(t, err.Error(), "profile is not affected")
	assert.Zero(t, messageCount(t, testdb, profileID))
}

func TestSendMessageUserNotFoundBodyRejected(t *testing.T) {
	ctx, _, profileID := setupSend(t)
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"User not found."}}`))
	})

	_, err := SendMessage(ctx, profileID, "hello")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
	assert.Contains(t, err.Error(), "rejected the API key")
}

func TestSendMessageGenericUpstreamFailure(t *testing.T) {
	ctx, testdb, profileID := setupSend(t)
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})

	_, err := SendMessage(ctx, profileID, "hello")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
	assert.Contains(t, err.Error(), "overloaded")
	assert.Zero(t, messageCount(t, testdb, profileID))
}

func TestSendMessageEmptyChoices(t *testing.T) {
	ctx, _, profileID := setupSend(t)
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := SendMessage(ctx, profileID, "hello")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
}

func TestSendMessageWithoutAnyKey(t *testing.T) {
	ctx, _, profileID := setupSend(t)
	t.Setenv("OPENROUTER_API_KEY", "")
	withUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called without a key")
	})

	_, err := SendMessage(ctx, profileID, "hello")
	require.True(t, apperr.IsKind(err, apperr.Upstream))
	assert.Contains(t, err.Error(), "No API key configured")
}

func TestHistoryLimit(t *testing.T) {
	ctx, _, profileID := setupSend(t)

	for i := 0; i < 3; i++ {
		_, err := saveExchange(ctx, profileID, "q", "a")
		require.NoError(t, err)
	}

	messages, err := History(ctx, profileID, 4)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	// The most recent four, oldest first: q a q a.
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "user", messages[2].Role)
	assert.Equal(t, "assistant", messages[3].Role)
}

func TestAISettingsMaskKey(t *testing.T) {
	ctx, _, profileID := setupSend(t)

	s, err := GetSettings(ctx, profileID)
	require.NoError(t, err)
	assert.False(t, s.HasAPIKey)

	key := "secret"
	s, err = PutSettings(ctx, profileID, SettingsPatch{APIKey: &key, APIKeySet: true})
	require.NoError(t, err)
	assert.True(t, s.HasAPIKey)

	// Clearing with an explicit null.
	s, err = PutSettings(ctx, profileID, SettingsPatch{APIKeySet: true})
	require.NoError(t, err)
	assert.False(t, s.HasAPIKey)

	// Absent field leaves the key untouched.
	s, err = PutSettings(ctx, profileID, SettingsPatch{APIKey: &key, APIKeySet: true})
	require.NoError(t, err)
	model := "openai/gpt-4o-mini"
	s, err = PutSettings(ctx, profileID, SettingsPatch{Model: &model, ModelSet: true})
	require.NoError(t, err)
	assert.True(t, s.HasAPIKey)
	require.NotNil(t, s.Model)
	assert.Equal(t, model, *s.Model)
}
