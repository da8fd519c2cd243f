package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jbonatakis/reshai/internal/conversation"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	clock := &stepClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first, err := store.CreateSession(ctx, Session{ModelID: "gpt"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, conversation.DefaultTitle, first.Title)

	second, err := store.CreateSession(ctx, Session{ID: "s2", Title: "Disk usage"})
	require.NoError(t, err)

	require.NoError(t, store.RenameSession(ctx, first.ID, "Renamed"))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, first.ID, sessions[0].ID, "rename bumps updated_at")
	require.Equal(t, "Renamed", sessions[0].Title)
	require.Equal(t, "gpt", sessions[0].ModelID)

	require.NoError(t, store.LinkTerminal(ctx, second.ID, "term-7"))
	got, err := store.GetSession(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "term-7", got.TerminalSessionID)

	require.NoError(t, store.DeleteSession(ctx, second.ID))
	_, err = store.GetSession(ctx, second.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, store.DeleteSession(ctx, second.ID), ErrSessionNotFound)
	require.ErrorIs(t, store.RenameSession(ctx, "missing", "x"), ErrSessionNotFound)
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	session, err := store.CreateSession(ctx, Session{})
	require.NoError(t, err)

	inputs := []conversation.Message{
		conversation.User("list files"),
		{
			Role:      conversation.RoleAssistant,
			Reasoning: "use ls",
			ToolCalls: []conversation.ToolCall{{ID: "c1", Type: "function", Name: "run_in_terminal", Arguments: `{"command":"ls"}`}},
			ModelID:   "gpt",
		},
		conversation.ToolResult("c1", "a.txt"),
		conversation.Assistant("There is a.txt"),
	}
	for _, msg := range inputs {
		_, err := store.Append(ctx, session.ID, msg)
		require.NoError(t, err)
	}

	loaded, err := store.Load(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	for i, msg := range loaded {
		require.NotEmpty(t, msg.ID)
		require.False(t, msg.CreatedAt.IsZero())
		require.Equal(t, inputs[i].Role, msg.Role)
		require.Equal(t, inputs[i].Content, msg.Content)
		require.Equal(t, inputs[i].ToolCalls, msg.ToolCalls)
	}
	require.Equal(t, "use ls", loaded[1].Reasoning)
	require.Equal(t, "gpt", loaded[1].ModelID)
	require.Equal(t, "c1", loaded[2].ToolCallID)

	recent, err := store.Load(ctx, session.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, conversation.RoleTool, recent[0].Role)
	require.Equal(t, "There is a.txt", recent[1].Content)
}

func TestAppendToUnknownSessionFails(t *testing.T) {
	store := openStore(t)

	_, err := store.Append(context.Background(), "nope", conversation.User("hi"))

	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadOrdersBySameTimestampInsertion(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	session, err := store.CreateSession(ctx, Session{})
	require.NoError(t, err)

	for _, text := range []string{"a", "b", "c"} {
		_, err := store.Append(ctx, session.ID, conversation.User(text))
		require.NoError(t, err)
	}

	loaded, err := store.Load(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Equal(t, "a", loaded[0].Content)
	require.Equal(t, "c", loaded[2].Content)
}

func TestTruncateAfterLastUser(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	session, err := store.CreateSession(ctx, Session{})
	require.NoError(t, err)

	for _, msg := range []conversation.Message{
		conversation.User("one"),
		conversation.Assistant("first answer"),
		conversation.User("two"),
		{Role: conversation.RoleAssistant, ToolCalls: []conversation.ToolCall{{ID: "c", Type: "function", Name: "get_terminal_output", Arguments: "{}"}}},
		conversation.ToolResult("c", "out"),
		conversation.Assistant("second answer"),
	} {
		_, err := store.Append(ctx, session.ID, msg)
		require.NoError(t, err)
	}

	removed, err := store.TruncateAfterLastUser(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	loaded, err := store.Load(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	require.Equal(t, "two", loaded[2].Content)
}

func TestRewriteReplacesLog(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	session, err := store.CreateSession(ctx, Session{})
	require.NoError(t, err)

	for _, text := range []string{"Hello", " World"} {
		_, err := store.Append(ctx, session.ID, conversation.User(text))
		require.NoError(t, err)
	}
	loaded, err := store.Load(ctx, session.ID, 0)
	require.NoError(t, err)

	repaired, report := conversation.Repair(loaded)
	require.True(t, report.Changed())
	require.NoError(t, store.Rewrite(ctx, session.ID, repaired))

	after, err := store.Load(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	require.Equal(t, "Hello World", after[0].Content)
	require.Equal(t, loaded[0].ID, after[0].ID)

	require.ErrorIs(t, store.Rewrite(ctx, "missing", nil), ErrSessionNotFound)
}
