package session

import (
	"testing"

	"github.com/attoclaw/gateway/internal/observability"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, observability.NewNop())
	require.NoError(t, err)

	sess := store.GetOrCreate("cli:direct")
	sess.AppendUser("hello")
	sess.AppendAssistant("hi there", []string{"list_dir"})
	store.Save(sess)

	store.Invalidate("cli:direct")
	reloaded := store.GetOrCreate("cli:direct")

	require.Equal(t, sess.CreatedAt, reloaded.CreatedAt)
	require.Equal(t, sess.LastConsolidated, reloaded.LastConsolidated)
	require.Len(t, reloaded.Messages, 2)
	require.Equal(t, "hello", reloaded.Messages[0].Content)
	require.Equal(t, []string{"list_dir"}, reloaded.Messages[1].ToolsUsed)
}

func TestStore_UnseenKeyCreatesEmptySession(t *testing.T) {
	store, err := NewStore(t.TempDir(), observability.NewNop())
	require.NoError(t, err)

	sess := store.GetOrCreate("telegram:12345")
	require.Empty(t, sess.Messages)
	require.Equal(t, "telegram:12345", sess.Key)
}

func TestStore_SanitizesKeyForPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, observability.NewNop())
	require.NoError(t, err)

	sess := store.GetOrCreate("system:../../etc/passwd")
	sess.AppendUser("x")
	store.Save(sess)

	require.NotContains(t, store.path(sess.Key), "..")
}

func TestStore_ListKeysReturnsSortedSavedSessions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, observability.NewNop())
	require.NoError(t, err)

	for _, key := range []string{"cli:b", "cli:a"} {
		sess := store.GetOrCreate(key)
		sess.AppendUser("hi")
		store.Save(sess)
	}

	keys, err := store.ListKeys()
	require.NoError(t, err)
	require.Equal(t, []string{"cli_a", "cli_b"}, keys)
}

func TestStore_DeleteRemovesFileAndCache(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, observability.NewNop())
	require.NoError(t, err)

	sess := store.GetOrCreate("cli:direct")
	sess.AppendUser("hi")
	store.Save(sess)

	require.NoError(t, store.Delete("cli:direct"))

	keys, err := store.ListKeys()
	require.NoError(t, err)
	require.Empty(t, keys)

	reloaded := store.GetOrCreate("cli:direct")
	require.Empty(t, reloaded.Messages)
}

func TestConsolidate_PromotesAndAdvances(t *testing.T) {
	sess := NewSession("cli:direct")
	for i := 0; i < 10; i++ {
		sess.AppendUser("msg")
	}
	fake := &fakeLongTerm{}

	require.True(t, NeedsConsolidation(sess, 4))
	require.NoError(t, Consolidate(sess, fake, 4))

	require.Equal(t, 8, sess.LastConsolidated) // keep = 4/2 = 2, end = 10-2 = 8
	require.Len(t, fake.appended, 8)
}

func TestKeepCount_ClampsSmallWindow(t *testing.T) {
	require.Equal(t, 1, KeepCount(1, false))
	require.Equal(t, 0, KeepCount(1, true))
	require.Equal(t, 5, KeepCount(10, false))
}

type fakeLongTerm struct{ appended []Message }

func (f *fakeLongTerm) AppendHistory(_ string, messages []Message) error {
	f.appended = append(f.appended, messages...)
	return nil
}
