package conversation_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/logging"
	"github.com/varsilias/webhook-chat/internal/storage"
	"github.com/varsilias/webhook-chat/pkg/types"
)

const key = "history"

func open(t *testing.T, slot storage.Slot, opts ...conversation.Option) *conversation.Store {
	t.Helper()
	opts = append([]conversation.Option{conversation.WithLogger(logging.Discard())}, opts...)
	return conversation.Open(context.Background(), slot, key, opts...)
}

func msg(sender types.Sender, text string) types.Message {
	return types.NewMessage(sender, text, time.Now())
}

func TestAppend_PersistsFullSequence(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := open(t, slot)

	require.True(t, s.Append(msg(types.SenderUser, "I have a headache")))
	require.True(t, s.Append(msg(types.SenderBot, "Take two tablets.")))

	raw, err := slot.Get(context.Background(), key)
	require.NoError(t, err)
	var persisted []types.Message
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, s.All(), persisted)
}

func TestAppend_RejectsOutOfBounds(t *testing.T) {
	s := open(t, storage.NewMemorySlot())
	require.True(t, s.Append(msg(types.SenderUser, "hello")))

	assert.False(t, s.Append(msg(types.SenderUser, "")))
	assert.False(t, s.Append(msg(types.SenderUser, "   \n\t")))
	assert.False(t, s.Append(msg(types.SenderUser, strings.Repeat("x", 1001))))
	assert.Equal(t, 1, s.Len())
}

func TestAppend_StoresTrimmedText(t *testing.T) {
	s := open(t, storage.NewMemorySlot())
	require.True(t, s.Append(types.Message{Sender: types.SenderUser, Text: "  hi  ", Timestamp: time.Now()}))
	assert.Equal(t, "hi", s.All()[0].Text)
}

func TestRoundTrip_ReopenSeesSameHistory(t *testing.T) {
	slot, err := storage.NewFileSlot(t.TempDir())
	require.NoError(t, err)

	first := open(t, slot)
	first.Append(msg(types.SenderUser, "one"))
	first.Append(msg(types.SenderBot, "two"))
	first.Append(msg(types.SenderSystem, "three"))

	second := open(t, slot)
	assert.Equal(t, first.All(), second.All())
}

func TestRecent(t *testing.T) {
	s := open(t, storage.NewMemorySlot())
	for _, text := range []string{"a", "b", "c"} {
		s.Append(msg(types.SenderUser, text))
	}

	got := s.Recent(5)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "c", got[2].Text)

	got = s.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Text)

	assert.Empty(t, s.Recent(0))
	assert.Empty(t, s.Recent(-1))
}

func TestAll_IsSnapshot(t *testing.T) {
	s := open(t, storage.NewMemorySlot())
	s.Append(msg(types.SenderUser, "original"))

	snap := s.All()
	snap[0].Text = "mutated"
	assert.Equal(t, "original", s.All()[0].Text)
}

func TestClear_Idempotent(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := open(t, slot)
	s.Append(msg(types.SenderUser, "bye"))

	s.Clear()
	assert.Empty(t, s.All())
	s.Clear()
	assert.Empty(t, s.All())

	raw, err := slot.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestOpen_CorruptSlotStartsEmpty(t *testing.T) {
	slot := storage.NewMemorySlot()
	require.NoError(t, slot.Set(context.Background(), key, []byte("{oops")))

	s := open(t, slot)
	assert.Equal(t, 0, s.Len())

	// still usable afterwards
	assert.True(t, s.Append(msg(types.SenderUser, "fresh start")))
	assert.Equal(t, 1, s.Len())
}

func TestWithMaxMessages_DropsOldest(t *testing.T) {
	s := open(t, storage.NewMemorySlot(), conversation.WithMaxMessages(2))
	for _, text := range []string{"a", "b", "c"} {
		s.Append(msg(types.SenderUser, text))
	}
	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Text)
	assert.Equal(t, "c", all[1].Text)
}

func TestAppend_RejectsUnknownSender(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := open(t, slot)

	assert.False(t, s.Append(msg(types.Sender("assistant"), "hello")))
	assert.False(t, s.Append(msg(types.Sender(""), "hello")))
	assert.Equal(t, 0, s.Len())

	_, err := slot.Get(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPurge_RemovesKey(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := open(t, slot)
	require.True(t, s.Append(msg(types.SenderUser, "hello")))

	require.NoError(t, s.Purge(context.Background()))
	assert.Equal(t, 0, s.Len())
	_, err := slot.Get(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// purging an absent key is fine
	require.NoError(t, s.Purge(context.Background()))
}
