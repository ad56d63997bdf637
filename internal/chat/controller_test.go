package chat_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/internal/logging"
	"github.com/varsilias/webhook-chat/internal/storage"
	"github.com/varsilias/webhook-chat/pkg/types"
)

type stubExchanger struct {
	mu      sync.Mutex
	result  exchange.Result
	selfRes exchange.Result
	seen    []string
	release chan struct{}
	entered chan struct{}
}

func (s *stubExchanger) Exchange(_ context.Context, text string) exchange.Result {
	s.mu.Lock()
	s.seen = append(s.seen, text)
	s.mu.Unlock()
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return s.result
}

func (s *stubExchanger) SelfTest(context.Context) exchange.Result { return s.selfRes }

func setup(t *testing.T, ex chat.Exchanger) (*chat.Controller, *conversation.Store) {
	t.Helper()
	store := conversation.Open(context.Background(), storage.NewMemorySlot(), "history",
		conversation.WithLogger(logging.Discard()))
	return chat.NewController(logging.Discard(), ex, store), store
}

func TestSend_SuccessAppendsUserThenBot(t *testing.T) {
	ex := &stubExchanger{result: exchange.Success{Text: "Take two tablets."}}
	ctrl, store := setup(t, ex)

	turn, err := ctrl.Send(context.Background(), "  I have a headache ")
	require.NoError(t, err)
	require.NotNil(t, turn.Reply)
	assert.Equal(t, "Take two tablets.", turn.Reply.Text)
	assert.Equal(t, []string{"I have a headache"}, ex.seen)

	all := store.All()
	require.Len(t, all, 2)
	assert.Equal(t, types.SenderUser, all[0].Sender)
	assert.Equal(t, "I have a headache", all[0].Text)
	assert.Equal(t, types.SenderBot, all[1].Sender)
}

func TestSend_FailureKeepsOnlyUserMessage(t *testing.T) {
	fail := exchange.HTTPFailure{Status: 500, StatusText: "Internal Server Error", RawBody: "Internal error"}
	ctrl, store := setup(t, &stubExchanger{result: fail})

	turn, err := ctrl.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Nil(t, turn.Reply)
	assert.Equal(t, fail, turn.Result)
	assert.Equal(t, 1, store.Len())
}

func TestSend_EmptyReplyUsesFallback(t *testing.T) {
	ctrl, store := setup(t, &stubExchanger{result: exchange.Success{}})

	turn, err := ctrl.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, turn.Reply)
	assert.Equal(t, chat.EmptyReplyFallback, turn.Reply.Text)
	assert.Equal(t, 2, store.Len())
}

func TestSend_InvalidInputIsNoOp(t *testing.T) {
	ex := &stubExchanger{result: exchange.Success{Text: "x"}}
	ctrl, store := setup(t, ex)

	for _, in := range []string{"", "   ", strings.Repeat("a", 1001)} {
		_, err := ctrl.Send(context.Background(), in)
		assert.ErrorIs(t, err, chat.ErrInvalidInput)
	}
	assert.Empty(t, ex.seen)
	assert.Equal(t, 0, store.Len())
}

func TestSend_RejectsWhileBusy(t *testing.T) {
	ex := &stubExchanger{
		result:  exchange.Success{Text: "done"},
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	ctrl, store := setup(t, ex)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), "first")
		done <- err
	}()

	select {
	case <-ex.entered:
	case <-time.After(time.Second):
		t.Fatal("first exchange never started")
	}
	assert.True(t, ctrl.Busy())

	_, err := ctrl.Send(context.Background(), "second")
	assert.ErrorIs(t, err, chat.ErrBusy)

	close(ex.release)
	require.NoError(t, <-done)
	assert.False(t, ctrl.Busy())
	assert.Equal(t, 2, store.Len())
}

func TestCheckConnectivity_RecordsSystemMessage(t *testing.T) {
	ctrl, store := setup(t, &stubExchanger{selfRes: exchange.NetworkFailure{Reason: "connection refused"}})

	res, err := ctrl.CheckConnectivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exchange.KindNetworkFailure, res.Kind())

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, types.SenderSystem, all[0].Sender)
	assert.Contains(t, all[0].Text, "connection refused")
}

func TestClear(t *testing.T) {
	ctrl, _ := setup(t, chat.EchoExchanger{})
	_, err := ctrl.Send(context.Background(), "ping")
	require.NoError(t, err)
	require.Len(t, ctrl.History(), 2)

	ctrl.Clear()
	assert.Empty(t, ctrl.History())
}

func TestCheckConnectivity_RejectsWhileBusy(t *testing.T) {
	ex := &stubExchanger{
		result:  exchange.Success{Text: "done"},
		selfRes: exchange.Success{Text: "ok"},
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	ctrl, store := setup(t, ex)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Send(context.Background(), "first")
		done <- err
	}()
	<-ex.entered

	res, err := ctrl.CheckConnectivity(context.Background())
	assert.ErrorIs(t, err, chat.ErrBusy)
	assert.Nil(t, res)

	close(ex.release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, store.Len())

	_, err = ctrl.CheckConnectivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestCheckConnectivity_EchoReportsNoWebhook(t *testing.T) {
	ctrl, store := setup(t, chat.EchoExchanger{})

	res, err := ctrl.CheckConnectivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exchange.KindNetworkFailure, res.Kind())

	all := store.All()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Text, "Webhook connection failed.")
	assert.Contains(t, all[0].Text, chat.ErrNoWebhook.Error())
	assert.NotContains(t, all[0].Text, "established successfully")
}
