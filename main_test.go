package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/config"
	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/internal/logging"
	"github.com/varsilias/webhook-chat/internal/storage"
)

func newTestStore() *conversation.Store {
	return conversation.Open(context.Background(), storage.NewMemorySlot(), "history", conversation.WithLogger(logging.Discard()))
}

func TestREPL_EchoRoundTrip(t *testing.T) {
	store := newTestStore()
	c := chat.NewController(logging.Discard(), chat.EchoExchanger{}, store)

	var out bytes.Buffer
	in := strings.NewReader("hello\n\n/history\n/quit\n")
	require.NoError(t, runREPL(context.Background(), c, in, &out))

	assert.Contains(t, out.String(), "(demo) you said: hello")
	assert.Contains(t, out.String(), "user: hello")
	assert.Equal(t, 2, store.Len())
}

func TestREPL_ClearAndEOF(t *testing.T) {
	store := newTestStore()
	c := chat.NewController(logging.Discard(), chat.EchoExchanger{}, store)

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), c, strings.NewReader("hi\n/clear\n"), &out))

	assert.Contains(t, out.String(), "history cleared")
	assert.Equal(t, 0, store.Len())
}

func TestREPL_PrintsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newTestStore()
	cfg := &config.Config{Webhook: config.WebhookConfig{URL: srv.URL, ResponseMode: exchange.ModeText, ContextWindow: 5}}
	client := newExchangeClient(cfg, store, logging.Discard())
	c := chat.NewController(logging.Discard(), client, store)

	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), c, strings.NewReader("hello\n"), &out))

	assert.Contains(t, out.String(), "webhook error: HTTP 500: Internal Server Error")
	assert.Equal(t, 1, store.Len())
}

func TestSend_WindowEndsWithCurrentMessage(t *testing.T) {
	var got struct {
		Message string `json:"message"`
		Context struct {
			Previous []map[string]string `json:"previous_messages"`
		} `json:"context"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	store := newTestStore()
	cfg := &config.Config{Webhook: config.WebhookConfig{URL: srv.URL, ResponseMode: exchange.ModeText, ContextWindow: 5}}
	c := chat.NewController(logging.Discard(), newExchangeClient(cfg, store, logging.Discard()), store)

	for _, text := range []string{"one", "two", "three"} {
		_, err := c.Send(context.Background(), text)
		require.NoError(t, err)
	}

	assert.Equal(t, "three", got.Message)
	require.Len(t, got.Context.Previous, 5)
	assert.Equal(t, "one", got.Context.Previous[0]["message"])
	assert.Equal(t, "three", got.Context.Previous[4]["message"])
	assert.Equal(t, "user", got.Context.Previous[4]["sender"])
}

func TestHandler_ServesPageAndAPI(t *testing.T) {
	store := newTestStore()
	a := &app{
		cfg:   &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"*"}}},
		log:   logging.Discard(),
		slot:  storage.NewMemorySlot(),
		store: store,
		chat:  chat.NewController(logging.Discard(), chat.EchoExchanger{}, store),
	}
	h, err := a.handler()
	require.NoError(t, err)

	for _, path := range []string{"/", "/healthz", "/api/history", "/static/chat.css"} {
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.NotEmpty(t, resp.Header().Get("X-Request-Id"), path)
	}
}

func TestHandler_AccessLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "info", true)
	store := newTestStore()
	a := &app{
		cfg:   &config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"*"}}},
		log:   log,
		slot:  storage.NewMemorySlot(),
		store: store,
		chat:  chat.NewController(logging.Discard(), chat.EchoExchanger{}, store),
	}
	h, err := a.handler()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	assert.Equal(t, "abc-123", resp.Header().Get("X-Request-Id"))
	assert.Contains(t, buf.String(), `"req_id":"abc-123"`)
}

func TestClearCmd_PurgeRemovesKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_DIR", dir)
	t.Setenv("STORAGE_KEY", "chat")
	path := filepath.Join(dir, "chat.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"clear", "--purge"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "removed chat")
	assert.NoFileExists(t, path)
}
