// Package exchange performs the single request/response cycle with the
// external webhook and normalizes the outcome into a Result.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/varsilias/webhook-chat/pkg/types"
)

const DefaultContextWindow = 5

// History is the read side of the conversation used for context.
type History interface {
	Recent(n int) []types.Message
}

type Client struct {
	session    Session
	history    History
	log        *slog.Logger
	client     *http.Client
	timeout    time.Duration
	retry      bool
	window     int
	extractors []Extractor
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout bounds each attempt. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithNetworkRetry allows one more attempt after a NetworkFailure.
// HTTP failures are never retried.
func WithNetworkRetry(on bool) Option {
	return func(c *Client) { c.retry = on }
}

func WithContextWindow(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.window = n
		}
	}
}

func WithExtractors(ex ...Extractor) Option {
	return func(c *Client) {
		if len(ex) > 0 {
			c.extractors = ex
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(session Session, history History, opts ...Option) *Client {
	c := &Client{
		session:    session,
		history:    history,
		log:        slog.Default(),
		client:     &http.Client{},
		window:     DefaultContextWindow,
		extractors: []Extractor{PlainText()},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Session() Session { return c.session }

// Exchange sends userText to the webhook. The caller validates the text
// and records the conversation; Exchange only talks to the network.
func (c *Client) Exchange(ctx context.Context, userText string) Result {
	var previous []types.Message
	if c.history != nil {
		previous = c.history.Recent(c.window)
	}
	if previous == nil {
		previous = []types.Message{}
	}
	req := Request{
		Message:   userText,
		UserID:    c.session.UserID,
		Timestamp: c.now().UTC().Format(types.TimestampLayout),
		SessionID: NewSessionToken(),
		Context: RequestContext{
			PreviousMessages: previous,
			UserAgent:        c.session.UserAgent,
			Platform:         Platform,
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return NetworkFailure{Reason: "encode request: " + err.Error()}
	}
	c.log.Debug("webhook request", "url", c.session.Endpoint, "session_id", req.SessionID, "context_messages", len(previous))

	res := c.post(ctx, body, c.extractors)
	if _, ok := res.(NetworkFailure); ok && c.retry && ctx.Err() == nil {
		c.log.Warn("webhook unreachable; retrying once", "reason", res.(NetworkFailure).Reason)
		res = c.post(ctx, body, c.extractors)
	}
	return res
}

// SelfTest posts a connectivity probe. Any 2xx counts as success.
func (c *Client) SelfTest(ctx context.Context) Result {
	body, _ := json.Marshal(selfTestRequest{
		Test:      true,
		Message:   "Connectivity test",
		Timestamp: c.now().UTC().Format(types.TimestampLayout),
	})
	return c.post(ctx, body, []Extractor{PlainText()})
}

func (c *Client) post(ctx context.Context, body []byte, extractors []Extractor) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.Endpoint, bytes.NewReader(body))
	if err != nil {
		return NetworkFailure{Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session.UserAgent != "" {
		req.Header.Set("User-Agent", c.session.UserAgent)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		c.log.Error("webhook transport error", "err", err)
		return NetworkFailure{Reason: reason(err)}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.log.Error("webhook body read", "status", res.StatusCode, "err", err)
		return NetworkFailure{Reason: reason(err)}
	}
	text := string(raw)
	c.log.Debug("webhook response", "status", res.StatusCode, "bytes", len(raw), "latency_ms", time.Since(start).Milliseconds())

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.Warn("webhook http error", "status", res.StatusCode, "body", text)
		return newHTTPFailure(res.StatusCode, res.Status, text)
	}
	if strings.TrimSpace(text) == "" {
		return Success{Text: ""}
	}
	for _, ex := range extractors {
		if reply, ok := ex(text); ok {
			return Success{Text: reply}
		}
	}
	c.log.Warn("webhook reply not understood", "body", text)
	return MalformedResponse{RawBody: text}
}

// reason turns a transport error into a readable message, dropping the
// "Post <url>:" prefix that url.Error adds.
func reason(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return "request timed out: " + ue.Err.Error()
		}
		return ue.Err.Error()
	}
	return err.Error()
}
