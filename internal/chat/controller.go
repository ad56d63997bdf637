package chat

import (
	"context"
	"errors"
	"fmt"
	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/pkg/types"
	"log/slog"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidInput = errors.New("message must be between 1 and 1000 characters")
	ErrBusy         = errors.New("an exchange is already in flight")
)

const EmptyReplyFallback = "I received your message and processed it successfully, but the reply was empty."

// Turn is what one Send produced. Reply is nil unless Result is a Success.
type Turn struct {
	User    types.Message
	Reply   *types.Message
	Result  exchange.Result
	Latency time.Duration
}

type Controller struct {
	log   *slog.Logger
	ex    Exchanger
	store *conversation.Store
	busy  atomic.Bool
	now   func() time.Time
}

func NewController(log *slog.Logger, ex Exchanger, store *conversation.Store) *Controller {
	return &Controller{log: log, ex: ex, store: store, now: time.Now}
}

// Send orchestrates a single turn: persist user msg, call the webhook,
// persist the bot reply on success. Only one turn runs at a time.
func (c *Controller) Send(ctx context.Context, text string) (Turn, error) {
	text, err := types.ValidateText(text)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return Turn{}, ErrBusy
	}
	defer c.busy.Store(false)

	user := types.NewMessage(types.SenderUser, text, c.now())
	c.store.Append(user)

	start := time.Now()
	res := c.ex.Exchange(ctx, text)
	turn := Turn{User: user, Result: res, Latency: time.Since(start)}

	switch r := res.(type) {
	case exchange.Success:
		reply := r.Text
		if reply == "" {
			reply = EmptyReplyFallback
		}
		bot := types.NewMessage(types.SenderBot, reply, c.now())
		// replies over the length bound are shown but not persisted
		if !c.store.Append(bot) {
			c.log.Warn("bot reply not stored", "chars", len([]rune(bot.Text)))
		}
		turn.Reply = &bot
		c.log.Info("exchange ok", "latency_ms", turn.Latency.Milliseconds())
	default:
		c.log.Warn("exchange failed", "kind", res.Kind(), "err", exchange.AsError(res), "latency_ms", turn.Latency.Milliseconds())
	}
	return turn, nil
}

func (c *Controller) Busy() bool { return c.busy.Load() }

func (c *Controller) History() []types.Message { return c.store.All() }

func (c *Controller) Clear() {
	c.store.Clear()
	c.log.Info("conversation cleared")
}

// CheckConnectivity runs the webhook self-test and records the outcome
// as a system message. It shares the busy flag with Send.
func (c *Controller) CheckConnectivity(ctx context.Context) (exchange.Result, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	res := c.ex.SelfTest(ctx)
	var note string
	if err := exchange.AsError(res); err != nil {
		c.log.Warn("webhook connectivity test failed", "err", err)
		note = fmt.Sprintf("Webhook connection failed.\n\n"+
			"Common solutions:\n"+
			"1. Check that the webhook workflow is active\n"+
			"2. Verify the webhook URL is correct\n"+
			"3. Check your network connection\n\n"+
			"Error: %v\n\n"+
			"You can still use the chat; failures will show detailed error information.", err)
	} else {
		c.log.Info("webhook connectivity test passed")
		note = "Webhook connection established successfully."
	}
	c.store.Append(types.NewMessage(types.SenderSystem, note, c.now()))
	return res, nil
}
