package chat

import (
	"context"
	"errors"

	"github.com/varsilias/webhook-chat/internal/exchange"
)

// Exchanger is the transport the controller drives; *exchange.Client
// satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, userText string) exchange.Result
	SelfTest(ctx context.Context) exchange.Result
}

var ErrNoWebhook = errors.New("no webhook configured")

// EchoExchanger answers locally without a webhook; used when no endpoint
// is configured.
type EchoExchanger struct{}

func (EchoExchanger) Exchange(_ context.Context, userText string) exchange.Result {
	return exchange.Success{Text: "(demo) you said: " + userText}
}

// SelfTest always fails: there is no webhook to reach.
func (EchoExchanger) SelfTest(context.Context) exchange.Result {
	return exchange.NetworkFailure{Reason: ErrNoWebhook.Error()}
}
