package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varsilias/webhook-chat/internal/buildinfo"
	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/config"
	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/internal/logging"
	"github.com/varsilias/webhook-chat/internal/storage"
)

type rootFlags struct {
	addr     string
	logLevel string
	logJSON  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "webhook-chat",
		Short:         "Chat front end that relays every message to a webhook",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address (overrides ADDR)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON (overrides LOG_JSON)")

	root.AddCommand(
		newServeCmd(flags),
		newReplCmd(flags),
		newHistoryCmd(flags),
		newClearCmd(flags),
		newSelfTestCmd(flags),
		newVersionCmd(),
	)
	return root
}

// app is the wired dependency graph shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	slot   storage.Slot
	store  *conversation.Store
	client *exchange.Client // nil when running on the echo exchanger
	chat   *chat.Controller
}

// bootstrap loads config, applies flag overrides and wires storage, the
// webhook client and the controller. With needWebhook unset a missing
// WEBHOOK_URL falls back to the local echo exchanger.
func bootstrap(ctx context.Context, cmd *cobra.Command, flags *rootFlags, needWebhook bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	pf := cmd.Flags()
	if pf.Changed("addr") {
		cfg.Server.Addr = flags.addr
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if pf.Changed("log-json") {
		cfg.Log.JSON = flags.logJSON
	}

	if needWebhook {
		err = cfg.RequireWebhook()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.JSON)

	slot, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	store := conversation.Open(ctx, slot, cfg.Storage.Key,
		conversation.WithMaxMessages(cfg.Storage.MaxMessages),
		conversation.WithLogger(logger),
	)

	a := &app{cfg: cfg, log: logger, slot: slot, store: store}

	var ex chat.Exchanger = chat.EchoExchanger{}
	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		a.client = newExchangeClient(cfg, store, logger)
		ex = a.client
	} else {
		logger.Warn("WEBHOOK_URL not set; falling back to echo exchanger")
	}
	a.chat = chat.NewController(logger, ex, store)
	return a, nil
}

func newExchangeClient(cfg *config.Config, history exchange.History, logger *slog.Logger) *exchange.Client {
	ua := cfg.Webhook.UserAgent
	if ua == "" {
		ua = buildinfo.UserAgent()
	}
	session := exchange.NewSession(cfg.Webhook.URL, ua)
	logger.Info("webhook session", "user_id", session.UserID, "endpoint", session.Endpoint)

	return exchange.NewClient(session, history,
		exchange.WithTimeout(cfg.Webhook.Timeout),
		exchange.WithNetworkRetry(cfg.Webhook.RetryNetwork),
		exchange.WithContextWindow(cfg.Webhook.ContextWindow),
		exchange.WithExtractors(exchange.ExtractorsFor(cfg.Webhook.ResponseMode)...),
		exchange.WithLogger(logger),
	)
}

func (a *app) Close() {
	if err := a.slot.Close(); err != nil {
		a.log.Warn("close storage", "err", err)
	}
}
