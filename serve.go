package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/varsilias/webhook-chat/internal/api"
	"github.com/varsilias/webhook-chat/internal/buildinfo"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/internal/middleware"
	"github.com/varsilias/webhook-chat/internal/ui"
	"github.com/varsilias/webhook-chat/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), cmd, flags, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve()
		},
	}
}

func (a *app) handler() (http.Handler, error) {
	uih, err := ui.New(a.log, a.chat, web.FS)
	if err != nil {
		return nil, fmt.Errorf("ui init: %w", err)
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}

	h := api.NewHandlers(a.log, a.chat)
	if a.client != nil {
		h.Admin = api.NewAdmin(a.chat)
	}

	mux := chi.NewRouter()
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	ui.RegisterRoutes(mux, uih)
	api.RegisterRoutes(mux, h, a.cfg.Server.AllowedOrigins)

	var handler http.Handler = mux
	handler = middleware.Recoverer(a.log)(handler)
	// RequestID sits outside AccessLog so the logged req_id is populated
	handler = middleware.AccessLog(a.log)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.VersionHeader()(handler)
	return handler, nil
}

func (a *app) serve() error {
	a.log.Info("build", "version", buildinfo.Version, "commit", buildinfo.Commit, "built_at", buildinfo.BuiltAt)

	handler, err := a.handler()
	if err != nil {
		return err
	}

	if a.cfg.Webhook.SelfTest && a.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		res, err := a.chat.CheckConnectivity(ctx)
		cancel()
		if err == nil {
			err = exchange.AsError(res)
		}
		if err != nil {
			a.log.Warn("startup self-test failed; continuing", "err", err)
		}
	}

	server := http.Server{
		Addr:              a.cfg.Server.ListenAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// webhooks can be slow; WEBHOOK_TIMEOUT is the real bound
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	go func() { errChan <- server.ListenAndServe() }()
	a.log.Info("server listening", "addr", server.Addr, "webhook", a.cfg.Webhook.URL != "")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server error", "err", err)
			return err
		}
		return nil
	case sig := <-sigChan:
		a.log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.log.Error("graceful shutdown failed", "err", err)
		return err
	}
	a.log.Info("server stopped")
	return nil
}
