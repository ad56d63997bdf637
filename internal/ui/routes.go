package ui

import (
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/varsilias/webhook-chat/internal/buildinfo"
	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/pkg/types"
	"net/http"
)

func RegisterRoutes(mux chi.Router, h *UI) {
	mux.Get("/", h.Home)
	mux.Post("/ui/chat", h.ChatPost)
	mux.Post("/ui/clear", h.Clear)
	mux.Post("/ui/selftest", h.SelfTest)
	mux.Get("/ui/version-pill", h.VersionPill)
}

// Home shows the chat page with the stored transcript.
func (u *UI) Home(w http.ResponseWriter, r *http.Request) {
	msgs := u.chat.History()
	hist := make([]MsgView, 0, len(msgs))
	for _, m := range msgs {
		hist = append(hist, u.view(m))
	}
	u.render(w, "chat.html", map[string]any{
		"History": hist,
		"MaxLen":  types.MaxTextLen,
	}, http.StatusOK)
}

// ChatPost returns the user bubble followed by either the bot bubble or
// a diagnostic panel describing the failure.
func (u *UI) ChatPost(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	turn, err := u.chat.Send(r.Context(), r.Form.Get("message"))
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		// nothing to render; an invalid send is a no-op
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, chat.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := u.tpl.ExecuteTemplate(w, "message.html", u.view(turn.User)); err != nil {
		u.errTpl(w, err)
		return
	}
	if turn.Reply != nil {
		v := u.view(*turn.Reply)
		v.Latency = turn.Latency.Milliseconds()
		_ = u.tpl.ExecuteTemplate(w, "message.html", v)
		return
	}
	_ = u.tpl.ExecuteTemplate(w, "error.html", errorView(turn.Result))
}

// Clear wipes the transcript and returns the fresh greeting.
func (u *UI) Clear(w http.ResponseWriter, r *http.Request) {
	u.chat.Clear()
	u.render(w, "greeting.html", nil, http.StatusOK)
}

// SelfTest runs the connectivity probe and renders the system note it
// recorded.
func (u *UI) SelfTest(w http.ResponseWriter, r *http.Request) {
	if _, err := u.chat.CheckConnectivity(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	hist := u.chat.History()
	if len(hist) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	u.render(w, "message.html", u.view(hist[len(hist)-1]), http.StatusOK)
}

type versionVM struct {
	Version string
	Commit  string
	BuiltAt string
}

func (u *UI) VersionPill(w http.ResponseWriter, r *http.Request) {
	// Fragment response; avoid caching so rollouts show quickly
	w.Header().Set("Cache-Control", "no-store")
	u.render(w, "version-pill.html", versionVM{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		BuiltAt: buildinfo.BuiltAt,
	}, http.StatusOK)
}

const networkHelp = `Possible solutions:
1. Check that the webhook URL is correct and reachable
2. Ensure the webhook workflow is active
3. Check that the endpoint accepts requests from this origin (CORS)
4. Check your internet connection`

func errorView(res exchange.Result) ErrorView {
	switch v := res.(type) {
	case exchange.HTTPFailure:
		return ErrorView{
			Title:   "Webhook Error Details",
			Summary: fmt.Sprintf("HTTP %d: %s", v.Status, v.StatusText),
			Detail:  fmt.Sprintf("status: %d\nstatusText: %s\nresponseText:\n%s", v.Status, v.StatusText, v.RawBody),
		}
	case exchange.NetworkFailure:
		return ErrorView{
			Title:   "Connection Error",
			Summary: "Failed to connect to the webhook. This is likely a network or CORS issue.",
			Detail:  "Error: " + v.Reason + "\n\n" + networkHelp,
		}
	case exchange.MalformedResponse:
		return ErrorView{
			Title:   "Webhook Response Details",
			Summary: "The webhook replied, but the response format was not recognized.",
			Detail:  v.RawBody,
		}
	}
	return ErrorView{Title: "Unexpected result", Summary: string(res.Kind())}
}
