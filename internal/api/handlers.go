package api

import (
	"encoding/json"
	"errors"
	"github.com/varsilias/webhook-chat/internal/buildinfo"
	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/pkg/types"
	"github.com/varsilias/webhook-chat/pkg/utils"
	"log/slog"
	"net/http"
	"time"
)

type Handlers struct {
	log   *slog.Logger
	chat  *chat.Controller
	Admin *Admin
}

func NewHandlers(log *slog.Logger, chatCtrl *chat.Controller) *Handlers {
	return &Handlers{log: log, chat: chatCtrl}
}

// Health is a basic liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]any{
		"status":    true,
		"message":   "webhook-chat",
		"busy":      h.chat.Busy(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]any{
		"version":  buildinfo.Version,
		"commit":   buildinfo.Commit,
		"built_at": buildinfo.BuiltAt,
	})
}

// Chat POST /api/chat {message}
//
// Webhook failures are results, not faults: they come back with 200 and
// a non-success kind so the widget can show the diagnostics.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	turn, err := h.chat.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrBusy):
		utils.Error(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		utils.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	body := map[string]any{
		"user":       turn.User,
		"result":     ResultBody(turn.Result),
		"latency_ms": turn.Latency.Milliseconds(),
	}
	if turn.Reply != nil {
		body["reply"] = turn.Reply
	}
	utils.JSON(w, http.StatusOK, body)
}

// GetHistory GET /api/history
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	history := h.chat.History()
	if history == nil {
		history = []types.Message{}
	}
	utils.JSON(w, http.StatusOK, map[string]any{"history": history})
}

// ClearHistory DELETE /api/history
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.chat.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// ResultBody flattens a Result into {"kind": ..., fields...}.
func ResultBody(res exchange.Result) map[string]any {
	out := map[string]any{"kind": res.Kind()}
	switch v := res.(type) {
	case exchange.Success:
		out["text"] = v.Text
	case exchange.HTTPFailure:
		out["status"] = v.Status
		out["status_text"] = v.StatusText
		out["raw_body"] = v.RawBody
	case exchange.NetworkFailure:
		out["reason"] = v.Reason
	case exchange.MalformedResponse:
		out["raw_body"] = v.RawBody
	}
	return out
}
