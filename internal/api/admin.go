package api

import (
	"github.com/varsilias/webhook-chat/internal/chat"
	"github.com/varsilias/webhook-chat/pkg/utils"
	"net/http"
)

// Admin exposes operator-only diagnostics.
type Admin struct{ chat *chat.Controller }

func NewAdmin(c *chat.Controller) *Admin { return &Admin{chat: c} }

// SelfTest POST /api/selftest runs the webhook connectivity probe.
func (a *Admin) SelfTest(w http.ResponseWriter, r *http.Request) {
	res, err := a.chat.CheckConnectivity(r.Context())
	if err != nil {
		utils.Error(w, http.StatusConflict, err.Error())
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"result": ResultBody(res)})
}
