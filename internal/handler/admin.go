package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"degenecho/internal/auth"
	"degenecho/internal/logger"
	"degenecho/internal/service"
)

type AdminHandler struct {
	Wager      *service.WagerService
	Reconciler *service.Reconciler
	Logger     *zap.Logger
}

func (h *AdminHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/admin", auth.RequireAdmin())
	group.POST("/accounts/:key/airdrop", h.airdrop)
	group.GET("/reconcile", h.reconcile)
}

type airdropRequest struct {
	Amount *uint64 `json:"amount"`
}

// @Summary Airdrop lamports
// @Tags admin
// @Accept json
// @Param key path string true "account key"
// @Param body body airdropRequest true "amount in lamports"
// @Success 200 {object} apiResponse
// @Failure 403 {object} map[string]any
// @Router /api/v1/admin/accounts/{key}/airdrop [post]
func (h *AdminHandler) airdrop(c *gin.Context) {
	if h.Wager == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req airdropRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		Error(c, http.StatusBadRequest, "amount required", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	acc, err := h.Wager.Airdrop(c.Request.Context(), key, *req.Amount)
	if err != nil {
		LedgerError(c, err)
		return
	}
	if id, ok := auth.IdentityFromGin(c); ok {
		h.log().Info("admin airdrop", zap.String("admin", id.Key), zap.String("account", key), zap.Uint64("amount", *req.Amount))
	}
	Ok(c, acc, nil)
}

// @Summary Run ledger reconciliation
// @Tags admin
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/reconcile [get]
func (h *AdminHandler) reconcile(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "reconciler unavailable", nil)
		return
	}
	report, err := h.Reconciler.RunOnce(c.Request.Context())
	if err != nil {
		h.log().Warn("reconcile failed", zap.Error(err))
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, map[string]any{"ok": report.OK()})
}

func (h *AdminHandler) log() *zap.Logger {
	return logger.OrNop(h.Logger)
}
