package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"degenecho/internal/ledger"
	"degenecho/internal/repository"
	"degenecho/internal/service"
)

type AccountHandler struct {
	Query *service.PollQueryService
}

func (h *AccountHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/bets/:id", h.getBet)
	r.GET("/api/v1/accounts/:key", h.getAccount)
	r.GET("/api/v1/accounts/:key/transfers", h.listTransfers)
	r.GET("/api/v1/me", h.me)
}

// @Summary Get bet
// @Tags bets
// @Param id path string true "bet id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/bets/{id} [get]
func (h *AccountHandler) getBet(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	bet, err := h.Query.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if bet == nil {
		Error(c, http.StatusNotFound, "bet not found", nil)
		return
	}
	Ok(c, bet, nil)
}

// @Summary Get account balance
// @Tags accounts
// @Param key path string true "account key"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/accounts/{key} [get]
func (h *AccountHandler) getAccount(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	acc, err := h.Query.GetAccount(c.Request.Context(), c.Param("key"))
	if err != nil {
		LedgerError(c, err)
		return
	}
	Ok(c, acc, map[string]any{
		"balance_sol": service.LamportsToSOL(acc.Balance).String(),
	})
}

// @Summary List account transfers
// @Tags accounts
// @Param key path string true "account key"
// @Param kind query string false "bet_stake|airdrop"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/accounts/{key}/transfers [get]
func (h *AccountHandler) listTransfers(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Query.ListTransfers(c.Request.Context(), repository.ListTransfersParams{
		Limit:   limit,
		Offset:  offset,
		Account: &key,
		Kind:    strQueryPtr(c, "kind"),
		Asc:     boolQueryPtr(c, "asc"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, 100, offset, total))
}

// @Summary Current caller
// @Tags accounts
// @Success 200 {object} apiResponse
// @Router /api/v1/me [get]
func (h *AccountHandler) me(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	out := gin.H{"key": id.Key, "role": id.Role, "balance": uint64(0)}
	if h.Query != nil {
		acc, err := h.Query.GetAccount(c.Request.Context(), id.Key)
		switch {
		case err == nil:
			out["balance"] = acc.Balance
		case ledger.Code(err) != ledger.ErrAccountNotFound.Code:
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	Ok(c, out, nil)
}
