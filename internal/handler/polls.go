package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"degenecho/internal/events"
	"degenecho/internal/ledger"
	"degenecho/internal/logger"
	"degenecho/internal/repository"
	"degenecho/internal/service"
)

type PollHandler struct {
	Wager  *service.WagerService
	Query  *service.PollQueryService
	Hub    *events.Hub
	Logger *zap.Logger
}

func (h *PollHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/polls")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/summary", h.summary)
	group.POST("/:id/bets", h.placeBet)
	group.GET("/:id/bets", h.listBets)
	group.POST("/:id/settle", h.settle)
	group.GET("/:id/events", h.listEvents)
	group.GET("/:id/stream", h.stream)
}

type createPollRequest struct {
	StartPrice *uint64 `json:"start_price"`
	EndTime    int64   `json:"end_time"`
	Vault      string  `json:"vault"`
}

// @Summary Create poll
// @Description The caller becomes the poll authority.
// @Tags polls
// @Accept json
// @Param body body createPollRequest true "poll"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/polls [post]
func (h *PollHandler) create(c *gin.Context) {
	if h.Wager == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := caller(c)
	if !ok {
		return
	}
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.StartPrice == nil {
		Error(c, http.StatusBadRequest, "start_price required", nil)
		return
	}
	poll, err := h.Wager.CreatePoll(c.Request.Context(), service.CreatePollInput{
		Authority:  id.Key,
		StartPrice: *req.StartPrice,
		EndTime:    req.EndTime,
		Vault:      req.Vault,
	})
	if err != nil {
		LedgerError(c, err)
		return
	}
	Created(c, poll)
}

// @Summary List polls
// @Tags polls
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param settled query bool false "settled filter"
// @Param authority query string false "authority key"
// @Param order_by query string false "created_at|end_time|start_price"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/polls [get]
func (h *PollHandler) list(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListPollsParams{
		Limit:     limit,
		Offset:    offset,
		Settled:   boolQueryPtr(c, "settled"),
		Authority: strQueryPtr(c, "authority"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at":  "created_at",
			"end_time":    "end_time",
			"start_price": "start_price",
		}),
		Asc: boolQueryPtr(c, "asc"),
	}
	items, total, err := h.Query.ListPolls(c.Request.Context(), params)
	if err != nil {
		h.log().Warn("list polls failed", zap.Error(err))
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, 50, offset, total))
}

// @Summary Get poll
// @Tags polls
// @Param id path string true "poll id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/polls/{id} [get]
func (h *PollHandler) get(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	poll, err := h.Query.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		LedgerError(c, err)
		return
	}
	Ok(c, poll, nil)
}

// @Summary Poll pool summary
// @Description Totals, pot, per-choice share and implied odds. Informational only.
// @Tags polls
// @Param id path string true "poll id"
// @Success 200 {object} apiResponse
// @Router /api/v1/polls/{id}/summary [get]
func (h *PollHandler) summary(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	out, err := h.Query.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		LedgerError(c, err)
		return
	}
	Ok(c, out, nil)
}

type placeBetRequest struct {
	Choice *int64  `json:"choice"`
	Amount *uint64 `json:"amount"`
	Vault  string  `json:"vault"`
}

// @Summary Place bet
// @Description Stakes amount lamports from the caller into the poll vault.
// @Tags polls
// @Accept json
// @Param id path string true "poll id"
// @Param body body placeBetRequest true "bet"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 402 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/polls/{id}/bets [post]
func (h *PollHandler) placeBet(c *gin.Context) {
	if h.Wager == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := caller(c)
	if !ok {
		return
	}
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	// Out-of-range choices collapse to 0 so they fail as InvalidChoice.
	var choice uint8
	if req.Choice != nil && *req.Choice >= 0 && *req.Choice <= 255 {
		choice = uint8(*req.Choice)
	}
	var amount uint64
	if req.Amount != nil {
		amount = *req.Amount
	}
	bet, poll, err := h.Wager.PlaceBet(c.Request.Context(), service.PlaceBetInput{
		User:   id.Key,
		PollID: c.Param("id"),
		Choice: choice,
		Amount: amount,
		Vault:  req.Vault,
	})
	if err != nil {
		LedgerError(c, err)
		return
	}
	Created(c, gin.H{"bet": bet, "poll": poll})
}

// @Summary List bets on a poll
// @Tags polls
// @Param id path string true "poll id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param user query string false "bettor key"
// @Param choice query int false "1|2|3"
// @Param order_by query string false "created_at|amount"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/polls/{id}/bets [get]
func (h *PollHandler) listBets(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	pollID := strings.TrimSpace(c.Param("id"))
	if _, err := h.Query.GetPoll(c.Request.Context(), pollID); err != nil {
		LedgerError(c, err)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBetsParams{
		Limit:  limit,
		Offset: offset,
		PollID: &pollID,
		User:   strQueryPtr(c, "user"),
		Choice: uint8QueryPtr(c, "choice"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at": "created_at",
			"amount":     "amount",
		}),
		Asc: boolQueryPtr(c, "asc"),
	}
	items, total, err := h.Query.ListBets(c.Request.Context(), params)
	if err != nil {
		h.log().Warn("list bets failed", zap.String("poll_id", pollID), zap.Error(err))
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, 100, offset, total))
}

type settlePollRequest struct {
	EndPrice *uint64 `json:"end_price"`
}

// @Summary Settle poll
// @Description Authority only. Movement within 1% of start price settles as stagnate.
// @Tags polls
// @Accept json
// @Param id path string true "poll id"
// @Param body body settlePollRequest true "settlement"
// @Success 200 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/polls/{id}/settle [post]
func (h *PollHandler) settle(c *gin.Context) {
	if h.Wager == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := caller(c)
	if !ok {
		return
	}
	var req settlePollRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EndPrice == nil {
		Error(c, http.StatusBadRequest, "end_price required", nil)
		return
	}
	poll, err := h.Wager.SettlePoll(c.Request.Context(), service.SettlePollInput{
		Caller:   id.Key,
		PollID:   c.Param("id"),
		EndPrice: *req.EndPrice,
	})
	if err != nil {
		LedgerError(c, err)
		return
	}
	Ok(c, poll, map[string]any{
		"outcome": ledger.Choice(poll.WinningChoice).String(),
	})
}

// @Summary Poll event journal
// @Tags polls
// @Param id path string true "poll id"
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/v1/polls/{id}/events [get]
func (h *PollHandler) listEvents(c *gin.Context) {
	if h.Query == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	items, err := h.Query.ListEvents(c.Request.Context(), c.Param("id"), intQuery(c, "limit", 200))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *PollHandler) log() *zap.Logger {
	return logger.OrNop(h.Logger)
}
