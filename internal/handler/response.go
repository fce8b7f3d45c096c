package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"degenecho/internal/ledger"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// LedgerError writes err with the status of its ledger code. Errors without
// a code are storage failures.
func LedgerError(c *gin.Context, err error) {
	code := ledger.Code(err)
	status := StatusFor(code)
	c.JSON(status, apiResponse{
		Code:    status,
		Message: err.Error(),
		Error:   code,
	})
}

func StatusFor(code string) int {
	switch code {
	case ledger.ErrInvalidChoice.Code, ledger.ErrInvalidAmount.Code:
		return http.StatusBadRequest
	case ledger.ErrUnauthorized.Code:
		return http.StatusForbidden
	case ledger.ErrPollNotFound.Code, ledger.ErrAccountNotFound.Code:
		return http.StatusNotFound
	case ledger.ErrPollAlreadySettled.Code:
		return http.StatusConflict
	case ledger.ErrInsufficientFunds.Code:
		return http.StatusPaymentRequired
	case ledger.ErrAmountOverflow.Code:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
