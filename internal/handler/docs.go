package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Degen Echo

Wager lamports on whether a price pumps, dumps or stagnates.

## Auth

All /api/* routes require a Bearer JWT (HS256). The sub claim is the wallet
key; role=admin unlocks /api/v1/admin. Health and docs are public.

## Choices

- 1 pump: end price above start by more than 1%
- 2 dump: end price below start by more than 1%
- 3 stagnate: otherwise (the 1% band is floor(start/100), inclusive)

## Routes

- GET /healthz
- GET /readyz
- GET /swagger/index.html
- POST /api/v1/polls
- GET /api/v1/polls
- GET /api/v1/polls/:id
- GET /api/v1/polls/:id/summary
- POST /api/v1/polls/:id/bets
- GET /api/v1/polls/:id/bets
- POST /api/v1/polls/:id/settle
- GET /api/v1/polls/:id/events
- GET /api/v1/polls/:id/stream (websocket)
- GET /api/v1/bets/:id
- GET /api/v1/accounts/:key
- GET /api/v1/accounts/:key/transfers
- GET /api/v1/me
- POST /api/v1/admin/accounts/:key/airdrop
- GET /api/v1/admin/reconcile

## Errors

Failures carry {code, message, error}. error is one of InvalidChoice,
InvalidAmount (400), Unauthorized (403), PollNotFound, AccountNotFound (404),
PollAlreadySettled (409), InsufficientFunds (402), AmountOverflow (422).
`)
	})
}
