package repository

import (
	"context"

	"degenecho/internal/models"
)

// Repository is the persistence boundary for polls, bets and balances.
//
// Mutating ledger operations run inside InTx; the tx handed to fn is a
// Repository bound to that transaction. The *ForUpdate getters lock the row
// until the transaction ends so concurrent writers to the same poll or account
// are applied in sequence.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Polls
	InsertPoll(ctx context.Context, item *models.Poll) error
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	GetPollForUpdate(ctx context.Context, id string) (*models.Poll, error)
	UpdatePoll(ctx context.Context, item *models.Poll) error
	ListPolls(ctx context.Context, params ListPollsParams) ([]models.Poll, error)
	CountPolls(ctx context.Context, params ListPollsParams) (int64, error)
	ListVaultKeys(ctx context.Context) ([]string, error)

	// Bets
	InsertBet(ctx context.Context, item *models.Bet) error
	GetBetByID(ctx context.Context, id string) (*models.Bet, error)
	ListBets(ctx context.Context, params ListBetsParams) ([]models.Bet, error)
	CountBets(ctx context.Context, params ListBetsParams) (int64, error)
	SumBetsByChoice(ctx context.Context, pollID string) (map[uint8]uint64, error)

	// Accounts
	EnsureAccount(ctx context.Context, key string) error
	GetAccount(ctx context.Context, key string) (*models.Account, error)
	GetAccountForUpdate(ctx context.Context, key string) (*models.Account, error)
	UpdateAccountBalance(ctx context.Context, key string, balance uint64) error

	// Journal
	InsertTransfer(ctx context.Context, item *models.Transfer) error
	ListTransfers(ctx context.Context, params ListTransfersParams) ([]models.Transfer, error)
	CountTransfers(ctx context.Context, params ListTransfersParams) (int64, error)
	SumTransfersTo(ctx context.Context, toKey string, kind string) (uint64, error)
	InsertPollEvent(ctx context.Context, item *models.PollEvent) error
	ListPollEvents(ctx context.Context, pollID string, limit int) ([]models.PollEvent, error)
}

type ListPollsParams struct {
	Limit     int
	Offset    int
	Settled   *bool
	Authority *string
	OrderBy   string
	Asc       *bool
}

type ListBetsParams struct {
	Limit   int
	Offset  int
	PollID  *string
	User    *string
	Choice  *uint8
	OrderBy string
	Asc     *bool
}

type ListTransfersParams struct {
	Limit   int
	Offset  int
	Account *string
	Kind    *string
	Asc     *bool
}

func NormalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
