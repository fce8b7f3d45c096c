package service

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"degenecho/internal/ledger"
	"degenecho/internal/models"
	"degenecho/internal/repository"
)

// LamportsPerSOL is the native currency's base-unit scale.
const LamportsPerSOL = 1_000_000_000

type PollQueryService struct {
	Repo repository.Repository
}

type ChoiceSummary struct {
	Choice   uint8            `json:"choice"`
	Label    string           `json:"label"`
	Total    uint64           `json:"total"`
	TotalSOL decimal.Decimal  `json:"total_sol"`
	Bets     int64            `json:"bets"`
	Share    decimal.Decimal  `json:"share"`
	Odds     *decimal.Decimal `json:"odds,omitempty"`
}

// PollSummary is a read-only pool view. Odds are pot divided by the choice
// total and say nothing about payouts, which do not exist.
type PollSummary struct {
	Poll    models.Poll     `json:"poll"`
	Pot     uint64          `json:"pot"`
	PotSOL  decimal.Decimal `json:"pot_sol"`
	Bets    int64           `json:"bets"`
	Outcome string          `json:"outcome"`
	Choices []ChoiceSummary `json:"choices"`
}

func (s *PollQueryService) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	p, err := s.Repo.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ledger.ErrPollNotFound
	}
	return p, nil
}

func (s *PollQueryService) Summary(ctx context.Context, id string) (*PollSummary, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	pot := ledger.Pot(poll)
	potDec := decimal.NewFromBigInt(new(big.Int).SetUint64(pot), 0)
	totals := ledger.Totals(poll)

	out := &PollSummary{
		Poll:    *poll,
		Pot:     pot,
		PotSOL:  LamportsToSOL(pot),
		Outcome: ledger.Choice(poll.WinningChoice).String(),
	}
	pollID := poll.ID
	for _, c := range ledger.Choices() {
		choice := uint8(c)
		count, err := s.Repo.CountBets(ctx, repository.ListBetsParams{PollID: &pollID, Choice: &choice})
		if err != nil {
			return nil, err
		}
		total := totals[c]
		cs := ChoiceSummary{
			Choice:   choice,
			Label:    c.String(),
			Total:    total,
			TotalSOL: LamportsToSOL(total),
			Bets:     count,
			Share:    decimal.Zero,
		}
		if total > 0 {
			totalDec := decimal.NewFromBigInt(new(big.Int).SetUint64(total), 0)
			cs.Share = totalDec.DivRound(potDec, 4)
			odds := potDec.DivRound(totalDec, 4)
			cs.Odds = &odds
		}
		out.Bets += count
		out.Choices = append(out.Choices, cs)
	}
	return out, nil
}

func (s *PollQueryService) ListPolls(ctx context.Context, params repository.ListPollsParams) ([]models.Poll, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, errRepoUnavailable
	}
	items, err := s.Repo.ListPolls(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountPolls(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PollQueryService) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, errRepoUnavailable
	}
	items, err := s.Repo.ListBets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountBets(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PollQueryService) GetBet(ctx context.Context, id string) (*models.Bet, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	return s.Repo.GetBetByID(ctx, id)
}

func (s *PollQueryService) GetAccount(ctx context.Context, key string) (*models.Account, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	acc, err := s.Repo.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ledger.ErrAccountNotFound
	}
	return acc, nil
}

func (s *PollQueryService) ListTransfers(ctx context.Context, params repository.ListTransfersParams) ([]models.Transfer, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, errRepoUnavailable
	}
	items, err := s.Repo.ListTransfers(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountTransfers(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *PollQueryService) ListEvents(ctx context.Context, pollID string, limit int) ([]models.PollEvent, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	return s.Repo.ListPollEvents(ctx, pollID, limit)
}

func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
}
