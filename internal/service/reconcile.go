package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"degenecho/internal/ledger"
	"degenecho/internal/logger"
	"degenecho/internal/models"
	"degenecho/internal/repository"
)

const (
	MismatchPollTotal    = "poll_total"
	MismatchVaultBalance = "vault_balance"
)

type Mismatch struct {
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	Choice   string `json:"choice,omitempty"`
	Expected uint64 `json:"expected"`
	Actual   uint64 `json:"actual"`
}

type ReconcileReport struct {
	CheckedPolls  int        `json:"checked_polls"`
	CheckedVaults int        `json:"checked_vaults"`
	Mismatches    []Mismatch `json:"mismatches"`
	RanAt         time.Time  `json:"ran_at"`
}

func (r ReconcileReport) OK() bool { return len(r.Mismatches) == 0 }

// Reconciler checks that poll totals match the bets recorded against them and
// that every vault holds at least what was staked into it. It only reports.
type Reconciler struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	PageSize int
	Now      func() time.Time
}

func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	if r == nil || r.Repo == nil {
		return nil, errRepoUnavailable
	}
	report := &ReconcileReport{RanAt: time.Now().UTC()}
	if r.Now != nil {
		report.RanAt = r.Now().UTC()
	}

	pageSize := repository.NormalizeLimit(r.PageSize, 200)
	asc := true
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		polls, err := r.Repo.ListPolls(ctx, repository.ListPollsParams{
			Limit:   pageSize,
			Offset:  offset,
			OrderBy: "created_at",
			Asc:     &asc,
		})
		if err != nil {
			return nil, err
		}
		for i := range polls {
			found, err := r.checkPoll(ctx, &polls[i])
			if err != nil {
				return nil, err
			}
			report.Mismatches = append(report.Mismatches, found...)
			report.CheckedPolls++
		}
		if len(polls) < pageSize {
			break
		}
	}

	vaults, err := r.Repo.ListVaultKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, vault := range vaults {
		staked, err := r.Repo.SumTransfersTo(ctx, vault, models.TransferKindBetStake)
		if err != nil {
			return nil, err
		}
		var balance uint64
		acc, err := r.Repo.GetAccount(ctx, vault)
		if err != nil {
			return nil, err
		}
		if acc != nil {
			balance = acc.Balance
		}
		if balance < staked {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Kind:     MismatchVaultBalance,
				Key:      vault,
				Expected: staked,
				Actual:   balance,
			})
		}
		report.CheckedVaults++
	}

	log := logger.OrNop(r.Logger)
	if report.OK() {
		log.Info("reconcile ok", zap.Int("polls", report.CheckedPolls), zap.Int("vaults", report.CheckedVaults))
	} else {
		for _, m := range report.Mismatches {
			log.Error("reconcile mismatch",
				zap.String("kind", m.Kind),
				zap.String("key", m.Key),
				zap.String("choice", m.Choice),
				zap.Uint64("expected", m.Expected),
				zap.Uint64("actual", m.Actual),
			)
		}
	}
	return report, nil
}

func (r *Reconciler) checkPoll(ctx context.Context, poll *models.Poll) ([]Mismatch, error) {
	sums, err := r.Repo.SumBetsByChoice(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	totals := ledger.Totals(poll)
	var out []Mismatch
	for _, c := range ledger.Choices() {
		if expected, actual := sums[uint8(c)], totals[c]; expected != actual {
			out = append(out, Mismatch{
				Kind:     MismatchPollTotal,
				Key:      poll.ID,
				Choice:   c.String(),
				Expected: expected,
				Actual:   actual,
			})
		}
	}
	return out, nil
}
