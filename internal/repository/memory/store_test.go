package memory

import (
	"context"
	"errors"
	"testing"

	"degenecho/internal/models"
	"degenecho/internal/repository"
)

func TestInTx_RollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertPoll(ctx, &models.Poll{ID: "p1", Authority: "a", Vault: "v"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Repository) error {
		p, _ := tx.GetPollForUpdate(ctx, "p1")
		p.TotalPump = 99
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertBet(ctx, &models.Bet{ID: "b1", PollID: "p1", Choice: 1, Amount: 99}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
	p, _ := s.GetPoll(ctx, "p1")
	if p.TotalPump != 0 {
		t.Fatalf("total_pump=%d want 0 after rollback", p.TotalPump)
	}
	if b, _ := s.GetBetByID(ctx, "b1"); b != nil {
		t.Fatalf("bet survived rollback")
	}
}

func TestInTx_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.EnsureAccount(ctx, "alice"); err != nil {
			return err
		}
		return tx.UpdateAccountBalance(ctx, "alice", 42)
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	a, _ := s.GetAccount(ctx, "alice")
	if a == nil || a.Balance != 42 {
		t.Fatalf("account=%+v", a)
	}
}

func TestListPolls_FilterAndPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"p1", "p2", "p3"} {
		_ = s.InsertPoll(ctx, &models.Poll{ID: id, Authority: "a", Vault: "v"})
	}
	p2, _ := s.GetPoll(ctx, "p2")
	p2.Settled = true
	p2.WinningChoice = 3
	_ = s.UpdatePoll(ctx, p2)

	unsettled := false
	items, _ := s.ListPolls(ctx, repository.ListPollsParams{Settled: &unsettled})
	if len(items) != 2 || items[0].ID != "p3" || items[1].ID != "p1" {
		t.Fatalf("items=%v", items)
	}
	total, _ := s.CountPolls(ctx, repository.ListPollsParams{})
	if total != 3 {
		t.Fatalf("total=%d", total)
	}
	paged, _ := s.ListPolls(ctx, repository.ListPollsParams{Limit: 1, Offset: 5})
	if len(paged) != 0 {
		t.Fatalf("paged=%v", paged)
	}
	keys, _ := s.ListVaultKeys(ctx)
	if len(keys) != 1 || keys[0] != "v" {
		t.Fatalf("keys=%v", keys)
	}
}

func TestInTx_LayerReadsThroughAndMergesInOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.InsertPoll(ctx, &models.Poll{ID: "p1", Authority: "a", Vault: "v"})
	_ = s.InsertTransfer(ctx, &models.Transfer{ToKey: "v", Amount: 5, Kind: models.TransferKindBetStake})

	_ = s.InTx(ctx, func(tx repository.Repository) error {
		_ = tx.InsertTransfer(ctx, &models.Transfer{ToKey: "v", Amount: 100, Kind: models.TransferKindBetStake})
		return errors.New("rollback")
	})

	err := s.InTx(ctx, func(tx repository.Repository) error {
		p, _ := tx.GetPollForUpdate(ctx, "p1")
		p.TotalDump = 7
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertPoll(ctx, &models.Poll{ID: "p2", Authority: "a", Vault: "v"}); err != nil {
			return err
		}
		if err := tx.InsertTransfer(ctx, &models.Transfer{ToKey: "v", Amount: 7, Kind: models.TransferKindBetStake}); err != nil {
			return err
		}

		asc := true
		polls, _ := tx.ListPolls(ctx, repository.ListPollsParams{Asc: &asc})
		if len(polls) != 2 || polls[0].ID != "p1" || polls[0].TotalDump != 7 || polls[1].ID != "p2" {
			t.Errorf("in-tx polls=%+v", polls)
		}
		if sum, _ := tx.SumTransfersTo(ctx, "v", ""); sum != 12 {
			t.Errorf("in-tx sum=%d want 12", sum)
		}
		if sum, _ := s.SumTransfersTo(ctx, "v", ""); sum != 5 {
			t.Errorf("live sum during tx=%d want 5", sum)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	asc := true
	transfers, _ := s.ListTransfers(ctx, repository.ListTransfersParams{Asc: &asc})
	if len(transfers) != 2 || transfers[0].ID != 1 || transfers[1].ID != 2 || transfers[1].Amount != 7 {
		t.Fatalf("transfers=%+v", transfers)
	}
	total, _ := s.CountTransfers(ctx, repository.ListTransfersParams{})
	if total != 2 {
		t.Fatalf("count=%d", total)
	}
	p1, _ := s.GetPoll(ctx, "p1")
	if p1.TotalDump != 7 {
		t.Fatalf("p1=%+v", p1)
	}
	if n, _ := s.CountPolls(ctx, repository.ListPollsParams{}); n != 2 {
		t.Fatalf("polls=%d", n)
	}
}
