package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degenecho/internal/events"
	"degenecho/internal/ledger"
	"degenecho/internal/models"
	"degenecho/internal/repository"
	"degenecho/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	onPub  func(ev events.Event)
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) error {
	if p.onPub != nil {
		p.onPub(ev)
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newWagerFixture(t *testing.T) (*WagerService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return &WagerService{Repo: store, Publisher: pub}, store, pub
}

func fund(t *testing.T, svc *WagerService, key string, amount uint64) {
	t.Helper()
	_, err := svc.Airdrop(context.Background(), key, amount)
	require.NoError(t, err)
}

func TestCreatePoll_StartsEmpty(t *testing.T) {
	svc, store, pub := newWagerFixture(t)
	ctx := context.Background()

	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100_000_000, EndTime: 1_700_000_000})
	require.NoError(t, err)

	assert.Equal(t, "auth", poll.Authority)
	assert.Equal(t, uint64(100_000_000), poll.StartPrice)
	assert.Equal(t, int64(1_700_000_000), poll.EndTime)
	assert.Zero(t, poll.TotalPump)
	assert.Zero(t, poll.TotalDump)
	assert.Zero(t, poll.TotalStagnate)
	assert.False(t, poll.Settled)
	assert.Zero(t, poll.WinningChoice)
	assert.Equal(t, DeriveVaultKey(poll.ID), poll.Vault)

	stored, err := store.GetPoll(ctx, poll.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	vault, err := store.GetAccount(ctx, poll.Vault)
	require.NoError(t, err)
	require.NotNil(t, vault)
	assert.Zero(t, vault.Balance)

	evs, err := store.ListPollEvents(ctx, poll.ID, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, models.PollEventCreated, evs[0].Type)
	assert.Equal(t, []string{models.PollEventCreated}, pub.types())
}

func TestCreatePoll_VaultSelection(t *testing.T) {
	svc, _, _ := newWagerFixture(t)
	ctx := context.Background()

	explicit, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "a", Vault: "treasury"})
	require.NoError(t, err)
	assert.Equal(t, "treasury", explicit.Vault)

	svc.DefaultVault = "house"
	fallback, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "a"})
	require.NoError(t, err)
	assert.Equal(t, "house", fallback.Vault)

	_, err = svc.CreatePoll(ctx, CreatePollInput{Authority: "  "})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestDeriveVaultKey_Deterministic(t *testing.T) {
	assert.Equal(t, DeriveVaultKey("p1"), DeriveVaultKey("p1"))
	assert.NotEqual(t, DeriveVaultKey("p1"), DeriveVaultKey("p2"))
}

func TestPlaceBet_MovesStakeIntoVault(t *testing.T) {
	svc, store, pub := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 1_000_000_000)
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100_000_000})
	require.NoError(t, err)

	bet, updated, err := svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 500_000_000})
	require.NoError(t, err)
	assert.Equal(t, "alice", bet.User)
	assert.Equal(t, poll.ID, bet.PollID)
	assert.Equal(t, uint8(1), bet.Choice)
	assert.Equal(t, uint64(500_000_000), bet.Amount)
	assert.False(t, bet.Claimed)
	assert.Equal(t, uint64(500_000_000), updated.TotalPump)

	alice, _ := store.GetAccount(ctx, "alice")
	vault, _ := store.GetAccount(ctx, poll.Vault)
	assert.Equal(t, uint64(500_000_000), alice.Balance)
	assert.Equal(t, uint64(500_000_000), vault.Balance)

	kind := models.TransferKindBetStake
	transfers, err := store.ListTransfers(ctx, repository.ListTransfersParams{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, bet.ID, transfers[0].Reference)
	assert.Equal(t, "alice", transfers[0].FromKey)
	assert.Equal(t, poll.Vault, transfers[0].ToKey)

	assert.Equal(t, []string{models.PollEventCreated, models.PollEventBet}, pub.types())
}

func TestPlaceBet_AccumulatesPerChoice(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 10_000)
	fund(t, svc, "bob", 10_000)
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)

	place := func(user string, choice uint8, amount uint64) {
		_, _, err := svc.PlaceBet(ctx, PlaceBetInput{User: user, PollID: poll.ID, Choice: choice, Amount: amount})
		require.NoError(t, err)
	}
	place("alice", 1, 100)
	place("bob", 1, 250)
	place("alice", 2, 40)
	place("bob", 3, 7)

	got, _ := store.GetPoll(ctx, poll.ID)
	assert.Equal(t, uint64(350), got.TotalPump)
	assert.Equal(t, uint64(40), got.TotalDump)
	assert.Equal(t, uint64(7), got.TotalStagnate)

	vault, _ := store.GetAccount(ctx, poll.Vault)
	assert.Equal(t, uint64(397), vault.Balance)
}

func TestPlaceBet_Rejections(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 1_000)
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   PlaceBetInput
		want error
	}{
		{"choice zero", PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 0, Amount: 10}, ledger.ErrInvalidChoice},
		{"choice four", PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 4, Amount: 10}, ledger.ErrInvalidChoice},
		{"choice before amount", PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 9, Amount: 0}, ledger.ErrInvalidChoice},
		{"zero amount", PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 0}, ledger.ErrInvalidAmount},
		{"unknown poll", PlaceBetInput{User: "alice", PollID: "nope", Choice: 1, Amount: 10}, ledger.ErrPollNotFound},
		{"short balance", PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 1_001}, ledger.ErrInsufficientFunds},
		{"unknown wallet", PlaceBetInput{User: "carol", PollID: poll.ID, Choice: 1, Amount: 1}, ledger.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.PlaceBet(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	got, _ := store.GetPoll(ctx, poll.ID)
	assert.Zero(t, ledger.Pot(got))
	alice, _ := store.GetAccount(ctx, "alice")
	assert.Equal(t, uint64(1_000), alice.Balance)
	bets, _ := store.CountBets(ctx, repository.ListBetsParams{})
	assert.Zero(t, bets)
}

func TestPlaceBet_OverflowRollsBack(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)

	p, _ := store.GetPoll(ctx, poll.ID)
	p.TotalDump = ^uint64(0) - 5
	require.NoError(t, store.UpdatePoll(ctx, p))
	fund(t, svc, "whale", 100)

	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "whale", PollID: poll.ID, Choice: 2, Amount: 6})
	assert.ErrorIs(t, err, ledger.ErrAmountOverflow)

	whale, _ := store.GetAccount(ctx, "whale")
	assert.Equal(t, uint64(100), whale.Balance)
	got, _ := store.GetPoll(ctx, poll.ID)
	assert.Equal(t, ^uint64(0)-5, got.TotalDump)
}

func TestPlaceBet_SettledPollRejected(t *testing.T) {
	svc, _, _ := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 1_000)
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)
	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: 100})
	require.NoError(t, err)

	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrPollAlreadySettled)

	// Validation runs before the settled check.
	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 7, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrInvalidChoice)
	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 0})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestPlaceBet_ConcurrentBurstSumsExactly(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)

	const users = 40
	for i := 0; i < users; i++ {
		fund(t, svc, fmt.Sprintf("u%d", i), 1_000)
	}

	var wg sync.WaitGroup
	errs := make(chan error, users*3)
	for i := 0; i < users; i++ {
		for c := uint8(1); c <= 3; c++ {
			wg.Add(1)
			go func(user string, choice uint8) {
				defer wg.Done()
				_, _, err := svc.PlaceBet(ctx, PlaceBetInput{User: user, PollID: poll.ID, Choice: choice, Amount: uint64(choice) * 10})
				errs <- err
			}(fmt.Sprintf("u%d", i), c)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, _ := store.GetPoll(ctx, poll.ID)
	assert.Equal(t, uint64(users*10), got.TotalPump)
	assert.Equal(t, uint64(users*20), got.TotalDump)
	assert.Equal(t, uint64(users*30), got.TotalStagnate)
	vault, _ := store.GetAccount(ctx, poll.Vault)
	assert.Equal(t, uint64(users*60), vault.Balance)
}

func TestSettlePoll_Outcomes(t *testing.T) {
	cases := []struct {
		name  string
		start uint64
		end   uint64
		want  ledger.Choice
	}{
		{"pump", 100_000_000, 102_000_000, ledger.ChoicePump},
		{"dump", 100_000_000, 98_000_000, ledger.ChoiceDump},
		{"stagnate inside band", 100_000_000, 100_500_000, ledger.ChoiceStagnate},
		{"exact threshold up", 100_000_000, 101_000_000, ledger.ChoiceStagnate},
		{"exact threshold down", 100_000_000, 99_000_000, ledger.ChoiceStagnate},
		{"zero start any move", 0, 1, ledger.ChoicePump},
		{"tiny start", 50, 51, ledger.ChoicePump},
		{"flat", 42, 42, ledger.ChoiceStagnate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := newWagerFixture(t)
			ctx := context.Background()
			poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: tc.start})
			require.NoError(t, err)

			settled, err := svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: tc.end})
			require.NoError(t, err)
			assert.True(t, settled.Settled)
			assert.Equal(t, uint8(tc.want), settled.WinningChoice)
			assert.Equal(t, tc.end, settled.EndPrice)
			require.NotNil(t, settled.SettledAt)

			stored, _ := store.GetPoll(ctx, poll.ID)
			assert.True(t, stored.Settled)
			assert.Equal(t, uint8(tc.want), stored.WinningChoice)
		})
	}
}

func TestSettlePoll_AuthorityAndOnce(t *testing.T) {
	svc, store, pub := newWagerFixture(t)
	ctx := context.Background()
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100_000_000})
	require.NoError(t, err)

	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "mallory", PollID: poll.ID, EndPrice: 200_000_000})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	stored, _ := store.GetPoll(ctx, poll.ID)
	assert.False(t, stored.Settled)

	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: 102_000_000})
	require.NoError(t, err)

	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: 50_000_000})
	assert.ErrorIs(t, err, ledger.ErrPollAlreadySettled)
	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "mallory", PollID: poll.ID, EndPrice: 50_000_000})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	stored, _ = store.GetPoll(ctx, poll.ID)
	assert.Equal(t, uint8(ledger.ChoicePump), stored.WinningChoice)
	assert.Equal(t, uint64(102_000_000), stored.EndPrice)

	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: "missing", EndPrice: 1})
	assert.ErrorIs(t, err, ledger.ErrPollNotFound)

	assert.Equal(t, []string{models.PollEventCreated, models.PollEventSettled}, pub.types())
}

func TestSettlePoll_ConcurrentSettlesOnce(t *testing.T) {
	svc, store, pub := newWagerFixture(t)
	ctx := context.Background()
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100_000_000})
	require.NoError(t, err)

	const racers = 16
	type result struct {
		end uint64
		err error
	}
	results := make(chan result, racers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		// Alternate pump and dump prices so a second winner would change the outcome.
		end := uint64(102_000_000)
		if i%2 == 1 {
			end = 98_000_000
		}
		go func(end uint64) {
			defer wg.Done()
			<-start
			_, err := svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: end})
			results <- result{end: end, err: err}
		}(end)
	}
	close(start)
	wg.Wait()
	close(results)

	var winners []uint64
	for r := range results {
		if r.err == nil {
			winners = append(winners, r.end)
			continue
		}
		assert.ErrorIs(t, r.err, ledger.ErrPollAlreadySettled)
	}
	require.Len(t, winners, 1)

	stored, _ := store.GetPoll(ctx, poll.ID)
	assert.True(t, stored.Settled)
	assert.Equal(t, winners[0], stored.EndPrice)
	want := ledger.Outcome(poll.StartPrice, winners[0])
	assert.Equal(t, uint8(want), stored.WinningChoice)

	evs, err := store.ListPollEvents(ctx, poll.ID, 100)
	require.NoError(t, err)
	settled := 0
	for _, ev := range evs {
		if ev.Type == models.PollEventSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled)
	assert.Equal(t, []string{models.PollEventCreated, models.PollEventSettled}, pub.types())
}

func TestTransfer_MemoEncodeFailureRollsBack(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 100)

	err := store.InTx(ctx, func(tx repository.Repository) error {
		return transfer(ctx, tx, "alice", "vault", 40, models.TransferKindBetStake, "ref", map[string]any{
			"bad": func() {},
		})
	})
	require.Error(t, err)

	alice, _ := store.GetAccount(ctx, "alice")
	assert.Equal(t, uint64(100), alice.Balance)
	vault, _ := store.GetAccount(ctx, "vault")
	assert.Nil(t, vault)
}

func TestPublish_AfterCommit(t *testing.T) {
	svc, store, pub := newWagerFixture(t)
	ctx := context.Background()
	fund(t, svc, "alice", 100)

	var seen []uint64
	pub.onPub = func(ev events.Event) {
		if ev.Type != models.PollEventBet {
			return
		}
		p, err := store.GetPoll(ctx, ev.PollID)
		if err == nil && p != nil {
			seen = append(seen, p.TotalPump)
		}
	}
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 1})
	require.NoError(t, err)
	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 30})
	require.NoError(t, err)

	assert.Equal(t, []uint64{30}, seen)

	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 1_000})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Len(t, seen, 1)
}

func TestAirdrop(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	ctx := context.Background()
	svc.MaxAirdrop = 500

	acc, err := svc.Airdrop(ctx, "alice", 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), acc.Balance)
	acc, err = svc.Airdrop(ctx, "alice", 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.Balance)

	_, err = svc.Airdrop(ctx, "alice", 501)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = svc.Airdrop(ctx, "alice", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = svc.Airdrop(ctx, "", 1)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	stored, _ := store.GetAccount(ctx, "alice")
	assert.Equal(t, uint64(500), stored.Balance)

	svc.MaxAirdrop = 0
	require.NoError(t, store.UpdateAccountBalance(ctx, "alice", ^uint64(0)))
	_, err = svc.Airdrop(ctx, "alice", 1)
	assert.ErrorIs(t, err, ledger.ErrAmountOverflow)
}
