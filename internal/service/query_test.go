package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"degenecho/internal/ledger"
	"degenecho/internal/repository"
)

func TestPollSummary(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	q := &PollQueryService{Repo: store}
	ctx := context.Background()
	fund(t, svc, "alice", 10_000_000_000)
	fund(t, svc, "bob", 10_000_000_000)
	poll, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "auth", StartPrice: 100})
	require.NoError(t, err)

	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: poll.ID, Choice: 1, Amount: 3_000_000_000})
	require.NoError(t, err)
	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "bob", PollID: poll.ID, Choice: 1, Amount: 1_000_000_000})
	require.NoError(t, err)
	_, _, err = svc.PlaceBet(ctx, PlaceBetInput{User: "bob", PollID: poll.ID, Choice: 2, Amount: 1_000_000_000})
	require.NoError(t, err)

	sum, err := q.Summary(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), sum.Pot)
	assert.Equal(t, "5", sum.PotSOL.String())
	assert.Equal(t, int64(3), sum.Bets)
	assert.Equal(t, "none", sum.Outcome)
	require.Len(t, sum.Choices, 3)

	pump := sum.Choices[0]
	assert.Equal(t, "pump", pump.Label)
	assert.Equal(t, int64(2), pump.Bets)
	assert.Equal(t, "0.8", pump.Share.String())
	require.NotNil(t, pump.Odds)
	assert.Equal(t, "1.25", pump.Odds.String())

	dump := sum.Choices[1]
	assert.Equal(t, "0.2", dump.Share.String())
	require.NotNil(t, dump.Odds)
	assert.Equal(t, "5", dump.Odds.String())

	stagnate := sum.Choices[2]
	assert.Zero(t, stagnate.Bets)
	assert.True(t, stagnate.Share.IsZero())
	assert.Nil(t, stagnate.Odds)

	_, err = svc.SettlePoll(ctx, SettlePollInput{Caller: "auth", PollID: poll.ID, EndPrice: 100})
	require.NoError(t, err)
	sum, err = q.Summary(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, "stagnate", sum.Outcome)
}

func TestQueryService_Lookups(t *testing.T) {
	svc, store, _ := newWagerFixture(t)
	q := &PollQueryService{Repo: store}
	ctx := context.Background()
	fund(t, svc, "alice", 100)

	_, err := q.GetPoll(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrPollNotFound)
	_, err = q.Summary(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrPollNotFound)
	_, err = q.GetAccount(ctx, "nobody")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	p1, err := svc.CreatePoll(ctx, CreatePollInput{Authority: "a1"})
	require.NoError(t, err)
	_, err = svc.CreatePoll(ctx, CreatePollInput{Authority: "a2"})
	require.NoError(t, err)
	bet, _, err := svc.PlaceBet(ctx, PlaceBetInput{User: "alice", PollID: p1.ID, Choice: 3, Amount: 40})
	require.NoError(t, err)

	auth := "a1"
	polls, total, err := q.ListPolls(ctx, repository.ListPollsParams{Authority: &auth})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, polls, 1)
	assert.Equal(t, p1.ID, polls[0].ID)

	bets, total, err := q.ListBets(ctx, repository.ListBetsParams{PollID: &p1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, bets, 1)

	got, err := q.GetBet(ctx, bet.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(40), got.Amount)

	acc, err := q.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), acc.Balance)

	alice := "alice"
	transfers, total, err := q.ListTransfers(ctx, repository.ListTransfersParams{Account: &alice})
	require.NoError(t, err)
	assert.Len(t, transfers, 2)
	assert.Equal(t, int64(2), total)

	evs, err := q.ListEvents(ctx, p1.ID, 0)
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, "1", LamportsToSOL(LamportsPerSOL).String())
	assert.Equal(t, "0.5", LamportsToSOL(500_000_000).String())
	assert.Equal(t, "18446744073.709551615", LamportsToSOL(^uint64(0)).String())
}
