package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"degenecho/internal/events"
	"degenecho/internal/ledger"
	"degenecho/internal/logger"
	"degenecho/internal/models"
	"degenecho/internal/repository"
)

var vaultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("degenecho:vault"))

// DeriveVaultKey returns the deterministic escrow vault key of a poll.
func DeriveVaultKey(pollID string) string {
	return "vault-" + uuid.NewSHA1(vaultNamespace, []byte(pollID)).String()
}

// WagerService runs the poll lifecycle. Each mutating call is one repository
// transaction; events are published only after commit.
type WagerService struct {
	Repo      repository.Repository
	Publisher events.Publisher
	Logger    *zap.Logger

	// DefaultVault is used when a poll is created without a vault. When empty a
	// vault key is derived from the poll id.
	DefaultVault string
	// MaxAirdrop caps a single airdrop; 0 means no cap.
	MaxAirdrop uint64

	Now   func() time.Time
	NewID func() string
}

type CreatePollInput struct {
	Authority  string
	StartPrice uint64
	EndTime    int64
	Vault      string
}

type PlaceBetInput struct {
	User   string
	PollID string
	Choice uint8
	Amount uint64
	Vault  string
}

type SettlePollInput struct {
	Caller   string
	PollID   string
	EndPrice uint64
}

var errRepoUnavailable = errors.New("repo unavailable")

func (s *WagerService) CreatePoll(ctx context.Context, in CreatePollInput) (*models.Poll, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	authority := strings.TrimSpace(in.Authority)
	if authority == "" {
		return nil, ledger.ErrUnauthorized
	}
	id := s.newID()
	vault := strings.TrimSpace(in.Vault)
	if vault == "" {
		vault = strings.TrimSpace(s.DefaultVault)
	}
	if vault == "" {
		vault = DeriveVaultKey(id)
	}
	poll := ledger.NewPoll(id, authority, vault, in.StartPrice, in.EndTime)

	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.EnsureAccount(ctx, vault); err != nil {
			return fmt.Errorf("ensure vault: %w", err)
		}
		if err := tx.InsertPoll(ctx, poll); err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		return insertEvent(ctx, tx, poll.ID, models.PollEventCreated, map[string]any{
			"authority":   poll.Authority,
			"vault":       poll.Vault,
			"start_price": poll.StartPrice,
			"end_time":    poll.EndTime,
		})
	})
	if err != nil {
		s.log().Warn("create poll failed", zap.String("authority", authority), zap.Error(err))
		return nil, err
	}
	s.log().Info("poll created",
		zap.String("poll_id", poll.ID),
		zap.String("authority", poll.Authority),
		zap.Uint64("start_price", poll.StartPrice),
		zap.Int64("end_time", poll.EndTime),
	)
	s.publish(ctx, events.Event{Type: models.PollEventCreated, PollID: poll.ID, Poll: poll})
	return poll, nil
}

// PlaceBet records a wager, bumps the poll total and moves the stake into the
// vault. end_time is not consulted.
func (s *WagerService) PlaceBet(ctx context.Context, in PlaceBetInput) (*models.Bet, *models.Poll, error) {
	if s == nil || s.Repo == nil {
		return nil, nil, errRepoUnavailable
	}
	if err := ledger.ValidateBet(in.Choice, in.Amount); err != nil {
		return nil, nil, err
	}
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, nil, ledger.ErrUnauthorized
	}

	var (
		bet  *models.Bet
		poll *models.Poll
	)
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		p, err := tx.GetPollForUpdate(ctx, in.PollID)
		if err != nil {
			return fmt.Errorf("load poll: %w", err)
		}
		if p == nil {
			return ledger.ErrPollNotFound
		}
		if err := ledger.ApplyBet(p, in.Choice, in.Amount); err != nil {
			return err
		}
		b := &models.Bet{
			ID:      s.newID(),
			User:    user,
			PollID:  p.ID,
			Choice:  in.Choice,
			Amount:  in.Amount,
			Claimed: false,
		}
		if err := tx.InsertBet(ctx, b); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return fmt.Errorf("update poll: %w", err)
		}
		vault := strings.TrimSpace(in.Vault)
		if vault == "" {
			vault = p.Vault
		}
		if err := transfer(ctx, tx, user, vault, in.Amount, models.TransferKindBetStake, b.ID, map[string]any{
			"poll_id": p.ID,
			"choice":  in.Choice,
		}); err != nil {
			return err
		}
		if err := insertEvent(ctx, tx, p.ID, models.PollEventBet, map[string]any{
			"bet_id": b.ID,
			"user":   b.User,
			"choice": b.Choice,
			"amount": b.Amount,
			"vault":  vault,
		}); err != nil {
			return err
		}
		bet, poll = b, p
		return nil
	})
	if err != nil {
		if ledger.Code(err) == "" {
			s.log().Warn("place bet failed", zap.String("poll_id", in.PollID), zap.String("user", user), zap.Error(err))
		}
		return nil, nil, err
	}
	s.log().Info("bet placed",
		zap.String("poll_id", poll.ID),
		zap.String("bet_id", bet.ID),
		zap.String("user", bet.User),
		zap.Uint8("choice", bet.Choice),
		zap.Uint64("amount", bet.Amount),
	)
	s.publish(ctx, events.Event{Type: models.PollEventBet, PollID: poll.ID, Poll: poll, Bet: bet})
	return bet, poll, nil
}

// SettlePoll finalizes the outcome. Only the poll authority may settle and
// only once.
func (s *WagerService) SettlePoll(ctx context.Context, in SettlePollInput) (*models.Poll, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	var poll *models.Poll
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		p, err := tx.GetPollForUpdate(ctx, in.PollID)
		if err != nil {
			return fmt.Errorf("load poll: %w", err)
		}
		winner, err := ledger.Settle(p, strings.TrimSpace(in.Caller), in.EndPrice)
		if err != nil {
			return err
		}
		settledAt := s.now()
		p.SettledAt = &settledAt
		if err := tx.UpdatePoll(ctx, p); err != nil {
			return fmt.Errorf("update poll: %w", err)
		}
		if err := insertEvent(ctx, tx, p.ID, models.PollEventSettled, map[string]any{
			"end_price":      in.EndPrice,
			"winning_choice": uint8(winner),
			"outcome":        winner.String(),
		}); err != nil {
			return err
		}
		poll = p
		return nil
	})
	if err != nil {
		if ledger.Code(err) == "" {
			s.log().Warn("settle poll failed", zap.String("poll_id", in.PollID), zap.Error(err))
		}
		return nil, err
	}
	s.log().Info("poll settled",
		zap.String("poll_id", poll.ID),
		zap.Uint64("start_price", poll.StartPrice),
		zap.Uint64("end_price", poll.EndPrice),
		zap.Uint8("winning_choice", poll.WinningChoice),
	)
	s.publish(ctx, events.Event{Type: models.PollEventSettled, PollID: poll.ID, Poll: poll})
	return poll, nil
}

// Airdrop credits lamports to an account, creating it when missing.
func (s *WagerService) Airdrop(ctx context.Context, key string, amount uint64) (*models.Account, error) {
	if s == nil || s.Repo == nil {
		return nil, errRepoUnavailable
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ledger.ErrAccountNotFound
	}
	if amount == 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if s.MaxAirdrop > 0 && amount > s.MaxAirdrop {
		return nil, fmt.Errorf("airdrop exceeds max %d: %w", s.MaxAirdrop, ledger.ErrInvalidAmount)
	}
	var out *models.Account
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := tx.EnsureAccount(ctx, key); err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}
		acc, err := tx.GetAccountForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if acc == nil {
			return ledger.ErrAccountNotFound
		}
		next, ok := ledger.AddAmount(acc.Balance, amount)
		if !ok {
			return ledger.ErrAmountOverflow
		}
		if err := tx.UpdateAccountBalance(ctx, key, next); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		if err := tx.InsertTransfer(ctx, &models.Transfer{
			ToKey:  key,
			Amount: amount,
			Kind:   models.TransferKindAirdrop,
		}); err != nil {
			return fmt.Errorf("journal transfer: %w", err)
		}
		acc.Balance = next
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log().Info("airdrop", zap.String("account", key), zap.Uint64("amount", amount), zap.Uint64("balance", out.Balance))
	return out, nil
}

// transfer debits from and credits to inside tx. Rows are locked in key order
// so two transfers over the same pair cannot deadlock.
func transfer(ctx context.Context, tx repository.Repository, from, to string, amount uint64, kind, reference string, memo map[string]any) error {
	if err := tx.EnsureAccount(ctx, to); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	keys := []string{from, to}
	sort.Strings(keys)
	locked := map[string]*models.Account{}
	for _, key := range keys {
		if _, ok := locked[key]; ok {
			continue
		}
		acc, err := tx.GetAccountForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		locked[key] = acc
	}
	src := locked[from]
	if src == nil || src.Balance < amount {
		return ledger.ErrInsufficientFunds
	}
	if from != to {
		dst := locked[to]
		if dst == nil {
			return ledger.ErrAccountNotFound
		}
		credited, ok := ledger.AddAmount(dst.Balance, amount)
		if !ok {
			return ledger.ErrAmountOverflow
		}
		if err := tx.UpdateAccountBalance(ctx, from, src.Balance-amount); err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		if err := tx.UpdateAccountBalance(ctx, to, credited); err != nil {
			return fmt.Errorf("credit %s: %w", to, err)
		}
	}
	raw, err := json.Marshal(memo)
	if err != nil {
		return fmt.Errorf("encode transfer memo: %w", err)
	}
	if err := tx.InsertTransfer(ctx, &models.Transfer{
		FromKey:   from,
		ToKey:     to,
		Amount:    amount,
		Kind:      kind,
		Reference: reference,
		Memo:      datatypes.JSON(raw),
	}); err != nil {
		return fmt.Errorf("journal transfer: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx repository.Repository, pollID, typ string, payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := tx.InsertPollEvent(ctx, &models.PollEvent{
		PollID:  pollID,
		Type:    typ,
		Payload: datatypes.JSON(raw),
	}); err != nil {
		return fmt.Errorf("insert poll event: %w", err)
	}
	return nil
}

func (s *WagerService) publish(ctx context.Context, ev events.Event) {
	if s.Publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.log().Warn("publish event failed", zap.String("type", ev.Type), zap.String("poll_id", ev.PollID), zap.Error(err))
	}
}

func (s *WagerService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *WagerService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *WagerService) log() *zap.Logger {
	return logger.OrNop(s.Logger)
}
