// Package memory is an in-process Repository used for local runs and tests.
//
// Transactions are serialized by a store-wide mutex. Each one writes into an
// empty layer over the live state; the layer is merged in only when fn returns
// nil, so a commit costs what the transaction touched.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"degenecho/internal/models"
	"degenecho/internal/repository"
)

type state struct {
	// parent is set on a transaction layer. Lookups fall through to it.
	parent *state

	polls     map[string]models.Poll
	pollOrder []string
	bets      map[string]models.Bet
	betOrder  []string
	accounts  map[string]models.Account
	transfers []models.Transfer
	events    []models.PollEvent

	nextTransferID uint64
	nextEventID    uint64
}

func newState() *state {
	return &state{
		polls:    map[string]models.Poll{},
		bets:     map[string]models.Bet{},
		accounts: map[string]models.Account{},
	}
}

func (st *state) child() *state {
	c := newState()
	c.parent = st
	c.nextTransferID = st.nextTransferID
	c.nextEventID = st.nextEventID
	return c
}

// merge folds a committed layer into st.
func (st *state) merge(layer *state) {
	for id, p := range layer.polls {
		st.polls[id] = p
	}
	st.pollOrder = append(st.pollOrder, layer.pollOrder...)
	for id, b := range layer.bets {
		st.bets[id] = b
	}
	st.betOrder = append(st.betOrder, layer.betOrder...)
	for key, a := range layer.accounts {
		st.accounts[key] = a
	}
	st.transfers = append(st.transfers, layer.transfers...)
	st.events = append(st.events, layer.events...)
	st.nextTransferID = layer.nextTransferID
	st.nextEventID = layer.nextEventID
}

func (st *state) poll(id string) (models.Poll, bool) {
	for l := st; l != nil; l = l.parent {
		if p, ok := l.polls[id]; ok {
			return p, true
		}
	}
	return models.Poll{}, false
}

func (st *state) bet(id string) (models.Bet, bool) {
	for l := st; l != nil; l = l.parent {
		if b, ok := l.bets[id]; ok {
			return b, true
		}
	}
	return models.Bet{}, false
}

func (st *state) account(key string) (models.Account, bool) {
	for l := st; l != nil; l = l.parent {
		if a, ok := l.accounts[key]; ok {
			return a, true
		}
	}
	return models.Account{}, false
}

func (st *state) eachPoll(fn func(models.Poll)) {
	if st.parent == nil {
		for _, id := range st.pollOrder {
			fn(st.polls[id])
		}
		return
	}
	st.parent.eachPoll(func(p models.Poll) {
		if staged, ok := st.polls[p.ID]; ok {
			p = staged
		}
		fn(p)
	})
	for _, id := range st.pollOrder {
		fn(st.polls[id])
	}
}

func (st *state) eachBet(fn func(models.Bet)) {
	if st.parent != nil {
		st.parent.eachBet(fn)
	}
	for _, id := range st.betOrder {
		fn(st.bets[id])
	}
}

func (st *state) eachTransfer(fn func(models.Transfer)) {
	if st.parent != nil {
		st.parent.eachTransfer(fn)
	}
	for _, t := range st.transfers {
		fn(t)
	}
}

// eachEvent stops once fn returns false.
func (st *state) eachEvent(fn func(models.PollEvent) bool) bool {
	if st.parent != nil && !st.parent.eachEvent(fn) {
		return false
	}
	for _, e := range st.events {
		if !fn(e) {
			return false
		}
	}
	return true
}

type Store struct {
	// root is nil for the live store and points at it for a transaction view.
	root *Store

	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil {
		return nil
	}
	if s.root != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	// Writers to the live state all hold txMu, so the layer can read through
	// to it without taking mu.
	view := &Store{root: s, st: s.st.child()}
	if err := fn(view); err != nil {
		return err
	}
	s.mu.Lock()
	s.st.merge(view.st)
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if s.root == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// --- polls -----------------------------------------------------------------

func (s *Store) InsertPoll(ctx context.Context, item *models.Poll) error {
	if s == nil || item == nil {
		return nil
	}
	return s.write(func(st *state) error {
		if _, exists := st.poll(item.ID); exists {
			return fmt.Errorf("poll with ID %s already exists", item.ID)
		}
		now := time.Now().UTC()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		st.polls[item.ID] = *item
		st.pollOrder = append(st.pollOrder, item.ID)
		return nil
	})
}

func (s *Store) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	if s == nil {
		return nil, nil
	}
	var out *models.Poll
	s.read(func(st *state) {
		if p, ok := st.poll(strings.TrimSpace(id)); ok {
			out = &p
		}
	})
	return out, nil
}

// GetPollForUpdate needs no row lock: transactions are already serialized.
func (s *Store) GetPollForUpdate(ctx context.Context, id string) (*models.Poll, error) {
	return s.GetPoll(ctx, id)
}

func (s *Store) UpdatePoll(ctx context.Context, item *models.Poll) error {
	if s == nil || item == nil {
		return nil
	}
	return s.write(func(st *state) error {
		existing, ok := st.poll(item.ID)
		if !ok {
			return fmt.Errorf("poll %s not found", item.ID)
		}
		existing.TotalPump = item.TotalPump
		existing.TotalDump = item.TotalDump
		existing.TotalStagnate = item.TotalStagnate
		existing.Settled = item.Settled
		existing.WinningChoice = item.WinningChoice
		existing.EndPrice = item.EndPrice
		existing.SettledAt = item.SettledAt
		existing.UpdatedAt = time.Now().UTC()
		st.polls[item.ID] = existing
		return nil
	})
}

func (s *Store) ListPolls(ctx context.Context, params repository.ListPollsParams) ([]models.Poll, error) {
	if s == nil {
		return nil, nil
	}
	var matched []models.Poll
	s.read(func(st *state) {
		st.eachPoll(func(p models.Poll) {
			if pollMatches(p, params) {
				matched = append(matched, p)
			}
		})
	})
	if !isAsc(params.Asc) {
		reversePolls(matched)
	}
	return page(matched, params.Limit, params.Offset, 50), nil
}

func (s *Store) CountPolls(ctx context.Context, params repository.ListPollsParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var total int64
	s.read(func(st *state) {
		st.eachPoll(func(p models.Poll) {
			if pollMatches(p, params) {
				total++
			}
		})
	})
	return total, nil
}

func (s *Store) ListVaultKeys(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var keys []string
	s.read(func(st *state) {
		st.eachPoll(func(p models.Poll) {
			if _, ok := seen[p.Vault]; ok || p.Vault == "" {
				return
			}
			seen[p.Vault] = struct{}{}
			keys = append(keys, p.Vault)
		})
	})
	sort.Strings(keys)
	return keys, nil
}

func pollMatches(p models.Poll, params repository.ListPollsParams) bool {
	if params.Settled != nil && p.Settled != *params.Settled {
		return false
	}
	if params.Authority != nil && strings.TrimSpace(*params.Authority) != "" && p.Authority != strings.TrimSpace(*params.Authority) {
		return false
	}
	return true
}

func reversePolls(items []models.Poll) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// --- bets ------------------------------------------------------------------

func (s *Store) InsertBet(ctx context.Context, item *models.Bet) error {
	if s == nil || item == nil {
		return nil
	}
	return s.write(func(st *state) error {
		if _, exists := st.bet(item.ID); exists {
			return fmt.Errorf("bet with ID %s already exists", item.ID)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		st.bets[item.ID] = *item
		st.betOrder = append(st.betOrder, item.ID)
		return nil
	})
}

func (s *Store) GetBetByID(ctx context.Context, id string) (*models.Bet, error) {
	if s == nil {
		return nil, nil
	}
	var out *models.Bet
	s.read(func(st *state) {
		if b, ok := st.bet(strings.TrimSpace(id)); ok {
			out = &b
		}
	})
	return out, nil
}

func (s *Store) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, error) {
	if s == nil {
		return nil, nil
	}
	var matched []models.Bet
	s.read(func(st *state) {
		st.eachBet(func(b models.Bet) {
			if betMatches(b, params) {
				matched = append(matched, b)
			}
		})
	})
	if !isAsc(params.Asc) {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	return page(matched, params.Limit, params.Offset, 100), nil
}

func (s *Store) CountBets(ctx context.Context, params repository.ListBetsParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var total int64
	s.read(func(st *state) {
		st.eachBet(func(b models.Bet) {
			if betMatches(b, params) {
				total++
			}
		})
	})
	return total, nil
}

func (s *Store) SumBetsByChoice(ctx context.Context, pollID string) (map[uint8]uint64, error) {
	out := map[uint8]uint64{}
	if s == nil {
		return out, nil
	}
	s.read(func(st *state) {
		st.eachBet(func(b models.Bet) {
			if b.PollID == pollID {
				out[b.Choice] += b.Amount
			}
		})
	})
	return out, nil
}

func betMatches(b models.Bet, params repository.ListBetsParams) bool {
	if params.PollID != nil && strings.TrimSpace(*params.PollID) != "" && b.PollID != strings.TrimSpace(*params.PollID) {
		return false
	}
	if params.User != nil && strings.TrimSpace(*params.User) != "" && b.User != strings.TrimSpace(*params.User) {
		return false
	}
	if params.Choice != nil && b.Choice != *params.Choice {
		return false
	}
	return true
}

// --- accounts --------------------------------------------------------------

func (s *Store) EnsureAccount(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.write(func(st *state) error {
		if _, ok := st.account(key); ok {
			return nil
		}
		now := time.Now().UTC()
		st.accounts[key] = models.Account{Key: key, CreatedAt: now, UpdatedAt: now}
		return nil
	})
}

func (s *Store) GetAccount(ctx context.Context, key string) (*models.Account, error) {
	if s == nil {
		return nil, nil
	}
	var out *models.Account
	s.read(func(st *state) {
		if a, ok := st.account(strings.TrimSpace(key)); ok {
			out = &a
		}
	})
	return out, nil
}

func (s *Store) GetAccountForUpdate(ctx context.Context, key string) (*models.Account, error) {
	return s.GetAccount(ctx, key)
}

func (s *Store) UpdateAccountBalance(ctx context.Context, key string, balance uint64) error {
	if s == nil {
		return nil
	}
	return s.write(func(st *state) error {
		a, ok := st.account(key)
		if !ok {
			return fmt.Errorf("account %s not found", key)
		}
		a.Balance = balance
		a.UpdatedAt = time.Now().UTC()
		st.accounts[key] = a
		return nil
	})
}

// --- journal ---------------------------------------------------------------

func (s *Store) InsertTransfer(ctx context.Context, item *models.Transfer) error {
	if s == nil || item == nil {
		return nil
	}
	return s.write(func(st *state) error {
		st.nextTransferID++
		item.ID = st.nextTransferID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		st.transfers = append(st.transfers, *item)
		return nil
	})
}

func (s *Store) ListTransfers(ctx context.Context, params repository.ListTransfersParams) ([]models.Transfer, error) {
	if s == nil {
		return nil, nil
	}
	var matched []models.Transfer
	s.read(func(st *state) {
		st.eachTransfer(func(t models.Transfer) {
			if transferMatches(t, params) {
				matched = append(matched, t)
			}
		})
	})
	if !isAsc(params.Asc) {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	return page(matched, params.Limit, params.Offset, 100), nil
}

func (s *Store) CountTransfers(ctx context.Context, params repository.ListTransfersParams) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var total int64
	s.read(func(st *state) {
		st.eachTransfer(func(t models.Transfer) {
			if transferMatches(t, params) {
				total++
			}
		})
	})
	return total, nil
}

func transferMatches(t models.Transfer, params repository.ListTransfersParams) bool {
	if params.Account != nil && *params.Account != "" && t.FromKey != *params.Account && t.ToKey != *params.Account {
		return false
	}
	if params.Kind != nil && *params.Kind != "" && t.Kind != *params.Kind {
		return false
	}
	return true
}

func (s *Store) SumTransfersTo(ctx context.Context, toKey string, kind string) (uint64, error) {
	if s == nil {
		return 0, nil
	}
	var total uint64
	s.read(func(st *state) {
		st.eachTransfer(func(t models.Transfer) {
			if t.ToKey == toKey && (kind == "" || t.Kind == kind) {
				total += t.Amount
			}
		})
	})
	return total, nil
}

func (s *Store) InsertPollEvent(ctx context.Context, item *models.PollEvent) error {
	if s == nil || item == nil {
		return nil
	}
	return s.write(func(st *state) error {
		st.nextEventID++
		item.ID = st.nextEventID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now().UTC()
		}
		st.events = append(st.events, *item)
		return nil
	})
}

func (s *Store) ListPollEvents(ctx context.Context, pollID string, limit int) ([]models.PollEvent, error) {
	if s == nil {
		return nil, nil
	}
	limit = repository.NormalizeLimit(limit, 200)
	var out []models.PollEvent
	s.read(func(st *state) {
		st.eachEvent(func(e models.PollEvent) bool {
			if e.PollID == pollID {
				out = append(out, e)
			}
			return len(out) < limit
		})
	})
	return out, nil
}

func isAsc(asc *bool) bool {
	return asc != nil && *asc
}

func page[T any](items []T, limit, offset, fallback int) []T {
	limit = repository.NormalizeLimit(limit, fallback)
	offset = repository.NormalizeOffset(offset)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ repository.Repository = (*Store)(nil)
