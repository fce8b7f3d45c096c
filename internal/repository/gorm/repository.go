package gormrepository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"degenecho/internal/models"
	"degenecho/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var errNoDB = errors.New("gorm store has no db")

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// --- polls -----------------------------------------------------------------

func (s *Store) InsertPoll(ctx context.Context, item *models.Poll) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	return s.getPoll(ctx, id, false)
}

func (s *Store) GetPollForUpdate(ctx context.Context, id string) (*models.Poll, error) {
	return s.getPoll(ctx, id, true)
}

func (s *Store) getPoll(ctx context.Context, id string, lock bool) (*models.Poll, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	query := s.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.Poll
	err := query.Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdatePoll(ctx context.Context, item *models.Poll) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Poll{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"total_pump":     item.TotalPump,
			"total_dump":     item.TotalDump,
			"total_stagnate": item.TotalStagnate,
			"settled":        item.Settled,
			"winning_choice": item.WinningChoice,
			"end_price":      item.EndPrice,
			"settled_at":     item.SettledAt,
		}).Error
}

func (s *Store) ListPolls(ctx context.Context, params repository.ListPollsParams) ([]models.Poll, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyPollFilters(s.db.WithContext(ctx).Model(&models.Poll{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := repository.NormalizeLimit(params.Limit, 50)
	offset := repository.NormalizeOffset(params.Offset)
	var items []models.Poll
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPolls(ctx context.Context, params repository.ListPollsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyPollFilters(s.db.WithContext(ctx).Model(&models.Poll{}), params).Count(&total).Error
	return total, err
}

func (s *Store) ListVaultKeys(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var keys []string
	if err := s.db.WithContext(ctx).
		Model(&models.Poll{}).
		Distinct("vault").
		Order("vault asc").
		Pluck("vault", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func applyPollFilters(query *gorm.DB, params repository.ListPollsParams) *gorm.DB {
	if params.Settled != nil {
		query = query.Where("settled = ?", *params.Settled)
	}
	if params.Authority != nil && strings.TrimSpace(*params.Authority) != "" {
		query = query.Where("authority = ?", strings.TrimSpace(*params.Authority))
	}
	return query
}

// --- bets ------------------------------------------------------------------

func (s *Store) InsertBet(ctx context.Context, item *models.Bet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBetByID(ctx context.Context, id string) (*models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Bet
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBets(ctx context.Context, params repository.ListBetsParams) ([]models.Bet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyBetFilters(s.db.WithContext(ctx).Model(&models.Bet{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := repository.NormalizeLimit(params.Limit, 100)
	offset := repository.NormalizeOffset(params.Offset)
	var items []models.Bet
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBets(ctx context.Context, params repository.ListBetsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyBetFilters(s.db.WithContext(ctx).Model(&models.Bet{}), params).Count(&total).Error
	return total, err
}

type choiceSumRow struct {
	Choice uint8
	Total  string
}

func (s *Store) SumBetsByChoice(ctx context.Context, pollID string) (map[uint8]uint64, error) {
	out := map[uint8]uint64{}
	if s == nil || s.db == nil {
		return out, nil
	}
	var rows []choiceSumRow
	if err := s.db.WithContext(ctx).
		Model(&models.Bet{}).
		Select("choice AS choice, COALESCE(SUM(amount),0)::text AS total").
		Where("poll_id = ?", pollID).
		Group("choice").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		v, err := parseNumeric(row.Total)
		if err != nil {
			return nil, err
		}
		out[row.Choice] = v
	}
	return out, nil
}

func applyBetFilters(query *gorm.DB, params repository.ListBetsParams) *gorm.DB {
	if params.PollID != nil && strings.TrimSpace(*params.PollID) != "" {
		query = query.Where("poll_id = ?", strings.TrimSpace(*params.PollID))
	}
	if params.User != nil && strings.TrimSpace(*params.User) != "" {
		query = query.Where("user_key = ?", strings.TrimSpace(*params.User))
	}
	if params.Choice != nil {
		query = query.Where("choice = ?", *params.Choice)
	}
	return query
}

// --- accounts --------------------------------------------------------------

func (s *Store) EnsureAccount(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Account{Key: key}).Error
}

func (s *Store) GetAccount(ctx context.Context, key string) (*models.Account, error) {
	return s.getAccount(ctx, key, false)
}

func (s *Store) GetAccountForUpdate(ctx context.Context, key string) (*models.Account, error) {
	return s.getAccount(ctx, key, true)
}

func (s *Store) getAccount(ctx context.Context, key string, lock bool) (*models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	query := s.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.Account
	err := query.Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, key string, balance uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("key = ?", key).
		Update("balance", balance).Error
}

// --- journal ---------------------------------------------------------------

func (s *Store) InsertTransfer(ctx context.Context, item *models.Transfer) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTransfers(ctx context.Context, params repository.ListTransfersParams) ([]models.Transfer, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTransferFilters(s.db.WithContext(ctx).Model(&models.Transfer{}), params)
	query = applyOrder(query, "id", params.Asc, "id")
	limit := repository.NormalizeLimit(params.Limit, 100)
	offset := repository.NormalizeOffset(params.Offset)
	var items []models.Transfer
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTransfers(ctx context.Context, params repository.ListTransfersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := applyTransferFilters(s.db.WithContext(ctx).Model(&models.Transfer{}), params).Count(&total).Error
	return total, err
}

func applyTransferFilters(query *gorm.DB, params repository.ListTransfersParams) *gorm.DB {
	if params.Account != nil && strings.TrimSpace(*params.Account) != "" {
		key := strings.TrimSpace(*params.Account)
		query = query.Where("from_key = ? OR to_key = ?", key, key)
	}
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	return query
}

func (s *Store) SumTransfersTo(ctx context.Context, toKey string, kind string) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total string
	query := s.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Select("COALESCE(SUM(amount),0)::text").
		Where("to_key = ?", toKey)
	if strings.TrimSpace(kind) != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Scan(&total).Error; err != nil {
		return 0, err
	}
	return parseNumeric(total)
}

func (s *Store) InsertPollEvent(ctx context.Context, item *models.PollEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPollEvents(ctx context.Context, pollID string, limit int) ([]models.PollEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PollEvent
	if err := s.db.WithContext(ctx).
		Model(&models.PollEvent{}).
		Where("poll_id = ?", pollID).
		Order("id asc").
		Limit(repository.NormalizeLimit(limit, 200)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

// parseNumeric reads a postgres numeric rendered as text. Sums are cast to
// text so totals above the int64 range survive the driver.
func parseNumeric(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

var _ repository.Repository = (*Store)(nil)
