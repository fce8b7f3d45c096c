// Package ledger holds the wagering rules: bet validation, aggregate
// arithmetic and settlement. It is storage-agnostic; callers load and persist
// records around these functions inside a transaction.
package ledger

import (
	"math"

	"degenecho/internal/models"
)

// ValidateBet checks inputs in a fixed order: choice, then amount.
func ValidateBet(choice uint8, amount uint64) error {
	if !Choice(choice).Valid() {
		return ErrInvalidChoice
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewPoll returns an unsettled poll with zero totals.
func NewPoll(id, authority, vault string, startPrice uint64, endTime int64) *models.Poll {
	return &models.Poll{
		ID:         id,
		Authority:  authority,
		Vault:      vault,
		StartPrice: startPrice,
		EndTime:    endTime,
	}
}

// ApplyBet validates a wager against the poll and adds amount to the matching
// total. The poll is left untouched on error.
func ApplyBet(poll *models.Poll, choice uint8, amount uint64) error {
	if err := ValidateBet(choice, amount); err != nil {
		return err
	}
	if poll == nil {
		return ErrPollNotFound
	}
	if poll.Settled {
		return ErrPollAlreadySettled
	}
	total := totalFor(poll, Choice(choice))
	next, ok := AddAmount(*total, amount)
	if !ok {
		return ErrAmountOverflow
	}
	*total = next
	return nil
}

// Outcome computes the winning choice. Movement within one percent of the
// start price (floor division) is stagnate.
func Outcome(startPrice, endPrice uint64) Choice {
	var diff uint64
	if endPrice > startPrice {
		diff = endPrice - startPrice
	} else {
		diff = startPrice - endPrice
	}
	threshold := startPrice / 100
	switch {
	case diff <= threshold:
		return ChoiceStagnate
	case endPrice > startPrice:
		return ChoicePump
	default:
		return ChoiceDump
	}
}

// Settle finalizes the poll outcome. Authority is checked before state.
func Settle(poll *models.Poll, caller string, endPrice uint64) (Choice, error) {
	if poll == nil {
		return ChoiceNone, ErrPollNotFound
	}
	if caller == "" || caller != poll.Authority {
		return ChoiceNone, ErrUnauthorized
	}
	if poll.Settled {
		return ChoiceNone, ErrPollAlreadySettled
	}
	winner := Outcome(poll.StartPrice, endPrice)
	poll.WinningChoice = uint8(winner)
	poll.EndPrice = endPrice
	poll.Settled = true
	return winner, nil
}

// Totals returns the per-choice totals of a poll keyed by choice.
func Totals(poll *models.Poll) map[Choice]uint64 {
	if poll == nil {
		return map[Choice]uint64{}
	}
	return map[Choice]uint64{
		ChoicePump:     poll.TotalPump,
		ChoiceDump:     poll.TotalDump,
		ChoiceStagnate: poll.TotalStagnate,
	}
}

// Pot is the sum of all three totals. Bets are overflow-checked per choice,
// so the sum is saturated rather than wrapped.
func Pot(poll *models.Poll) uint64 {
	var pot uint64
	for _, v := range Totals(poll) {
		next, ok := AddAmount(pot, v)
		if !ok {
			return math.MaxUint64
		}
		pot = next
	}
	return pot
}

// AddAmount adds without wrapping; ok is false on overflow.
func AddAmount(a, b uint64) (uint64, bool) {
	if b > math.MaxUint64-a {
		return a, false
	}
	return a + b, true
}

func totalFor(poll *models.Poll, c Choice) *uint64 {
	switch c {
	case ChoicePump:
		return &poll.TotalPump
	case ChoiceDump:
		return &poll.TotalDump
	default:
		return &poll.TotalStagnate
	}
}
