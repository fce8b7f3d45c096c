package ledger

// Choice is the outcome code a bet predicts and a settlement produces.
type Choice uint8

const (
	ChoiceNone     Choice = 0
	ChoicePump     Choice = 1
	ChoiceDump     Choice = 2
	ChoiceStagnate Choice = 3
)

func (c Choice) Valid() bool {
	return c >= ChoicePump && c <= ChoiceStagnate
}

func (c Choice) String() string {
	switch c {
	case ChoicePump:
		return "pump"
	case ChoiceDump:
		return "dump"
	case ChoiceStagnate:
		return "stagnate"
	default:
		return "none"
	}
}

// Choices lists the valid outcomes in code order.
func Choices() []Choice {
	return []Choice{ChoicePump, ChoiceDump, ChoiceStagnate}
}
