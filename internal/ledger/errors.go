package ledger

import "errors"

// Error is a ledger failure with a stable code for API consumers.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidChoice      = &Error{Code: "InvalidChoice", Message: "choice must be 1 (pump), 2 (dump), or 3 (stagnate)"}
	ErrInvalidAmount      = &Error{Code: "InvalidAmount", Message: "bet amount must be greater than 0"}
	ErrPollAlreadySettled = &Error{Code: "PollAlreadySettled", Message: "poll has already been settled"}
	ErrUnauthorized       = &Error{Code: "Unauthorized", Message: "caller is not the poll authority"}
	ErrPollNotFound       = &Error{Code: "PollNotFound", Message: "poll not found"}
	ErrAccountNotFound    = &Error{Code: "AccountNotFound", Message: "account not found"}
	ErrInsufficientFunds  = &Error{Code: "InsufficientFunds", Message: "insufficient funds for transfer"}
	ErrAmountOverflow     = &Error{Code: "AmountOverflow", Message: "amount overflows the running total"}
)

// Code returns the ledger code carried by err, or "" for foreign errors.
func Code(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
