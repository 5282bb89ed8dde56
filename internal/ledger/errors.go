package ledger

import "errors"

// Trade rejection reasons. Each one is terminal for the request that
// triggered it and leaves cash, holdings and history untouched.
var (
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoPosition         = errors.New("no position in symbol")
	ErrInvalidQuantity    = errors.New("share quantity must be a positive integer")
)
