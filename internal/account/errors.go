package account

import "errors"

// Gate and transition errors. Grounded on trader/async_account.py's
// can_buy/can_sell checks and the state machine's illegal-transition rule
// ("buy when Some, sell when None" is rejected before the swap is
// attempted).
var (
	// ErrPositionAlreadyOpen is returned by PlaceOrder(Buy, ...) when a Long
	// position is already open.
	ErrPositionAlreadyOpen = errors.New("account: position already open")

	// ErrNoPositionOpen is returned by PlaceOrder(Sell, ...) when there is no
	// open position to close.
	ErrNoPositionOpen = errors.New("account: no position open")

	// ErrInsufficientInputBalance means available input-mint balance is
	// below the 0.01 UI buy threshold.
	ErrInsufficientInputBalance = errors.New("account: insufficient input mint balance")

	// ErrInsufficientOutputBalance means available output-mint balance is
	// below the 1e-5 UI sell threshold.
	ErrInsufficientOutputBalance = errors.New("account: insufficient output mint balance")
)
