// Package model holds the data types shared across the engine: ticker
// snapshots, orders, positions and order signals. None of these types touch
// the network; they are pure value types manipulated by account, strategy
// and engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide tags the direction of a swap as seen from the position it
// produces or closes.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

func (s OrderSide) String() string { return string(s) }

// Order is a record of one executed swap.
type Order struct {
	OrderID    string
	InputMint  string
	OutputMint string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Side       OrderSide
	Timestamp  time.Time
}

// OrderSignal is a strategy's intent. A nil Quantity means "use the
// account's default sizing" for the variant that produced the signal.
type OrderSignal struct {
	Side     OrderSide
	Quantity *decimal.Decimal
}

// MintBalance is the portion of a wallet's holdings in one mint that the
// account may commit to a new order.
type MintBalance struct {
	Mint      string
	Available decimal.Decimal
}
