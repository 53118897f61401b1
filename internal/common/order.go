package common

import (
	"fmt"
	"time"
)

// Side is which side of the book an Order sits on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType distinguishes resting LIMIT orders from sweep-only MARKET
// orders (spec §3).
type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "LIMIT"
	}
	return "MARKET"
}

// Status is the lifecycle state of an Order (spec §3 Lifecycle).
type Status int

const (
	Pending Status = iota
	Open
	PartiallyFilled
	Filled
	Cancelled
	Rejected
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Open:
		return "OPEN"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether an order in this status can never transition
// again (spec §8: cancel of an already-terminal order fails deterministically).
func (s Status) IsTerminal() bool {
	switch s {
	case Cancelled, Filled, Rejected, Failed:
		return true
	default:
		return false
	}
}

// Order is the book's unit of work. Identity is OrderID, assigned by the
// primary store (spec §3/§9 Open Question (b)).
type Order struct {
	OrderID        int64     `json:"order_id"`
	UserID         string    `json:"user_id"`
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	Type           OrderType `json:"type"`
	Price          Money     `json:"price,omitempty"`
	Quantity       Money     `json:"quantity"`
	FilledQuantity Money     `json:"filled_quantity"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Remaining is the derived unfilled quantity (spec §3: remaining =
// quantity - filled_quantity).
func (o Order) Remaining() Money {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Validate enforces the structural invariants of spec §3 that a
// pre-match boundary must check before an Order may enter matching.
// Failures here are ValidationErrors (spec §7): caught at the ingress
// boundary, never reaching the book.
func (o Order) Validate() error {
	if o.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if o.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if !o.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be > 0"}
	}
	switch o.Type {
	case Limit:
		if !o.Price.IsPositive() {
			return &ValidationError{Field: "price", Reason: "required and must be > 0 for LIMIT orders"}
		}
	case Market:
		if !o.Price.IsZero() {
			return &ValidationError{Field: "price", Reason: "forbidden for MARKET orders"}
		}
	default:
		return &ValidationError{Field: "type", Reason: "unknown order type"}
	}
	if o.FilledQuantity.GreaterThan(o.Quantity) {
		return &ValidationError{Field: "filled_quantity", Reason: "must not exceed quantity"}
	}
	return nil
}

// Fill applies a fill of the given quantity, mutating FilledQuantity and
// Status in place to match spec §3's derived-status invariants.
func (o *Order) Fill(qty Money, at time.Time) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	o.UpdatedAt = at
	switch {
	case o.FilledQuantity.Cmp(o.Quantity) == 0:
		o.Status = Filled
	case o.FilledQuantity.IsPositive():
		o.Status = PartiallyFilled
	default:
		o.Status = Open
	}
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d user=%s symbol=%s side=%v type=%v price=%v qty=%v filled=%v status=%v}",
		o.OrderID, o.UserID, o.Symbol, o.Side, o.Type, o.Price, o.Quantity, o.FilledQuantity, o.Status,
	)
}
