package domain

import (
	"time"

	"github.com/camera6912/orb-trader/pkg/quant"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the other side of the OCO pair.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Direction is +1 for long and -1 for short.
func (s Side) Direction() int64 {
	if s == SideShort {
		return -1
	}
	return 1
}

type OrderKind string

const (
	KindEntry  OrderKind = "entry"
	KindStop   OrderKind = "stop"
	KindTarget OrderKind = "target"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCancelled OrderStatus = "cancelled"
	OrderFilled    OrderStatus = "filled"
)

// Order is a simulated stop/limit order.
// Status only moves forward: pending -> filled | cancelled.
type Order struct {
	ID        string      `json:"id"`
	Side      Side        `json:"side"`
	Kind      OrderKind   `json:"kind"`
	Price     quant.Price `json:"price"`
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsOpen checks if the order is still active.
func (o *Order) IsOpen() bool {
	return o.Status == OrderPending
}

// Fill marks a pending order filled. Returns false if the order was not pending.
func (o *Order) Fill(at time.Time) bool {
	if o.Status != OrderPending {
		return false
	}
	o.Status = OrderFilled
	o.UpdatedAt = at
	return true
}

// Cancel marks a pending order cancelled. Returns false if the order was not pending.
func (o *Order) Cancel(at time.Time) bool {
	if o.Status != OrderPending {
		return false
	}
	o.Status = OrderCancelled
	o.UpdatedAt = at
	return true
}
