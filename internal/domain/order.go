package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) Sign() int64 {
	if d == Sell {
		return -1
	}
	return 1
}

type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	OrderTypeTrailingStop
	OrderTypeFOK
	OrderTypeIOC
)

type TimeInForce int

const (
	TimeInForceGTC TimeInForce = iota
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
)

type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderSubmitted
	OrderPartiallyFilled
	OrderFilled
	OrderCancelled
	OrderRejected
	OrderExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderSubmitted:
		return "submitted"
	case OrderPartiallyFilled:
		return "partially_filled"
	case OrderFilled:
		return "filled"
	case OrderCancelled:
		return "cancelled"
	case OrderRejected:
		return "rejected"
	case OrderExpired:
		return "expired"
	default:
		return "pending"
	}
}

// orderStateTransitions defines the legal status DAG:
// Pending -> Submitted -> {PartiallyFilled -> Filled | Cancelled | Rejected | Expired}
var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:         {OrderSubmitted, OrderRejected},
	OrderSubmitted:       {OrderPartiallyFilled, OrderFilled, OrderCancelled, OrderRejected, OrderExpired},
	OrderPartiallyFilled: {OrderFilled, OrderCancelled, OrderRejected, OrderExpired},
	OrderFilled:          {},
	OrderCancelled:       {},
	OrderRejected:        {},
	OrderExpired:         {},
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderStateTransitions[s]) == 0
}

// Order is the richer of the two shapes the original source defined; see
// DESIGN.md's Open Question decision for why.
type Order struct {
	ID                string
	Symbol            Symbol
	Direction         Direction
	OrderType         OrderType
	Quantity          decimal.Decimal
	Price             *decimal.Decimal
	StopPrice         *decimal.Decimal
	TimeInForce       TimeInForce
	Status            OrderStatus
	FilledQuantity    decimal.Decimal
	AverageFillPrice  *decimal.Decimal
	CreatedNs         int64
	UpdatedNs         int64
	StrategyID        string
	Metadata          map[string]string
}

// IsActive reports whether the order still occupies the active-orders map.
func (o *Order) IsActive() bool {
	switch o.Status {
	case OrderPending, OrderSubmitted, OrderPartiallyFilled:
		return true
	default:
		return false
	}
}

// Transition moves the order to next if legal, updating UpdatedNs, or
// returns a StateConflict error.
func (o *Order) Transition(next OrderStatus, nowNs int64) error {
	if !o.Status.CanTransition(next) {
		return StateConflict("Order.Transition", fmt.Errorf("cannot move from %s to %s", o.Status, next))
	}
	o.Status = next
	o.UpdatedNs = nowNs
	return nil
}

// Validate enforces the construction-time constraints from the data model:
// quantity strictly positive, Limit requires positive price, Stop requires
// stop_price, StopLimit requires both.
func (o *Order) Validate() error {
	if !o.Quantity.IsPositive() {
		return Validation("Order.Validate", fmt.Errorf("quantity must be strictly positive"))
	}
	switch o.OrderType {
	case OrderTypeLimit:
		if o.Price == nil || !o.Price.IsPositive() {
			return Validation("Order.Validate", fmt.Errorf("limit order requires a positive price"))
		}
	case OrderTypeStop:
		if o.StopPrice == nil || !o.StopPrice.IsPositive() {
			return Validation("Order.Validate", fmt.Errorf("stop order requires a positive stop_price"))
		}
	case OrderTypeStopLimit:
		if o.Price == nil || !o.Price.IsPositive() {
			return Validation("Order.Validate", fmt.Errorf("stop-limit order requires a positive price"))
		}
		if o.StopPrice == nil || !o.StopPrice.IsPositive() {
			return Validation("Order.Validate", fmt.Errorf("stop-limit order requires a positive stop_price"))
		}
	}
	return nil
}
