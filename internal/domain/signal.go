package domain

// Signal is a strategy-level trading instruction, distinct from the
// pipeline's PortfolioTarget/Order — strategies emit Signals, the execution
// stage turns targets into Orders.
type Signal struct {
	ID          string
	StrategyID  string
	Symbol      Symbol
	Direction   Direction
	OrderType   OrderType
	Price       *Price
	Quantity    Quantity
	StopPrice   *Price
	Priority    int
	TimestampNs int64
	Metadata    map[string]interface{}
	TimeInForce TimeInForce
}

const (
	SignalPriorityLow      = 1
	SignalPriorityMedium   = 5
	SignalPriorityHigh     = 8
	SignalPriorityCritical = 10
)
