package domain

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// OrderBookLevel is one price level of a side of the book.
type OrderBookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// priceLevelHeap is a container/heap-backed priority queue of levels, sorted
// either ascending (asks) or descending (bids) on Price.
type priceLevelHeap struct {
	levels      []OrderBookLevel
	isAscending bool
}

func (h priceLevelHeap) Len() int { return len(h.levels) }
func (h priceLevelHeap) Less(i, j int) bool {
	if h.isAscending {
		return h.levels[i].Price.LessThan(h.levels[j].Price)
	}
	return h.levels[i].Price.GreaterThan(h.levels[j].Price)
}
func (h priceLevelHeap) Swap(i, j int) { h.levels[i], h.levels[j] = h.levels[j], h.levels[i] }
func (h *priceLevelHeap) Push(x interface{}) {
	h.levels = append(h.levels, x.(OrderBookLevel))
}
func (h *priceLevelHeap) Pop() interface{} {
	old := h.levels
	n := len(old)
	item := old[n-1]
	h.levels = old[:n-1]
	return item
}

// OrderBookSide holds one side (bids or asks) of an order book, keyed by
// price. Every update rebuilds the side's heap from the price map (O(n));
// Best and Depth read levels in sorted order.
type OrderBookSide struct {
	byPrice map[string]OrderBookLevel
	heap    priceLevelHeap
}

func newOrderBookSide(isAscending bool) *OrderBookSide {
	return &OrderBookSide{
		byPrice: make(map[string]OrderBookLevel),
		heap:    priceLevelHeap{isAscending: isAscending},
	}
}

func (s *OrderBookSide) Update(price, quantity decimal.Decimal) {
	key := price.String()
	if quantity.IsZero() {
		delete(s.byPrice, key)
	} else {
		s.byPrice[key] = OrderBookLevel{Price: price, Quantity: quantity}
	}
	s.rebuild()
}

func (s *OrderBookSide) rebuild() {
	levels := make([]OrderBookLevel, 0, len(s.byPrice))
	for _, lvl := range s.byPrice {
		levels = append(levels, lvl)
	}
	s.heap.levels = levels
	heap.Init(&s.heap)
}

func (s *OrderBookSide) Best() (OrderBookLevel, bool) {
	if len(s.heap.levels) == 0 {
		return OrderBookLevel{}, false
	}
	return s.heap.levels[0], true
}

func (s *OrderBookSide) Depth(n int) []OrderBookLevel {
	cp := priceLevelHeap{levels: append([]OrderBookLevel{}, s.heap.levels...), isAscending: s.heap.isAscending}
	out := make([]OrderBookLevel, 0, n)
	for cp.Len() > 0 && len(out) < n {
		out = append(out, heap.Pop(&cp).(OrderBookLevel))
	}
	return out
}

// OrderBook maintains bids sorted descending and asks ascending, enforcing
// best_bid < best_ask as data flows in.
type OrderBook struct {
	Symbol          Symbol
	Bids            *OrderBookSide
	Asks            *OrderBookSide
	SequenceNumber  uint64
}

func NewOrderBook(symbol Symbol) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Bids:   newOrderBookSide(false),
		Asks:   newOrderBookSide(true),
	}
}

func (b *OrderBook) UpdateBid(price, quantity decimal.Decimal) {
	b.Bids.Update(price, quantity)
	b.SequenceNumber++
}

func (b *OrderBook) UpdateAsk(price, quantity decimal.Decimal) {
	b.Asks.Update(price, quantity)
	b.SequenceNumber++
}

func (b *OrderBook) GetMidPrice() (decimal.Decimal, bool) {
	bid, ok1 := b.Bids.Best()
	ask, ok2 := b.Asks.Best()
	if !ok1 || !ok2 {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// GetSpread returns the bid/ask spread in basis points.
func (b *OrderBook) GetSpread() (decimal.Decimal, bool) {
	bid, ok1 := b.Bids.Best()
	ask, ok2 := b.Asks.Best()
	if !ok1 || !ok2 || bid.Price.IsZero() {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price).Div(bid.Price).Mul(decimal.NewFromInt(10000)), true
}

// GetImbalance returns order-flow imbalance over the top n levels of each
// side: (bidVol - askVol) / (bidVol + askVol).
func (b *OrderBook) GetImbalance(depth int) decimal.Decimal {
	var bidVol, askVol decimal.Decimal
	for _, l := range b.Bids.Depth(depth) {
		bidVol = bidVol.Add(l.Quantity)
	}
	for _, l := range b.Asks.Depth(depth) {
		askVol = askVol.Add(l.Quantity)
	}
	sum := bidVol.Add(askVol)
	if sum.IsZero() {
		return decimal.Zero
	}
	return bidVol.Sub(askVol).Div(sum)
}
