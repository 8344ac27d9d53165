// Package orderbook implements a single-instrument, in-memory limit order
// book and matching engine with strict price-time priority. It is the
// synchronous, single-threaded matching core: every exported method on
// OrderBook runs to completion and returns, never partially applying a
// state transition.
package orderbook

import (
	"container/list"

	"github.com/nathanyu/orderbook-engine/internal/domain"
)

// restingEntry is what the by-id map holds for a resting order: the order
// itself, the FIFO element it occupies, and the level that element lives
// in — enough to cancel it without searching the tree for its level (the
// tree is only touched to erase the level if the cancel empties it).
type restingEntry struct {
	order *domain.Order
	level *priceLevel
	elem  *list.Element
}

// OrderBook composes the two sides' level indexes with a single by-id map
// of every currently resting order. Market, FillOrKill, and FillAndKill
// orders never appear in the by-id map: they either trade immediately or
// are discarded.
type OrderBook struct {
	bids    *levelIndex
	asks    *levelIndex
	resting map[domain.OrderID]*restingEntry
}

// New constructs an empty order book.
func New() *OrderBook {
	return &OrderBook{
		bids:    newLevelIndex(domain.Buy),
		asks:    newLevelIndex(domain.Sell),
		resting: make(map[domain.OrderID]*restingEntry),
	}
}

func (b *OrderBook) sideIndex(side domain.Side) *levelIndex {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

// Empty reports whether both sides of the book hold no resting orders.
func (b *OrderBook) Empty() bool {
	return b.bids.empty() && b.asks.empty()
}

// OrderView is a read-only snapshot of a resting order, safe to hand to a
// collaborator (an HTTP layer, a GFD expiry scheduler) without exposing the
// mutable *domain.Order underneath.
type OrderView struct {
	Type      domain.OrderType
	ID        domain.OrderID
	Side      domain.Side
	Price     domain.Price
	Initial   domain.Size
	Remaining domain.Size
}

// Order returns a snapshot of a currently resting order, if any.
func (b *OrderBook) Order(id domain.OrderID) (OrderView, bool) {
	entry, ok := b.resting[id]
	if !ok {
		return OrderView{}, false
	}
	o := entry.order
	return OrderView{
		Type:      o.Type(),
		ID:        o.ID(),
		Side:      o.Side(),
		Price:     o.Price(),
		Initial:   o.InitialSize(),
		Remaining: o.RemainingSize(),
	}, true
}

// BookView is a read-only depth snapshot, best-price-first on each side.
type BookView struct {
	Bids       []LevelView
	Asks       []LevelView
	BestBid    domain.Price
	HasBestBid bool
	BestAsk    domain.Price
	HasBestAsk bool
}

// Book returns a snapshot of up to depth price levels per side, best first.
func (b *OrderBook) Book(depth int) BookView {
	bestBid, hasBestBid := b.bids.best()
	bestAsk, hasBestAsk := b.asks.best()
	return BookView{
		Bids:       b.bids.levels(depth),
		Asks:       b.asks.levels(depth),
		BestBid:    bestBid,
		HasBestBid: hasBestBid,
		BestAsk:    bestAsk,
		HasBestAsk: hasBestAsk,
	}
}

// Depth returns the number of currently resting orders on one side.
func (b *OrderBook) Depth(side domain.Side) int {
	count := 0
	for _, entry := range b.resting {
		if entry.order.Side() == side {
			count++
		}
	}
	return count
}

// GoodForDayIDs returns the ids of every currently resting GoodForDay
// order. The core keeps no wall clock; a collaborator is expected to call
// this at day boundaries and Cancel each id itself.
func (b *OrderBook) GoodForDayIDs() []domain.OrderID {
	var ids []domain.OrderID
	for id, entry := range b.resting {
		if entry.order.Type() == domain.GoodForDay {
			ids = append(ids, id)
		}
	}
	return ids
}

// Add admits a new order and returns the trades it generated. See the
// per-type policy below; the call never partially applies: either the
// documented transition happens in full or nothing changes.
func (b *OrderBook) Add(orderType domain.OrderType, id domain.OrderID, side domain.Side, price domain.Price, size domain.Size) []domain.Trade {
	// Duplicate rejection: an id currently resting can't be re-admitted.
	if _, exists := b.resting[id]; exists {
		return nil
	}

	aggressor := domain.NewOrder(orderType, id, side, price, size)
	opposite := b.sideIndex(side.Opposite())

	if orderType == domain.FillOrKill {
		if !opposite.canFullyFill(side, price, size) {
			return nil
		}
	}

	var trades []domain.Trade
	skippedMatch := false

	if orderType == domain.AllOrNone {
		if !opposite.canFullyFill(side, price, size) {
			skippedMatch = true
		}
	}

	if !skippedMatch {
		trades = opposite.match(aggressor, func(restingID domain.OrderID) {
			delete(b.resting, restingID)
		})
	}

	switch orderType {
	case domain.Market, domain.FillAndKill:
		// Residual, if any, is discarded; these types never rest.
	case domain.FillOrKill:
		// step 2 guarantees a full fill here; nothing to discard or rest.
	case domain.AllOrNone:
		if skippedMatch {
			b.rest(aggressor)
		}
		// If matching ran, residual is zero by construction of canFullyFill.
	case domain.GoodTillCancel, domain.GoodForDay:
		if aggressor.RemainingSize() > 0 {
			b.rest(aggressor)
		}
	}

	return trades
}

// rest inserts an order into its side's level index and the by-id map.
func (b *OrderBook) rest(order *domain.Order) {
	level, elem := b.sideIndex(order.Side()).add(order)
	b.resting[order.ID()] = &restingEntry{order: order, level: level, elem: elem}
}

// Cancel removes a resting order by id. A silent no-op if the id is not
// currently resting.
func (b *OrderBook) Cancel(id domain.OrderID) {
	entry, ok := b.resting[id]
	if !ok {
		return
	}
	b.sideIndex(entry.order.Side()).cancel(entry.level, entry.elem)
	delete(b.resting, id)
}

// Modify is Cancel(id) followed by Add(...) under the same id: the order
// always requeues at the tail of its new price level, even when the price
// is unchanged — time priority is forfeited by design.
func (b *OrderBook) Modify(newType domain.OrderType, id domain.OrderID, newSide domain.Side, newPrice domain.Price, newSize domain.Size) []domain.Trade {
	b.Cancel(id)
	return b.Add(newType, id, newSide, newPrice, newSize)
}
