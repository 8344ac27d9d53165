package orderbook

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/nathanyu/orderbook-engine/internal/domain"
)

// levelIndex is one side's sorted collection of price levels. The bid index
// orders prices so the highest is best; the ask index orders them so the
// lowest is best. Backed by a red-black tree keyed by price, giving O(log n)
// insertion, removal, and best-price lookup regardless of how sparse or
// dense the traded price range is.
type levelIndex struct {
	side domain.Side
	tree *rbt.Tree[domain.Price, *priceLevel]
}

func newLevelIndex(side domain.Side) *levelIndex {
	var cmp func(a, b domain.Price) int
	if side == domain.Buy {
		// Bids: greater-than comparator, so higher prices sort first.
		cmp = func(a, b domain.Price) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}
	} else {
		// Asks: less-than comparator, so lower prices sort first.
		cmp = func(a, b domain.Price) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	return &levelIndex{side: side, tree: rbt.NewWith[domain.Price, *priceLevel](cmp)}
}

func (li *levelIndex) empty() bool { return li.tree.Empty() }

// levelAt returns the level resting at price, if any.
func (li *levelIndex) levelAt(price domain.Price) (*priceLevel, bool) {
	return li.tree.Get(price)
}

// LevelView is a read-only snapshot of one price level's aggregate state.
type LevelView struct {
	Price domain.Price
	Size  domain.Size
}

// levels returns up to limit levels from best outward.
func (li *levelIndex) levels(limit int) []LevelView {
	var views []LevelView
	for _, price := range li.tree.Keys() {
		if len(views) >= limit {
			break
		}
		level, ok := li.tree.Get(price)
		if !ok {
			continue
		}
		views = append(views, LevelView{Price: price, Size: level.size})
	}
	return views
}

// best returns the best price and true, or the zero price and false if this
// side has no resting orders. Callers that need the price unconditionally
// should check empty() first.
func (li *levelIndex) best() (domain.Price, bool) {
	node := li.tree.Left()
	if node == nil {
		return 0, false
	}
	return node.Key, true
}

// add locates or creates the level for order.Price(), appends to its tail,
// and returns the level and list element so the caller (OrderBook) can
// store them for O(1) future cancellation.
func (li *levelIndex) add(order *domain.Order) (*priceLevel, *list.Element) {
	level, found := li.tree.Get(order.Price())
	if !found {
		level = newPriceLevel(order.Price())
		li.tree.Put(order.Price(), level)
	}
	elem := level.append(order)
	return level, elem
}

// cancel removes a known resting order's element from its level and erases
// the level if it empties. A no-op if level is nil (order already gone).
func (li *levelIndex) cancel(level *priceLevel, elem *list.Element) {
	if level == nil {
		return
	}
	level.remove(elem)
	if level.empty() {
		li.tree.Remove(level.price)
	}
}

// crosses reports whether an aggressor with the given side and limit price
// can legally trade against a resting level at levelPrice. Market always
// crosses; Buy crosses when aggressorPrice >= levelPrice; Sell crosses when
// aggressorPrice <= levelPrice.
func crosses(aggressorSide domain.Side, aggressorPrice domain.Price, levelPrice domain.Price) bool {
	if aggressorPrice == domain.MarketPrice {
		return true
	}
	if aggressorSide == domain.Buy {
		return aggressorPrice >= levelPrice
	}
	return aggressorPrice <= levelPrice
}

// canFullyFill scans levels from best toward worse, stopping as soon as a
// level no longer crosses, accumulating resting remaining size while
// skipping any AllOrNone resting order whose remaining size exceeds what
// is still needed. Returns true as soon as the accumulation reaches
// volumeNeeded.
func (li *levelIndex) canFullyFill(aggressorSide domain.Side, aggressorPrice domain.Price, volumeNeeded domain.Size) bool {
	if volumeNeeded == 0 {
		return true
	}
	var accumulated domain.Size
	for _, price := range li.tree.Keys() {
		if !crosses(aggressorSide, aggressorPrice, price) {
			break
		}
		level, ok := li.tree.Get(price)
		if !ok {
			continue
		}
		for e := level.front(); e != nil; e = e.Next() {
			resting := e.Value.(*domain.Order)
			stillNeeded := volumeNeeded - accumulated
			if resting.Type() == domain.AllOrNone && resting.RemainingSize() > stillNeeded {
				continue
			}
			accumulated += resting.RemainingSize()
			if accumulated >= volumeNeeded {
				return true
			}
		}
	}
	return false
}

// match walks this side from best price outward against aggressor, trading
// at each resting order's price until aggressor is exhausted or no further
// level crosses its limit. onRemove is invoked synchronously, in FIFO
// order, for every resting order consumed to exhaustion, before it is
// dropped from its level — the caller uses it to evict the order from the
// book's by-id map.
func (li *levelIndex) match(aggressor *domain.Order, onRemove func(domain.OrderID)) []domain.Trade {
	var trades []domain.Trade
	aggressorSide := aggressor.Side()
	aggressorPrice := aggressor.Price()

	for _, price := range li.tree.Keys() {
		if aggressor.RemainingSize() == 0 {
			break
		}
		if !crosses(aggressorSide, aggressorPrice, price) {
			break
		}
		level, ok := li.tree.Get(price)
		if !ok {
			continue
		}

		elem := level.front()
		for elem != nil && aggressor.RemainingSize() > 0 {
			resting := elem.Value.(*domain.Order)
			next := elem.Next()

			if resting.Type() == domain.AllOrNone && resting.RemainingSize() > aggressor.RemainingSize() {
				elem = next
				continue
			}

			tradeSize := aggressor.RemainingSize()
			if resting.RemainingSize() < tradeSize {
				tradeSize = resting.RemainingSize()
			}

			resting.Fill(tradeSize)
			aggressor.Fill(tradeSize)
			level.recordFill(tradeSize)
			trades = append(trades, newTrade(aggressorSide, aggressor.ID(), resting.ID(), price, tradeSize))

			if resting.IsFilled() {
				onRemove(resting.ID())
				level.remove(elem)
			}

			elem = next
		}

		if level.empty() {
			li.tree.Remove(price)
		}
	}

	return trades
}

// newTrade builds a Trade with bid/ask fields assigned by the aggressor's
// side; the execution price is always the resting order's price.
func newTrade(aggressorSide domain.Side, aggressorID, restingID domain.OrderID, price domain.Price, size domain.Size) domain.Trade {
	if aggressorSide == domain.Buy {
		return domain.Trade{
			Bid: domain.TradeData{OrderID: aggressorID, Price: price, Size: size},
			Ask: domain.TradeData{OrderID: restingID, Price: price, Size: size},
		}
	}
	return domain.Trade{
		Bid: domain.TradeData{OrderID: restingID, Price: price, Size: size},
		Ask: domain.TradeData{OrderID: aggressorID, Price: price, Size: size},
	}
}
