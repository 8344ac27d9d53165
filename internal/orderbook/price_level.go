package orderbook

import (
	"container/list"

	"github.com/nathanyu/orderbook-engine/internal/domain"
)

// priceLevel is the FIFO queue of resting orders at one price, plus the
// aggregate remaining size kept in lockstep with every append, partial
// fill, and removal.
type priceLevel struct {
	price domain.Price
	size  domain.Size
	queue *list.List // of *domain.Order, arrival order = FIFO order
}

func newPriceLevel(price domain.Price) *priceLevel {
	return &priceLevel{
		price: price,
		queue: list.New(),
	}
}

// append adds an order to the tail of the level and returns its list
// element so the caller can later remove it in O(1).
func (l *priceLevel) append(order *domain.Order) *list.Element {
	l.size += order.RemainingSize()
	return l.queue.PushBack(order)
}

// remove drops a specific order's element from the FIFO and decrements the
// aggregate size by whatever remained on it.
func (l *priceLevel) remove(elem *list.Element) {
	order := elem.Value.(*domain.Order)
	l.size -= order.RemainingSize()
	l.queue.Remove(elem)
}

// recordFill decrements the level's aggregate size after a partial fill of
// one of its resting orders. The caller has already called order.Fill.
func (l *priceLevel) recordFill(n domain.Size) {
	l.size -= n
}

func (l *priceLevel) empty() bool { return l.queue.Len() == 0 }

func (l *priceLevel) front() *list.Element { return l.queue.Front() }
