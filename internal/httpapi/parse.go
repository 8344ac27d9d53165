package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/nathanyu/orderbook-engine/internal/domain"
)

var idCounter atomic.Uint64

// newOrderID hands out a process-unique id for an incoming order. The core
// only requires uniqueness while an id is resting; a monotonic counter
// satisfies that without needing a distributed id scheme.
func newOrderID() domain.OrderID {
	return domain.OrderID(idCounter.Add(1))
}

func parseOrderID(raw string) (domain.OrderID, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return domain.OrderID(n), nil
}

func parseSide(raw string) (domain.Side, error) {
	switch strings.ToLower(raw) {
	case "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return 0, fmt.Errorf("side must be 'buy' or 'sell', got %q", raw)
	}
}

func parseOrderType(raw string) (domain.OrderType, error) {
	switch strings.ToLower(raw) {
	case "market":
		return domain.Market, nil
	case "fillorkill", "fok":
		return domain.FillOrKill, nil
	case "fillandkill", "fak":
		return domain.FillAndKill, nil
	case "goodtillcancel", "gtc":
		return domain.GoodTillCancel, nil
	case "goodforday", "gfd":
		return domain.GoodForDay, nil
	case "allornone", "aon":
		return domain.AllOrNone, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", raw)
	}
}
