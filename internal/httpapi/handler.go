// Package httpapi exposes the order book over HTTP: admission, cancellation,
// modification, and read-only book/trade queries. It is the "external
// collaborator" the core leaves wire encoding and network transport to.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nathanyu/orderbook-engine/internal/domain"
	"github.com/nathanyu/orderbook-engine/internal/feed"
	"github.com/nathanyu/orderbook-engine/internal/sequencer"
)

const requestTimeout = 2 * time.Second

// Handler holds the HTTP handler dependencies.
type Handler struct {
	seq  *sequencer.Sequencer
	feed *feed.Feed
}

// NewHandler creates a new Handler.
func NewHandler(seq *sequencer.Sequencer, feed *feed.Feed) *Handler {
	return &Handler{seq: seq, feed: feed}
}

// RegisterRoutes sets up the Gin routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", h.PlaceOrder)
		v1.GET("/orders/:id", h.GetOrder)
		v1.PATCH("/orders/:id", h.ModifyOrder)
		v1.DELETE("/orders/:id", h.CancelOrder)
		v1.GET("/trades", h.RecentTrades)
		v1.GET("/book", h.BookSnapshot)
	}
}

// Health returns a health check response.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "orderbook-engine",
	})
}

// PlaceOrderRequest is the request body for POST /v1/orders.
type PlaceOrderRequest struct {
	Type  string `json:"type" binding:"required"`
	Side  string `json:"side" binding:"required"`
	Price int64  `json:"price"`
	Size  uint64 `json:"size" binding:"required,gt=0"`
}

// PlaceOrderResponse echoes the admitted order's assigned id alongside any
// trades the admission produced.
type PlaceOrderResponse struct {
	OrderID   string         `json:"order_id"`
	Reference string         `json:"reference"`
	Sequence  uint64         `json:"sequence"`
	Trades    []domain.Trade `json:"trades"`
}

// PlaceOrder handles POST /v1/orders.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderType, err := parseOrderType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price := domain.Price(req.Price)
	if orderType == domain.Market {
		price = domain.MarketPrice
	}

	id := newOrderID()
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.seq.Add(ctx, orderType, id, side, price, domain.Size(req.Size))
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, PlaceOrderResponse{
		OrderID:   strconv.FormatUint(uint64(id), 10),
		Reference: uuid.NewString(),
		Sequence:  res.Seq,
		Trades:    res.Trades,
	})
}

// ModifyOrderRequest is the request body for PATCH /v1/orders/:id.
type ModifyOrderRequest struct {
	Type  string `json:"type" binding:"required"`
	Side  string `json:"side" binding:"required"`
	Price int64  `json:"price"`
	Size  uint64 `json:"size" binding:"required,gt=0"`
}

// ModifyOrder handles PATCH /v1/orders/:id. Modify is cancel-then-readd
// under the same id: the order always requeues at the tail of its new
// price level, forfeiting time priority even when the price is unchanged.
func (h *Handler) ModifyOrder(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ModifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orderType, err := parseOrderType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price := domain.Price(req.Price)
	if orderType == domain.Market {
		price = domain.MarketPrice
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	res, err := h.seq.Modify(ctx, orderType, id, side, price, domain.Size(req.Size))
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequence": res.Seq, "trades": res.Trades})
}

// CancelOrder handles DELETE /v1/orders/:id.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := h.seq.Cancel(ctx, id); err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetOrder handles GET /v1/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	view, found, err := h.seq.Order(ctx, id)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not resting"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// BookSnapshot handles GET /v1/book.
func (h *Handler) BookSnapshot(c *gin.Context) {
	depthStr := c.DefaultQuery("depth", "10")
	depth, err := strconv.Atoi(depthStr)
	if err != nil || depth <= 0 {
		depth = 10
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	book, err := h.seq.Book(ctx, depth)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, book)
}

// RecentTrades handles GET /v1/trades.
func (h *Handler) RecentTrades(c *gin.Context) {
	countStr := c.DefaultQuery("count", "50")
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		count = 50
	}

	trades := h.feed.Recent(count)
	if trades == nil {
		trades = []domain.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}
