package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanyu/orderbook-engine/internal/feed"
	"github.com/nathanyu/orderbook-engine/internal/orderbook"
	"github.com/nathanyu/orderbook-engine/internal/sequencer"
)

func newTestRouter(t *testing.T) (*gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seq := sequencer.New(orderbook.New(), 16)
	seq.Start()
	f := feed.New(seq)
	f.Start()

	r := gin.New()
	NewHandler(seq, f).RegisterRoutes(r)

	return r, func() {
		f.Stop()
		seq.Stop()
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrder_RestsWithNoCounterparty(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	rec := doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{
		Type: "gtc", Side: "buy", Price: 100, Size: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PlaceOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Trades)
	assert.NotEmpty(t, resp.OrderID)
	assert.NotEmpty(t, resp.Reference)

	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/v1/orders/"+resp.OrderID, nil))
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestPlaceOrder_CrossingProducesTradeAndAppearsInFeed(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	rec := doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{
		Type: "gtc", Side: "sell", Price: 100, Size: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{
		Type: "gtc", Side: "buy", Price: 100, Size: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PlaceOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)

	tradesRec := httptest.NewRecorder()
	r.ServeHTTP(tradesRec, httptest.NewRequest(http.MethodGet, "/v1/trades", nil))
	require.Equal(t, http.StatusOK, tradesRec.Code)

	var trades []map[string]any
	require.NoError(t, json.Unmarshal(tradesRec.Body.Bytes(), &trades))
	assert.NotEmpty(t, trades)
}

func TestCancelOrder_ThenNotFoundOnGet(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	rec := doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{
		Type: "gtc", Side: "buy", Price: 100, Size: 10,
	})
	var resp PlaceOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	delRec := httptest.NewRecorder()
	r.ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/v1/orders/"+resp.OrderID, nil))
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/v1/orders/"+resp.OrderID, nil))
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestPlaceOrder_RejectsUnknownSide(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	rec := doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{
		Type: "gtc", Side: "sideways", Price: 100, Size: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookSnapshot_ReflectsRestingLevels(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{Type: "gtc", Side: "buy", Price: 99, Size: 5})
	doJSON(t, r, http.MethodPost, "/v1/orders", PlaceOrderRequest{Type: "gtc", Side: "sell", Price: 101, Size: 5})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/book", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var book struct {
		Bids []map[string]any `json:"Bids"`
		Asks []map[string]any `json:"Asks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Len(t, book.Bids, 1)
	assert.Len(t, book.Asks, 1)
}

func TestHealth(t *testing.T) {
	r, stop := newTestRouter(t)
	defer stop()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
