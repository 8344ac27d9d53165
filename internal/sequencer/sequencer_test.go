package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathanyu/orderbook-engine/internal/domain"
	"github.com/nathanyu/orderbook-engine/internal/orderbook"
)

func TestSequencer_StampsMonotonicInboundSeq(t *testing.T) {
	seq := New(orderbook.New(), 8)
	seq.Start()
	defer seq.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := seq.Add(ctx, domain.GoodTillCancel, domain.OrderID(i+1), domain.Sell, 100, 10)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), res.Seq)
	}
	assert.Equal(t, uint64(3), seq.CurrentInboundSeq())
}

func TestSequencer_CrossingOrderPublishesTradesOnExecutionOut(t *testing.T) {
	seq := New(orderbook.New(), 8)
	seq.Start()
	defer seq.Stop()
	ctx := context.Background()

	_, err := seq.Add(ctx, domain.GoodTillCancel, 1, domain.Sell, 100, 10)
	require.NoError(t, err)

	res, err := seq.Add(ctx, domain.GoodTillCancel, 2, domain.Buy, 100, 10)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.OrderID(1), res.Trades[0].Ask.OrderID)
	assert.Equal(t, uint64(1), seq.CurrentOutboundSeq())

	select {
	case published := <-seq.ExecutionOut:
		assert.Equal(t, res.Trades, published.Trades)
	case <-time.After(time.Second):
		t.Fatal("expected a published execution batch")
	}
}

func TestSequencer_OrderQueryReportsRestingAndUnknownIDs(t *testing.T) {
	seq := New(orderbook.New(), 8)
	seq.Start()
	defer seq.Stop()
	ctx := context.Background()

	_, err := seq.Add(ctx, domain.GoodTillCancel, 1, domain.Buy, 100, 10)
	require.NoError(t, err)

	view, found, err := seq.Order(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Size(10), view.Remaining)

	_, found, err = seq.Order(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSequencer_ModifyThenCancel(t *testing.T) {
	seq := New(orderbook.New(), 8)
	seq.Start()
	defer seq.Stop()
	ctx := context.Background()

	_, err := seq.Add(ctx, domain.GoodTillCancel, 1, domain.Buy, 100, 10)
	require.NoError(t, err)

	_, err = seq.Modify(ctx, domain.GoodTillCancel, 1, domain.Buy, 102, 20)
	require.NoError(t, err)

	view, found, err := seq.Order(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Price(102), view.Price)
	assert.Equal(t, domain.Size(20), view.Remaining)

	_, err = seq.Cancel(ctx, 1)
	require.NoError(t, err)
	_, found, err = seq.Order(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)
}
