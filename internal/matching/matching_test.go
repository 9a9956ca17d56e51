package matching

import (
	"testing"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
	"github.com/cryptomegabyte/gridsim/internal/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBook() *orderbook.Book {
	b := orderbook.New("XRPGBP")
	b.ApplySnapshot(
		[][2]float64{{2000, 1.0}, {1999, 2.0}, {1998, 3.0}},
		[][2]float64{{2001, 1.0}, {2002, 2.0}, {2003, 3.0}},
		time.Now(),
	)
	return b
}

func TestMarketBuy_AveragePriceMatchesVWAP_S3(t *testing.T) {
	e := New(DefaultConfig())
	book := sampleBook()
	order := model.SimOrder{ID: "o1", Side: model.Buy, Type: model.Market, Quantity: 2.0}

	res, err := e.Match(order, book)
	require.NoError(t, err)
	assert.Equal(t, model.FullyFilled, res.Status)
	assert.InDelta(t, 2.0, res.TotalFilled, 1e-9)
	assert.InDelta(t, 2001.5, res.AveragePrice, 1e-9)
}

func TestPostOnly_Rejection_S4(t *testing.T) {
	e := New(DefaultConfig())
	book := sampleBook()

	crossing := model.SimOrder{ID: "o2", Side: model.Buy, Type: model.PostOnly, LimitPrice: 2001, Quantity: 1}
	res, err := e.Match(crossing, book)
	require.NoError(t, err)
	assert.Equal(t, model.Rejected, res.Status)

	resting := model.SimOrder{ID: "o3", Side: model.Buy, Type: model.PostOnly, LimitPrice: 2000, Quantity: 1}
	res, err = e.Match(resting, book)
	require.NoError(t, err)
	assert.Equal(t, model.PostedToBook, res.Status)
}

func TestLimitOrder_NonCrossingPosts(t *testing.T) {
	e := New(DefaultConfig())
	book := sampleBook()
	order := model.SimOrder{ID: "o4", Side: model.Buy, Type: model.Limit, LimitPrice: 1995, Quantity: 1}
	res, err := e.Match(order, book)
	require.NoError(t, err)
	assert.Equal(t, model.PostedToBook, res.Status)
	assert.Empty(t, res.Fills)
}

func TestLimitOrder_CrossingFillsUpToLimit(t *testing.T) {
	e := New(DefaultConfig())
	book := sampleBook()
	order := model.SimOrder{ID: "o5", Side: model.Buy, Type: model.Limit, LimitPrice: 2001, Quantity: 3}
	res, err := e.Match(order, book)
	require.NoError(t, err)
	assert.Equal(t, model.PartiallyFilled, res.Status)
	assert.InDelta(t, 1.0, res.TotalFilled, 1e-9)
}

func TestMarketOrder_RejectedWithoutLiquidity(t *testing.T) {
	e := New(DefaultConfig())
	book := orderbook.New("XRPGBP")
	order := model.SimOrder{ID: "o6", Side: model.Buy, Type: model.Market, Quantity: 1}
	_, err := e.Match(order, book)
	assert.Error(t, err)
}

func TestValidate_QuantityOutOfBoundsRejected(t *testing.T) {
	e := New(DefaultConfig())
	book := sampleBook()
	order := model.SimOrder{ID: "o7", Side: model.Buy, Type: model.Market, Quantity: 0}
	_, err := e.Match(order, book)
	assert.Error(t, err)
}
