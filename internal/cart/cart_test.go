package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papelpos/backend/internal/domain"
)

type lookup map[int64]domain.Product

func (l lookup) FindByID(id int64) (domain.Product, bool) {
	p, ok := l[id]
	return p, ok
}

func testCatalog() lookup {
	return lookup{
		1: {ID: 1, Code: "P0001", Name: "Cuaderno", Price: 12500, TrackInventory: true, Stock: 2},
		2: {ID: 2, Code: "P0002", Name: "Lapicero", Price: 2200, TrackInventory: true, Stock: 0},
		3: {ID: 3, Code: "P0003", Name: "Fotocopia", Price: 200},
	}
}

func TestAddItemMergesLines(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())

	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(3, products))
	require.NoError(t, c.AddItem(1, products))

	assert.Equal(t, []domain.CartLine{{ProductID: 1, Qty: 2}, {ProductID: 3, Qty: 1}}, c.Lines())
	assert.Equal(t, int64(25200), c.Total(products))
}

func TestAddItemFailuresLeaveCartUnchanged(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(1, products))

	err := c.AddItem(1, products)
	var exceeded *domain.StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 2, exceeded.Available)
	assert.Equal(t, 3, exceeded.Requested)

	var out *domain.OutOfStockError
	require.ErrorAs(t, c.AddItem(2, products), &out)
	assert.Equal(t, "Lapicero", out.ProductName)

	assert.ErrorIs(t, c.AddItem(99, products), domain.ErrNotFound)
	assert.Equal(t, []domain.CartLine{{ProductID: 1, Qty: 2}}, c.Lines())
}

func TestUntrackedProductHasNoCeiling(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	for i := 0; i < 50; i++ {
		require.NoError(t, c.AddItem(3, products))
	}
	require.NoError(t, c.ChangeQty(3, 100, products))
	assert.Equal(t, 150, c.Qty(3))
}

func TestChangeQty(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	require.NoError(t, c.AddItem(1, products))

	require.NoError(t, c.ChangeQty(1, 1, products))
	assert.Equal(t, 2, c.Qty(1))

	assert.ErrorIs(t, c.ChangeQty(1, 1, products), domain.ErrStockExceeded)
	assert.Equal(t, 2, c.Qty(1))

	assert.ErrorIs(t, c.ChangeQty(3, 1, products), domain.ErrNotFound)
}

func TestDecrementAboveReducedStockIsRejected(t *testing.T) {
	products := lookup{
		7: {ID: 7, Code: "P0007", Name: "Marcador", Price: 3000, TrackInventory: true, Stock: 5},
	}
	c := New(time.Now())
	for i := 0; i < 5; i++ {
		require.NoError(t, c.AddItem(7, products))
	}

	products[7] = domain.Product{ID: 7, Code: "P0007", Name: "Marcador", Price: 3000, TrackInventory: true, Stock: 2}

	assert.ErrorIs(t, c.ChangeQty(7, -1, products), domain.ErrStockExceeded)
	assert.Equal(t, 5, c.Qty(7))

	require.NoError(t, c.ChangeQty(7, -5, products))
	assert.Equal(t, 0, c.Len())
}

func TestDecrementToZeroRemovesLine(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	require.NoError(t, c.AddItem(3, products))

	require.NoError(t, c.ChangeQty(3, -1, products))
	assert.Equal(t, 0, c.Len())

	assert.ErrorIs(t, c.ChangeQty(3, -1, products), domain.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestRemoveAndClear(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(3, products))

	assert.True(t, c.RemoveItem(1))
	assert.False(t, c.RemoveItem(1))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Total(products))
}

func TestDeletedProductIsPruned(t *testing.T) {
	products := testCatalog()
	c := New(time.Now())
	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(3, products))

	delete(products, 1)
	assert.Equal(t, int64(200), c.Total(products), "stale line contributes nothing")
	assert.Len(t, c.View(products).Lines, 1)

	assert.Equal(t, []int64{1}, c.PruneMissing(products))
	assert.Equal(t, []domain.CartLine{{ProductID: 3, Qty: 1}}, c.Lines())
	assert.Empty(t, c.PruneMissing(products))
}

func TestViewResolvesLines(t *testing.T) {
	products := testCatalog()
	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	c := New(created)
	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(1, products))
	require.NoError(t, c.AddItem(3, products))

	view := c.View(products)
	assert.Equal(t, "DRAFT", view.State)
	assert.Equal(t, int64(25200), view.Total)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, created, view.CreatedAt)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, int64(25000), view.Lines[0].Subtotal)
	assert.Equal(t, "P0001", view.Lines[0].Code)
}

func TestStateTransitions(t *testing.T) {
	c := New(time.Now())
	assert.Equal(t, StateDraft, c.State())

	c.Begin()
	assert.Equal(t, StateValidating, c.State())
	c.Abort()
	assert.Equal(t, StateDraft, c.State())

	c.Begin()
	c.Complete()
	assert.Equal(t, StateConfirmed, c.State())
}
