package cart

import (
	"fmt"
	"time"

	"papelpos/backend/internal/domain"
)

// ProductLookup resolves cart lines against the live catalog. A failed lookup
// means the product was deleted and is an expected case.
type ProductLookup interface {
	FindByID(id int64) (domain.Product, bool)
}

type State string

const (
	StateDraft      State = "DRAFT"
	StateValidating State = "VALIDATING"
	StateConfirmed  State = "CONFIRMED"
)

// Cart is the draft sale: one line per product id, quantities always >= 1.
type Cart struct {
	lines     []domain.CartLine
	state     State
	createdAt time.Time
}

func New(now time.Time) *Cart {
	return &Cart{state: StateDraft, createdAt: now}
}

func (c *Cart) State() State         { return c.state }
func (c *Cart) CreatedAt() time.Time { return c.createdAt }
func (c *Cart) Len() int             { return len(c.lines) }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Qty(productID int64) int {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx].Qty
	}
	return 0
}

// AddItem adds one unit of a product, creating the line if needed. Nothing
// changes when it fails.
func (c *Cart) AddItem(productID int64, products ProductLookup) error {
	p, ok := products.FindByID(productID)
	if !ok {
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}

	idx := c.indexOf(productID)
	current := 0
	if idx >= 0 {
		current = c.lines[idx].Qty
	}

	if p.TrackInventory {
		if p.Stock <= 0 {
			return &domain.OutOfStockError{ProductName: p.Name}
		}
		if current+1 > p.Stock {
			return &domain.StockExceededError{ProductName: p.Name, Available: p.Stock, Requested: current + 1}
		}
	}

	if idx >= 0 {
		c.lines[idx].Qty++
	} else {
		c.lines = append(c.lines, domain.CartLine{ProductID: productID, Qty: 1})
	}
	return nil
}

// ChangeQty moves a line's quantity by delta. A result of zero or less
// removes the line.
func (c *Cart) ChangeQty(productID int64, delta int, products ProductLookup) error {
	idx := c.indexOf(productID)
	if idx < 0 {
		return fmt.Errorf("cart line %d: %w", productID, domain.ErrNotFound)
	}

	next := c.lines[idx].Qty + delta
	if next <= 0 {
		c.removeAt(idx)
		return nil
	}

	p, ok := products.FindByID(productID)
	if !ok {
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}
	if p.TrackInventory && next > p.Stock {
		return &domain.StockExceededError{ProductName: p.Name, Available: p.Stock, Requested: next}
	}

	c.lines[idx].Qty = next
	return nil
}

// RemoveItem drops a line; removing an absent line is a no-op.
func (c *Cart) RemoveItem(productID int64) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total sums live catalog price times quantity. Lines whose product no
// longer exists contribute nothing.
func (c *Cart) Total(products ProductLookup) int64 {
	var total int64
	for _, line := range c.lines {
		if p, ok := products.FindByID(line.ProductID); ok {
			total += p.Price * int64(line.Qty)
		}
	}
	return total
}

// PruneMissing removes lines whose product is gone and returns their ids.
func (c *Cart) PruneMissing(products ProductLookup) []int64 {
	var removed []int64
	kept := c.lines[:0]
	for _, line := range c.lines {
		if _, ok := products.FindByID(line.ProductID); ok {
			kept = append(kept, line)
			continue
		}
		removed = append(removed, line.ProductID)
	}
	c.lines = kept
	return removed
}

// View resolves the cart against the catalog for display.
func (c *Cart) View(products ProductLookup) domain.CartView {
	view := domain.CartView{
		State:     string(c.state),
		Lines:     make([]domain.CartViewLine, 0, len(c.lines)),
		CreatedAt: c.createdAt,
	}
	for _, line := range c.lines {
		p, ok := products.FindByID(line.ProductID)
		if !ok {
			continue
		}
		subtotal := p.Price * int64(line.Qty)
		view.Lines = append(view.Lines, domain.CartViewLine{
			ProductID:      p.ID,
			Code:           p.Code,
			Name:           p.Name,
			Category:       p.Category,
			Price:          p.Price,
			Qty:            line.Qty,
			Subtotal:       subtotal,
			TrackInventory: p.TrackInventory,
			Stock:          p.Stock,
		})
		view.Total += subtotal
		view.ItemCount += line.Qty
	}
	return view
}

// Begin moves a draft into validation.
func (c *Cart) Begin() {
	c.state = StateValidating
}

// Abort returns a validating cart to draft with its lines intact.
func (c *Cart) Abort() {
	c.state = StateDraft
}

func (c *Cart) Complete() {
	c.state = StateConfirmed
}

func (c *Cart) indexOf(productID int64) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}
