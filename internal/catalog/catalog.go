package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/store"
	"papelpos/backend/internal/xid"
)

// Catalog is the authoritative product list. It is not safe for concurrent
// use; the service serialises access.
type Catalog struct {
	kv       store.KV
	products []domain.Product
	nextID   int64
}

func New(kv store.KV) *Catalog {
	return &Catalog{kv: kv, nextID: 1}
}

// rawProduct accepts records written by any earlier version of the register.
// Numbers are kept as json.Number so whole amounts survive beyond 2^53.
type rawProduct struct {
	ID             json.Number `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	Price          json.Number `json:"price"`
	Cost           json.Number `json:"cost"`
	TrackInventory bool        `json:"trackInventory"`
	Stock          json.Number `json:"stock"`
}

// Load reads the persisted catalog, seeding it when nothing usable is stored,
// normalises every record and writes the result back.
func (c *Catalog) Load(ctx context.Context) error {
	data, ok, err := c.kv.Load(ctx, store.ProductsKey)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	var raw []rawProduct
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Printf("[catalog] WARN: stored products are unreadable, reseeding: %v", err)
			raw = nil
		}
	}

	if len(raw) == 0 {
		c.products = defaultProducts()
		for i := range c.products {
			c.products[i].Code = xid.ProductCode(c.products[i].ID)
		}
	} else {
		ids := assignIDs(raw)
		c.products = make([]domain.Product, 0, len(raw))
		for idx, r := range raw {
			c.products = append(c.products, normalize(r, ids[idx]))
		}
	}

	c.nextID = 1
	for _, p := range c.products {
		if p.ID >= c.nextID {
			c.nextID = p.ID + 1
		}
	}

	return c.persist(ctx)
}

// assignIDs keeps the first use of every stored id. Records without an id,
// or repeating one, get their position+1 when free, else the next id above
// every stored one.
func assignIDs(raw []rawProduct) []int64 {
	explicit := make([]int64, len(raw))
	stored := make(map[int64]bool, len(raw))
	var highest int64
	for idx, r := range raw {
		if id := wholeNumber(r.ID); id > 0 {
			explicit[idx] = id
			stored[id] = true
			if id > highest {
				highest = id
			}
		}
	}

	ids := make([]int64, len(raw))
	used := make(map[int64]bool, len(raw))
	var pending []int
	for idx, id := range explicit {
		if id > 0 && !used[id] {
			ids[idx] = id
			used[id] = true
			continue
		}
		pending = append(pending, idx)
	}

	for _, idx := range pending {
		id := int64(idx + 1)
		if stored[id] || used[id] {
			highest++
			id = highest
			for used[id] {
				highest++
				id = highest
			}
		}
		ids[idx] = id
		used[id] = true
	}
	return ids
}

func normalize(r rawProduct, id int64) domain.Product {
	p := domain.Product{
		ID:             id,
		Code:           strings.TrimSpace(r.Code),
		Name:           strings.TrimSpace(r.Name),
		Category:       strings.TrimSpace(r.Category),
		Price:          wholeNumber(r.Price),
		Cost:           wholeNumber(r.Cost),
		TrackInventory: r.TrackInventory,
	}
	if p.Code == "" {
		p.Code = xid.ProductCode(id)
	}
	if p.Name == "" {
		p.Name = "Producto"
	}
	if p.Category == "" {
		p.Category = "General"
	}
	if p.TrackInventory {
		stock := wholeNumber(r.Stock)
		if stock > math.MaxInt32 {
			stock = math.MaxInt32
		}
		p.Stock = int(stock)
	}
	return p
}

// wholeNumber reads a stored amount. Missing, negative and NaN values are 0;
// fractions are truncated.
func wholeNumber(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if math.IsInf(f, 1) || f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if err != nil || math.IsNaN(f) || f <= 0 {
		return 0
	}
	return int64(f)
}

// List returns a copy of every product in catalog order.
func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int { return len(c.products) }

func (c *Catalog) FindByID(id int64) (domain.Product, bool) {
	if idx := c.indexOf(id); idx >= 0 {
		return c.products[idx], true
	}
	return domain.Product{}, false
}

// Search matches query case-insensitively against name or code. An empty
// query returns the whole catalog.
func (c *Catalog) Search(query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.List()
	}

	out := make([]domain.Product, 0)
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Code), q) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Create(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	draft = normalizeDraft(draft)
	if err := validateDraft(draft); err != nil {
		return domain.Product{}, err
	}

	id := c.nextID
	c.nextID++

	code := draft.Code
	if code == "" {
		code = xid.ProductCode(id)
	}

	product := domain.Product{
		ID:             id,
		Code:           code,
		Name:           draft.Name,
		Category:       draft.Category,
		Price:          draft.Price,
		Cost:           draft.Cost,
		TrackInventory: draft.TrackInventory,
		Stock:          draft.Stock,
	}
	c.products = append(c.products, product)

	return product, c.persist(ctx)
}

// Update replaces the editable fields of an existing product. The id never
// changes and the code is kept when the draft leaves it empty.
func (c *Catalog) Update(ctx context.Context, id int64, draft domain.ProductDraft) (domain.Product, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	draft = normalizeDraft(draft)
	if err := validateDraft(draft); err != nil {
		return domain.Product{}, err
	}

	p := &c.products[idx]
	if draft.Code != "" {
		p.Code = draft.Code
	}
	p.Name = draft.Name
	p.Category = draft.Category
	p.Price = draft.Price
	p.Cost = draft.Cost
	p.TrackInventory = draft.TrackInventory
	p.Stock = draft.Stock

	return *p, c.persist(ctx)
}

// Delete removes a product. Deleting an unknown id is a no-op and reports
// false. The id is never handed out again.
func (c *Catalog) Delete(ctx context.Context, id int64) (bool, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	c.products = append(c.products[:idx], c.products[idx+1:]...)
	return true, c.persist(ctx)
}

// Restock adds received units to a tracked product.
func (c *Catalog) Restock(ctx context.Context, id int64, qty int) (domain.Product, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	p := &c.products[idx]
	if qty < 1 || !p.TrackInventory {
		return domain.Product{}, &domain.ValidationError{Fields: []domain.FieldError{{
			Field:  "qty",
			Reason: restockReason(p.TrackInventory),
		}}}
	}

	p.Stock += qty
	return *p, c.persist(ctx)
}

func restockReason(tracked bool) string {
	if !tracked {
		return "product does not track inventory"
	}
	return "must be at least 1"
}

// Deduct subtracts sold quantities from tracked products, flooring at zero.
// Lines whose product no longer exists are skipped.
func (c *Catalog) Deduct(ctx context.Context, lines []domain.CartLine) error {
	for _, line := range lines {
		idx := c.indexOf(line.ProductID)
		if idx < 0 || !c.products[idx].TrackInventory {
			continue
		}
		p := &c.products[idx]
		p.Stock -= line.Qty
		if p.Stock < 0 {
			p.Stock = 0
		}
	}
	return c.persist(ctx)
}

func (c *Catalog) indexOf(id int64) int {
	for i := range c.products {
		if c.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) persist(ctx context.Context) error {
	data, err := json.Marshal(c.products)
	if err != nil {
		return &domain.PersistenceError{Key: store.ProductsKey, Err: err}
	}
	if err := c.kv.Save(ctx, store.ProductsKey, data); err != nil {
		log.Printf("[catalog] WARN: failed to persist products: %v", err)
		return &domain.PersistenceError{Key: store.ProductsKey, Err: err}
	}
	return nil
}
