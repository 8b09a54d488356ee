package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/store"
)

const dateLayout = "2006-01-02"

// History is the append-only log of closed sales, newest first.
type History struct {
	kv      store.KV
	loc     *time.Location
	methods *domain.PaymentMethods
	sales   []domain.Sale
	ids     map[string]struct{}
}

func New(kv store.KV, loc *time.Location, methods *domain.PaymentMethods) *History {
	if loc == nil {
		loc = time.Local
	}
	if methods == nil {
		methods = domain.NewPaymentMethods()
	}
	return &History{kv: kv, loc: loc, methods: methods, ids: map[string]struct{}{}}
}

// Load reads persisted sales. Legacy method labels and statuses are mapped to
// their canonical values in memory; stored bytes are left as they are until
// the next append.
func (h *History) Load(ctx context.Context) error {
	data, ok, err := h.kv.Load(ctx, store.SalesKey)
	if err != nil {
		return fmt.Errorf("load sales: %w", err)
	}
	h.sales = nil
	h.ids = map[string]struct{}{}
	if !ok || len(data) == 0 {
		return nil
	}

	var sales []domain.Sale
	if err := json.Unmarshal(data, &sales); err != nil {
		return fmt.Errorf("decode sales: %w", err)
	}

	for i := range sales {
		s := &sales[i]
		if method, _, err := h.methods.Resolve(s.Payment.Method); err == nil {
			s.Payment.Method = method
		} else {
			log.Printf("[history] WARN: sale %s has unknown payment method %q", s.ID, s.Payment.Method)
		}
		s.Status = domain.SaleStatusClosed
		h.ids[s.ID] = struct{}{}
	}
	h.sales = sales
	return nil
}

// Append records a closed sale at the front of the history and persists the
// full list. The sale stays recorded even when the write fails.
func (h *History) Append(ctx context.Context, sale domain.Sale) error {
	sale = cloneSale(sale)
	h.sales = append([]domain.Sale{sale}, h.sales...)
	h.ids[sale.ID] = struct{}{}
	return h.persist(ctx)
}

func (h *History) Len() int { return len(h.sales) }

func (h *History) Has(id string) bool {
	_, ok := h.ids[id]
	return ok
}

func (h *History) FindByID(id string) (domain.Sale, bool) {
	for _, s := range h.sales {
		if s.ID == id {
			return cloneSale(s), true
		}
	}
	return domain.Sale{}, false
}

// List returns every sale, newest first.
func (h *History) List() []domain.Sale {
	out := make([]domain.Sale, len(h.sales))
	for i, s := range h.sales {
		out[i] = cloneSale(s)
	}
	return out
}

// Filter selects sales by closing date in the store time zone, exact
// payment method and a case-insensitive query on sale id or client name.
func (h *History) Filter(filter domain.SaleFilter) ([]domain.Sale, error) {
	match, err := h.matcher(filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Sale, 0)
	for _, s := range h.sales {
		if match(s) {
			out = append(out, cloneSale(s))
		}
	}
	return out, nil
}

// Summarize totals the sales selected by filter, broken down per method.
func (h *History) Summarize(filter domain.SaleFilter) (domain.SaleSummary, error) {
	match, err := h.matcher(filter)
	if err != nil {
		return domain.SaleSummary{}, err
	}

	summary := domain.SaleSummary{Date: strings.TrimSpace(filter.Date), ByMethod: []domain.MethodTotal{}}
	byMethod := map[string]*domain.MethodTotal{}
	for _, s := range h.sales {
		if !match(s) {
			continue
		}
		summary.Sales++
		summary.Total += s.Total
		for _, item := range s.Items {
			summary.Items += item.Qty
		}

		mt, ok := byMethod[s.Payment.Method]
		if !ok {
			mt = &domain.MethodTotal{Method: s.Payment.Method}
			byMethod[s.Payment.Method] = mt
		}
		mt.Sales++
		mt.Total += s.Total
	}

	for _, mt := range byMethod {
		summary.ByMethod = append(summary.ByMethod, *mt)
	}
	sort.Slice(summary.ByMethod, func(i, j int) bool {
		return summary.ByMethod[i].Method < summary.ByMethod[j].Method
	})
	return summary, nil
}

func (h *History) matcher(filter domain.SaleFilter) (func(domain.Sale) bool, error) {
	date := strings.TrimSpace(filter.Date)
	if date != "" {
		if _, err := time.ParseInLocation(dateLayout, date, h.loc); err != nil {
			return nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "date", Reason: "must be YYYY-MM-DD"}}}
		}
	}

	method := ""
	if strings.TrimSpace(filter.Method) != "" {
		resolved, _, err := h.methods.Resolve(filter.Method)
		if err != nil {
			return nil, err
		}
		method = resolved
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))

	return func(s domain.Sale) bool {
		if date != "" && s.ClosedAt.In(h.loc).Format(dateLayout) != date {
			return false
		}
		if method != "" && s.Payment.Method != method {
			return false
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(s.ID), query) &&
			!strings.Contains(strings.ToLower(s.Payment.Client), query) {
			return false
		}
		return true
	}, nil
}

func (h *History) persist(ctx context.Context) error {
	data, err := json.Marshal(h.sales)
	if err != nil {
		return &domain.PersistenceError{Key: store.SalesKey, Err: err}
	}
	if err := h.kv.Save(ctx, store.SalesKey, data); err != nil {
		log.Printf("[history] WARN: failed to persist sales: %v", err)
		return &domain.PersistenceError{Key: store.SalesKey, Err: err}
	}
	return nil
}

func cloneSale(s domain.Sale) domain.Sale {
	items := make([]domain.SaleItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}
