package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"papelpos/backend/internal/cart"
	"papelpos/backend/internal/catalog"
	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/history"
	"papelpos/backend/internal/receipt"
	"papelpos/backend/internal/recommendation"
	"papelpos/backend/internal/store"
	"papelpos/backend/internal/telemetry"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return "cashier"
}

type Options struct {
	Location         *time.Location
	Now              func() time.Time
	PendingActionTTL time.Duration
	Methods          *domain.PaymentMethods
	Metrics          *telemetry.Metrics
	Business         receipt.Business
}

// Service owns the register state. Every operation runs to completion under
// one mutex; change events are delivered after it is released.
type Service struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	cart     *cart.Cart
	history  *history.History
	pending  map[string]domain.PendingAction
	methods  *domain.PaymentMethods
	loc      *time.Location
	now      func() time.Time
	ttl      time.Duration
	metrics  *telemetry.Metrics
	business receipt.Business
	upsell   *recommendation.Engine

	subsMu  sync.Mutex
	subs    map[int]func(domain.Event)
	nextSub int
}

func New(kv store.KV, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PendingActionTTL <= 0 {
		opts.PendingActionTTL = 2 * time.Minute
	}
	if opts.Methods == nil {
		opts.Methods = domain.NewPaymentMethods()
	}
	if opts.Business.Name == "" {
		opts.Business.Name = "Papelería Papel y Luna"
	}

	return &Service{
		catalog:  catalog.New(kv),
		cart:     cart.New(opts.Now()),
		history:  history.New(kv, opts.Location, opts.Methods),
		pending:  make(map[string]domain.PendingAction),
		methods:  opts.Methods,
		loc:      opts.Location,
		now:      opts.Now,
		ttl:      opts.PendingActionTTL,
		metrics:  opts.Metrics,
		business: opts.Business,
		upsell:   recommendation.NewEngine(),
		subs:     make(map[int]func(domain.Event)),
	}
}

// Load restores the catalog and sales history. A returned error for which
// domain.IsWarning holds leaves the service usable.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalogErr := s.catalog.Load(ctx)
	if catalogErr != nil && !domain.IsWarning(catalogErr) {
		return catalogErr
	}
	s.notePersistence(ctx, catalogErr)

	if err := s.history.Load(ctx); err != nil {
		return err
	}

	log.Printf("[service] loaded %d products and %d sales", s.catalog.Len(), s.history.Len())
	return catalogErr
}

// Subscribe registers fn for change events and returns a func that removes it.
func (s *Service) Subscribe(fn func(domain.Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) emit(events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	s.subsMu.Lock()
	fns := make([]func(domain.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (s *Service) event(kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, At: s.now()}
}

func (s *Service) notePersistence(ctx context.Context, err error) {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		s.metrics.PersistenceFailed(ctx, pe.Key)
	}
}

func (s *Service) PaymentMethods() []string {
	return s.methods.List()
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Catalog

func (s *Service) Products(query string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Search(query)
}

func (s *Service) Product(id int64) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.catalog.FindByID(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	s.mu.Lock()
	p, err := s.catalog.Create(ctx, draft)
	s.mu.Unlock()

	if err != nil && !domain.IsWarning(err) {
		return domain.Product{}, err
	}
	s.notePersistence(ctx, err)
	log.Printf("[service] product %s created by %s", p.Code, actorName(ctx))

	ev := s.event(domain.EventCatalogChanged)
	ev.ProductID = p.ID
	s.emit(ev)
	return p, err
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, draft domain.ProductDraft) (domain.Product, error) {
	s.mu.Lock()
	p, err := s.catalog.Update(ctx, id, draft)
	s.mu.Unlock()

	if err != nil && !domain.IsWarning(err) {
		return domain.Product{}, err
	}
	s.notePersistence(ctx, err)
	log.Printf("[service] product %s updated by %s", p.Code, actorName(ctx))

	ev := s.event(domain.EventCatalogChanged)
	ev.ProductID = p.ID
	s.emit(ev, s.event(domain.EventCartChanged))
	return p, err
}

func (s *Service) RestockProduct(ctx context.Context, id int64, qty int) (domain.Product, error) {
	s.mu.Lock()
	p, err := s.catalog.Restock(ctx, id, qty)
	s.mu.Unlock()

	if err != nil && !domain.IsWarning(err) {
		return domain.Product{}, err
	}
	s.notePersistence(ctx, err)
	log.Printf("[service] product %s restocked +%d by %s", p.Code, qty, actorName(ctx))

	ev := s.event(domain.EventCatalogChanged)
	ev.ProductID = p.ID
	s.emit(ev)
	return p, err
}

// DeleteProduct removes a product and prunes it from the active cart.
// Deleting an unknown id is a no-op.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	removed, err := s.deleteProductLocked(ctx, id)
	s.mu.Unlock()

	if !removed {
		return err
	}
	log.Printf("[service] product %d deleted by %s", id, actorName(ctx))

	ev := s.event(domain.EventCatalogChanged)
	ev.ProductID = id
	s.emit(ev, s.event(domain.EventCartChanged))
	return err
}

func (s *Service) deleteProductLocked(ctx context.Context, id int64) (bool, error) {
	removed, err := s.catalog.Delete(ctx, id)
	s.notePersistence(ctx, err)
	if removed {
		s.cart.PruneMissing(s.catalog)
	}
	return removed, err
}

// Cart

func (s *Service) Cart() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.View(s.catalog)
}

// Suggest proposes one product to add to the active cart based on what
// earlier sales bought together with it. It returns nil when nothing fits.
func (s *Service) Suggest() *domain.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsell.Suggest(s.cart.Lines(), s.catalog.List(), s.history.List(), s.now().In(s.loc))
}

func (s *Service) AddToCart(_ context.Context, productID int64) (domain.CartView, error) {
	s.mu.Lock()
	err := s.cart.AddItem(productID, s.catalog)
	view := s.cart.View(s.catalog)
	s.mu.Unlock()

	if err != nil {
		return view, err
	}
	s.emit(s.event(domain.EventCartChanged))
	return view, nil
}

func (s *Service) ChangeCartQty(_ context.Context, productID int64, delta int) (domain.CartView, error) {
	s.mu.Lock()
	err := s.cart.ChangeQty(productID, delta, s.catalog)
	view := s.cart.View(s.catalog)
	s.mu.Unlock()

	if err != nil {
		return view, err
	}
	s.emit(s.event(domain.EventCartChanged))
	return view, nil
}

func (s *Service) RemoveFromCart(_ context.Context, productID int64) domain.CartView {
	s.mu.Lock()
	removed := s.cart.RemoveItem(productID)
	view := s.cart.View(s.catalog)
	s.mu.Unlock()

	if removed {
		s.emit(s.event(domain.EventCartChanged))
	}
	return view
}

func (s *Service) ClearCart(_ context.Context) domain.CartView {
	s.mu.Lock()
	s.cart.Clear()
	view := s.cart.View(s.catalog)
	s.mu.Unlock()

	s.emit(s.event(domain.EventCartChanged))
	return view
}

// NewSale discards the active cart and opens a fresh draft.
func (s *Service) NewSale(_ context.Context) domain.CartView {
	s.mu.Lock()
	s.cart = cart.New(s.now())
	view := s.cart.View(s.catalog)
	s.mu.Unlock()

	s.emit(s.event(domain.EventCartChanged))
	return view
}

// History

func (s *Service) Sales(filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Filter(filter)
}

func (s *Service) Sale(id string) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.history.FindByID(id)
	if !ok {
		return domain.Sale{}, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}
	return sale, nil
}

// DailySummary totals a calendar day in the store time zone; an empty date
// means today.
func (s *Service) DailySummary(date string) (domain.SaleSummary, error) {
	if date == "" {
		date = s.now().In(s.loc).Format("2006-01-02")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Summarize(domain.SaleFilter{Date: date})
}

func (s *Service) Receipt(id string) (string, error) {
	sale, err := s.Sale(id)
	if err != nil {
		return "", err
	}
	return receipt.Render(sale, s.business, s.loc), nil
}
