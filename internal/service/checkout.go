package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"papelpos/backend/internal/cart"
	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/xid"
)

// Confirm closes the active cart as a sale. Nothing changes when validation
// fails. Once validation passes the sale is recorded before stock is
// deducted, and persistence failures are returned together with the sale.
func (s *Service) Confirm(ctx context.Context, input domain.PaymentInput) (domain.Sale, error) {
	s.mu.Lock()
	sale, events, err := s.confirmLocked(ctx, input)
	s.mu.Unlock()

	s.emit(events...)
	return sale, err
}

func (s *Service) confirmLocked(ctx context.Context, input domain.PaymentInput) (domain.Sale, []domain.Event, error) {
	if s.cart.Len() == 0 {
		s.metrics.SaleRejected(ctx, "empty_cart")
		return domain.Sale{}, nil, domain.ErrEmptyCart
	}

	s.cart.Begin()

	var events []domain.Event
	if pruned := s.cart.PruneMissing(s.catalog); len(pruned) > 0 {
		log.Printf("[service] WARN: dropped %d deleted products from cart before checkout", len(pruned))
		events = append(events, s.event(domain.EventCartChanged))
	}
	if s.cart.Len() == 0 {
		s.cart.Abort()
		s.metrics.SaleRejected(ctx, "empty_cart")
		return domain.Sale{}, events, domain.ErrEmptyCart
	}

	lines := s.cart.Lines()
	if err := s.checkInventory(lines); err != nil {
		s.cart.Abort()
		s.metrics.SaleRejected(ctx, "insufficient_stock")
		return domain.Sale{}, events, err
	}

	total := s.cart.Total(s.catalog)
	payment, err := s.settle(input, total)
	if err != nil {
		s.cart.Abort()
		s.metrics.SaleRejected(ctx, rejectReason(err))
		return domain.Sale{}, events, err
	}

	closedAt := s.now().In(s.loc)
	sale := domain.Sale{
		ID:        xid.Unique(xid.SaleID(closedAt), s.history.Has),
		CreatedAt: s.cart.CreatedAt().In(s.loc),
		ClosedAt:  closedAt,
		Status:    domain.SaleStatusClosed,
		Items:     s.snapshot(lines),
		Total:     total,
		Payment:   payment,
	}

	historyErr := s.history.Append(ctx, sale)
	s.notePersistence(ctx, historyErr)
	stockErr := s.catalog.Deduct(ctx, lines)
	s.notePersistence(ctx, stockErr)

	s.cart.Complete()
	s.cart = cart.New(closedAt)

	s.metrics.SaleConfirmed(ctx, payment.Method, total)
	log.Printf("[service] sale %s closed by %s total=%d method=%s", sale.ID, actorName(ctx), total, payment.Method)

	confirmed := s.event(domain.EventSaleConfirmed)
	confirmed.SaleID = sale.ID
	events = append(events, confirmed, s.event(domain.EventCatalogChanged), s.event(domain.EventCartChanged))

	return sale, events, errors.Join(historyErr, stockErr)
}

// checkInventory reports the first tracked line that needs more units than
// are in stock.
func (s *Service) checkInventory(lines []domain.CartLine) error {
	for _, line := range lines {
		p, ok := s.catalog.FindByID(line.ProductID)
		if !ok || !p.TrackInventory {
			continue
		}
		if line.Qty > p.Stock {
			return &domain.InsufficientStockError{ProductName: p.Name, Available: p.Stock, Required: line.Qty}
		}
	}
	return nil
}

func (s *Service) settle(input domain.PaymentInput, total int64) (domain.Payment, error) {
	method, kind, err := s.methods.Resolve(input.Method)
	if err != nil {
		return domain.Payment{}, err
	}

	payment := domain.Payment{Method: method}
	switch kind {
	case domain.PaymentKindCash:
		if input.CashReceived < total {
			return domain.Payment{}, &domain.InsufficientPaymentError{Total: total, Received: input.CashReceived}
		}
		payment.CashReceived = input.CashReceived
		payment.Change = input.CashReceived - total
	case domain.PaymentKindDeferred:
		client := strings.TrimSpace(input.Client)
		if client == "" {
			return domain.Payment{}, domain.ErrMissingClient
		}
		payment.Client = client
	}
	return payment, nil
}

func (s *Service) snapshot(lines []domain.CartLine) []domain.SaleItem {
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		p, ok := s.catalog.FindByID(line.ProductID)
		if !ok {
			continue
		}
		items = append(items, domain.SaleItem{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Qty:       line.Qty,
			Subtotal:  p.Price * int64(line.Qty),
		})
	}
	return items
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, domain.ErrMissingClient):
		return "missing_client"
	case errors.Is(err, domain.ErrUnknownPaymentMethod):
		return "unknown_method"
	default:
		return "other"
	}
}

// PaymentPreview reports the total of the active cart and the change the
// given payment would produce, without closing anything.
func (s *Service) PaymentPreview(input domain.PaymentInput) (domain.PaymentPreview, error) {
	s.mu.Lock()
	total := s.cart.Total(s.catalog)
	s.mu.Unlock()

	method, kind, err := s.methods.Resolve(input.Method)
	if err != nil {
		return domain.PaymentPreview{}, err
	}

	preview := domain.PaymentPreview{Method: method, Total: total}
	switch kind {
	case domain.PaymentKindCash:
		preview.CashReceived = input.CashReceived
		if input.CashReceived > total {
			preview.Change = input.CashReceived - total
		}
		preview.Sufficient = input.CashReceived >= total
	case domain.PaymentKindDeferred:
		preview.Sufficient = strings.TrimSpace(input.Client) != ""
	default:
		preview.Sufficient = true
	}
	return preview, nil
}
