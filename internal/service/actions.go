package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"papelpos/backend/internal/cart"
	"papelpos/backend/internal/domain"
)

// RequestAction records a destructive intent and returns the token that
// applies or cancels it. Nothing changes until ApplyAction.
func (s *Service) RequestAction(_ context.Context, kind domain.ActionKind, target int64) (domain.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.dropExpiredLocked(now)

	action := domain.PendingAction{
		Token:     uuid.NewString(),
		Kind:      kind,
		ExpiresAt: now.Add(s.ttl),
	}

	switch kind {
	case domain.ActionDeleteProduct:
		p, ok := s.catalog.FindByID(target)
		if !ok {
			return domain.PendingAction{}, fmt.Errorf("product %d: %w", target, domain.ErrNotFound)
		}
		action.Target = target
		action.Prompt = fmt.Sprintf("¿Eliminar \"%s\" (%s) del catálogo?", p.Name, p.Code)
	case domain.ActionClearCart:
		action.Prompt = fmt.Sprintf("¿Vaciar el carrito (%d productos)?", s.cart.Len())
	case domain.ActionNewSale:
		action.Prompt = "¿Descartar la venta actual y empezar una nueva?"
	default:
		return domain.PendingAction{}, &domain.ValidationError{Fields: []domain.FieldError{{Field: "kind", Reason: "is invalid"}}}
	}

	s.pending[action.Token] = action
	return action, nil
}

// ApplyAction performs a pending action once. Expired or unknown tokens
// change nothing.
func (s *Service) ApplyAction(ctx context.Context, token string) (domain.PendingAction, error) {
	s.mu.Lock()
	action, err := s.takeLocked(token)
	if err != nil {
		s.mu.Unlock()
		return domain.PendingAction{}, err
	}

	var events []domain.Event
	switch action.Kind {
	case domain.ActionDeleteProduct:
		var removed bool
		removed, err = s.deleteProductLocked(ctx, action.Target)
		if removed {
			ev := s.event(domain.EventCatalogChanged)
			ev.ProductID = action.Target
			events = append(events, ev, s.event(domain.EventCartChanged))
		}
	case domain.ActionClearCart:
		s.cart.Clear()
		events = append(events, s.event(domain.EventCartChanged))
	case domain.ActionNewSale:
		s.cart = cart.New(s.now())
		events = append(events, s.event(domain.EventCartChanged))
	}
	s.mu.Unlock()

	log.Printf("[service] action %s applied by %s", action.Kind, actorName(ctx))
	s.emit(events...)
	return action, err
}

func (s *Service) CancelAction(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.takeLocked(token)
	return err
}

func (s *Service) takeLocked(token string) (domain.PendingAction, error) {
	action, ok := s.pending[token]
	if !ok {
		return domain.PendingAction{}, fmt.Errorf("pending action: %w", domain.ErrNotFound)
	}
	delete(s.pending, token)
	if s.now().After(action.ExpiresAt) {
		return domain.PendingAction{}, domain.ErrActionExpired
	}
	return action, nil
}

func (s *Service) dropExpiredLocked(now time.Time) {
	for token, action := range s.pending {
		if now.After(action.ExpiresAt) {
			delete(s.pending, token)
		}
	}
}
