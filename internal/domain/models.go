package domain

import "time"

type Product struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Price          int64  `json:"price"`
	Cost           int64  `json:"cost"`
	TrackInventory bool   `json:"trackInventory"`
	Stock          int    `json:"stock"`
}

// ProductDraft is the validated input of the catalog form. Code is optional
// and generated from the product id when empty.
type ProductDraft struct {
	Code           string `json:"code,omitempty"`
	Name           string `json:"name" validate:"required"`
	Category       string `json:"category" validate:"required"`
	Price          int64  `json:"price" validate:"gte=0"`
	Cost           int64  `json:"cost" validate:"gte=0"`
	TrackInventory bool   `json:"trackInventory"`
	Stock          int    `json:"stock" validate:"gte=0"`
}

type CartLine struct {
	ProductID int64 `json:"productId"`
	Qty       int   `json:"qty"`
}

type CartViewLine struct {
	ProductID      int64  `json:"productId"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Price          int64  `json:"price"`
	Qty            int    `json:"qty"`
	Subtotal       int64  `json:"subtotal"`
	TrackInventory bool   `json:"trackInventory"`
	Stock          int    `json:"stock"`
}

type CartView struct {
	State     string         `json:"state"`
	Lines     []CartViewLine `json:"lines"`
	Total     int64          `json:"total"`
	ItemCount int            `json:"itemCount"`
	CreatedAt time.Time      `json:"createdAt"`
}

type SaleItem struct {
	ProductID int64  `json:"productId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
	Subtotal  int64  `json:"subtotal"`
}

type Payment struct {
	Method       string `json:"method"`
	CashReceived int64  `json:"cashReceived"`
	Change       int64  `json:"change"`
	Client       string `json:"client,omitempty"`
}

type Sale struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	ClosedAt  time.Time  `json:"closedAt"`
	Status    string     `json:"status"`
	Items     []SaleItem `json:"items"`
	Total     int64      `json:"total"`
	Payment   Payment    `json:"payment"`
}

// PaymentInput is what the operator entered on the payment step.
type PaymentInput struct {
	Method       string `json:"method"`
	CashReceived int64  `json:"cashReceived"`
	Client       string `json:"client,omitempty"`
}

type PaymentPreview struct {
	Method       string `json:"method"`
	Total        int64  `json:"total"`
	CashReceived int64  `json:"cashReceived"`
	Change       int64  `json:"change"`
	Sufficient   bool   `json:"sufficient"`
}

// SaleFilter selects sales from history. Zero fields match everything;
// Date is a calendar date in YYYY-MM-DD form.
type SaleFilter struct {
	Date   string `json:"date,omitempty"`
	Method string `json:"method,omitempty"`
	Query  string `json:"query,omitempty"`
}

type MethodTotal struct {
	Method string `json:"method"`
	Sales  int    `json:"sales"`
	Total  int64  `json:"total"`
}

type SaleSummary struct {
	Date     string        `json:"date,omitempty"`
	Sales    int           `json:"sales"`
	Items    int           `json:"items"`
	Total    int64         `json:"total"`
	ByMethod []MethodTotal `json:"byMethod"`
}

// Suggestion is an add-on product proposed for the active cart.
type Suggestion struct {
	ProductID  int64   `json:"productId"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Price      int64   `json:"price"`
	ReasonCode string  `json:"reasonCode"`
	Confidence float64 `json:"confidence"`
}

type ActionKind string

const (
	ActionDeleteProduct ActionKind = "delete-product"
	ActionClearCart     ActionKind = "clear-cart"
	ActionNewSale       ActionKind = "new-sale"
)

// PendingAction is a destructive intent waiting for the operator to apply or
// cancel it.
type PendingAction struct {
	Token     string     `json:"token"`
	Kind      ActionKind `json:"kind"`
	Target    int64      `json:"target,omitempty"`
	Prompt    string     `json:"prompt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Secret string `json:"secret"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

type EventKind string

const (
	EventCatalogChanged EventKind = "catalog.changed"
	EventCartChanged    EventKind = "cart.changed"
	EventSaleConfirmed  EventKind = "sale.confirmed"
)

// Event tells subscribers which part of the state changed so they can redraw
// from a fresh snapshot.
type Event struct {
	Kind      EventKind
	ProductID int64
	SaleID    string
	At        time.Time
}

const SaleStatusClosed = "closed"

const RoleAdmin = "admin"
