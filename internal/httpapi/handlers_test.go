package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/service"
	"papelpos/backend/internal/store/memory"
)

const testAdminSecret = "luna-nueva-2026"

type failingSaves struct {
	*memory.Store
	fail bool
}

func (f *failingSaves) Save(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, key, value)
}

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	api, _ := newTestAPIWithStore(t)
	return api
}

func newTestAPIWithStore(t *testing.T) (*API, *failingSaves) {
	t.Helper()

	kv := &failingSaves{Store: memory.New()}
	svc := service.New(kv, service.Options{Location: time.UTC})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load service: %v", err)
	}
	auth := NewAuthManager("test-secret-key", time.Hour, testAdminSecret)

	return New(svc, auth, "*"), kv
}

func doJSON(t *testing.T, api *API, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", map[string]string{"secret": testAdminSecret}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	decodeBody(t, rec, &resp)
	if resp.AccessToken == "" || resp.Role != domain.RoleAdmin {
		t.Fatalf("unexpected login response %+v", resp)
	}
}

func TestHandleLogin_WrongSecret(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", map[string]string{"secret": "nope"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListAndSearchProducts(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products", nil, "")
	var all struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &all)
	if len(all.Products) != 12 {
		t.Fatalf("expected 12 products, got %d", len(all.Products))
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products?q=tijeras", nil, "")
	var found struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &found)
	if len(found.Products) != 1 || found.Products[0].Code != "P0008" {
		t.Fatalf("unexpected search result %+v", found.Products)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	draft := domain.ProductDraft{Name: "Compás", Category: "Útiles", Price: 8000, Cost: 4000, TrackInventory: true, Stock: 5}

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", draft, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	token := loginAsAdmin(t, api)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/products", draft, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, rec, &created)
	if created.Product.ID != 13 || created.Product.Code != "P0013" {
		t.Fatalf("unexpected product %+v", created.Product)
	}
}

func TestCreateProductValidationFields(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", domain.ProductDraft{Name: " ", Category: "Útiles", Price: -1}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Error  string              `json:"error"`
		Fields []domain.FieldError `json:"fields"`
	}
	decodeBody(t, rec, &body)
	if len(body.Fields) != 2 {
		t.Fatalf("expected name and price field errors, got %+v", body.Fields)
	}
}

func TestUpdateAndRestockProduct(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	draft := domain.ProductDraft{Name: "Calculadora Científica", Category: "Útiles", Price: 159000, Cost: 110000, TrackInventory: true, Stock: 6}
	rec := doJSON(t, api, http.MethodPatch, "/api/v1/products/11", draft, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/products/11/restock", map[string]int{"qty": 4}, token)
	var restocked struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, rec, &restocked)
	if restocked.Product.Stock != 10 || restocked.Product.Name != "Calculadora Científica" {
		t.Fatalf("unexpected product %+v", restocked.Product)
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/products/999", draft, token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/products/abc", draft, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestCartStockLimit(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 6; i++ {
		rec := doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 11}, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("add #%d expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 11}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 past stock, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/cart/items/11", map[string]int{"delta": -6}, "")
	var body struct {
		Cart domain.CartView `json:"cart"`
	}
	decodeBody(t, rec, &body)
	if len(body.Cart.Lines) != 0 {
		t.Fatalf("expected line removed, got %+v", body.Cart.Lines)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 404}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rec.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)

	doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 1}, "")
	doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 2}, "")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/cart/preview", map[string]any{"method": "Efectivo", "cashReceived": "20.000"}, "")
	var preview struct {
		Preview domain.PaymentPreview `json:"preview"`
	}
	decodeBody(t, rec, &preview)
	if preview.Preview.Total != 14700 || preview.Preview.Change != 5300 || !preview.Preview.Sufficient {
		t.Fatalf("unexpected preview %+v", preview.Preview)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"method": "cash", "cashReceived": 10000}, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for short cash, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"method": "cash", "cashReceived": 20000}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var checkout struct {
		Sale    domain.Sale `json:"sale"`
		Warning string      `json:"warning"`
	}
	decodeBody(t, rec, &checkout)
	if checkout.Sale.Total != 14700 || checkout.Sale.Payment.Change != 5300 || checkout.Warning != "" {
		t.Fatalf("unexpected checkout %+v", checkout)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales/"+checkout.Sale.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected sale lookup 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales/"+checkout.Sale.ID+"/receipt", nil, "")
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") || !strings.Contains(rec.Body.String(), "Lapicero Negro") {
		t.Fatalf("unexpected receipt %q", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales?method=efectivo", nil, "")
	var list struct {
		Sales []domain.Sale `json:"sales"`
	}
	decodeBody(t, rec, &list)
	if len(list.Sales) != 1 {
		t.Fatalf("expected 1 cash sale, got %d", len(list.Sales))
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/daily?format=csv", nil, "")
	if !strings.Contains(rec.Body.String(), "summary,total,14700") {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"method": "cash", "cashReceived": 20000}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty cart, got %d", rec.Code)
	}
}

func TestCheckoutRejectsGarbageCash(t *testing.T) {
	api := newTestAPI(t)
	doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 1}, "")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"cashReceived": "mucho"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutPersistenceWarning(t *testing.T) {
	api, kv := newTestAPIWithStore(t)
	doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 5}, "")

	kv.fail = true
	rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"method": "nequi"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with warning, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Sale    domain.Sale `json:"sale"`
		Warning string      `json:"warning"`
	}
	decodeBody(t, rec, &body)
	if body.Sale.ID == "" || body.Warning == "" {
		t.Fatalf("expected sale and warning, got %+v", body)
	}
}

func TestDeleteProductAction(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/actions", map[string]any{"kind": "delete-product", "target": 3}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin, got %d", rec.Code)
	}

	token := loginAsAdmin(t, api)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/actions", map[string]any{"kind": "delete-product", "target": 3}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var requested struct {
		Action domain.PendingAction `json:"action"`
	}
	decodeBody(t, rec, &requested)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/actions/"+requested.Action.Token+"/apply", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products/3", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected product gone, got %d", rec.Code)
	}
}

func TestClearCartActionCanBeCancelled(t *testing.T) {
	api := newTestAPI(t)
	doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]int64{"productId": 1}, "")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/actions", map[string]any{"kind": "clear-cart"}, "")
	var requested struct {
		Action domain.PendingAction `json:"action"`
	}
	decodeBody(t, rec, &requested)

	rec = doJSON(t, api, http.MethodPost, "/api/v1/actions/"+requested.Action.Token+"/cancel", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/cart", nil, "")
	var body struct {
		Cart domain.CartView `json:"cart"`
	}
	decodeBody(t, rec, &body)
	if body.Cart.ItemCount != 1 {
		t.Fatalf("cancelled clear must keep the cart, got %+v", body.Cart)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/actions/"+requested.Action.Token+"/apply", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for used token, got %d", rec.Code)
	}
}

func TestCartSuggestionFromHistory(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/cart/suggestion", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"suggestion":null`) {
		t.Fatalf("expected null suggestion, got %d %s", rec.Code, rec.Body.String())
	}

	for _, id := range []int64{1, 2} {
		if rec := doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": id}, ""); rec.Code != http.StatusOK {
			t.Fatalf("add item %d: %d %s", id, rec.Code, rec.Body.String())
		}
	}
	if rec := doJSON(t, api, http.MethodPost, "/api/v1/checkout", map[string]any{"method": domain.MethodElectronicTransfer}, ""); rec.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, api, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1}, ""); rec.Code != http.StatusOK {
		t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/cart/suggestion", nil, "")
	var body struct {
		Suggestion *domain.Suggestion `json:"suggestion"`
	}
	decodeBody(t, rec, &body)
	if body.Suggestion == nil || body.Suggestion.ProductID != 2 {
		t.Fatalf("expected product 2 suggested, got %+v", body.Suggestion)
	}
}
