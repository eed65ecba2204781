package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/service"
	"github.com/darkvj25/isopos/internal/store/memory"
)

var testZone = time.FixedZone("PHT", 8*60*60)

type testAPI struct {
	*API
	svc      *service.Service
	verifier *TokenVerifier
}

// newTestAPI builds a full API over the seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	now := func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, testZone) }
	svc, err := service.Open(context.Background(), memory.NewSeeded(), service.WithClock(now), service.WithLocation(testZone))
	require.NoError(t, err)
	verifier := NewTokenVerifier("test-secret-key")
	return &testAPI{API: New(svc, verifier, "*"), svc: svc, verifier: verifier}
}

func (a *testAPI) token(t *testing.T, role string) string {
	t.Helper()
	token, err := a.verifier.Sign(domain.Actor{ID: "usr-" + role, Name: strings.ToUpper(role[:1]) + role[1:], Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method string, path string, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	reader := bytes.NewReader(nil)
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, role))
	}
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) productByBarcode(t *testing.T, code string) domain.Product {
	t.Helper()
	p, err := a.svc.FindProductByBarcode(context.Background(), code)
	require.NoError(t, err, "find seeded product %s", code)
	return p
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	body := rec.Body.String()
	require.NoError(t, json.Unmarshal([]byte(body), dest), "body: %s", body)
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["ok"])
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleProducts_Search(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/products?q=pancit", domain.RoleCashier, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Lucky Me Pancit Canton", body.Products[0].Name)
}

func TestHandleProducts_CreateRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	draft := map[string]any{"name": "Milo Sachet", "category": "Beverages", "price": "10", "stock": 40}

	rec := api.do(t, http.MethodPost, "/api/v1/products", domain.RoleCashier, draft)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/products", domain.RoleAdmin, draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Product domain.Product `json:"product"`
	}
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body.Product.ID)
	assert.Equal(t, 40, body.Product.Stock)
}

func TestHandleProducts_DuplicateBarcodeConflict(t *testing.T) {
	api := newTestAPI(t)
	draft := map[string]any{"name": "Fake Coke", "price": "20", "barcode": "4902102119825"}

	rec := api.do(t, http.MethodPost, "/api/v1/products", domain.RoleAdmin, draft)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHandleProductActions_PatchRejectsStock(t *testing.T) {
	api := newTestAPI(t)
	coke := api.productByBarcode(t, "4902102119825")

	rec := api.do(t, http.MethodPatch, "/api/v1/products/"+coke.ID, domain.RoleAdmin, map[string]any{"stock": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPatch, "/api/v1/products/"+coke.ID, domain.RoleAdmin, map[string]any{"price": "27.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := api.productByBarcode(t, "4902102119825")
	assert.Equal(t, "27.50", updated.Price.StringFixed(2))
	assert.Equal(t, coke.Stock, updated.Stock)
}

func TestHandleProductActions_FindAndDelete(t *testing.T) {
	api := newTestAPI(t)
	coke := api.productByBarcode(t, "4902102119825")

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/products/barcode/4902102119825", domain.RoleCashier, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodDelete, "/api/v1/products/"+coke.ID, domain.RoleCashier, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/v1/products/"+coke.ID, domain.RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/products/"+coke.ID, domain.RoleCashier, nil).Code)
}

func TestHandleCartQuote(t *testing.T) {
	api := newTestAPI(t)
	coke := api.productByBarcode(t, "4902102119825")

	rec := api.do(t, http.MethodPost, "/api/v1/cart/quote", domain.RoleCashier, map[string]any{
		"items":    []map[string]any{{"product_id": coke.ID, "quantity": 3}},
		"discount": map[string]any{"amount": "10", "type": "percentage"},
		"payment":  map[string]any{"method": "cash", "amount_tendered": "100"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Lines  []domain.CartLine `json:"lines"`
		Totals domain.Totals     `json:"totals"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "67.50", body.Totals.Total.StringFixed(2))
	assert.Equal(t, "32.50", body.Totals.Change.StringFixed(2))
	require.Len(t, body.Lines, 1)
	assert.Equal(t, "Coca-Cola 350ml", body.Lines[0].Name)
	assert.Equal(t, 50, api.productByBarcode(t, "4902102119825").Stock, "quote must not touch stock")
}

func TestHandleSales_CommitAndRead(t *testing.T) {
	api := newTestAPI(t)
	coke := api.productByBarcode(t, "4902102119825")

	rec := api.do(t, http.MethodPost, "/api/v1/sales", domain.RoleCashier, map[string]any{
		"items":   []map[string]any{{"product_id": coke.ID, "quantity": 2}},
		"payment": map[string]any{"method": "cash", "amount_tendered": "100"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, "000001", created.Sale.ReceiptNumber)
	assert.Equal(t, "usr-cashier", created.Sale.CashierID)
	assert.Equal(t, 48, api.productByBarcode(t, "4902102119825").Stock)

	rec = api.do(t, http.MethodGet, "/api/v1/sales/"+created.Sale.ID, domain.RoleCashier, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/sales?date=2026-05-04", domain.RoleCashier, nil)
	var listed struct {
		Sales []domain.Sale `json:"sales"`
	}
	decodeBody(t, rec, &listed)
	assert.Len(t, listed.Sales, 1)

	rec = api.do(t, http.MethodGet, "/api/v1/sales?date=04-05-2026", domain.RoleCashier, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSales_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	tanduay := api.productByBarcode(t, "4800012050016")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "empty cart",
			body: map[string]any{"items": []any{}, "payment": map[string]any{"method": "cash", "amount_tendered": "10"}},
			want: http.StatusBadRequest,
		},
		{
			name: "over stock",
			body: map[string]any{"items": []map[string]any{{"product_id": tanduay.ID, "quantity": 26}}},
			want: http.StatusConflict,
		},
		{
			name: "underpaid",
			body: map[string]any{"items": []map[string]any{{"product_id": tanduay.ID, "quantity": 1}}, "payment": map[string]any{"method": "cash", "amount_tendered": "44.99"}},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown product",
			body: map[string]any{"items": []map[string]any{{"product_id": "prd-missing", "quantity": 1}}},
			want: http.StatusNotFound,
		},
		{
			name: "bad discount",
			body: map[string]any{"items": []map[string]any{{"product_id": tanduay.ID, "quantity": 1}}, "discount": map[string]any{"amount": "5", "type": "bogo"}},
			want: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/sales", domain.RoleCashier, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, 25, api.productByBarcode(t, "4800012050016").Stock, "failed sales changed stock")
}

func TestHandleStockAdjustments(t *testing.T) {
	api := newTestAPI(t)
	skyflakes := api.productByBarcode(t, "4800016005039")
	body := map[string]any{"product_id": skyflakes.ID, "quantity": 5, "type": "remove", "reason": "expired"}

	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/api/v1/stock-adjustments", domain.RoleCashier, body).Code)
	rec := api.do(t, http.MethodPost, "/api/v1/stock-adjustments", domain.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body["quantity"] = 100
	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/api/v1/stock-adjustments", domain.RoleAdmin, body).Code)

	rec = api.do(t, http.MethodGet, "/api/v1/stock-adjustments?product_id="+skyflakes.ID, domain.RoleCashier, nil)
	var listed struct {
		Adjustments []domain.StockAdjustment `json:"adjustments"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Adjustments, 1)
	assert.Equal(t, 25, listed.Adjustments[0].StockAfter)
	assert.Equal(t, "usr-admin", listed.Adjustments[0].ActorID)
}

func TestHandleSettings(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/settings", domain.RoleCashier, nil)
	var current struct {
		Settings domain.BusinessSettings `json:"settings"`
	}
	decodeBody(t, rec, &current)
	assert.Equal(t, "Sari-Sari Store POS", current.Settings.BusinessName)

	next := current.Settings
	next.BusinessName = "Aling Nena Store"
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPut, "/api/v1/settings", domain.RoleCashier, next).Code)
	rec = api.do(t, http.MethodPut, "/api/v1/settings", domain.RoleAdmin, next)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	bad := next
	bad.VATRate = decimal.NewFromInt(1)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPut, "/api/v1/settings", domain.RoleAdmin, bad).Code)
}

func TestHandleReports(t *testing.T) {
	api := newTestAPI(t)
	coke := api.productByBarcode(t, "4902102119825")
	sale := map[string]any{
		"items":   []map[string]any{{"product_id": coke.ID, "quantity": 4}},
		"payment": map[string]any{"method": "gcash"},
	}
	rec := api.do(t, http.MethodPost, "/api/v1/sales", domain.RoleCashier, sale)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/v1/reports/daily?date=2026-05-04", domain.RoleAdmin, nil)
	var report domain.DailyReport
	decodeBody(t, rec, &report)
	assert.Equal(t, int64(1), report.Transactions)
	assert.Equal(t, "100.00", report.NetSales.StringFixed(2))

	rec = api.do(t, http.MethodGet, "/api/v1/reports/daily?date=2026-05-04&format=csv", domain.RoleAdmin, nil)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "payment,gcash_total,100.00")

	rec = api.do(t, http.MethodGet, "/api/v1/reports/monthly?year=2026&month=5", domain.RoleAdmin, nil)
	var monthly struct {
		Revenue string `json:"revenue"`
	}
	decodeBody(t, rec, &monthly)
	assert.Equal(t, "100", monthly.Revenue)

	rec = api.do(t, http.MethodGet, "/api/v1/reports/monthly", domain.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "current month by default")
}

func TestHandleMonthlyReportRejectsBadPeriod(t *testing.T) {
	api := newTestAPI(t)
	for _, query := range []string{"month=0", "month=-3", "month=abc", "month=13", "year=0", "year=abc", "year=-2026"} {
		rec := api.do(t, http.MethodGet, "/api/v1/reports/monthly?"+query, domain.RoleAdmin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %s", query)
	}
}

func TestHandleInventory(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/v1/inventory/low-stock?threshold=30", domain.RoleCashier, nil)
	var body struct {
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Products, 2, "Skyflakes and Tanduay under 30")

	rec = api.do(t, http.MethodGet, "/api/v1/inventory/out-of-stock", domain.RoleCashier, nil)
	body.Products = nil
	decodeBody(t, rec, &body)
	assert.Empty(t, body.Products)
}
