package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/darkvj25/isopos/internal/cart"
	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/service"
)

type API struct {
	service       *service.Service
	auth          *TokenVerifier
	allowedOrigin string
}

func New(svc *service.Service, auth *TokenVerifier, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
	}
}

type cartRequest struct {
	Items    []domain.CartItem `json:"items"`
	Discount *domain.Discount  `json:"discount,omitempty"`
	Payment  domain.Payment    `json:"payment"`
}

type adjustmentRequest struct {
	ProductID string                `json:"product_id"`
	Quantity  int                   `json:"quantity"`
	Type      domain.AdjustmentType `json:"type"`
	Reason    string                `json:"reason"`
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/inventory/low-stock", a.requireAuth(a.handleLowStock, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/inventory/out-of-stock", a.requireAuth(a.handleOutOfStock, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/cart/quote", a.requireAuth(a.handleCartQuote, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/daily", a.requireAuth(a.handleDailyReport, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/monthly", a.requireAuth(a.handleMonthlyReport, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/stock-adjustments", a.requireAuth(a.handleStockAdjustments, domain.RoleCashier, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, domain.RoleCashier, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// requireAdmin guards the mutating branches of routes that cashiers may read.
func requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || actor.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, errors.New("forbidden role"))
		return domain.Actor{}, false
	}
	return actor, true
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products := a.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		var req domain.ProductDraft
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		product, err := a.service.AddProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/products/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}

	if strings.HasPrefix(tail, "barcode/") {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		code := strings.Trim(strings.TrimPrefix(tail, "barcode/"), "/")
		product, err := a.service.FindProductByBarcode(r.Context(), code)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.FindProduct(r.Context(), tail)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPatch:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		var req domain.ProductUpdate
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		updated, err := a.service.UpdateProduct(r.Context(), tail, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": updated})
	case http.MethodDelete:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		if err := a.service.DeleteProduct(r.Context(), tail); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	threshold := parsePositiveLimit(r.URL.Query().Get("threshold"), 0, 0)
	writeJSON(w, http.StatusOK, map[string]any{"products": a.service.LowStockProducts(r.Context(), threshold)})
}

func (a *API) handleOutOfStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": a.service.OutOfStockProducts(r.Context())})
}

func (a *API) handleCartQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req cartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	c, err := a.buildCart(r, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	lines, err := c.Lines(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	totals, err := c.SnapshotTotals(r.Context(), a.service.Settings(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines, "totals": totals})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date, err := a.parseDay(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": a.service.SalesByDate(r.Context(), date)})
	case http.MethodPost:
		var req cartRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		c, err := a.buildCart(r, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		actor, _ := service.ActorFromContext(r.Context())
		sale, err := a.service.Commit(r.Context(), c, c.Payment(), actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sales/"), "/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	sale, err := a.service.FindSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date, err := a.parseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	report := a.service.DailyReport(r.Context(), date)
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", report.Date))
		_, _ = w.Write([]byte(dailyReportToCSV(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	now := a.service.Now().In(a.service.Location())
	year, err := parseBoundedInt(r.URL.Query().Get("year"), now.Year(), 1, 9999)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year: %w", err))
		return
	}
	month, err := parseBoundedInt(r.URL.Query().Get("month"), int(now.Month()), 1, 12)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid month: %w", err))
		return
	}

	revenue := a.service.MonthlyRevenue(r.Context(), year, time.Month(month))
	writeJSON(w, http.StatusOK, map[string]any{
		"year":    year,
		"month":   month,
		"revenue": revenue,
	})
}

func (a *API) handleStockAdjustments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"adjustments": a.service.StockAdjustmentsForProduct(r.Context(), productID),
		})
	case http.MethodPost:
		actor, ok := requireAdmin(w, r)
		if !ok {
			return
		}

		var req adjustmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		adj, err := a.service.AdjustStock(r.Context(), req.ProductID, req.Quantity, req.Type, req.Reason, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"adjustment": adj})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"settings": a.service.Settings(r.Context())})
	case http.MethodPut:
		if _, ok := requireAdmin(w, r); !ok {
			return
		}

		var req domain.BusinessSettings
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, err)
			return
		}

		settings, err := a.service.UpdateSettings(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	default:
		writeMethodNotAllowed(w)
	}
}

// buildCart replays the request into a fresh cart so every line goes through
// the same stock checks an interactive session would.
func (a *API) buildCart(r *http.Request, req cartRequest) (*cart.Cart, error) {
	c := cart.New(a.service)
	for _, item := range req.Items {
		if err := c.AddItem(r.Context(), item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}
	if req.Discount != nil {
		discountType := req.Discount.Type
		if discountType == "" {
			discountType = domain.DiscountPercentage
		}
		if err := c.SetDiscount(req.Discount.Amount, discountType); err != nil {
			return nil, err
		}
	}

	payment := req.Payment
	if payment.Method == "" {
		payment.Method = domain.PaymentCash
	}
	if err := c.SetPayment(payment.Method, payment.AmountTendered); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *API) parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return a.service.Now(), nil
	}
	date, err := a.service.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func dailyReportToCSV(report domain.DailyReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,transactions,%d", report.Transactions),
		fmt.Sprintf("summary,items_sold,%d", report.ItemsSold),
		fmt.Sprintf("summary,gross_sales,%s", report.GrossSales.StringFixed(2)),
		fmt.Sprintf("summary,discount,%s", report.DiscountAmount.StringFixed(2)),
		fmt.Sprintf("summary,vat,%s", report.VATAmount.StringFixed(2)),
		fmt.Sprintf("summary,net_sales,%s", report.NetSales.StringFixed(2)),
	}
	for _, payment := range report.ByPayment {
		lines = append(lines, fmt.Sprintf("payment,%s_transactions,%d", payment.PaymentMethod, payment.Transactions))
		lines = append(lines, fmt.Sprintf("payment,%s_total,%s", payment.PaymentMethod, payment.Total.StringFixed(2)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseBoundedInt returns fallback for an empty value and rejects anything
// that is not an integer in [lo, hi].
func parseBoundedInt(raw string, fallback int, lo int, hi int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", trimmed)
	}
	if value < lo || value > hi {
		return 0, fmt.Errorf("%d outside %d-%d", value, lo, hi)
	}
	return value, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateBarcode), errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidProduct),
		errors.Is(err, domain.ErrInvalidPayment),
		errors.Is(err, domain.ErrInvalidAdjustment),
		errors.Is(err, domain.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIOFailure), errors.Is(err, domain.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      err.Error(),
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}
	writeError(w, statusFor(err), err)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies carry a generic message; the cause only goes to the log.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
