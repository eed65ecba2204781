package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/cart"
	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/ledger"
	"github.com/darkvj25/isopos/internal/pricing"
	"github.com/darkvj25/isopos/internal/store"
	"github.com/darkvj25/isopos/internal/xid"
)

const dateLayout = "2006-01-02"

// Commit turns the cart into a sale. Stock check, stock decrement, ledger
// append and the save of both collections happen under one write lock; if
// any step fails the catalog and ledger are left exactly as they were.
// The cart is cleared only after a successful commit.
func (s *Service) Commit(ctx context.Context, c *cart.Cart, payment domain.Payment, cashier domain.Actor) (domain.Sale, error) {
	if !payment.Method.Valid() {
		return domain.Sale{}, fmt.Errorf("%w: unknown method %q", domain.ErrInvalidPayment, payment.Method)
	}
	if payment.AmountTendered.IsNegative() {
		return domain.Sale{}, fmt.Errorf("%w: tendered amount is negative", domain.ErrInvalidPayment)
	}

	// Cart state is read before taking the service lock; the cart calls back
	// into the service while holding nothing, so the order never inverts.
	// Validate fails fast on stale lines; commit re-checks under the lock.
	if err := c.Validate(ctx); err != nil {
		return domain.Sale{}, err
	}
	items := c.Items()
	discount := c.Discount()

	sale, err := s.commit(ctx, items, discount, payment, cashier)
	if err != nil {
		return domain.Sale{}, err
	}
	c.Clear()
	return sale, nil
}

func (s *Service) commit(ctx context.Context, items []domain.CartItem, discount domain.Discount, payment domain.Payment, cashier domain.Actor) (domain.Sale, error) {
	if err := s.lockWrite(); err != nil {
		return domain.Sale{}, err
	}
	defer s.mu.Unlock()

	if len(items) == 0 {
		return domain.Sale{}, domain.ErrEmptyCart
	}

	lines := make([]domain.SaleLine, 0, len(items))
	priced := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.Find(item.ProductID)
		if err != nil {
			return domain.Sale{}, err
		}
		if item.Quantity > product.Stock {
			return domain.Sale{}, &domain.StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: item.Quantity}
		}
		line := pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity}
		priced = append(priced, line)
		lines = append(lines, domain.SaleLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Subtotal:  line.Subtotal(),
		})
	}

	totals, err := pricing.Compute(priced, discount, s.settings, payment)
	if err != nil {
		return domain.Sale{}, err
	}
	if payment.Method == domain.PaymentCash && payment.AmountTendered.LessThan(totals.Total) {
		return domain.Sale{}, fmt.Errorf("%w: tendered %s, total %s", domain.ErrInsufficientPayment, payment.AmountTendered.StringFixed(2), totals.Total.StringFixed(2))
	}

	before := s.catalog.Clone()
	for _, line := range lines {
		if _, err := s.catalog.MutateStock(line.ProductID, -line.Quantity); err != nil {
			s.catalog = before
			return domain.Sale{}, err
		}
	}

	discountType := discount.Type
	if discountType == "" {
		discountType = domain.DiscountPercentage
	}
	seq := s.sales.NextSeq()
	sale := domain.Sale{
		ID:             xid.New("sal"),
		ReceiptSeq:     seq,
		ReceiptNumber:  ledger.FormatReceiptNumber(seq),
		Lines:          lines,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		DiscountType:   discountType,
		VATAmount:      totals.VATAmount,
		Total:          totals.Total,
		PaymentMethod:  payment.Method,
		AmountTendered: totals.AmountTendered,
		Change:         totals.Change,
		CashierID:      cashier.ID,
		CashierName:    cashier.Name,
		CreatedAt:      s.now(),
	}

	mark := s.sales.Len()
	if err := s.sales.Append(sale); err != nil {
		s.catalog = before
		return domain.Sale{}, err
	}
	if err := s.persist(ctx, store.CollectionProducts, store.CollectionSales); err != nil {
		s.sales.Truncate(mark)
		s.catalog = before
		return domain.Sale{}, err
	}
	return sale, nil
}

func (s *Service) Sales(_ context.Context) []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sales.All()
}

func (s *Service) FindSale(_ context.Context, id string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sales.Find(id)
}

// SalesByDate returns the sales made on date's calendar day in the store timezone.
func (s *Service) SalesByDate(_ context.Context, date time.Time) []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sales.OnDay(date, s.loc)
}

func (s *Service) TodaySales(ctx context.Context) []domain.Sale {
	return s.SalesByDate(ctx, s.now())
}

func (s *Service) DailyTotal(ctx context.Context, date time.Time) decimal.Decimal {
	return ledger.TotalOf(s.SalesByDate(ctx, date))
}

func (s *Service) MonthlyRevenue(_ context.Context, year int, month time.Month) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.TotalOf(s.sales.InMonth(year, month, s.loc))
}

func (s *Service) DailyReport(ctx context.Context, date time.Time) domain.DailyReport {
	day := ledger.StartOfDay(date, s.loc)
	return ledger.Report(day.Format(dateLayout), s.SalesByDate(ctx, day))
}

// ParseDate reads a YYYY-MM-DD day in the store timezone.
func (s *Service) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, s.loc)
}
