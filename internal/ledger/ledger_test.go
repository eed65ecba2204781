package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkvj25/isopos/internal/domain"
)

var manila = time.FixedZone("PHT", 8*60*60)

func sale(id string, seq int64, at time.Time, method domain.PaymentMethod, total int64) domain.Sale {
	return domain.Sale{
		ID:             id,
		ReceiptSeq:     seq,
		ReceiptNumber:  FormatReceiptNumber(seq),
		Lines:          []domain.SaleLine{{ProductID: "p", Name: "Skyflakes", UnitPrice: decimal.NewFromInt(total), Quantity: 1, Subtotal: decimal.NewFromInt(total)}},
		Subtotal:       decimal.NewFromInt(total),
		DiscountAmount: decimal.Zero,
		VATAmount:      decimal.Zero,
		Total:          decimal.NewFromInt(total),
		PaymentMethod:  method,
		CreatedAt:      at,
	}
}

func TestNewSalesRestoresLastSeq(t *testing.T) {
	day := time.Date(2026, 5, 4, 10, 0, 0, 0, manila)
	s, err := NewSales([]domain.Sale{
		sale("a", 1, day, domain.PaymentCash, 10),
		sale("b", 4, day, domain.PaymentCash, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.LastSeq())
	assert.Equal(t, int64(5), s.NextSeq())
	assert.Equal(t, int64(6), s.NextSeq())
}

func TestAppendRejectsDuplicates(t *testing.T) {
	s, err := NewSales(nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(sale("a", 1, time.Now(), domain.PaymentCash, 1)))
	assert.Error(t, s.Append(sale("a", 2, time.Now(), domain.PaymentCash, 1)))
	assert.Error(t, s.Append(domain.Sale{}))
	assert.Equal(t, 1, s.Len())
}

func TestTruncateKeepsSequence(t *testing.T) {
	s, err := NewSales(nil)
	require.NoError(t, err)
	seq := s.NextSeq()
	require.NoError(t, s.Append(sale("a", seq, time.Now(), domain.PaymentCash, 1)))
	seq = s.NextSeq()
	require.NoError(t, s.Append(sale("b", seq, time.Now(), domain.PaymentCash, 1)))

	s.Truncate(1)
	assert.Equal(t, 1, s.Len())
	_, err = s.Find("b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(3), s.NextSeq(), "rolled back numbers are not reused")
}

func TestFindReturnsCopy(t *testing.T) {
	s, err := NewSales([]domain.Sale{sale("a", 1, time.Now(), domain.PaymentCash, 10)})
	require.NoError(t, err)

	got, err := s.Find("a")
	require.NoError(t, err)
	got.Lines[0].Quantity = 99

	again, err := s.Find("a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)
}

func TestOnDayUsesStoreTimezone(t *testing.T) {
	s, err := NewSales([]domain.Sale{
		sale("late-utc", 1, time.Date(2026, 5, 3, 17, 0, 0, 0, time.UTC), domain.PaymentCash, 10),
		sale("morning", 2, time.Date(2026, 5, 4, 9, 0, 0, 0, manila), domain.PaymentGCash, 20),
		sale("next", 3, time.Date(2026, 5, 5, 0, 0, 0, 0, manila), domain.PaymentCash, 40),
	})
	require.NoError(t, err)

	got := s.OnDay(time.Date(2026, 5, 4, 12, 0, 0, 0, manila), manila)
	require.Len(t, got, 2)
	assert.Equal(t, "late-utc", got[0].ID)
	assert.Equal(t, "morning", got[1].ID)
	assert.Equal(t, "30", TotalOf(got).String())

	month := s.InMonth(2026, time.May, manila)
	assert.Len(t, month, 3)
	assert.Empty(t, s.InMonth(2026, time.April, manila))
}

func TestReportGroupsByPayment(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, manila)
	sales := []domain.Sale{
		sale("a", 1, at, domain.PaymentCash, 10),
		sale("b", 2, at, domain.PaymentGCash, 20),
		sale("c", 3, at, domain.PaymentCash, 5),
	}

	report := Report("2026-05-04", sales)
	assert.Equal(t, int64(3), report.Transactions)
	assert.Equal(t, int64(3), report.ItemsSold)
	assert.Equal(t, "35", report.NetSales.String())
	require.Len(t, report.ByPayment, 2)
	assert.Equal(t, domain.PaymentCash, report.ByPayment[0].PaymentMethod)
	assert.Equal(t, int64(2), report.ByPayment[0].Transactions)
	assert.Equal(t, "15", report.ByPayment[0].Total.String())
	assert.Equal(t, domain.PaymentGCash, report.ByPayment[1].PaymentMethod)
}

func TestFormatReceiptNumber(t *testing.T) {
	assert.Equal(t, "000001", FormatReceiptNumber(1))
	assert.Equal(t, "1234567", FormatReceiptNumber(1234567))
}

func TestAdjustments(t *testing.T) {
	a := NewAdjustments([]domain.StockAdjustment{{ID: "1", ProductID: "p"}})
	a.Append(domain.StockAdjustment{ID: "2", ProductID: "q"})
	a.Append(domain.StockAdjustment{ID: "3", ProductID: "p"})

	assert.Len(t, a.ForProduct("p"), 2)
	assert.Len(t, a.ForProduct(""), 3)

	a.Truncate(2)
	assert.Equal(t, 2, a.Len())
	assert.Len(t, a.ForProduct("p"), 1)
}
