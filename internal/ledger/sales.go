// Package ledger keeps the append-only histories of completed sales and
// manual stock adjustments. Records are never edited once appended; the only
// removal is Truncate, used by the owner to undo an append whose save failed.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/domain"
)

type Sales struct {
	records []domain.Sale
	byID    map[string]int
	lastSeq int64
}

func NewSales(records []domain.Sale) (*Sales, error) {
	s := &Sales{
		records: make([]domain.Sale, 0, len(records)+64),
		byID:    make(map[string]int, len(records)),
	}
	for _, sale := range records {
		if err := s.Append(sale); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NextSeq reserves the next receipt number. A reserved number is never handed
// out again, even if the sale that took it is rolled back.
func (s *Sales) NextSeq() int64 {
	s.lastSeq++
	return s.lastSeq
}

func (s *Sales) Append(sale domain.Sale) error {
	if sale.ID == "" {
		return errors.New("sale without id")
	}
	if _, exists := s.byID[sale.ID]; exists {
		return fmt.Errorf("duplicate sale id %s", sale.ID)
	}
	s.byID[sale.ID] = len(s.records)
	s.records = append(s.records, cloneSale(sale))
	if sale.ReceiptSeq > s.lastSeq {
		s.lastSeq = sale.ReceiptSeq
	}
	return nil
}

// Truncate drops records appended after the ledger had n entries.
func (s *Sales) Truncate(n int) {
	if n < 0 || n >= len(s.records) {
		return
	}
	for _, sale := range s.records[n:] {
		delete(s.byID, sale.ID)
	}
	s.records = s.records[:n]
}

func (s *Sales) Len() int {
	return len(s.records)
}

func (s *Sales) LastSeq() int64 {
	return s.lastSeq
}

func (s *Sales) All() []domain.Sale {
	result := make([]domain.Sale, 0, len(s.records))
	for _, sale := range s.records {
		result = append(result, cloneSale(sale))
	}
	return result
}

func (s *Sales) Find(id string) (domain.Sale, error) {
	idx, ok := s.byID[id]
	if !ok {
		return domain.Sale{}, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	return cloneSale(s.records[idx]), nil
}

// Between returns sales with from <= CreatedAt < to.
func (s *Sales) Between(from time.Time, to time.Time) []domain.Sale {
	result := make([]domain.Sale, 0)
	for _, sale := range s.records {
		if !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to) {
			result = append(result, cloneSale(sale))
		}
	}
	return result
}

// OnDay returns the sales made on date's calendar day in loc.
func (s *Sales) OnDay(date time.Time, loc *time.Location) []domain.Sale {
	from := StartOfDay(date, loc)
	return s.Between(from, from.AddDate(0, 0, 1))
}

func (s *Sales) InMonth(year int, month time.Month, loc *time.Location) []domain.Sale {
	from := time.Date(year, month, 1, 0, 0, 0, 0, location(loc))
	return s.Between(from, from.AddDate(0, 1, 0))
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(location(loc))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

func TotalOf(sales []domain.Sale) decimal.Decimal {
	sum := decimal.Zero
	for _, sale := range sales {
		sum = sum.Add(sale.Total)
	}
	return sum
}

func Report(date string, sales []domain.Sale) domain.DailyReport {
	report := domain.DailyReport{
		Date:           date,
		GrossSales:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		VATAmount:      decimal.Zero,
		NetSales:       decimal.Zero,
		ByPayment:      make([]domain.PaymentBreakdown, 0, 3),
	}

	byPayment := make(map[domain.PaymentMethod]*domain.PaymentBreakdown)
	for _, sale := range sales {
		report.Transactions++
		report.GrossSales = report.GrossSales.Add(sale.Subtotal)
		report.DiscountAmount = report.DiscountAmount.Add(sale.DiscountAmount)
		report.VATAmount = report.VATAmount.Add(sale.VATAmount)
		report.NetSales = report.NetSales.Add(sale.Total)
		for _, line := range sale.Lines {
			report.ItemsSold += int64(line.Quantity)
		}

		entry, ok := byPayment[sale.PaymentMethod]
		if !ok {
			entry = &domain.PaymentBreakdown{PaymentMethod: sale.PaymentMethod, Total: decimal.Zero}
			byPayment[sale.PaymentMethod] = entry
		}
		entry.Transactions++
		entry.Total = entry.Total.Add(sale.Total)
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	sort.Slice(report.ByPayment, func(i, j int) bool {
		return report.ByPayment[i].PaymentMethod < report.ByPayment[j].PaymentMethod
	})
	return report
}

func FormatReceiptNumber(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Lines = make([]domain.SaleLine, len(src.Lines))
	copy(dup.Lines, src.Lines)
	return dup
}
