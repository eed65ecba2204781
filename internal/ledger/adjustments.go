package ledger

import (
	"github.com/darkvj25/isopos/internal/domain"
)

type Adjustments struct {
	records []domain.StockAdjustment
}

func NewAdjustments(records []domain.StockAdjustment) *Adjustments {
	a := &Adjustments{records: make([]domain.StockAdjustment, 0, len(records)+16)}
	a.records = append(a.records, records...)
	return a
}

func (a *Adjustments) Append(adj domain.StockAdjustment) {
	a.records = append(a.records, adj)
}

func (a *Adjustments) Truncate(n int) {
	if n < 0 || n >= len(a.records) {
		return
	}
	a.records = a.records[:n]
}

func (a *Adjustments) Len() int {
	return len(a.records)
}

func (a *Adjustments) All() []domain.StockAdjustment {
	result := make([]domain.StockAdjustment, len(a.records))
	copy(result, a.records)
	return result
}

// ForProduct lists a product's adjustments, oldest first. An empty id
// returns the whole history.
func (a *Adjustments) ForProduct(productID string) []domain.StockAdjustment {
	if productID == "" {
		return a.All()
	}
	result := make([]domain.StockAdjustment, 0)
	for _, adj := range a.records {
		if adj.ProductID == productID {
			result = append(result, adj)
		}
	}
	return result
}
