// Package pricing holds the pure money calculations for a cart: subtotal,
// discount, VAT, total and change. Values are exact decimals; rounding to two
// places happens only when a Totals value is produced.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/domain"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Subtotal())
	}
	return sum
}

// DiscountAmount never returns more than subtotal or less than zero.
func DiscountAmount(subtotal decimal.Decimal, amount decimal.Decimal, discountType domain.DiscountType) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount %s is negative", domain.ErrInvalidDiscount, amount)
	}
	if !subtotal.IsPositive() {
		return decimal.Zero, nil
	}

	var discount decimal.Decimal
	switch discountType {
	case domain.DiscountPercentage, "":
		discount = subtotal.Mul(amount).Div(hundred)
	case domain.DiscountFixed:
		discount = amount
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDiscount, discountType)
	}
	return clamp(discount, decimal.Zero, subtotal), nil
}

func Total(subtotal decimal.Decimal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}

// VAT extracts the tax already included in total (prices are VAT-inclusive).
func VAT(total decimal.Decimal, rate decimal.Decimal, enabled bool) decimal.Decimal {
	if !enabled || !rate.IsPositive() || !total.IsPositive() {
		return decimal.Zero
	}
	return total.Mul(rate).Div(decimal.NewFromInt(1).Add(rate))
}

func Change(tendered decimal.Decimal, total decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, tendered.Sub(total))
}

// Compute prices the lines in one pass. Non-cash payments are recorded as
// tendering exactly the total, with no change.
func Compute(lines []Line, discount domain.Discount, settings domain.BusinessSettings, payment domain.Payment) (domain.Totals, error) {
	subtotal := Subtotal(lines)
	discountAmount, err := DiscountAmount(subtotal, discount.Amount, discount.Type)
	if err != nil {
		return domain.Totals{}, err
	}

	subtotal = subtotal.Round(moneyPlaces)
	discountAmount = discountAmount.Round(moneyPlaces)
	total := Total(subtotal, discountAmount)

	tendered := payment.AmountTendered
	change := decimal.Zero
	if payment.Method == domain.PaymentCash || payment.Method == "" {
		change = Change(tendered, total)
	} else {
		tendered = total
	}

	items := 0
	for _, line := range lines {
		items += line.Quantity
	}

	return domain.Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Total:          total,
		VATAmount:      VAT(total, settings.VATRate, settings.VATEnabled).Round(moneyPlaces),
		AmountTendered: tendered.Round(moneyPlaces),
		Change:         change.Round(moneyPlaces),
		ItemCount:      items,
	}, nil
}

func clamp(v decimal.Decimal, lo decimal.Decimal, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
