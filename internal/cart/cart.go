// Package cart implements the per-session shopping cart. Lines hold only a
// product id and a quantity; price and stock are resolved from the catalog
// every time the cart is validated or priced. The cart's own lock is never
// held while calling into the ProductSource.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/pricing"
)

type ProductSource interface {
	FindProduct(ctx context.Context, id string) (domain.Product, error)
}

type Cart struct {
	mu       sync.Mutex
	source   ProductSource
	order    []string
	qty      map[string]int
	discount domain.Discount
	payment  domain.Payment
}

func New(source ProductSource) *Cart {
	c := &Cart{source: source}
	c.reset()
	return c
}

func (c *Cart) reset() {
	c.order = make([]string, 0, 8)
	c.qty = make(map[string]int)
	c.discount = domain.Discount{Amount: decimal.Zero, Type: domain.DiscountPercentage}
	c.payment = domain.Payment{Method: domain.PaymentCash, AmountTendered: decimal.Zero}
}

// AddItem adds quantity of a product, merging with an existing line. The
// cart is left untouched on any error.
func (c *Cart) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	product, err := c.source.FindProduct(ctx, productID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := c.qty[productID] + quantity
	if merged > product.Stock {
		return &domain.StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: merged}
	}

	if _, exists := c.qty[productID]; !exists {
		c.order = append(c.order, productID)
	}
	c.qty[productID] = merged
	return nil
}

// SetQuantity overwrites a line's quantity; a quantity <= 0 removes the line.
func (c *Cart) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return nil
	}

	product, err := c.source.FindProduct(ctx, productID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.qty[productID]; !exists {
		return fmt.Errorf("%w: product %s is not in the cart", domain.ErrNotFound, productID)
	}
	if quantity > product.Stock {
		return &domain.StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: quantity}
	}
	c.qty[productID] = quantity
	return nil
}

func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.qty[productID]; !exists {
		return
	}
	delete(c.qty, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Cart) SetDiscount(amount decimal.Decimal, discountType domain.DiscountType) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", domain.ErrInvalidDiscount, amount)
	}
	if !discountType.Valid() {
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDiscount, discountType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.discount = domain.Discount{Amount: amount, Type: discountType}
	return nil
}

func (c *Cart) SetPayment(method domain.PaymentMethod, tendered decimal.Decimal) error {
	if !method.Valid() {
		return fmt.Errorf("%w: unknown method %q", domain.ErrInvalidPayment, method)
	}
	if tendered.IsNegative() {
		return fmt.Errorf("%w: tendered amount is negative", domain.ErrInvalidPayment)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.payment = domain.Payment{Method: method, AmountTendered: tendered}
	return nil
}

func (c *Cart) Discount() domain.Discount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

func (c *Cart) Payment() domain.Payment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payment
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order) == 0
}

// Items returns the raw product id and quantity pairs in the order they were added.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.CartItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, domain.CartItem{ProductID: id, Quantity: c.qty[id]})
	}
	return items
}

// Lines resolves every item against the current catalog price.
func (c *Cart) Lines(ctx context.Context) ([]domain.CartLine, error) {
	items := c.Items()
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		product, err := c.source.FindProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Subtotal:  pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity}.Subtotal(),
		})
	}
	return lines, nil
}

// Validate re-checks every line against current stock and reports the first
// line that can no longer be covered.
func (c *Cart) Validate(ctx context.Context) error {
	for _, item := range c.Items() {
		product, err := c.source.FindProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if item.Quantity > product.Stock {
			return &domain.StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: item.Quantity}
		}
	}
	return nil
}

// SnapshotTotals prices the cart for display. It never mutates the cart.
func (c *Cart) SnapshotTotals(ctx context.Context, settings domain.BusinessSettings) (domain.Totals, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return domain.Totals{}, err
	}
	priced := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		priced = append(priced, pricing.Line{UnitPrice: line.UnitPrice, Quantity: line.Quantity})
	}
	return pricing.Compute(priced, c.Discount(), settings, c.Payment())
}
