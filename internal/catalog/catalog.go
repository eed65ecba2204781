// Package catalog is the in-memory product index behind the store service.
// It enforces the product invariants (unique barcode, non-negative stock)
// but does no locking or persistence; the owner serializes access.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/xid"
)

type Catalog struct {
	order     []string
	byID      map[string]domain.Product
	byBarcode map[string]string
	now       func() time.Time
}

func New(now func() time.Time) *Catalog {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Catalog{
		order:     make([]string, 0, 64),
		byID:      make(map[string]domain.Product),
		byBarcode: make(map[string]string),
		now:       now,
	}
}

// FromProducts rebuilds an index from persisted records, keeping their order.
func FromProducts(products []domain.Product, now func() time.Time) (*Catalog, error) {
	c := New(now)
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: persisted product without id", domain.ErrInvalidProduct)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate product id %s", domain.ErrInvalidProduct, p.ID)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("%w: product %s has negative stock %d", domain.ErrInvalidProduct, p.ID, p.Stock)
		}
		if p.Price.IsNegative() || p.Cost.IsNegative() {
			return nil, fmt.Errorf("%w: product %s has a negative price or cost", domain.ErrInvalidProduct, p.ID)
		}
		if p.Barcode != "" {
			if _, taken := c.byBarcode[p.Barcode]; taken {
				return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateBarcode, p.Barcode)
			}
			c.byBarcode[p.Barcode] = p.ID
		}
		c.byID[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.order)
}

func (c *Catalog) Clone() *Catalog {
	dup := &Catalog{
		order:     make([]string, len(c.order)),
		byID:      make(map[string]domain.Product, len(c.byID)),
		byBarcode: make(map[string]string, len(c.byBarcode)),
		now:       c.now,
	}
	copy(dup.order, c.order)
	for id, p := range c.byID {
		dup.byID[id] = p
	}
	for code, id := range c.byBarcode {
		dup.byBarcode[code] = id
	}
	return dup
}

func (c *Catalog) Add(draft domain.ProductDraft) (domain.Product, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Category = strings.TrimSpace(draft.Category)
	draft.Barcode = strings.TrimSpace(draft.Barcode)

	if draft.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: name required", domain.ErrInvalidProduct)
	}
	if draft.Price.IsNegative() || draft.Cost.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: price and cost must not be negative", domain.ErrInvalidProduct)
	}
	if draft.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: opening stock must not be negative", domain.ErrInvalidProduct)
	}
	if draft.Barcode != "" {
		if _, taken := c.byBarcode[draft.Barcode]; taken {
			return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrDuplicateBarcode, draft.Barcode)
		}
	}

	now := c.now()
	product := domain.Product{
		ID:        xid.New("prd"),
		Name:      draft.Name,
		Category:  draft.Category,
		Price:     draft.Price,
		Cost:      draft.Cost,
		Stock:     draft.Stock,
		Barcode:   draft.Barcode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.byID[product.ID] = product
	c.order = append(c.order, product.ID)
	if product.Barcode != "" {
		c.byBarcode[product.Barcode] = product.ID
	}
	return product, nil
}

func (c *Catalog) Update(id string, upd domain.ProductUpdate) (domain.Product, error) {
	existing, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}

	updated := existing
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name required", domain.ErrInvalidProduct)
		}
		updated.Name = name
	}
	if upd.Category != nil {
		updated.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Price != nil {
		if upd.Price.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidProduct)
		}
		updated.Price = *upd.Price
	}
	if upd.Cost != nil {
		if upd.Cost.IsNegative() {
			return domain.Product{}, fmt.Errorf("%w: cost must not be negative", domain.ErrInvalidProduct)
		}
		updated.Cost = *upd.Cost
	}
	if upd.Barcode != nil {
		code := strings.TrimSpace(*upd.Barcode)
		if code != "" && code != existing.Barcode {
			if _, taken := c.byBarcode[code]; taken {
				return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrDuplicateBarcode, code)
			}
		}
		updated.Barcode = code
	}
	updated.UpdatedAt = c.now()

	if existing.Barcode != updated.Barcode {
		delete(c.byBarcode, existing.Barcode)
		if updated.Barcode != "" {
			c.byBarcode[updated.Barcode] = id
		}
	}
	c.byID[id] = updated
	return updated, nil
}

func (c *Catalog) Find(id string) (domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func (c *Catalog) FindByBarcode(code string) (domain.Product, error) {
	code = strings.TrimSpace(code)
	id, ok := c.byBarcode[code]
	if !ok || code == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", domain.ErrNotFound, code)
	}
	return c.byID[id], nil
}

// Search matches name and category case-insensitively and barcode by
// substring. A blank query returns everything in insertion order.
func (c *Catalog) Search(query string) []domain.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Products()
	}
	lowered := strings.ToLower(query)

	result := make([]domain.Product, 0, 16)
	for _, id := range c.order {
		p := c.byID[id]
		if strings.Contains(strings.ToLower(p.Name), lowered) ||
			strings.Contains(strings.ToLower(p.Category), lowered) ||
			(p.Barcode != "" && strings.Contains(p.Barcode, query)) {
			result = append(result, p)
		}
	}
	return result
}

// MutateStock is the only way stock changes after a product is created.
func (c *Catalog) MutateStock(id string, delta int) (domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	next := p.Stock + delta
	if next < 0 {
		return domain.Product{}, &domain.StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: -delta}
	}
	p.Stock = next
	p.UpdatedAt = c.now()
	c.byID[id] = p
	return p, nil
}

func (c *Catalog) Delete(id string) (domain.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	delete(c.byID, id)
	if p.Barcode != "" {
		delete(c.byBarcode, p.Barcode)
	}
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return p, nil
}

func (c *Catalog) Products() []domain.Product {
	products := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		products = append(products, c.byID[id])
	}
	return products
}

// LowStock lists products with 0 < stock <= threshold.
func (c *Catalog) LowStock(threshold int) []domain.Product {
	result := make([]domain.Product, 0)
	for _, id := range c.order {
		p := c.byID[id]
		if p.Stock > 0 && p.Stock <= threshold {
			result = append(result, p)
		}
	}
	return result
}

func (c *Catalog) OutOfStock() []domain.Product {
	result := make([]domain.Product, 0)
	for _, id := range c.order {
		if p := c.byID[id]; p.Stock == 0 {
			result = append(result, p)
		}
	}
	return result
}
