package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Barcode   string          `json:"barcode,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductDraft is the input for a new catalog entry. Stock is the opening count.
type ProductDraft struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Cost     decimal.Decimal `json:"cost"`
	Stock    int             `json:"stock"`
	Barcode  string          `json:"barcode,omitempty"`
}

// ProductUpdate carries a partial edit. Stock is deliberately absent: stock
// only moves through sales and stock adjustments.
type ProductUpdate struct {
	Name     *string          `json:"name,omitempty"`
	Category *string          `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Cost     *decimal.Decimal `json:"cost,omitempty"`
	Barcode  *string          `json:"barcode,omitempty"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLine is a cart item resolved against the current catalog.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Discount struct {
	Amount decimal.Decimal `json:"amount"`
	Type   DiscountType    `json:"type"`
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentGCash PaymentMethod = "gcash"
	PaymentCard  PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentGCash, PaymentCard:
		return true
	}
	return false
}

type Payment struct {
	Method         PaymentMethod   `json:"method"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	Change         decimal.Decimal `json:"change"`
	ItemCount      int             `json:"item_count"`
}

type SaleLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Sale is an immutable ledger record. Lines are captured by value at commit time.
type Sale struct {
	ID             string          `json:"id"`
	ReceiptSeq     int64           `json:"receipt_seq"`
	ReceiptNumber  string          `json:"receipt_number"`
	Lines          []SaleLine      `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountType   DiscountType    `json:"discount_type"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
	Change         decimal.Decimal `json:"change"`
	CashierID      string          `json:"cashier_id"`
	CashierName    string          `json:"cashier_name"`
	CreatedAt      time.Time       `json:"created_at"`
}

type AdjustmentType string

const (
	AdjustmentAdd    AdjustmentType = "add"
	AdjustmentRemove AdjustmentType = "remove"
)

func (t AdjustmentType) Valid() bool {
	return t == AdjustmentAdd || t == AdjustmentRemove
}

type StockAdjustment struct {
	ID          string         `json:"id"`
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	Type        AdjustmentType `json:"type"`
	Quantity    int            `json:"quantity"`
	Reason      string         `json:"reason"`
	ActorID     string         `json:"actor_id"`
	StockBefore int            `json:"stock_before"`
	StockAfter  int            `json:"stock_after"`
	CreatedAt   time.Time      `json:"created_at"`
}

type BusinessSettings struct {
	BusinessName  string          `json:"business_name"`
	Address       string          `json:"address"`
	TIN           string          `json:"tin"`
	PermitNumber  string          `json:"permit_number"`
	ContactNumber string          `json:"contact_number"`
	Email         string          `json:"email"`
	ReceiptFooter string          `json:"receipt_footer"`
	VATEnabled    bool            `json:"vat_enabled"`
	VATRate       decimal.Decimal `json:"vat_rate"`
}

func DefaultSettings() BusinessSettings {
	return BusinessSettings{
		BusinessName:  "Sari-Sari Store POS",
		Address:       "123 Barangay Street, Manila, Philippines",
		TIN:           "123-456-789-000",
		PermitNumber:  "FP-12345678",
		ContactNumber: "+63 912 345 6789",
		Email:         "store@example.com",
		ReceiptFooter: "Salamat sa inyong pagbili!",
		VATEnabled:    true,
		VATRate:       decimal.RequireFromString("0.12"),
	}
}

// Actor identifies the cashier or inventory clerk behind an operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type PaymentBreakdown struct {
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Transactions  int64           `json:"transactions"`
	Total         decimal.Decimal `json:"total"`
}

type DailyReport struct {
	Date           string             `json:"date"`
	Transactions   int64              `json:"transactions"`
	GrossSales     decimal.Decimal    `json:"gross_sales"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	VATAmount      decimal.Decimal    `json:"vat_amount"`
	NetSales       decimal.Decimal    `json:"net_sales"`
	ItemsSold      int64              `json:"items_sold"`
	ByPayment      []PaymentBreakdown `json:"by_payment"`
}

const (
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)
