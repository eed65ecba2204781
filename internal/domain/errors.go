package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateBarcode    = errors.New("duplicate barcode")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidDiscount     = errors.New("invalid discount")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrEmptyCart           = errors.New("empty cart")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrIOFailure           = errors.New("io failure")

	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrClosed            = errors.New("store closed")
)

// StockError reports which product could not cover a requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): available %d, requested %d", e.Name, e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
