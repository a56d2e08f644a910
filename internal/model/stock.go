package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockID is the server-assigned identifier of a listed stock
type StockID string

// Stock is a catalog entry with its current unit price
type Stock struct {
	ID        StockID
	Name      string
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy that shares no mutable state with s
func (s *Stock) Clone() *Stock {
	c := *s
	return &c
}
