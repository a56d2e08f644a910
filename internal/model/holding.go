package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a player's owned quantity of one stock.
// A stored holding always has Quantity > 0; a holding that would drop to
// zero is deleted instead.
type Holding struct {
	PlayerID PlayerID
	StockID  StockID
	Quantity int64
}

// PortfolioEntry pairs a holding with the stock's current catalog entry
type PortfolioEntry struct {
	Holding Holding
	Stock   Stock
}

// Portfolio is a consistent view of one player's balance and holdings
type Portfolio struct {
	Player  Player
	Entries []PortfolioEntry
}

// TradeCommit is the fully staged outcome of one trade. Storage applies
// the balance and holding changes together or not at all. The Prev fields
// let storage detect that another writer changed the account in between.
type TradeCommit struct {
	PlayerID     PlayerID
	StockID      StockID
	PrevBalance  decimal.Decimal
	NewBalance   decimal.Decimal
	PrevQuantity int64
	NewQuantity  int64 // 0 removes the holding
	At           time.Time
}

// Validate rejects commits that would break the ledger invariants
func (c TradeCommit) Validate() error {
	if c.NewQuantity < 0 {
		return &InvariantViolation{Reason: fmt.Sprintf("holding %s/%s would become %d", c.PlayerID, c.StockID, c.NewQuantity)}
	}
	if c.NewBalance.IsNegative() {
		return &InvariantViolation{Reason: fmt.Sprintf("balance of %s would become %s", c.PlayerID, c.NewBalance)}
	}
	return nil
}
