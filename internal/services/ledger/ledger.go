package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// Ledger is the holdings side of the trading ledger. It owns the rule that
// a stored holding always has a positive quantity: a write of zero removes
// the record, and a negative quantity is a programming error that panics
// with *model.InvariantViolation.
type Ledger struct {
	storage storage.Storage
}

// New creates a Ledger over the given storage
func New(storage storage.Storage) *Ledger {
	return &Ledger{storage: storage}
}

// Get returns a holding, or model.ErrHoldingNotFound when the player holds none
func (l *Ledger) Get(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error) {
	h, err := l.storage.GetHolding(ctx, playerID, stockID)
	if err != nil {
		return nil, err
	}
	mustBeStorable(h.PlayerID, h.StockID, h.Quantity)
	return h, nil
}

// Quantity returns the held quantity, 0 when there is no holding
func (l *Ledger) Quantity(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (int64, error) {
	h, err := l.Get(ctx, playerID, stockID)
	if errors.Is(err, model.ErrHoldingNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return h.Quantity, nil
}

// Upsert overwrites or creates a holding. Quantity 0 removes it.
func (l *Ledger) Upsert(ctx context.Context, playerID model.PlayerID, stockID model.StockID, quantity int64) error {
	if quantity < 0 {
		panic(&model.InvariantViolation{
			Reason: fmt.Sprintf("upsert of %s/%s with quantity %d", playerID, stockID, quantity),
		})
	}
	if quantity == 0 {
		return l.storage.DeleteHolding(ctx, playerID, stockID)
	}
	return l.storage.SaveHolding(ctx, &model.Holding{PlayerID: playerID, StockID: stockID, Quantity: quantity})
}

// RemoveIfZero deletes the holding when its stored quantity is not positive
func (l *Ledger) RemoveIfZero(ctx context.Context, playerID model.PlayerID, stockID model.StockID) error {
	h, err := l.storage.GetHolding(ctx, playerID, stockID)
	if errors.Is(err, model.ErrHoldingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if h.Quantity < 0 {
		panic(&model.InvariantViolation{
			Reason: fmt.Sprintf("stored holding %s/%s has quantity %d", playerID, stockID, h.Quantity),
		})
	}
	if h.Quantity == 0 {
		return l.storage.DeleteHolding(ctx, playerID, stockID)
	}
	return nil
}

// ListByPlayer returns a player's holdings ordered by stock ID
func (l *Ledger) ListByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Holding, error) {
	holdings, err := l.storage.ListHoldings(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for _, h := range holdings {
		mustBeStorable(h.PlayerID, h.StockID, h.Quantity)
	}
	return holdings, nil
}

// Portfolio returns the player's balance and holdings from one consistent
// read, each holding paired with the stock's current catalog entry
func (l *Ledger) Portfolio(ctx context.Context, playerID model.PlayerID) (*model.Portfolio, error) {
	player, holdings, err := l.storage.GetPortfolio(ctx, playerID)
	if err != nil {
		return nil, err
	}

	portfolio := &model.Portfolio{
		Player:  *player,
		Entries: make([]model.PortfolioEntry, 0, len(holdings)),
	}
	for _, h := range holdings {
		mustBeStorable(h.PlayerID, h.StockID, h.Quantity)
		stock, err := l.storage.GetStock(ctx, h.StockID)
		if err != nil {
			return nil, fmt.Errorf("stock %s of holding: %w", h.StockID, err)
		}
		portfolio.Entries = append(portfolio.Entries, model.PortfolioEntry{Holding: *h, Stock: *stock})
	}
	return portfolio, nil
}

// NextQuantity applies delta to a held quantity. A negative result means
// the caller skipped its own sufficiency check, so it panics.
func NextQuantity(playerID model.PlayerID, stockID model.StockID, current, delta int64) int64 {
	next := current + delta
	if next < 0 {
		panic(&model.InvariantViolation{
			Reason: fmt.Sprintf("holding %s/%s would go from %d to %d", playerID, stockID, current, next),
		})
	}
	return next
}

func mustBeStorable(playerID model.PlayerID, stockID model.StockID, quantity int64) {
	if quantity <= 0 {
		panic(&model.InvariantViolation{
			Reason: fmt.Sprintf("stored holding %s/%s has quantity %d", playerID, stockID, quantity),
		})
	}
}
