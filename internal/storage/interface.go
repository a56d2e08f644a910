package storage

import (
	"context"

	"github.com/mcoot/stockgame/internal/model"
)

// Storage defines the interface for data persistence.
//
// Implementations return copies: mutating a returned value never changes
// stored state. Writes go through Save*/Create*/CommitTrade only.
type Storage interface {
	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	PlayerExists(ctx context.Context, id model.PlayerID) (bool, error)
	// DeletePlayer removes the player and all of its holdings atomically
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	// ListPlayers returns players in creation order
	ListPlayers(ctx context.Context, page model.Page) ([]*model.Player, error)

	// Stock operations
	CreateStock(ctx context.Context, stock *model.Stock) error
	SaveStock(ctx context.Context, stock *model.Stock) error
	GetStock(ctx context.Context, id model.StockID) (*model.Stock, error)
	GetStockByName(ctx context.Context, name string) (*model.Stock, error)
	// DeleteStock fails with model.ErrStockInUse while any player holds the stock
	DeleteStock(ctx context.Context, id model.StockID) error
	// ListStocks returns stocks in creation order
	ListStocks(ctx context.Context, page model.Page) ([]*model.Stock, error)

	// Holding operations
	GetHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error)
	SaveHolding(ctx context.Context, holding *model.Holding) error
	DeleteHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) error
	// ListHoldings returns a player's holdings ordered by stock ID
	ListHoldings(ctx context.Context, playerID model.PlayerID) ([]*model.Holding, error)

	// Ledger operations

	// CommitTrade applies the balance and holding change of one trade as a
	// single atomic write. It fails with model.ErrConcurrentUpdate when the
	// stored balance or quantity no longer match the commit's Prev values.
	CommitTrade(ctx context.Context, commit model.TradeCommit) error
	// GetPortfolio reads a player and its holdings as one consistent snapshot
	GetPortfolio(ctx context.Context, playerID model.PlayerID) (*model.Player, []*model.Holding, error)
}
