package trade

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/dependencies/clock"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/ledger"
	"github.com/mcoot/stockgame/internal/services/locking"
	"github.com/mcoot/stockgame/internal/storage"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Engine executes buy and sell orders against the ledger.
// Trades on one player are serialized by the account lock; each trade reads
// the stock price once and commits balance and holding together.
type Engine struct {
	storage storage.Storage
	ledger  *ledger.Ledger
	locks   *locking.AccountLocks
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a trade Engine
func New(
	storage storage.Storage,
	ledger *ledger.Ledger,
	locks *locking.AccountLocks,
	clock clock.Clock,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		storage: storage,
		ledger:  ledger,
		locks:   locks,
		clock:   clock,
		logger:  logger,
	}
}

// Buy debits price*quantity from the player's balance and adds quantity to
// the holding. It returns the new balance.
func (e *Engine) Buy(ctx context.Context, playerID model.PlayerID, stockID model.StockID, quantity int64) (decimal.Decimal, error) {
	return e.execute(ctx, SideBuy, playerID, stockID, quantity)
}

// Sell removes quantity from the holding and credits price*quantity to the
// player's balance. A holding that reaches zero is deleted.
func (e *Engine) Sell(ctx context.Context, playerID model.PlayerID, stockID model.StockID, quantity int64) (decimal.Decimal, error) {
	return e.execute(ctx, SideSell, playerID, stockID, quantity)
}

func (e *Engine) execute(ctx context.Context, side Side, playerID model.PlayerID, stockID model.StockID, quantity int64) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, e.rejected(side, playerID, stockID, quantity, model.ErrInvalidQuantity)
	}

	release, err := e.locks.Acquire(ctx, playerID)
	if err != nil {
		return decimal.Zero, e.rejected(side, playerID, stockID, quantity, err)
	}
	defer release()

	// Once the account is held the trade runs to completion
	ctx = context.WithoutCancel(ctx)

	commit, err := e.stage(ctx, side, playerID, stockID, quantity)
	if err != nil {
		return decimal.Zero, e.rejected(side, playerID, stockID, quantity, err)
	}

	if err := e.storage.CommitTrade(ctx, commit); err != nil {
		e.logger.Error("trade commit failed",
			slog.String("side", string(side)),
			slog.String("player_id", string(playerID)),
			slog.String("stock_id", string(stockID)),
			slog.Int64("quantity", quantity),
			slog.String("error", err.Error()),
		)
		return decimal.Zero, err
	}

	e.logger.Info("trade committed",
		slog.String("side", string(side)),
		slog.String("player_id", string(playerID)),
		slog.String("stock_id", string(stockID)),
		slog.Int64("quantity", quantity),
		slog.String("balance", commit.NewBalance.String()),
		slog.Int64("holding", commit.NewQuantity),
	)
	return commit.NewBalance, nil
}

// stage reads the account and computes the full outcome of the trade
// without writing anything
func (e *Engine) stage(ctx context.Context, side Side, playerID model.PlayerID, stockID model.StockID, quantity int64) (model.TradeCommit, error) {
	player, err := e.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return model.TradeCommit{}, err
	}
	stock, err := e.storage.GetStock(ctx, stockID)
	if err != nil {
		return model.TradeCommit{}, err
	}
	held, err := e.ledger.Quantity(ctx, playerID, stockID)
	if err != nil {
		return model.TradeCommit{}, err
	}

	cost := model.Cost(stock.Price, quantity)
	commit := model.TradeCommit{
		PlayerID:     playerID,
		StockID:      stockID,
		PrevBalance:  player.Balance,
		PrevQuantity: held,
		At:           e.clock.Now(),
	}

	switch side {
	case SideBuy:
		if player.Balance.LessThan(cost) {
			return model.TradeCommit{}, model.ErrInsufficientFunds
		}
		if quantity > math.MaxInt64-held {
			return model.TradeCommit{}, fmt.Errorf("%w: holding would exceed %d shares", model.ErrInvalidQuantity, int64(math.MaxInt64))
		}
		commit.NewBalance = player.Balance.Sub(cost)
		commit.NewQuantity = ledger.NextQuantity(playerID, stockID, held, quantity)
	case SideSell:
		if held < quantity {
			return model.TradeCommit{}, model.ErrInsufficientQuantity
		}
		commit.NewBalance = player.Balance.Add(cost)
		commit.NewQuantity = ledger.NextQuantity(playerID, stockID, held, -quantity)
	}
	return commit, nil
}

func (e *Engine) rejected(side Side, playerID model.PlayerID, stockID model.StockID, quantity int64, err error) error {
	e.logger.Debug("trade rejected",
		slog.String("side", string(side)),
		slog.String("player_id", string(playerID)),
		slog.String("stock_id", string(stockID)),
		slog.Int64("quantity", quantity),
		slog.String("reason", err.Error()),
	)
	return err
}
