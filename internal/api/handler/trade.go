package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/api/middleware"
	"github.com/mcoot/stockgame/internal/api/request"
	"github.com/mcoot/stockgame/internal/api/response"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/trade"
)

// TradeHandler handles buy and sell. The trading player is always the
// session subject.
type TradeHandler struct {
	engine *trade.Engine
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(engine *trade.Engine) *TradeHandler {
	return &TradeHandler{engine: engine}
}

type tradeFunc func(ctx context.Context, playerID model.PlayerID, stockID model.StockID, quantity int64) (decimal.Decimal, error)

// Buy handles POST /api/v1/trades/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.engine.Buy)
}

// Sell handles POST /api/v1/trades/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.engine.Sell)
}

func (h *TradeHandler) handle(w http.ResponseWriter, r *http.Request, fn tradeFunc) {
	var req request.TradeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.StockID == "" {
		WriteError(w, NewInvalidRequestError("stockId is required"))
		return
	}

	playerID := middleware.MustGetPlayerID(r.Context())
	balance, err := fn(r.Context(), playerID, model.StockID(req.StockID), req.Quantity)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TradeResponse{
		PlayerID: string(playerID),
		Balance:  balance,
	})
}
