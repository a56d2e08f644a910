package request

import "github.com/shopspring/decimal"

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	PlayerID string `json:"playerId"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	PlayerID string `json:"playerId"`
	Password string `json:"password"`
}

// UpdatePlayerRequest is the request body for changing a player's balance
type UpdatePlayerRequest struct {
	Balance *decimal.Decimal `json:"balance"`
}

// StockRequest is the request body for creating or updating a stock
type StockRequest struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// TradeRequest is the request body for buying or selling
type TradeRequest struct {
	StockID  string `json:"stockId"`
	Quantity int64  `json:"quantity"`
}
