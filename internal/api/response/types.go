package response

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/auth"
)

// Player represents a player in API responses. The credential hash is
// never included.
type Player struct {
	ID      string          `json:"playerId"`
	Balance decimal.Decimal `json:"balance"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:      string(p.ID),
		Balance: p.Balance,
	}
}

// PlayersFromModel converts a page of players
func PlayersFromModel(players []*model.Player) []Player {
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// AuthResponse is the response for the login endpoint
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(p *model.Player, s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(p),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Stock represents a catalog entry
type Stock struct {
	ID    string          `json:"stockId"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// StockFromModel converts model.Stock
func StockFromModel(s *model.Stock) Stock {
	return Stock{
		ID:    string(s.ID),
		Name:  s.Name,
		Price: s.Price,
	}
}

// StocksFromModel converts a page of stocks
func StocksFromModel(stocks []*model.Stock) []Stock {
	out := make([]Stock, len(stocks))
	for i, s := range stocks {
		out[i] = StockFromModel(s)
	}
	return out
}

// Holding is one line of a portfolio, priced at the stock's current price
type Holding struct {
	StockID  string          `json:"stockId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Portfolio is a player with their holdings
type Portfolio struct {
	ID       string          `json:"playerId"`
	Balance  decimal.Decimal `json:"balance"`
	Holdings []Holding       `json:"holdings"`
}

// PortfolioFromModel converts model.Portfolio
func PortfolioFromModel(p *model.Portfolio) Portfolio {
	holdings := make([]Holding, len(p.Entries))
	for i, e := range p.Entries {
		holdings[i] = Holding{
			StockID:  string(e.Stock.ID),
			Name:     e.Stock.Name,
			Price:    e.Stock.Price,
			Quantity: e.Holding.Quantity,
		}
	}
	return Portfolio{
		ID:       string(p.Player.ID),
		Balance:  p.Player.Balance,
		Holdings: holdings,
	}
}

// TradeResponse is the response after a buy or sell
type TradeResponse struct {
	PlayerID string          `json:"playerId"`
	Balance  decimal.Decimal `json:"balance"`
}
