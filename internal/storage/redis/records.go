package redis

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/model"
)

// playerRecord is the JSON form of a player stored under playerKey
type playerRecord struct {
	ID             string          `json:"id"`
	CredentialHash string          `json:"credential_hash"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func encodePlayer(p *model.Player) ([]byte, error) {
	return json.Marshal(playerRecord{
		ID:             string(p.ID),
		CredentialHash: p.CredentialHash,
		Balance:        p.Balance,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	})
}

func decodePlayer(data []byte) (*model.Player, error) {
	var r playerRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &model.Player{
		ID:             model.PlayerID(r.ID),
		CredentialHash: r.CredentialHash,
		Balance:        r.Balance,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

// stockRecord is the JSON form of a stock stored under stockKey
type stockRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func encodeStock(s *model.Stock) ([]byte, error) {
	return json.Marshal(stockRecord{
		ID:        string(s.ID),
		Name:      s.Name,
		Price:     s.Price,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	})
}

func decodeStock(data []byte) (*model.Stock, error) {
	var r stockRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &model.Stock{
		ID:        model.StockID(r.ID),
		Name:      r.Name,
		Price:     r.Price,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
