package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/model"
)

// Timestamps are written by the services from their clock, so gorm's
// automatic tracking is off on every record.

type playerRecord struct {
	ID             string          `gorm:"column:id;primaryKey"`
	CredentialHash string          `gorm:"column:credential_hash;not null"`
	Balance        decimal.Decimal `gorm:"column:balance;type:numeric(20,4);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (playerRecord) TableName() string {
	return "players"
}

func toPlayerRecord(p *model.Player) playerRecord {
	return playerRecord{
		ID:             string(p.ID),
		CredentialHash: p.CredentialHash,
		Balance:        p.Balance,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r playerRecord) toModel() *model.Player {
	return &model.Player{
		ID:             model.PlayerID(r.ID),
		CredentialHash: r.CredentialHash,
		Balance:        r.Balance,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type stockRecord struct {
	ID        string          `gorm:"column:id;primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,4);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (stockRecord) TableName() string {
	return "stocks"
}

func toStockRecord(s *model.Stock) stockRecord {
	return stockRecord{
		ID:        string(s.ID),
		Name:      s.Name,
		Price:     s.Price,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (r stockRecord) toModel() *model.Stock {
	return &model.Stock{
		ID:        model.StockID(r.ID),
		Name:      r.Name,
		Price:     r.Price,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type holdingRecord struct {
	PlayerID string `gorm:"column:player_id;primaryKey"`
	StockID  string `gorm:"column:stock_id;primaryKey;index"`
	Quantity int64  `gorm:"column:quantity;not null;check:quantity > 0"`
}

func (holdingRecord) TableName() string {
	return "holdings"
}

func toHoldingRecord(h *model.Holding) holdingRecord {
	return holdingRecord{
		PlayerID: string(h.PlayerID),
		StockID:  string(h.StockID),
		Quantity: h.Quantity,
	}
}

func (r holdingRecord) toModel() *model.Holding {
	return &model.Holding{
		PlayerID: model.PlayerID(r.PlayerID),
		StockID:  model.StockID(r.StockID),
		Quantity: r.Quantity,
	}
}
