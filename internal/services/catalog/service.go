package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcoot/stockgame/internal/dependencies/clock"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// MaxNameLength bounds stock names
const MaxNameLength = 64

// Service manages the stock catalog
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	newID   func() model.StockID
}

// New creates a new catalog Service. Stock IDs are random UUIDs.
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
		newID:   func() model.StockID { return model.StockID(uuid.NewString()) },
	}
}

// normalize trims the name and checks name and price constraints
func normalize(name string, price decimal.Decimal) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be 1-%d characters", model.ErrInvalidStock, MaxNameLength)
	}
	if !price.IsPositive() {
		return "", fmt.Errorf("%w: price must be positive", model.ErrInvalidStock)
	}
	if !model.FitsMoneyScale(price) {
		return "", fmt.Errorf("%w: price has more than %d decimal places", model.ErrInvalidStock, model.MoneyScale)
	}
	return name, nil
}

// Create lists a new stock under a server-assigned ID
func (s *Service) Create(ctx context.Context, name string, price decimal.Decimal) (*model.Stock, error) {
	name, err := normalize(name, price)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	stock := &model.Stock{
		ID:        s.newID(),
		Name:      name,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.CreateStock(ctx, stock); err != nil {
		return nil, err
	}

	s.logger.Info("stock listed",
		slog.String("stock_id", string(stock.ID)),
		slog.String("name", stock.Name),
		slog.String("price", stock.Price.String()),
	)
	return stock, nil
}

// Get returns a stock by ID
func (s *Service) Get(ctx context.Context, id model.StockID) (*model.Stock, error) {
	return s.storage.GetStock(ctx, id)
}

// GetByName returns a stock by its exact name
func (s *Service) GetByName(ctx context.Context, name string) (*model.Stock, error) {
	return s.storage.GetStockByName(ctx, strings.TrimSpace(name))
}

// List returns a page of stocks in listing order
func (s *Service) List(ctx context.Context, page model.Page) ([]*model.Stock, error) {
	page, err := page.Validate()
	if err != nil {
		return nil, err
	}
	return s.storage.ListStocks(ctx, page)
}

// Update renames and/or re-prices a stock. Holdings keep their quantities;
// they carry no cost basis, so re-pricing affects only future trades.
func (s *Service) Update(ctx context.Context, id model.StockID, name string, price decimal.Decimal) (*model.Stock, error) {
	name, err := normalize(name, price)
	if err != nil {
		return nil, err
	}

	stock, err := s.storage.GetStock(ctx, id)
	if err != nil {
		return nil, err
	}
	stock.Name = name
	stock.Price = price
	stock.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveStock(ctx, stock); err != nil {
		return nil, err
	}

	s.logger.Info("stock updated",
		slog.String("stock_id", string(id)),
		slog.String("name", name),
		slog.String("price", price.String()),
	)
	return stock, nil
}

// Delete delists a stock. It fails with model.ErrStockInUse while held.
func (s *Service) Delete(ctx context.Context, id model.StockID) error {
	if err := s.storage.DeleteStock(ctx, id); err != nil {
		return err
	}
	s.logger.Info("stock delisted", slog.String("stock_id", string(id)))
	return nil
}
