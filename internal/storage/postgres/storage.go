package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// Storage is a PostgreSQL implementation of the storage interface.
// Ledger writes lock the player row so concurrent processes serialize per account.
type Storage struct {
	db *gorm.DB
}

// New opens a connection pool and migrates the schema
func New(cfg Config) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &Storage{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing gorm handle (for testing)
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates or updates the tables
func (s *Storage) Migrate() error {
	return s.db.AutoMigrate(&playerRecord{}, &stockRecord{}, &holdingRecord{})
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	rec := toPlayerRecord(player)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrDuplicatePlayer
	}
	return err
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	rec := toPlayerRecord(player)
	res := s.db.WithContext(ctx).
		Model(&playerRecord{}).
		Where("id = ?", rec.ID).
		Select("credential_hash", "balance", "created_at", "updated_at").
		Updates(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getPlayer(s.db.WithContext(ctx), id)
}

func getPlayer(db *gorm.DB, id model.PlayerID) (*model.Player, error) {
	var rec playerRecord
	err := db.Where("id = ?", string(id)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (s *Storage) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&playerRecord{}).Where("id = ?", string(id)).Count(&n).Error
	return n > 0, err
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getPlayer(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id); err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", string(id)).Delete(&holdingRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", string(id)).Delete(&playerRecord{}).Error
	})
}

func (s *Storage) ListPlayers(ctx context.Context, page model.Page) ([]*model.Player, error) {
	var recs []playerRecord
	err := s.db.WithContext(ctx).
		Order("created_at, id").
		Offset(page.Offset).
		Limit(page.Count).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	players := make([]*model.Player, len(recs))
	for i, rec := range recs {
		players[i] = rec.toModel()
	}
	return players, nil
}

// Stock operations

func (s *Storage) CreateStock(ctx context.Context, stock *model.Stock) error {
	rec := toStockRecord(stock)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrDuplicateStockName
	}
	return err
}

func (s *Storage) SaveStock(ctx context.Context, stock *model.Stock) error {
	rec := toStockRecord(stock)
	res := s.db.WithContext(ctx).
		Model(&stockRecord{}).
		Where("id = ?", rec.ID).
		Select("name", "price", "created_at", "updated_at").
		Updates(&rec)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return model.ErrDuplicateStockName
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrStockNotFound
	}
	return nil
}

func (s *Storage) GetStock(ctx context.Context, id model.StockID) (*model.Stock, error) {
	return getStock(s.db.WithContext(ctx), "id = ?", string(id))
}

func (s *Storage) GetStockByName(ctx context.Context, name string) (*model.Stock, error) {
	return getStock(s.db.WithContext(ctx), "name = ?", name)
}

func getStock(db *gorm.DB, query string, arg string) (*model.Stock, error) {
	var rec stockRecord
	err := db.Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (s *Storage) DeleteStock(ctx context.Context, id model.StockID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getStock(tx.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", string(id)); err != nil {
			return err
		}
		var holders int64
		if err := tx.Model(&holdingRecord{}).Where("stock_id = ?", string(id)).Count(&holders).Error; err != nil {
			return err
		}
		if holders > 0 {
			return model.ErrStockInUse
		}
		return tx.Where("id = ?", string(id)).Delete(&stockRecord{}).Error
	})
}

func (s *Storage) ListStocks(ctx context.Context, page model.Page) ([]*model.Stock, error) {
	var recs []stockRecord
	err := s.db.WithContext(ctx).
		Order("created_at, id").
		Offset(page.Offset).
		Limit(page.Count).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	stocks := make([]*model.Stock, len(recs))
	for i, rec := range recs {
		stocks[i] = rec.toModel()
	}
	return stocks, nil
}

// Holding operations

func (s *Storage) GetHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error) {
	return getHolding(s.db.WithContext(ctx), playerID, stockID)
}

func getHolding(db *gorm.DB, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error) {
	var rec holdingRecord
	err := db.Where("player_id = ? AND stock_id = ?", string(playerID), string(stockID)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (s *Storage) SaveHolding(ctx context.Context, holding *model.Holding) error {
	if holding.Quantity <= 0 {
		return &model.InvariantViolation{Reason: "holding saved with non-positive quantity"}
	}
	return upsertHolding(s.db.WithContext(ctx), toHoldingRecord(holding))
}

func upsertHolding(db *gorm.DB, rec holdingRecord) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "stock_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
	}).Create(&rec).Error
}

func (s *Storage) DeleteHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) error {
	return s.db.WithContext(ctx).
		Where("player_id = ? AND stock_id = ?", string(playerID), string(stockID)).
		Delete(&holdingRecord{}).Error
}

func (s *Storage) ListHoldings(ctx context.Context, playerID model.PlayerID) ([]*model.Holding, error) {
	return listHoldings(s.db.WithContext(ctx), playerID)
}

func listHoldings(db *gorm.DB, playerID model.PlayerID) ([]*model.Holding, error) {
	var recs []holdingRecord
	if err := db.Where("player_id = ?", string(playerID)).Order("stock_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	holdings := make([]*model.Holding, len(recs))
	for i, rec := range recs {
		holdings[i] = rec.toModel()
	}
	return holdings, nil
}

// Ledger operations

func (s *Storage) CommitTrade(ctx context.Context, commit model.TradeCommit) error {
	if err := commit.Validate(); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		player, err := getPlayer(tx.Clauses(clause.Locking{Strength: "UPDATE"}), commit.PlayerID)
		if err != nil {
			return err
		}
		// Shared lock keeps the stock from being deleted under the trade
		if _, err := getStock(tx.Clauses(clause.Locking{Strength: "SHARE"}), "id = ?", string(commit.StockID)); err != nil {
			return err
		}

		var current int64
		holding, err := getHolding(tx, commit.PlayerID, commit.StockID)
		switch {
		case err == nil:
			current = holding.Quantity
		case !errors.Is(err, model.ErrHoldingNotFound):
			return err
		}
		if !player.Balance.Equal(commit.PrevBalance) || current != commit.PrevQuantity {
			return model.ErrConcurrentUpdate
		}

		err = tx.Model(&playerRecord{}).
			Where("id = ?", string(commit.PlayerID)).
			Updates(map[string]any{
				"balance":    commit.NewBalance,
				"updated_at": commit.At,
			}).Error
		if err != nil {
			return err
		}

		if commit.NewQuantity == 0 {
			return tx.Where("player_id = ? AND stock_id = ?", string(commit.PlayerID), string(commit.StockID)).
				Delete(&holdingRecord{}).Error
		}
		return upsertHolding(tx, holdingRecord{
			PlayerID: string(commit.PlayerID),
			StockID:  string(commit.StockID),
			Quantity: commit.NewQuantity,
		})
	})
}

func (s *Storage) GetPortfolio(ctx context.Context, playerID model.PlayerID) (*model.Player, []*model.Holding, error) {
	var (
		player   *model.Player
		holdings []*model.Holding
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if player, err = getPlayer(tx, playerID); err != nil {
			return err
		}
		holdings, err = listHoldings(tx, playerID)
		return err
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return player, holdings, nil
}
