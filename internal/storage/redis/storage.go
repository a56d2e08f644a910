package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Multi-key writes run as WATCH/MULTI/EXEC transactions so several server
// processes can share one Redis without losing updates.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// update runs fn as an optimistic transaction over keys, retrying when
// another client touched a watched key first
func (s *Storage) update(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt <= s.cfg.WriteRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return model.ErrConcurrentUpdate
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := encodePlayer(player)
	if err != nil {
		return err
	}
	key := playerKey(player.ID)

	return s.update(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrDuplicatePlayer
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, playersIndexKey(), redis.Z{
				Score:  float64(player.CreatedAt.UnixMilli()),
				Member: string(player.ID),
			})
			return nil
		})
		return err
	}, key)
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := encodePlayer(player)
	if err != nil {
		return err
	}
	key := playerKey(player.ID)

	return s.update(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrPlayerNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return decodePlayer(data)
}

func (s *Storage) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	exists, err := s.client.Exists(ctx, playerKey(id)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	pKey := playerKey(id)
	hKey := holdingsKey(id)

	return s.update(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, pKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrPlayerNotFound
		}
		stockIDs, err := tx.HKeys(ctx, hKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, pKey, hKey)
			pipe.ZRem(ctx, playersIndexKey(), string(id))
			for _, stockID := range stockIDs {
				pipe.SRem(ctx, stockHoldersIndexKey(model.StockID(stockID)), string(id))
			}
			return nil
		})
		return err
	}, pKey, hKey)
}

func (s *Storage) ListPlayers(ctx context.Context, page model.Page) ([]*model.Player, error) {
	ids, err := s.pageOfIndex(ctx, playersIndexKey(), page)
	if err != nil || len(ids) == 0 {
		return []*model.Player{}, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // deleted between ZRANGE and MGET
		}
		player, err := decodePlayer([]byte(val.(string)))
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, nil
}

// Stock operations

func (s *Storage) CreateStock(ctx context.Context, stock *model.Stock) error {
	data, err := encodeStock(stock)
	if err != nil {
		return err
	}
	key := stockKey(stock.ID)
	nameKey := stockNameIndexKey(stock.Name)

	return s.update(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, nameKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrDuplicateStockName
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Set(ctx, nameKey, string(stock.ID), 0)
			pipe.ZAdd(ctx, stocksIndexKey(), redis.Z{
				Score:  float64(stock.CreatedAt.UnixMilli()),
				Member: string(stock.ID),
			})
			return nil
		})
		return err
	}, key, nameKey)
}

func (s *Storage) SaveStock(ctx context.Context, stock *model.Stock) error {
	data, err := encodeStock(stock)
	if err != nil {
		return err
	}
	key := stockKey(stock.ID)
	nameKey := stockNameIndexKey(stock.Name)

	return s.update(ctx, func(tx *redis.Tx) error {
		existing, err := s.getStock(ctx, tx, stock.ID)
		if err != nil {
			return err
		}
		owner, err := tx.Get(ctx, nameKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && owner != string(stock.ID) {
			return model.ErrDuplicateStockName
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if existing.Name != stock.Name {
				pipe.Del(ctx, stockNameIndexKey(existing.Name))
			}
			pipe.Set(ctx, nameKey, string(stock.ID), 0)
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key, nameKey)
}

func (s *Storage) GetStock(ctx context.Context, id model.StockID) (*model.Stock, error) {
	return s.getStock(ctx, s.client, id)
}

// getter is satisfied by both the client and a watched transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Storage) getStock(ctx context.Context, c getter, id model.StockID) (*model.Stock, error) {
	data, err := c.Get(ctx, stockKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStockNotFound
		}
		return nil, err
	}
	return decodeStock(data)
}

func (s *Storage) GetStockByName(ctx context.Context, name string) (*model.Stock, error) {
	id, err := s.client.Get(ctx, stockNameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStockNotFound
		}
		return nil, err
	}
	return s.GetStock(ctx, model.StockID(id))
}

func (s *Storage) DeleteStock(ctx context.Context, id model.StockID) error {
	key := stockKey(id)
	holdersKey := stockHoldersIndexKey(id)

	return s.update(ctx, func(tx *redis.Tx) error {
		existing, err := s.getStock(ctx, tx, id)
		if err != nil {
			return err
		}
		holders, err := tx.SCard(ctx, holdersKey).Result()
		if err != nil {
			return err
		}
		if holders > 0 {
			return model.ErrStockInUse
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, stockNameIndexKey(existing.Name), holdersKey)
			pipe.ZRem(ctx, stocksIndexKey(), string(id))
			return nil
		})
		return err
	}, key, holdersKey)
}

func (s *Storage) ListStocks(ctx context.Context, page model.Page) ([]*model.Stock, error) {
	ids, err := s.pageOfIndex(ctx, stocksIndexKey(), page)
	if err != nil || len(ids) == 0 {
		return []*model.Stock{}, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = stockKey(model.StockID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	stocks := make([]*model.Stock, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		stock, err := decodeStock([]byte(val.(string)))
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, stock)
	}
	return stocks, nil
}

// pageOfIndex returns the members of a creation-ordered ZSET within page
func (s *Storage) pageOfIndex(ctx context.Context, key string, page model.Page) ([]string, error) {
	start := int64(page.Offset)
	stop := start + int64(page.Count) - 1
	return s.client.ZRange(ctx, key, start, stop).Result()
}

// Holding operations

func (s *Storage) GetHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error) {
	qty, err := s.client.HGet(ctx, holdingsKey(playerID), string(stockID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrHoldingNotFound
		}
		return nil, err
	}
	return &model.Holding{PlayerID: playerID, StockID: stockID, Quantity: qty}, nil
}

func (s *Storage) SaveHolding(ctx context.Context, holding *model.Holding) error {
	if holding.Quantity <= 0 {
		return &model.InvariantViolation{Reason: "holding saved with non-positive quantity"}
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, holdingsKey(holding.PlayerID), string(holding.StockID), holding.Quantity)
		pipe.SAdd(ctx, stockHoldersIndexKey(holding.StockID), string(holding.PlayerID))
		return nil
	})
	return err
}

func (s *Storage) DeleteHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, holdingsKey(playerID), string(stockID))
		pipe.SRem(ctx, stockHoldersIndexKey(stockID), string(playerID))
		return nil
	})
	return err
}

func (s *Storage) ListHoldings(ctx context.Context, playerID model.PlayerID) ([]*model.Holding, error) {
	raw, err := s.client.HGetAll(ctx, holdingsKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	return parseHoldings(playerID, raw)
}

func parseHoldings(playerID model.PlayerID, raw map[string]string) ([]*model.Holding, error) {
	holdings := make([]*model.Holding, 0, len(raw))
	for stockID, qtyStr := range raw {
		qty, err := strconv.ParseInt(qtyStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("holding %s/%s: %w", playerID, stockID, err)
		}
		holdings = append(holdings, &model.Holding{
			PlayerID: playerID,
			StockID:  model.StockID(stockID),
			Quantity: qty,
		})
	}
	slices.SortFunc(holdings, func(a, b *model.Holding) int {
		switch {
		case a.StockID < b.StockID:
			return -1
		case a.StockID > b.StockID:
			return 1
		}
		return 0
	})
	return holdings, nil
}

// Ledger operations

func (s *Storage) CommitTrade(ctx context.Context, commit model.TradeCommit) error {
	if err := commit.Validate(); err != nil {
		return err
	}

	pKey := playerKey(commit.PlayerID)
	sKey := stockKey(commit.StockID)
	hKey := holdingsKey(commit.PlayerID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, pKey).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}
		player, err := decodePlayer(data)
		if err != nil {
			return err
		}
		exists, err := tx.Exists(ctx, sKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrStockNotFound
		}
		current, err := tx.HGet(ctx, hKey, string(commit.StockID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if !player.Balance.Equal(commit.PrevBalance) || current != commit.PrevQuantity {
			return model.ErrConcurrentUpdate
		}

		player.Balance = commit.NewBalance
		player.UpdatedAt = commit.At
		next, err := encodePlayer(player)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pKey, next, 0)
			holdersKey := stockHoldersIndexKey(commit.StockID)
			if commit.NewQuantity == 0 {
				pipe.HDel(ctx, hKey, string(commit.StockID))
				pipe.SRem(ctx, holdersKey, string(commit.PlayerID))
			} else {
				pipe.HSet(ctx, hKey, string(commit.StockID), commit.NewQuantity)
				pipe.SAdd(ctx, holdersKey, string(commit.PlayerID))
			}
			return nil
		})
		return err
	}, pKey, sKey, hKey)

	// A trade is never replayed blindly: the caller re-reads and decides
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrConcurrentUpdate
	}
	return err
}

func (s *Storage) GetPortfolio(ctx context.Context, playerID model.PlayerID) (*model.Player, []*model.Holding, error) {
	var (
		playerCmd   *redis.StringCmd
		holdingsCmd *redis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		playerCmd = pipe.Get(ctx, playerKey(playerID))
		holdingsCmd = pipe.HGetAll(ctx, holdingsKey(playerID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, err
	}

	data, err := playerCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, model.ErrPlayerNotFound
		}
		return nil, nil, err
	}
	player, err := decodePlayer(data)
	if err != nil {
		return nil, nil, err
	}
	holdings, err := parseHoldings(playerID, holdingsCmd.Val())
	if err != nil {
		return nil, nil, err
	}
	return player, holdings, nil
}
