package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// holdingsDegree is the btree node degree for the holdings index
const holdingsDegree = 16

// Storage is an in-memory implementation of the storage interface.
// A single RWMutex covers all maps, so every method is one atomic step.
type Storage struct {
	mu sync.RWMutex

	players    map[model.PlayerID]*model.Player
	stocks     map[model.StockID]*model.Stock
	stockNames map[string]model.StockID
	// holdings is ordered by (player, stock) so one player's holdings are a contiguous range
	holdings *btree.BTreeG[model.Holding]
	// holders counts holdings per stock for the in-use check on delete
	holders map[model.StockID]int
}

func holdingLess(a, b model.Holding) bool {
	if a.PlayerID != b.PlayerID {
		return a.PlayerID < b.PlayerID
	}
	return a.StockID < b.StockID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:    make(map[model.PlayerID]*model.Player),
		stocks:     make(map[model.StockID]*model.Stock),
		stockNames: make(map[string]model.StockID),
		holdings:   btree.NewG[model.Holding](holdingsDegree, holdingLess),
		holders:    make(map[model.StockID]int),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; ok {
		return model.ErrDuplicatePlayer
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[player.ID]; !ok {
		return model.ErrPlayerNotFound
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.players[id]
	return ok, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return model.ErrPlayerNotFound
	}
	for _, h := range s.holdingsFor(id) {
		s.removeHolding(*h)
	}
	delete(s.players, id)
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context, page model.Page) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		all = append(all, p)
	}
	slices.SortFunc(all, func(a, b *model.Player) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	start, end := page.Window(len(all))
	result := make([]*model.Player, 0, end-start)
	for _, p := range all[start:end] {
		result = append(result, p.Clone())
	}
	return result, nil
}

// Stock operations

func (s *Storage) CreateStock(ctx context.Context, stock *model.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stockNames[stock.Name]; ok {
		return model.ErrDuplicateStockName
	}
	s.stocks[stock.ID] = stock.Clone()
	s.stockNames[stock.Name] = stock.ID
	return nil
}

func (s *Storage) SaveStock(ctx context.Context, stock *model.Stock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.stocks[stock.ID]
	if !ok {
		return model.ErrStockNotFound
	}
	if owner, taken := s.stockNames[stock.Name]; taken && owner != stock.ID {
		return model.ErrDuplicateStockName
	}
	delete(s.stockNames, existing.Name)
	s.stocks[stock.ID] = stock.Clone()
	s.stockNames[stock.Name] = stock.ID
	return nil
}

func (s *Storage) GetStock(ctx context.Context, id model.StockID) (*model.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stock, ok := s.stocks[id]
	if !ok {
		return nil, model.ErrStockNotFound
	}
	return stock.Clone(), nil
}

func (s *Storage) GetStockByName(ctx context.Context, name string) (*model.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.stockNames[name]
	if !ok {
		return nil, model.ErrStockNotFound
	}
	return s.stocks[id].Clone(), nil
}

func (s *Storage) DeleteStock(ctx context.Context, id model.StockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stocks[id]
	if !ok {
		return model.ErrStockNotFound
	}
	if s.holders[id] > 0 {
		return model.ErrStockInUse
	}
	delete(s.stockNames, stock.Name)
	delete(s.stocks, id)
	return nil
}

func (s *Storage) ListStocks(ctx context.Context, page model.Page) ([]*model.Stock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*model.Stock, 0, len(s.stocks))
	for _, st := range s.stocks {
		all = append(all, st)
	}
	slices.SortFunc(all, func(a, b *model.Stock) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	start, end := page.Window(len(all))
	result := make([]*model.Stock, 0, end-start)
	for _, st := range all[start:end] {
		result = append(result, st.Clone())
	}
	return result, nil
}

// Holding operations

func (s *Storage) GetHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) (*model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings.Get(model.Holding{PlayerID: playerID, StockID: stockID})
	if !ok {
		return nil, model.ErrHoldingNotFound
	}
	return &h, nil
}

func (s *Storage) SaveHolding(ctx context.Context, holding *model.Holding) error {
	if holding.Quantity <= 0 {
		return &model.InvariantViolation{Reason: "holding saved with non-positive quantity"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putHolding(*holding)
	return nil
}

func (s *Storage) DeleteHolding(ctx context.Context, playerID model.PlayerID, stockID model.StockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeHolding(model.Holding{PlayerID: playerID, StockID: stockID})
	return nil
}

func (s *Storage) ListHoldings(ctx context.Context, playerID model.PlayerID) ([]*model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdingsFor(playerID), nil
}

// Ledger operations

func (s *Storage) CommitTrade(ctx context.Context, commit model.TradeCommit) error {
	if err := commit.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[commit.PlayerID]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if _, ok := s.stocks[commit.StockID]; !ok {
		return model.ErrStockNotFound
	}

	var current int64
	if h, ok := s.holdings.Get(model.Holding{PlayerID: commit.PlayerID, StockID: commit.StockID}); ok {
		current = h.Quantity
	}
	if !player.Balance.Equal(commit.PrevBalance) || current != commit.PrevQuantity {
		return model.ErrConcurrentUpdate
	}

	// Stage the new player value first; nothing below can fail
	next := player.Clone()
	next.Balance = commit.NewBalance
	next.UpdatedAt = commit.At

	s.players[commit.PlayerID] = next
	if commit.NewQuantity == 0 {
		s.removeHolding(model.Holding{PlayerID: commit.PlayerID, StockID: commit.StockID})
	} else {
		s.putHolding(model.Holding{PlayerID: commit.PlayerID, StockID: commit.StockID, Quantity: commit.NewQuantity})
	}
	return nil
}

func (s *Storage) GetPortfolio(ctx context.Context, playerID model.PlayerID) (*model.Player, []*model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[playerID]
	if !ok {
		return nil, nil, model.ErrPlayerNotFound
	}
	return player.Clone(), s.holdingsFor(playerID), nil
}

// holdingsFor collects a player's holdings; caller holds the lock
func (s *Storage) holdingsFor(playerID model.PlayerID) []*model.Holding {
	var result []*model.Holding
	s.holdings.AscendGreaterOrEqual(model.Holding{PlayerID: playerID}, func(h model.Holding) bool {
		if h.PlayerID != playerID {
			return false
		}
		result = append(result, &h)
		return true
	})
	return result
}

// putHolding inserts or replaces a holding; caller holds the write lock
func (s *Storage) putHolding(h model.Holding) {
	if _, replaced := s.holdings.ReplaceOrInsert(h); !replaced {
		s.holders[h.StockID]++
	}
}

// removeHolding deletes a holding if present; caller holds the write lock
func (s *Storage) removeHolding(h model.Holding) {
	if _, removed := s.holdings.Delete(h); removed {
		s.holders[h.StockID]--
		if s.holders[h.StockID] <= 0 {
			delete(s.holders, h.StockID)
		}
	}
}
