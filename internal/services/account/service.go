package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/stockgame/internal/dependencies/clock"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/locking"
	"github.com/mcoot/stockgame/internal/storage"
)

// MaxPlayerIDLength bounds player IDs so they fit storage keys comfortably
const MaxPlayerIDLength = 64

// Config holds configuration for the account service
type Config struct {
	StartingBalance decimal.Decimal
	HashCost        int
}

// DefaultConfig returns default account configuration
func DefaultConfig() Config {
	return Config{
		StartingBalance: model.DefaultStartingBalance,
		HashCost:        bcrypt.DefaultCost,
	}
}

// Service manages player accounts: registration, lookup, balance edits and removal
type Service struct {
	storage storage.Storage
	locks   *locking.AccountLocks
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
}

// New creates a new account Service
func New(storage storage.Storage, locks *locking.AccountLocks, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		storage: storage,
		locks:   locks,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
	}
}

// Register creates a player with the configured starting balance
func (s *Service) Register(ctx context.Context, playerID model.PlayerID, credential string) (*model.Player, error) {
	id := model.PlayerID(strings.TrimSpace(string(playerID)))
	if id == "" || len(id) > MaxPlayerIDLength || strings.ContainsAny(string(id), " \t\r\n/:") {
		return nil, fmt.Errorf("%w: player id must be 1-%d characters without spaces, '/' or ':'", model.ErrInvalidPlayer, MaxPlayerIDLength)
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: credential must not be empty", model.ErrInvalidPlayer)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidPlayer, err)
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:             id,
		CredentialHash: string(hash),
		Balance:        s.cfg.StartingBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(id)),
		slog.String("balance", player.Balance.String()),
	)
	return player, nil
}

// Get returns a player by ID
func (s *Service) Get(ctx context.Context, playerID model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, playerID)
}

// Exists reports whether a player is registered
func (s *Service) Exists(ctx context.Context, playerID model.PlayerID) (bool, error) {
	return s.storage.PlayerExists(ctx, playerID)
}

// List returns a page of players in registration order
func (s *Service) List(ctx context.Context, page model.Page) ([]*model.Player, error) {
	page, err := page.Validate()
	if err != nil {
		return nil, err
	}
	return s.storage.ListPlayers(ctx, page)
}

// UpdateBalance replaces a player's balance. It takes the same per-account
// lock as trading, so it never interleaves with a trade on that player.
func (s *Service) UpdateBalance(ctx context.Context, playerID model.PlayerID, balance decimal.Decimal) (*model.Player, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance must not be negative", model.ErrInvalidPlayer)
	}
	if !model.FitsMoneyScale(balance) {
		return nil, fmt.Errorf("%w: balance has more than %d decimal places", model.ErrInvalidPlayer, model.MoneyScale)
	}

	release, err := s.locks.Acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer release()

	player, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	previous := player.Balance
	player.Balance = balance
	player.UpdatedAt = s.clock.Now()
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player balance updated",
		slog.String("player_id", string(playerID)),
		slog.String("previous", previous.String()),
		slog.String("balance", balance.String()),
	)
	return player, nil
}

// Delete removes a player together with all of its holdings
func (s *Service) Delete(ctx context.Context, playerID model.PlayerID) error {
	release, err := s.locks.Acquire(ctx, playerID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.storage.DeletePlayer(ctx, playerID); err != nil {
		return err
	}
	s.logger.Info("player deleted", slog.String("player_id", string(playerID)))
	return nil
}
