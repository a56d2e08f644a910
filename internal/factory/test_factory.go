package factory

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/account"
	"github.com/mcoot/stockgame/internal/services/auth"
	"github.com/mcoot/stockgame/internal/storage/memory"
)

// TestLockTimeout keeps contended tests fast
const TestLockTimeout = 200 * time.Millisecond

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Credentials are hashed at the minimum bcrypt cost.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.HashCost = bcrypt.MinCost
	accountCfg := account.Config{
		StartingBalance: model.DefaultStartingBalance,
		HashCost:        bcrypt.MinCost,
	}

	app, err := newWithDependencies(store, mockClock, mockRandom, authCfg, accountCfg, TestLockTimeout, slog.New(slog.DiscardHandler))
	if err != nil {
		// the mock random source never fails and its key is long enough
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// SeedStock lists a stock at the given price and returns it
func (t *TestApp) SeedStock(name, price string) (*model.Stock, error) {
	return t.CatalogService.Create(context.Background(), name, decimal.RequireFromString(price))
}
