package trade

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/ledger"
	"github.com/mcoot/stockgame/internal/services/locking"
	"github.com/mcoot/stockgame/internal/storage"
	"github.com/mcoot/stockgame/internal/storage/memory"
	"github.com/mcoot/stockgame/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	storage *memory.Storage
	locks   *locking.AccountLocks
	clock   *mocks.MockClock
	logs    *testutil.LogBuffer
	engine  *Engine
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.storage = memory.New()
	s.locks = locking.New(100 * time.Millisecond)
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	logger, logs := testutil.CapturingLogger()
	s.logs = logs
	s.engine = New(s.storage, ledger.New(s.storage), s.locks, s.clock, logger)
	s.ctx = context.Background()

	s.addPlayer("p1", "50000")
	s.addStock("s1", "ACME", "100")
}

func (s *EngineSuite) addPlayer(id model.PlayerID, balance string) {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: id, Balance: decimal.RequireFromString(balance)}))
}

func (s *EngineSuite) addStock(id model.StockID, name, price string) {
	s.Require().NoError(s.storage.CreateStock(s.ctx, &model.Stock{ID: id, Name: name, Price: decimal.RequireFromString(price)}))
}

func (s *EngineSuite) balance(id model.PlayerID) decimal.Decimal {
	p, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p.Balance
}

func (s *EngineSuite) quantity(playerID model.PlayerID, stockID model.StockID) int64 {
	h, err := s.storage.GetHolding(s.ctx, playerID, stockID)
	if errors.Is(err, model.ErrHoldingNotFound) {
		return 0
	}
	s.Require().NoError(err)
	return h.Quantity
}

func (s *EngineSuite) assertBalance(id model.PlayerID, want string) {
	got := s.balance(id)
	s.True(decimal.RequireFromString(want).Equal(got), "balance %s, want %s", got, want)
}

// Buy and sell round trip

func (s *EngineSuite) TestBuyThenSellRoundTrip() {
	balance, err := s.engine.Buy(s.ctx, "p1", "s1", 10)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(49000).Equal(balance))
	s.assertBalance("p1", "49000")
	s.Equal(int64(10), s.quantity("p1", "s1"))

	balance, err = s.engine.Sell(s.ctx, "p1", "s1", 10)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(50000).Equal(balance))
	s.assertBalance("p1", "50000")

	_, err = s.storage.GetHolding(s.ctx, "p1", "s1")
	s.ErrorIs(err, model.ErrHoldingNotFound)
}

func (s *EngineSuite) TestBuyAccumulatesHolding() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 3)
	s.Require().NoError(err)
	_, err = s.engine.Buy(s.ctx, "p1", "s1", 4)
	s.Require().NoError(err)

	s.Equal(int64(7), s.quantity("p1", "s1"))
	s.assertBalance("p1", "49300")
}

func (s *EngineSuite) TestPartialSellKeepsHolding() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 5)
	s.Require().NoError(err)

	balance, err := s.engine.Sell(s.ctx, "p1", "s1", 2)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(49700).Equal(balance))
	s.Equal(int64(3), s.quantity("p1", "s1"))
}

func (s *EngineSuite) TestBuyExactBalance() {
	s.addPlayer("p2", "300")

	balance, err := s.engine.Buy(s.ctx, "p2", "s1", 3)
	s.Require().NoError(err)
	s.True(balance.IsZero())
}

func (s *EngineSuite) TestFractionalPricesDoNotDrift() {
	s.addStock("s2", "PENNY", "0.1")

	for range 1000 {
		_, err := s.engine.Buy(s.ctx, "p1", "s2", 3)
		s.Require().NoError(err)
	}
	s.assertBalance("p1", "49700")

	for range 1000 {
		_, err := s.engine.Sell(s.ctx, "p1", "s2", 3)
		s.Require().NoError(err)
	}
	s.assertBalance("p1", "50000")
}

func (s *EngineSuite) TestRepricingUsesCurrentPrice() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 10)
	s.Require().NoError(err)

	stock, err := s.storage.GetStock(s.ctx, "s1")
	s.Require().NoError(err)
	stock.Price = decimal.NewFromInt(150)
	s.Require().NoError(s.storage.SaveStock(s.ctx, stock))

	balance, err := s.engine.Sell(s.ctx, "p1", "s1", 10)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(50500).Equal(balance))
}

// Rejections

func (s *EngineSuite) TestInsufficientFunds() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 501)
	s.ErrorIs(err, model.ErrInsufficientFunds)
	s.assertBalance("p1", "50000")
	s.Zero(s.quantity("p1", "s1"))
}

func (s *EngineSuite) TestBuyPastMaxHoldingIsRejected() {
	s.addPlayer("rich", "1000000000000000000000000")
	s.addStock("cheap", "PENNY", "0.0001")
	_, err := s.engine.Buy(s.ctx, "rich", "cheap", 10)
	s.Require().NoError(err)

	s.NotPanics(func() {
		_, err = s.engine.Buy(s.ctx, "rich", "cheap", math.MaxInt64-5)
	})
	s.ErrorIs(err, model.ErrInvalidQuantity)
	s.Equal(int64(10), s.quantity("rich", "cheap"))
	s.assertBalance("rich", "999999999999999999999999.999")
}

func (s *EngineSuite) TestBuyUpToMaxHolding() {
	s.addPlayer("rich", "1000000000000000000000000")
	s.addStock("cheap", "PENNY", "0.0001")
	_, err := s.engine.Buy(s.ctx, "rich", "cheap", 10)
	s.Require().NoError(err)

	_, err = s.engine.Buy(s.ctx, "rich", "cheap", math.MaxInt64-10)
	s.Require().NoError(err)
	s.Equal(int64(math.MaxInt64), s.quantity("rich", "cheap"))
}

func (s *EngineSuite) TestSellWithoutHolding() {
	_, err := s.engine.Sell(s.ctx, "p1", "s1", 1)
	s.ErrorIs(err, model.ErrInsufficientQuantity)
	s.assertBalance("p1", "50000")
}

func (s *EngineSuite) TestSellMoreThanHeld() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 2)
	s.Require().NoError(err)

	_, err = s.engine.Sell(s.ctx, "p1", "s1", 3)
	s.ErrorIs(err, model.ErrInsufficientQuantity)
	s.Equal(int64(2), s.quantity("p1", "s1"))
	s.assertBalance("p1", "49800")
}

func (s *EngineSuite) TestInvalidQuantity() {
	for _, qty := range []int64{0, -1, -100} {
		_, err := s.engine.Buy(s.ctx, "p1", "s1", qty)
		s.ErrorIs(err, model.ErrInvalidQuantity)
		_, err = s.engine.Sell(s.ctx, "p1", "s1", qty)
		s.ErrorIs(err, model.ErrInvalidQuantity)
	}
	s.assertBalance("p1", "50000")
}

func (s *EngineSuite) TestUnknownPlayer() {
	_, err := s.engine.Buy(s.ctx, "ghost", "s1", 1)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *EngineSuite) TestUnknownStock() {
	_, err := s.engine.Buy(s.ctx, "p1", "missing", 1)
	s.ErrorIs(err, model.ErrStockNotFound)
	_, err = s.engine.Sell(s.ctx, "p1", "missing", 1)
	s.ErrorIs(err, model.ErrStockNotFound)
}

func (s *EngineSuite) TestBusyAccount() {
	release, err := s.locks.Acquire(s.ctx, "p1")
	s.Require().NoError(err)
	defer release()

	_, err = s.engine.Buy(s.ctx, "p1", "s1", 1)
	s.ErrorIs(err, model.ErrAccountBusy)
}

func (s *EngineSuite) TestFailedCommitLeavesStateUnchanged() {
	failing := &failingCommitStorage{Storage: s.storage, err: errors.New("disk on fire")}
	engine := New(failing, ledger.New(failing), s.locks, s.clock, nil)

	_, err := engine.Buy(s.ctx, "p1", "s1", 10)
	s.ErrorContains(err, "disk on fire")
	s.assertBalance("p1", "50000")
	s.Zero(s.quantity("p1", "s1"))

	// the account lock was released
	_, err = s.engine.Buy(s.ctx, "p1", "s1", 1)
	s.NoError(err)
}

func (s *EngineSuite) TestCancelledContextAfterLockStillCommits() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancelling := &cancelOnReadStorage{Storage: s.storage, cancel: cancel}
	engine := New(cancelling, ledger.New(cancelling), s.locks, s.clock, nil)

	_, err := engine.Buy(ctx, "p1", "s1", 1)
	s.Require().NoError(err)
	s.Equal(int64(1), s.quantity("p1", "s1"))
}

// Logging

func (s *EngineSuite) TestLogsCommittedAndRejectedTrades() {
	_, err := s.engine.Buy(s.ctx, "p1", "s1", 1)
	s.Require().NoError(err)
	_, err = s.engine.Sell(s.ctx, "p1", "s1", 5)
	s.Require().Error(err)

	out := s.logs.String()
	s.Contains(out, `"msg":"trade committed"`)
	s.Contains(out, `"msg":"trade rejected"`)
	s.Contains(out, `"side":"sell"`)
	s.Contains(out, `"player_id":"p1"`)
}

// Concurrency

func (s *EngineSuite) TestConcurrentBuysAtExactBalance() {
	s.addPlayer("p2", "100")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = s.engine.Buy(s.ctx, "p2", "s1", 1)
		}()
	}
	close(start)
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, model.ErrInsufficientFunds):
			insufficient++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, insufficient)
	s.assertBalance("p2", "0")
	s.Equal(int64(1), s.quantity("p2", "s1"))
}

func (s *EngineSuite) TestConcurrentTradesConserveLedger() {
	locks := locking.New(5 * time.Second)
	engine := New(s.storage, ledger.New(s.storage), locks, s.clock, nil)

	const workers, rounds = 8, 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				_, err := engine.Buy(s.ctx, "p1", "s1", 2)
				s.NoError(err)
				_, err = engine.Sell(s.ctx, "p1", "s1", 1)
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	// each round nets one share for 100
	s.Equal(int64(workers*rounds), s.quantity("p1", "s1"))
	s.assertBalance("p1", decimal.NewFromInt(50000-100*workers*rounds).String())
}

func (s *EngineSuite) TestDifferentPlayersDoNotContend() {
	s.addPlayer("p2", "1000")

	release, err := s.locks.Acquire(s.ctx, "p1")
	s.Require().NoError(err)
	defer release()

	_, err = s.engine.Buy(s.ctx, "p2", "s1", 1)
	s.NoError(err)
}

// failingCommitStorage fails every trade commit
type failingCommitStorage struct {
	*memory.Storage
	err error
}

func (f *failingCommitStorage) CommitTrade(ctx context.Context, commit model.TradeCommit) error {
	return f.err
}

// cancelOnReadStorage cancels the caller's context when the stock is read
type cancelOnReadStorage struct {
	*memory.Storage
	cancel context.CancelFunc
}

func (c *cancelOnReadStorage) GetStock(ctx context.Context, id model.StockID) (*model.Stock, error) {
	c.cancel()
	return c.Storage.GetStock(ctx, id)
}

var (
	_ storage.Storage = (*failingCommitStorage)(nil)
	_ storage.Storage = (*cancelOnReadStorage)(nil)
)
