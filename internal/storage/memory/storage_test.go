package memory

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
	"github.com/mcoot/stockgame/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.NewStorage = func() storage.Storage { return New() }
	s.Suite.SetupTest()
}

func (s *StorageSuite) TestConcurrentCommitsOnlyOneWins() {
	p := &model.Player{ID: "alice", Balance: decimal.NewFromInt(10)}
	st := &model.Stock{ID: "s1", Name: "ACME", Price: decimal.NewFromInt(10)}
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, st))

	commit := model.TradeCommit{
		PlayerID:     "alice",
		StockID:      "s1",
		PrevBalance:  decimal.NewFromInt(10),
		NewBalance:   decimal.Zero,
		PrevQuantity: 0,
		NewQuantity:  1,
	}

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Storage.CommitTrade(s.Ctx, commit)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrConcurrentUpdate)
	}
	s.Equal(1, succeeded)

	h, err := s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.Require().NoError(err)
	s.Equal(int64(1), h.Quantity)
}

func (s *StorageSuite) TestHolderCountTracksDeletes() {
	mem := s.Storage.(*Storage)
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, &model.Player{ID: "alice"}))
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, &model.Stock{ID: "s1", Name: "ACME", Price: decimal.NewFromInt(1)}))

	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 1}))
	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 2}))
	s.Equal(1, mem.holders["s1"])

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "alice"))
	s.NotContains(mem.holders, model.StockID("s1"))
}
