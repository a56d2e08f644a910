// Package storagetest holds a behavioural test suite shared by every
// storage.Storage implementation.
package storagetest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// Suite runs the storage contract against the Storage returned by NewStorage.
// Embed it and set NewStorage in SetupTest before calling Suite.SetupTest.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) player(id string, balance int64, offset int) *model.Player {
	at := s.base.Add(time.Duration(offset) * time.Second)
	return &model.Player{
		ID:             model.PlayerID(id),
		CredentialHash: "hash-" + id,
		Balance:        decimal.NewFromInt(balance),
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func (s *Suite) stock(id, name, price string, offset int) *model.Stock {
	at := s.base.Add(time.Duration(offset) * time.Second)
	return &model.Stock{
		ID:        model.StockID(id),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func (s *Suite) seed(players []*model.Player, stocks []*model.Stock) {
	for _, p := range players {
		s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))
	}
	for _, st := range stocks {
		s.Require().NoError(s.Storage.CreateStock(s.Ctx, st))
	}
}

// Player tests

func (s *Suite) TestCreateAndGetPlayer() {
	p := s.player("alice", 1000, 0)
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(p.CredentialHash, got.CredentialHash)
	s.True(p.Balance.Equal(got.Balance))
	s.True(p.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestCreatePlayerDuplicate() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("alice", 1000, 0)))
	err := s.Storage.CreatePlayer(s.Ctx, s.player("alice", 5, 1))
	s.ErrorIs(err, model.ErrDuplicatePlayer)

	got, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(got.Balance))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestReturnedPlayerIsACopy() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("alice", 1000, 0)))

	got, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	got.Balance = decimal.NewFromInt(1)

	again, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(again.Balance))
}

func (s *Suite) TestSavePlayer() {
	p := s.player("alice", 1000, 0)
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))

	p.Balance = decimal.RequireFromString("12.34")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("12.34").Equal(got.Balance))
}

func (s *Suite) TestSavePlayerNotFound() {
	err := s.Storage.SavePlayer(s.Ctx, s.player("ghost", 1, 0))
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestPlayerExists() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("alice", 1, 0)))

	exists, err := s.Storage.PlayerExists(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.PlayerExists(s.Ctx, "bob")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestDeletePlayerCascadesHoldings() {
	s.seed(
		[]*model.Player{s.player("alice", 1000, 0), s.player("bob", 1000, 1)},
		[]*model.Stock{s.stock("s1", "ACME", "10", 0)},
	)
	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 3}))
	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "bob", StockID: "s1", Quantity: 2}))

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "alice"))

	_, err := s.Storage.GetPlayer(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.ErrorIs(err, model.ErrHoldingNotFound)

	h, err := s.Storage.GetHolding(s.Ctx, "bob", "s1")
	s.Require().NoError(err)
	s.Equal(int64(2), h.Quantity)
}

func (s *Suite) TestDeletePlayerNotFound() {
	s.ErrorIs(s.Storage.DeletePlayer(s.Ctx, "ghost"), model.ErrPlayerNotFound)
}

func (s *Suite) TestListPlayersInCreationOrder() {
	for i := range 5 {
		s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player(fmt.Sprintf("p%d", 4-i), 1, i)))
	}

	players, err := s.Storage.ListPlayers(s.Ctx, model.Page{Offset: 1, Count: 3})
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal(model.PlayerID("p3"), players[0].ID)
	s.Equal(model.PlayerID("p2"), players[1].ID)
	s.Equal(model.PlayerID("p1"), players[2].ID)

	players, err = s.Storage.ListPlayers(s.Ctx, model.Page{Offset: 10, Count: 3})
	s.Require().NoError(err)
	s.Empty(players)
}

// Stock tests

func (s *Suite) TestCreateAndGetStock() {
	st := s.stock("s1", "ACME", "12.5", 0)
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, st))

	got, err := s.Storage.GetStock(s.Ctx, "s1")
	s.Require().NoError(err)
	s.Equal("ACME", got.Name)
	s.True(decimal.RequireFromString("12.5").Equal(got.Price))

	byName, err := s.Storage.GetStockByName(s.Ctx, "ACME")
	s.Require().NoError(err)
	s.Equal(model.StockID("s1"), byName.ID)
}

func (s *Suite) TestCreateStockDuplicateName() {
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, s.stock("s1", "ACME", "1", 0)))
	err := s.Storage.CreateStock(s.Ctx, s.stock("s2", "ACME", "2", 1))
	s.ErrorIs(err, model.ErrDuplicateStockName)
}

func (s *Suite) TestGetStockNotFound() {
	_, err := s.Storage.GetStock(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrStockNotFound)
	_, err = s.Storage.GetStockByName(s.Ctx, "MISSING")
	s.ErrorIs(err, model.ErrStockNotFound)
}

func (s *Suite) TestSaveStockRenames() {
	st := s.stock("s1", "ACME", "1", 0)
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, st))

	st.Name = "ACME2"
	st.Price = decimal.NewFromInt(7)
	s.Require().NoError(s.Storage.SaveStock(s.Ctx, st))

	_, err := s.Storage.GetStockByName(s.Ctx, "ACME")
	s.ErrorIs(err, model.ErrStockNotFound)
	got, err := s.Storage.GetStockByName(s.Ctx, "ACME2")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(7).Equal(got.Price))
}

func (s *Suite) TestSaveStockNameTaken() {
	s.seed(nil, []*model.Stock{s.stock("s1", "ACME", "1", 0), s.stock("s2", "GLOBEX", "1", 1)})

	st, err := s.Storage.GetStock(s.Ctx, "s2")
	s.Require().NoError(err)
	st.Name = "ACME"
	s.ErrorIs(s.Storage.SaveStock(s.Ctx, st), model.ErrDuplicateStockName)
}

func (s *Suite) TestSaveStockNotFound() {
	s.ErrorIs(s.Storage.SaveStock(s.Ctx, s.stock("nope", "X", "1", 0)), model.ErrStockNotFound)
}

func (s *Suite) TestDeleteStock() {
	s.seed(nil, []*model.Stock{s.stock("s1", "ACME", "1", 0)})
	s.Require().NoError(s.Storage.DeleteStock(s.Ctx, "s1"))

	_, err := s.Storage.GetStock(s.Ctx, "s1")
	s.ErrorIs(err, model.ErrStockNotFound)

	// name is free again
	s.Require().NoError(s.Storage.CreateStock(s.Ctx, s.stock("s2", "ACME", "1", 1)))
}

func (s *Suite) TestDeleteStockInUse() {
	s.seed([]*model.Player{s.player("alice", 1, 0)}, []*model.Stock{s.stock("s1", "ACME", "1", 0)})
	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 1}))

	s.ErrorIs(s.Storage.DeleteStock(s.Ctx, "s1"), model.ErrStockInUse)

	s.Require().NoError(s.Storage.DeleteHolding(s.Ctx, "alice", "s1"))
	s.NoError(s.Storage.DeleteStock(s.Ctx, "s1"))
}

func (s *Suite) TestListStocksInCreationOrder() {
	s.seed(nil, []*model.Stock{
		s.stock("b", "BETA", "1", 0),
		s.stock("a", "ALPHA", "1", 1),
		s.stock("c", "GAMMA", "1", 2),
	})

	stocks, err := s.Storage.ListStocks(s.Ctx, model.Page{Offset: 0, Count: 10})
	s.Require().NoError(err)
	s.Require().Len(stocks, 3)
	s.Equal("BETA", stocks[0].Name)
	s.Equal("ALPHA", stocks[1].Name)
	s.Equal("GAMMA", stocks[2].Name)
}

// Holding tests

func (s *Suite) TestHoldingLifecycle() {
	s.seed([]*model.Player{s.player("alice", 1, 0)}, []*model.Stock{s.stock("s1", "ACME", "1", 0)})

	_, err := s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.ErrorIs(err, model.ErrHoldingNotFound)

	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 4}))
	s.Require().NoError(s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 9}))

	h, err := s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.Require().NoError(err)
	s.Equal(int64(9), h.Quantity)

	s.Require().NoError(s.Storage.DeleteHolding(s.Ctx, "alice", "s1"))
	_, err = s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.ErrorIs(err, model.ErrHoldingNotFound)

	// deleting an absent holding is a no-op
	s.NoError(s.Storage.DeleteHolding(s.Ctx, "alice", "s1"))
}

func (s *Suite) TestSaveHoldingRejectsZero() {
	s.seed([]*model.Player{s.player("alice", 1, 0)}, []*model.Stock{s.stock("s1", "ACME", "1", 0)})

	err := s.Storage.SaveHolding(s.Ctx, &model.Holding{PlayerID: "alice", StockID: "s1", Quantity: 0})
	var violation *model.InvariantViolation
	s.ErrorAs(err, &violation)
}

func (s *Suite) TestListHoldingsOrderedByStock() {
	s.seed(
		[]*model.Player{s.player("alice", 1, 0), s.player("bob", 1, 1)},
		[]*model.Stock{s.stock("s2", "B", "1", 0), s.stock("s1", "A", "1", 1), s.stock("s3", "C", "1", 2)},
	)
	for _, h := range []*model.Holding{
		{PlayerID: "alice", StockID: "s3", Quantity: 3},
		{PlayerID: "alice", StockID: "s1", Quantity: 1},
		{PlayerID: "bob", StockID: "s2", Quantity: 2},
	} {
		s.Require().NoError(s.Storage.SaveHolding(s.Ctx, h))
	}

	holdings, err := s.Storage.ListHoldings(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(holdings, 2)
	s.Equal(model.StockID("s1"), holdings[0].StockID)
	s.Equal(model.StockID("s3"), holdings[1].StockID)

	holdings, err = s.Storage.ListHoldings(s.Ctx, "carol")
	s.Require().NoError(err)
	s.Empty(holdings)
}

// Ledger tests

func (s *Suite) commit(prevBal, newBal int64, prevQty, newQty int64) model.TradeCommit {
	return model.TradeCommit{
		PlayerID:     "alice",
		StockID:      "s1",
		PrevBalance:  decimal.NewFromInt(prevBal),
		NewBalance:   decimal.NewFromInt(newBal),
		PrevQuantity: prevQty,
		NewQuantity:  newQty,
		At:           s.base.Add(time.Minute),
	}
}

func (s *Suite) TestCommitTradeBuyThenSellAll() {
	s.seed([]*model.Player{s.player("alice", 100, 0)}, []*model.Stock{s.stock("s1", "ACME", "10", 0)})

	s.Require().NoError(s.Storage.CommitTrade(s.Ctx, s.commit(100, 70, 0, 3)))

	player, holdings, err := s.Storage.GetPortfolio(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(70).Equal(player.Balance))
	s.Require().Len(holdings, 1)
	s.Equal(int64(3), holdings[0].Quantity)

	s.Require().NoError(s.Storage.CommitTrade(s.Ctx, s.commit(70, 100, 3, 0)))

	player, holdings, err = s.Storage.GetPortfolio(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(player.Balance))
	s.Empty(holdings)

	_, err = s.Storage.GetHolding(s.Ctx, "alice", "s1")
	s.ErrorIs(err, model.ErrHoldingNotFound)
}

func (s *Suite) TestCommitTradeStaleBalance() {
	s.seed([]*model.Player{s.player("alice", 100, 0)}, []*model.Stock{s.stock("s1", "ACME", "10", 0)})

	err := s.Storage.CommitTrade(s.Ctx, s.commit(90, 60, 0, 3))
	s.ErrorIs(err, model.ErrConcurrentUpdate)
	s.assertUnchanged(100, 0)
}

func (s *Suite) TestCommitTradeStaleQuantity() {
	s.seed([]*model.Player{s.player("alice", 100, 0)}, []*model.Stock{s.stock("s1", "ACME", "10", 0)})

	err := s.Storage.CommitTrade(s.Ctx, s.commit(100, 110, 1, 0))
	s.ErrorIs(err, model.ErrConcurrentUpdate)
	s.assertUnchanged(100, 0)
}

func (s *Suite) TestCommitTradeRejectsNegativeOutcome() {
	s.seed([]*model.Player{s.player("alice", 100, 0)}, []*model.Stock{s.stock("s1", "ACME", "10", 0)})

	var violation *model.InvariantViolation
	s.ErrorAs(s.Storage.CommitTrade(s.Ctx, s.commit(100, -10, 0, 11)), &violation)
	s.ErrorAs(s.Storage.CommitTrade(s.Ctx, s.commit(100, 110, 0, -1)), &violation)
	s.assertUnchanged(100, 0)
}

func (s *Suite) TestCommitTradeUnknownPlayer() {
	s.seed(nil, []*model.Stock{s.stock("s1", "ACME", "10", 0)})
	s.ErrorIs(s.Storage.CommitTrade(s.Ctx, s.commit(100, 90, 0, 1)), model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPortfolioNotFound() {
	_, _, err := s.Storage.GetPortfolio(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) assertUnchanged(balance int64, quantity int64) {
	player, holdings, err := s.Storage.GetPortfolio(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(balance).Equal(player.Balance), "balance changed to %s", player.Balance)
	if quantity == 0 {
		s.Empty(holdings)
		return
	}
	s.Require().Len(holdings, 1)
	s.Equal(quantity, holdings[0].Quantity)
}
