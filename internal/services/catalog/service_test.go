package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage/memory"
	"github.com/mcoot/stockgame/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestCreateAssignsUUID() {
	stock, err := s.service.Create(s.ctx, " ACME ", decimal.RequireFromString("12.50"))
	s.Require().NoError(err)

	_, err = uuid.Parse(string(stock.ID))
	s.NoError(err)
	s.Equal("ACME", stock.Name)
	s.True(decimal.RequireFromString("12.5").Equal(stock.Price))

	got, err := s.service.Get(s.ctx, stock.ID)
	s.Require().NoError(err)
	s.Equal(stock.Name, got.Name)
}

func (s *ServiceSuite) TestCreateDuplicateName() {
	_, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(1))
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, "ACME ", decimal.NewFromInt(2))
	s.ErrorIs(err, model.ErrDuplicateStockName)
}

func (s *ServiceSuite) TestNamesAreCaseSensitive() {
	_, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(1))
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, "acme", decimal.NewFromInt(1))
	s.NoError(err)
}

func (s *ServiceSuite) TestCreateRejectsInvalid() {
	cases := []struct {
		name  string
		price decimal.Decimal
	}{
		{"", decimal.NewFromInt(1)},
		{"   ", decimal.NewFromInt(1)},
		{"ACME", decimal.Zero},
		{"ACME", decimal.NewFromInt(-3)},
		{fmt.Sprintf("%065d", 0), decimal.NewFromInt(1)},
		{"ACME", decimal.RequireFromString("0.00001")},
		{"ACME", decimal.RequireFromString("1.23456")},
	}
	for _, tc := range cases {
		_, err := s.service.Create(s.ctx, tc.name, tc.price)
		s.ErrorIs(err, model.ErrInvalidStock, "name=%q price=%s", tc.name, tc.price)
	}
}

func (s *ServiceSuite) TestGetByName() {
	created, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(1))
	s.Require().NoError(err)

	got, err := s.service.GetByName(s.ctx, "ACME")
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)

	_, err = s.service.GetByName(s.ctx, "GLOBEX")
	s.ErrorIs(err, model.ErrStockNotFound)
}

func (s *ServiceSuite) TestListPages() {
	for i := range 15 {
		_, err := s.service.Create(s.ctx, fmt.Sprintf("STOCK%02d", i), decimal.NewFromInt(int64(i+1)))
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}

	first, err := s.service.List(s.ctx, model.DefaultPage())
	s.Require().NoError(err)
	s.Len(first, 10)
	s.Equal("STOCK00", first[0].Name)

	second, err := s.service.List(s.ctx, model.Page{Offset: 10, Count: 10})
	s.Require().NoError(err)
	s.Len(second, 5)
	s.Equal("STOCK10", second[0].Name)
}

func (s *ServiceSuite) TestUpdateRepricesAndRenames() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(10))
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)

	updated, err := s.service.Update(s.ctx, stock.ID, "ACME Corp", decimal.NewFromInt(20))
	s.Require().NoError(err)
	s.Equal("ACME Corp", updated.Name)
	s.True(decimal.NewFromInt(20).Equal(updated.Price))
	s.Equal(stock.CreatedAt, updated.CreatedAt)
	s.Equal(s.clock.Now(), updated.UpdatedAt)
}

func (s *ServiceSuite) TestUpdateKeepsHoldings() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(10))
	s.Require().NoError(err)
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "alice"}))
	s.Require().NoError(s.storage.SaveHolding(s.ctx, &model.Holding{PlayerID: "alice", StockID: stock.ID, Quantity: 4}))

	_, err = s.service.Update(s.ctx, stock.ID, "ACME", decimal.NewFromInt(99))
	s.Require().NoError(err)

	h, err := s.storage.GetHolding(s.ctx, "alice", stock.ID)
	s.Require().NoError(err)
	s.Equal(int64(4), h.Quantity)
}

func (s *ServiceSuite) TestUpdateRejectsNonPositivePrice() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(10))
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, stock.ID, "ACME", decimal.Zero)
	s.ErrorIs(err, model.ErrInvalidStock)
}

func (s *ServiceSuite) TestPriceScale() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.RequireFromString("0.0001"))
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, stock.ID, "ACME", decimal.RequireFromString("0.00001"))
	s.ErrorIs(err, model.ErrInvalidStock)

	_, err = s.service.Update(s.ctx, stock.ID, "ACME", decimal.RequireFromString("2.50000"))
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdateUnknown() {
	_, err := s.service.Update(s.ctx, "missing", "X", decimal.NewFromInt(1))
	s.ErrorIs(err, model.ErrStockNotFound)
}

func (s *ServiceSuite) TestDelete() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(10))
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, stock.ID))
	_, err = s.service.Get(s.ctx, stock.ID)
	s.ErrorIs(err, model.ErrStockNotFound)
}

func (s *ServiceSuite) TestDeleteHeldStock() {
	stock, err := s.service.Create(s.ctx, "ACME", decimal.NewFromInt(10))
	s.Require().NoError(err)
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, &model.Player{ID: "alice"}))
	s.Require().NoError(s.storage.SaveHolding(s.ctx, &model.Holding{PlayerID: "alice", StockID: stock.ID, Quantity: 1}))

	s.ErrorIs(s.service.Delete(s.ctx, stock.ID), model.ErrStockInUse)
}
