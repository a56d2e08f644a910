package trade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/mcoot/stockgame/internal/dependencies/mocks"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/ledger"
	"github.com/mcoot/stockgame/internal/services/locking"
	"github.com/mcoot/stockgame/internal/storage/memory"
)

// TestTradeSequences runs random buy/sell sequences and checks after every
// step that balances move by exactly price*quantity, failed trades change
// nothing, and no stored holding is ever non-positive.
func TestTradeSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := memory.New()
		engine := New(store, ledger.New(store), locking.New(time.Second),
			mocks.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), nil)

		startCents := rapid.Int64Range(0, 1_000_000).Draw(t, "startCents")
		balance := decimal.New(startCents, -2)
		if err := store.CreatePlayer(ctx, &model.Player{ID: "p", Balance: balance}); err != nil {
			t.Fatal(err)
		}

		prices := map[model.StockID]decimal.Decimal{}
		for i := range 3 {
			id := model.StockID(fmt.Sprintf("s%d", i))
			prices[id] = decimal.New(rapid.Int64Range(1, 50_000).Draw(t, string(id)+"Cents"), -2)
			if err := store.CreateStock(ctx, &model.Stock{ID: id, Name: string(id), Price: prices[id]}); err != nil {
				t.Fatal(err)
			}
		}
		held := map[model.StockID]int64{}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for range steps {
			stockID := model.StockID(fmt.Sprintf("s%d", rapid.IntRange(0, 2).Draw(t, "stock")))
			qty := rapid.Int64Range(-1, 20).Draw(t, "qty")
			buy := rapid.Bool().Draw(t, "buy")

			var (
				got decimal.Decimal
				err error
			)
			if buy {
				got, err = engine.Buy(ctx, "p", stockID, qty)
			} else {
				got, err = engine.Sell(ctx, "p", stockID, qty)
			}

			cost := model.Cost(prices[stockID], qty)
			switch {
			case qty < 1:
				expectErr(t, err, model.ErrInvalidQuantity)
			case buy && balance.LessThan(cost):
				expectErr(t, err, model.ErrInsufficientFunds)
			case !buy && held[stockID] < qty:
				expectErr(t, err, model.ErrInsufficientQuantity)
			case buy:
				if err != nil {
					t.Fatalf("buy %d %s: %v", qty, stockID, err)
				}
				balance = balance.Sub(cost)
				held[stockID] += qty
			default:
				if err != nil {
					t.Fatalf("sell %d %s: %v", qty, stockID, err)
				}
				balance = balance.Add(cost)
				held[stockID] -= qty
			}
			if err == nil && !got.Equal(balance) {
				t.Fatalf("returned balance %s, want %s", got, balance)
			}

			checkState(t, store, balance, held)
		}
	})
}

func expectErr(t *rapid.T, err, want error) {
	if !errors.Is(err, want) {
		t.Fatalf("got error %v, want %v", err, want)
	}
}

func checkState(t *rapid.T, store *memory.Storage, balance decimal.Decimal, held map[model.StockID]int64) {
	player, holdings, err := store.GetPortfolio(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	if !player.Balance.Equal(balance) {
		t.Fatalf("stored balance %s, want %s", player.Balance, balance)
	}
	if player.Balance.IsNegative() {
		t.Fatalf("negative balance %s", player.Balance)
	}

	seen := map[model.StockID]int64{}
	for _, h := range holdings {
		if h.Quantity <= 0 {
			t.Fatalf("stored holding %s has quantity %d", h.StockID, h.Quantity)
		}
		seen[h.StockID] = h.Quantity
	}
	for id, qty := range held {
		if seen[id] != qty {
			t.Fatalf("holding %s is %d, want %d", id, seen[id], qty)
		}
	}
}
