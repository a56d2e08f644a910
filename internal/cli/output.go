package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case []Player:
		o.printPlayers(v)
	case AuthResult:
		o.printAuthResult(v)
	case Portfolio:
		o.printPortfolio(v)
	case Stock:
		o.printStock(v)
	case []Stock:
		o.printStocks(v)
	case TradeResult:
		o.printTradeResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID      string          `json:"playerId"`
	Balance decimal.Decimal `json:"balance"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"sessionToken"`
}

// Holding response type
type Holding struct {
	StockID  string          `json:"stockId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// Portfolio response type
type Portfolio struct {
	ID       string          `json:"playerId"`
	Balance  decimal.Decimal `json:"balance"`
	Holdings []Holding       `json:"holdings"`
}

// Stock response type
type Stock struct {
	ID    string          `json:"stockId"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TradeResult response type
type TradeResult struct {
	PlayerID string          `json:"playerId"`
	Balance  decimal.Decimal `json:"balance"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printPlayer(p Player) {
	o.printf("Player: %s\n", p.ID)
	o.printf("Balance: %s\n", p.Balance.String())
}

func (o *Output) printPlayers(players []Player) {
	if len(players) == 0 {
		o.printf("No players\n")
		return
	}
	for _, p := range players {
		o.printf("%-24s %14s\n", p.ID, p.Balance.String())
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	o.printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printPortfolio(p Portfolio) {
	o.printf("Player: %s\n", p.ID)
	o.printf("Balance: %s\n", p.Balance.String())
	if len(p.Holdings) == 0 {
		o.printf("Holdings: none\n")
		return
	}

	value := decimal.Zero
	o.printf("Holdings (%d):\n", len(p.Holdings))
	for _, h := range p.Holdings {
		worth := h.Price.Mul(decimal.NewFromInt(h.Quantity))
		value = value.Add(worth)
		o.printf("  - %s (%s): %d @ %s = %s\n", h.Name, h.StockID, h.Quantity, h.Price.String(), worth.String())
	}
	o.printf("Holdings value: %s\n", value.String())
}

func (o *Output) printStock(s Stock) {
	o.printf("Stock: %s (%s)\n", s.Name, s.ID)
	o.printf("Price: %s\n", s.Price.String())
}

func (o *Output) printStocks(stocks []Stock) {
	if len(stocks) == 0 {
		o.printf("No stocks\n")
		return
	}
	for _, s := range stocks {
		o.printf("%-36s %-20s %12s\n", s.ID, s.Name, s.Price.String())
	}
}

func (o *Output) printTradeResult(t TradeResult) {
	o.printf("Trade complete for %s\n", t.PlayerID)
	o.printf("Balance: %s\n", t.Balance.String())
}

func (o *Output) printHealthResult(h HealthResult) {
	o.printf("Status: %s\n", h.Status)
}
