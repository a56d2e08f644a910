package model

import "github.com/shopspring/decimal"

// Cost returns price*quantity with exact decimal arithmetic
func Cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// MoneyScale is the number of fractional digits stored for prices and balances
const MoneyScale = 4

// FitsMoneyScale reports whether d has no more than MoneyScale fractional digits
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// DefaultStartingBalance is the cash a newly registered player receives
var DefaultStartingBalance = decimal.NewFromInt(50000)
