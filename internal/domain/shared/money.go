package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places stored for every amount
const MoneyScale = 2

// RoundMoney rounds an amount half away from zero to MoneyScale places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ParseMoney parses a decimal string and rounds it to MoneyScale places
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return RoundMoney(d), nil
}
