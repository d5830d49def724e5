package feed

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice converts a vendor price such as "1.250,99" (dot thousands separator,
// comma decimal separator) to a decimal. Empty, unparseable or negative input yields zero.
func ParsePrice(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	price, err := decimal.NewFromString(s)
	if err != nil || price.IsNegative() {
		return decimal.Zero
	}
	return price
}
