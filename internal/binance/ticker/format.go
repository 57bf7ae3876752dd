package ticker

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders a price for display.
type Formatter func(price decimal.Decimal) string

// NewPriceFormatter formats with English digit grouping and two decimals,
// followed by unit when set: 1234.5 -> "1,234.50 USDT".
func NewPriceFormatter(unit string) Formatter {
	p := message.NewPrinter(language.English)
	return func(price decimal.Decimal) string {
		s := p.Sprintf("%v", number.Decimal(price.InexactFloat64(), number.Scale(2)))
		if unit != "" {
			s += " " + unit
		}
		return s
	}
}
