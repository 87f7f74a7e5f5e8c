// Package format renders asset metrics as display strings.
package format

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	one      = decimal.NewFromInt(1)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
	trillion = decimal.New(1, 12)
)

// Direction tells whether a 24h change is a gain or a loss.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Arrow returns the glyph shown next to a change value.
func (d Direction) Arrow() string {
	if d == Down {
		return "▼"
	}
	return "▲"
}

// Formatter renders values in one currency. Separators, symbol and symbol
// placement come from the go-money currency table.
type Formatter struct {
	currency *money.Currency
}

// New returns a Formatter for an ISO 4217 code. Unknown codes fall back to USD.
func New(code string) Formatter {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	return Formatter{currency: cur}
}

// Currency returns the ISO code in use.
func (f Formatter) Currency() string {
	return f.cur().Code
}

func (f Formatter) cur() *money.Currency {
	if f.currency == nil {
		return money.GetCurrency(money.USD)
	}
	return f.currency
}

// Price renders a price. Values below 1 keep between 4 and 6 fraction
// digits, everything else exactly 2.
func (f Formatter) Price(value decimal.Decimal) string {
	minFrac, maxFrac := 2, 2
	if value.LessThan(one) {
		minFrac, maxFrac = 4, 6
	}

	rounded := value.Round(int32(maxFrac))
	frac := fractionDigits(rounded)
	if frac < minFrac {
		frac = minFrac
	}
	if frac > maxFrac {
		frac = maxFrac
	}

	c := f.cur()
	minor := rounded.Shift(int32(frac)).BigInt()
	if !minor.IsInt64() {
		return applyTemplate(c, groupDigits(c, rounded.StringFixed(int32(frac))))
	}
	return money.NewFormatter(frac, c.Decimal, c.Thousand, c.Grapheme, c.Template).Format(minor.Int64())
}

// groupDigits inserts the currency separators into a plain fixed-point string.
// It covers amounts whose minor units do not fit in an int64.
func groupDigits(c *money.Currency, fixed string) string {
	intPart, fracPart, hasFrac := strings.Cut(strings.TrimPrefix(fixed, "-"), ".")
	if c.Thousand != "" {
		var b strings.Builder
		for i, r := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				b.WriteString(c.Thousand)
			}
			b.WriteRune(r)
		}
		intPart = b.String()
	}
	if !hasFrac {
		return intPart
	}
	return intPart + c.Decimal + fracPart
}

// applyTemplate places a formatted number into the currency template, where
// "1" stands for the number and "$" for the symbol.
func applyTemplate(c *money.Currency, number string) string {
	out := strings.Replace(c.Template, "1", number, 1)
	return strings.Replace(out, "$", c.Grapheme, 1)
}

// MarketCap abbreviates with T, B or M at inclusive thresholds of 1e12, 1e9
// and 1e6, rounded to 2 decimals. Smaller values are printed verbatim. The
// symbol placement and decimal separator follow the currency like Price.
func (f Formatter) MarketCap(value decimal.Decimal) string {
	var number string
	switch {
	case value.GreaterThanOrEqual(trillion):
		number = value.Div(trillion).StringFixed(2) + "T"
	case value.GreaterThanOrEqual(billion):
		number = value.Div(billion).StringFixed(2) + "B"
	case value.GreaterThanOrEqual(million):
		number = value.Div(million).StringFixed(2) + "M"
	default:
		number = value.String()
	}
	c := f.cur()
	return applyTemplate(c, strings.Replace(number, ".", c.Decimal, 1))
}

// Change renders the magnitude of a percentage change with 2 decimals.
func (f Formatter) Change(pct decimal.Decimal) (string, Direction) {
	dir := Up
	if pct.IsNegative() {
		dir = Down
	}
	return pct.Abs().StringFixed(2) + "%", dir
}

// fractionDigits counts significant fraction digits; String trims trailing zeros.
func fractionDigits(d decimal.Decimal) int {
	s := d.String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}

var usd = New(money.USD)

// FormatPrice renders a price in USD.
func FormatPrice(value decimal.Decimal) string { return usd.Price(value) }

// FormatMarketCap renders a market cap in USD.
func FormatMarketCap(value decimal.Decimal) string { return usd.MarketCap(value) }

// FormatChange renders a 24h percentage change.
func FormatChange(pct decimal.Decimal) (string, Direction) { return usd.Change(pct) }
