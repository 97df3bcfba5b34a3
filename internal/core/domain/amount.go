package domain

import (
	"fmt"
	"math"
	"strings"
)

// BaseUnitsPerCoin is the fixed scale factor between the ledger's internal
// base unit (litoshi) and the display denomination (LTC).
const BaseUnitsPerCoin = 100_000_000

// amountFracDigits is the number of decimal places the display denomination carries.
const amountFracDigits = 8

// Amount is a quantity of funds in base units. Balances are stored and
// computed exclusively in this representation; decimal strings exist only at
// I/O boundaries.
type Amount int64

// ParseAmount converts a decimal string ("0.5", "12", "0.00000001") into base
// units. It rejects empty input, signs, non-digit characters, and more than
// eight fractional digits. Parsed values are always >= 0; zero is valid here
// and rejected by the operations that require a positive amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("signed amount %q", s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, fmt.Errorf("malformed amount %q", s)
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	if len(fracPart) > amountFracDigits {
		return 0, fmt.Errorf("amount %q exceeds %d fractional digits", s, amountFracDigits)
	}

	var units int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed amount %q", s)
		}
		d := int64(r - '0')
		if units > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
		units = units*10 + d
	}
	if units > math.MaxInt64/BaseUnitsPerCoin {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	units *= BaseUnitsPerCoin

	scale := int64(BaseUnitsPerCoin / 10)
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed amount %q", s)
		}
		frac := int64(r-'0') * scale
		if units > math.MaxInt64-frac {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
		units += frac
		scale /= 10
	}

	return Amount(units), nil
}

// String renders the amount as a decimal in the display denomination with
// trailing fractional zeros trimmed ("0.5", not "0.50000000").
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	whole := v / BaseUnitsPerCoin
	frac := v % BaseUnitsPerCoin

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	fmt.Fprintf(&b, "%d", whole)
	if frac > 0 {
		fracStr := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
		b.WriteByte('.')
		b.WriteString(fracStr)
	}
	return b.String()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}
