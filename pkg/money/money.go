// Package money implements fixed-point monetary arithmetic in integer
// paise. Decimal strings appear only at the API boundary; everything
// internal is int64, so repeated computation is deterministic.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	appErrors "github.com/societyhq/procurement-api/pkg/errors"
)

// Paise is an amount in minor currency units (1/100 INR).
type Paise int64

// Rate is a GST percentage in hundredths of a percent (1800 = 18%).
type Rate int64

// Line is one priced request or quotation line.
type Line struct {
	Quantity  int64
	UnitPrice Paise
	GSTRate   Rate
}

// Totals aggregates a set of lines. GST is the sum of per-line
// round-half-up values, not a single rounding of the aggregate, so the
// computation stays auditable line by line.
type Totals struct {
	Subtotal Paise
	GST      Paise
	Total    Paise
}

// Parse converts a decimal string with at most two fractional digits
// into paise.
func Parse(s string) (Paise, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid amount %q", s))
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("amount %q has more than two decimal places", s))
	}
	return Paise(shifted.IntPart()), nil
}

// ParseRate converts a percentage string ("18", "0.25") into a Rate.
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid gst rate %q", s))
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("gst rate %q has more than two decimal places", s))
	}
	if shifted.IsNegative() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "gst rate must not be negative")
	}
	return Rate(shifted.IntPart()), nil
}

// Format renders paise as a decimal string with exactly two fractional
// digits.
func Format(p Paise) string {
	return decimal.New(int64(p), -2).StringFixed(2)
}

// String implements fmt.Stringer.
func (p Paise) String() string {
	return Format(p)
}

// String renders the rate as a percentage with two fractional digits.
func (r Rate) String() string {
	return decimal.New(int64(r), -2).StringFixed(2)
}

// LineTotal returns quantity * unit price for one line.
func (l Line) LineTotal() Paise {
	return Paise(l.Quantity * int64(l.UnitPrice))
}

// LineGST returns the rounded GST for one line (round half up).
func (l Line) LineGST() Paise {
	return Paise(roundHalfUp(int64(l.LineTotal())*int64(l.GSTRate), 10000))
}

// ComputeTotals prices an ordered list of lines. Fails with
// INVALID_AMOUNT when a quantity is non-positive or a price negative.
func ComputeTotals(lines []Line) (Totals, error) {
	var t Totals
	for i, line := range lines {
		if line.Quantity <= 0 {
			return Totals{}, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		if line.UnitPrice < 0 {
			return Totals{}, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("line %d: unit price must not be negative", i+1))
		}
		if line.GSTRate < 0 {
			return Totals{}, appErrors.Clone(appErrors.ErrInvalidAmount, fmt.Sprintf("line %d: gst rate must not be negative", i+1))
		}
		t.Subtotal += line.LineTotal()
		t.GST += line.LineGST()
	}
	t.Total = t.Subtotal + t.GST
	return t, nil
}

// roundHalfUp divides num by den rounding halves away from zero.
// Inputs are non-negative by the time this is called.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
