package scaling

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// ErrInvalidScaleFactor reports a non-positive resolved scale factor.
var ErrInvalidScaleFactor = errors.New("scale factor must be positive")

// DefaultWarnThresholdPercent flags items whose rounding distorts the
// recipe by more than this percentage.
const DefaultWarnThresholdPercent = 5

// roundingEpsilon separates real rounding changes from decimal noise.
var roundingEpsilon = decimal.New(1, -9)

// Target selects how the new batch size is expressed: an absolute output
// quantity or a direct multiplier. Exactly one must be set.
type Target struct {
	NewOutputQuantity *decimal.Decimal
	Multiplier        *decimal.Decimal
}

// ToOutputQuantity targets an absolute new batch size
func ToOutputQuantity(quantity decimal.Decimal) Target {
	return Target{NewOutputQuantity: &quantity}
}

// ByMultiplier targets a direct scale multiplier
func ByMultiplier(multiplier decimal.Decimal) Target {
	return Target{Multiplier: &multiplier}
}

// Options tune rounding and warning behavior. The zero value preserves
// each item's source precision and warns at the default threshold.
type Options struct {
	// RoundingIncrement rounds new quantities to the nearest multiple,
	// e.g. 0.01 or 0.5. Zero preserves the source quantity's decimal
	// precision instead.
	RoundingIncrement decimal.Decimal

	// WarnThresholdPercent overrides the default 5% rounding-distortion
	// threshold when positive.
	WarnThresholdPercent decimal.Decimal
}

// ScaledItem is the outcome of scaling one line item. Rounded is set
// when rounding moved the value by more than a negligible epsilon, and
// Warning when the relative distortion crosses the threshold.
type ScaledItem struct {
	Original             *entities.BOMLineItem
	ScaleFactor          decimal.Decimal
	NewQuantity          decimal.Decimal
	Rounded              bool
	RoundingDeltaPercent decimal.Decimal
	Warning              bool
}

// Scale resizes every line item to the target batch size. The rounding
// distortion of each item is reported, never hidden: small quantities
// rounded to a coarse increment can swing by a large percentage, which
// is exactly what the Warning flag surfaces.
func Scale(items []*entities.BOMLineItem, target Target, currentOutputQuantity decimal.Decimal, opts Options) ([]ScaledItem, error) {
	factor, err := resolveFactor(target, currentOutputQuantity)
	if err != nil {
		return nil, err
	}

	threshold := decimal.NewFromInt(DefaultWarnThresholdPercent)
	if opts.WarnThresholdPercent.IsPositive() {
		threshold = opts.WarnThresholdPercent
	}

	scaled := make([]ScaledItem, 0, len(items))
	for _, item := range items {
		exact := item.Quantity.Mul(factor)
		rounded := roundQuantity(exact, item.Quantity, opts.RoundingIncrement)

		delta := rounded.Sub(exact).Abs()
		deltaPercent := delta.Div(exact).Mul(decimal.NewFromInt(100))

		scaled = append(scaled, ScaledItem{
			Original:             item,
			ScaleFactor:          factor,
			NewQuantity:          rounded,
			Rounded:              delta.GreaterThan(roundingEpsilon),
			RoundingDeltaPercent: deltaPercent,
			Warning:              deltaPercent.GreaterThan(threshold),
		})
	}

	return scaled, nil
}

// resolveFactor derives the scale factor from the target
func resolveFactor(target Target, currentOutputQuantity decimal.Decimal) (decimal.Decimal, error) {
	var factor decimal.Decimal

	switch {
	case target.NewOutputQuantity != nil && target.Multiplier != nil:
		return decimal.Zero, fmt.Errorf("target must set exactly one of output quantity or multiplier")
	case target.NewOutputQuantity != nil:
		if !currentOutputQuantity.IsPositive() {
			return decimal.Zero, fmt.Errorf("current output quantity must be positive, got %s", currentOutputQuantity)
		}
		factor = target.NewOutputQuantity.Div(currentOutputQuantity)
	case target.Multiplier != nil:
		factor = *target.Multiplier
	default:
		return decimal.Zero, fmt.Errorf("target must set one of output quantity or multiplier")
	}

	if !factor.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidScaleFactor, factor)
	}
	return factor, nil
}

// roundQuantity rounds exact to the nearest increment, or to the source
// quantity's decimal precision when no increment is given.
func roundQuantity(exact, source, increment decimal.Decimal) decimal.Decimal {
	if increment.IsPositive() {
		return exact.Div(increment).Round(0).Mul(increment)
	}

	places := -source.Exponent()
	if places < 0 {
		places = 0
	}
	return exact.Round(places)
}
