package yield

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// Report relates a BOM's declared output to the material it consumes.
// TotalInput counts only input lines carrying the output's unit, with
// scrap included; lines in other units are excluded and flagged via
// UnitMismatch so the ratio is never computed across incompatible units.
type Report struct {
	BOMID             entities.BOMID
	OutputQuantity    decimal.Decimal
	OutputUoM         string
	TotalInput        decimal.Decimal
	ByProductQuantity decimal.Decimal
	YieldPercent      decimal.Decimal
	UnitMismatch      bool
}

// Analyze computes the mass yield of one BOM version from its line items.
func Analyze(version *entities.BOMVersion, items []*entities.BOMLineItem) (*Report, error) {
	if version == nil {
		return nil, fmt.Errorf("bom version cannot be nil")
	}

	report := &Report{
		BOMID:          version.ID,
		OutputQuantity: version.OutputQuantity,
		OutputUoM:      version.OutputUoM,
	}

	for _, item := range items {
		if item.UoM != version.OutputUoM {
			report.UnitMismatch = true
			continue
		}
		if item.IsOutput {
			report.ByProductQuantity = report.ByProductQuantity.Add(item.Quantity)
			continue
		}
		report.TotalInput = report.TotalInput.Add(item.Quantity.Mul(item.ScrapFactor()))
	}

	if report.TotalInput.IsPositive() {
		report.YieldPercent = version.OutputQuantity.
			Div(report.TotalInput).
			Mul(decimal.NewFromInt(100))
	}

	return report, nil
}
