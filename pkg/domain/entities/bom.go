package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VersionStatus represents the lifecycle state of a BOM version
type VersionStatus int

const (
	StatusDraft VersionStatus = iota
	StatusActive
	StatusPhasedOut
	StatusInactive
)

// BOMVersion is one version of a product's bill of materials together
// with the date range during which it is the authoritative recipe.
// EffectiveTo == nil means the version is open-ended. Overlapping
// ranges for the same product are legal at the entity level: the
// version resolver reports them, the constructor does not forbid them.
type BOMVersion struct {
	ID             BOMID
	ProductID      ProductID
	Version        int
	Status         VersionStatus
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time // nil = open ended
	OutputQuantity decimal.Decimal
	OutputUoM      string
	YieldPercent   decimal.Decimal
	Notes          string
}

// NewBOMVersion creates a validated BOMVersion
func NewBOMVersion(
	id BOMID,
	productID ProductID,
	version int,
	status VersionStatus,
	effectiveFrom time.Time,
	effectiveTo *time.Time,
	outputQuantity decimal.Decimal,
	outputUoM string,
) (*BOMVersion, error) {
	if id == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if version < 1 {
		return nil, fmt.Errorf("version must be >= 1, got %d", version)
	}
	if !outputQuantity.IsPositive() {
		return nil, fmt.Errorf("output quantity must be positive, got %s", outputQuantity)
	}
	if outputUoM == "" {
		return nil, fmt.Errorf("output unit of measure cannot be empty")
	}
	if effectiveTo != nil && effectiveTo.Before(effectiveFrom) {
		return nil, fmt.Errorf("effective_to %s precedes effective_from %s",
			effectiveTo.Format("2006-01-02"), effectiveFrom.Format("2006-01-02"))
	}

	return &BOMVersion{
		ID:             id,
		ProductID:      productID,
		Version:        version,
		Status:         status,
		EffectiveFrom:  effectiveFrom,
		EffectiveTo:    effectiveTo,
		OutputQuantity: outputQuantity,
		OutputUoM:      outputUoM,
		YieldPercent:   decimal.NewFromInt(100),
	}, nil
}

// ActiveOn reports whether the version's effective range covers the
// given date. Both ends of the range are inclusive.
func (v *BOMVersion) ActiveOn(date time.Time) bool {
	if date.Before(v.EffectiveFrom) {
		return false
	}
	if v.EffectiveTo == nil {
		return true
	}
	return !date.After(*v.EffectiveTo)
}

// BOMLineItem is a single component line of a BOM version. Lines with
// IsOutput=true record by-products and co-products; they never appear
// in the input explosion tree.
type BOMLineItem struct {
	ID               string
	BOMID            BOMID
	ComponentID      ProductID
	Quantity         decimal.Decimal
	UoM              string
	ScrapPercent     decimal.Decimal
	Sequence         int
	IsOutput         bool
	ConsumeWholeUnit bool
}

// NewBOMLineItem creates a validated BOMLineItem
func NewBOMLineItem(
	id string,
	bomID BOMID,
	componentID ProductID,
	quantity decimal.Decimal,
	uom string,
	scrapPercent decimal.Decimal,
	sequence int,
) (*BOMLineItem, error) {
	if id == "" {
		return nil, fmt.Errorf("line item id cannot be empty")
	}
	if bomID == "" {
		return nil, fmt.Errorf("bom id cannot be empty")
	}
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	if scrapPercent.IsNegative() || scrapPercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("scrap percent must be in [0,100), got %s", scrapPercent)
	}

	return &BOMLineItem{
		ID:           id,
		BOMID:        bomID,
		ComponentID:  componentID,
		Quantity:     quantity,
		UoM:          uom,
		ScrapPercent: scrapPercent,
		Sequence:     sequence,
	}, nil
}

// ScrapFactor returns 1 + scrap/100, the multiplier that inflates a
// theoretical input quantity to cover expected process loss.
func (i *BOMLineItem) ScrapFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(i.ScrapPercent.Div(decimal.NewFromInt(100)))
}

func (s VersionStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusActive:
		return "active"
	case StatusPhasedOut:
		return "phased_out"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// ParseVersionStatus converts the persisted string form of a status
func ParseVersionStatus(s string) (VersionStatus, error) {
	switch s {
	case "draft":
		return StatusDraft, nil
	case "active":
		return StatusActive, nil
	case "phased_out":
		return StatusPhasedOut, nil
	case "inactive":
		return StatusInactive, nil
	default:
		return StatusDraft, fmt.Errorf("invalid version status: %s (expected: draft, active, phased_out, or inactive)", s)
	}
}
