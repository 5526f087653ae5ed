package entities

import "fmt"

// ProductID uniquely identifies a product or component
type ProductID string

// BOMID uniquely identifies one version of a bill of materials
type BOMID string

// ProductKind classifies how a product participates in manufacturing
type ProductKind int

const (
	// FinishedGood is a sellable end product
	FinishedGood ProductKind = iota
	// Intermediate is a manufactured sub-assembly consumed by other BOMs
	Intermediate
	// RawMaterial is purchased and never carries a BOM
	RawMaterial
	// Packaging is purchased packaging material
	Packaging
	// ByProduct is a secondary output of a process
	ByProduct
)

// Product represents master data for anything a BOM can reference
type Product struct {
	ID      ProductID
	Code    string
	Name    string
	Kind    ProductKind
	BaseUoM string
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, code, name string, kind ProductKind, baseUoM string) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if code == "" {
		return nil, fmt.Errorf("product code cannot be empty")
	}
	if baseUoM == "" {
		return nil, fmt.Errorf("product %s: base unit of measure cannot be empty", code)
	}

	return &Product{
		ID:      id,
		Code:    code,
		Name:    name,
		Kind:    kind,
		BaseUoM: baseUoM,
	}, nil
}

// CanCarryBOM reports whether a BOM may be authored for this product.
// Raw materials, packaging and by-products are purchased or produced,
// never manufactured from a recipe.
func (p *Product) CanCarryBOM() bool {
	return p.Kind == FinishedGood || p.Kind == Intermediate
}

func (k ProductKind) String() string {
	switch k {
	case FinishedGood:
		return "FinishedGood"
	case Intermediate:
		return "Intermediate"
	case RawMaterial:
		return "RawMaterial"
	case Packaging:
		return "Packaging"
	case ByProduct:
		return "ByProduct"
	default:
		return "Unknown"
	}
}

// ParseProductKind converts the persisted string form of a kind
func ParseProductKind(s string) (ProductKind, error) {
	switch s {
	case "FinishedGood":
		return FinishedGood, nil
	case "Intermediate":
		return Intermediate, nil
	case "RawMaterial":
		return RawMaterial, nil
	case "Packaging":
		return Packaging, nil
	case "ByProduct":
		return ByProduct, nil
	default:
		return FinishedGood, fmt.Errorf("invalid product kind: %s (expected: FinishedGood, Intermediate, RawMaterial, Packaging, or ByProduct)", s)
	}
}
