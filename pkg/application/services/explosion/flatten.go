package explosion

import (
	"iter"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// RawMaterial is one aggregated leaf requirement. Leaves sharing a
// component id but carrying different units are kept as separate entries
// with UnitMismatch set on each, never silently summed.
type RawMaterial struct {
	ComponentID   entities.ProductID
	UoM           string
	TotalQuantity decimal.Decimal
	UnitMismatch  bool
}

// Leaves returns a lazy, restartable traversal over the leaf nodes of
// the explosion tree in depth-first order. Breaking out of the range
// stops the walk; ranging again restarts from the first leaf.
func (r *Result) Leaves() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(nodes []*Node) bool
		walk = func(nodes []*Node) bool {
			for _, n := range nodes {
				if n.IsLeaf {
					if !yield(n) {
						return false
					}
					continue
				}
				if !walk(n.Children) {
					return false
				}
			}
			return true
		}
		walk(r.Items)
	}
}

// FlattenToRawMaterials sums leaf cumulative quantities per component
// and unit. The result is ordered by component id, then unit, so output
// is stable across runs.
func (r *Result) FlattenToRawMaterials() []RawMaterial {
	type key struct {
		componentID entities.ProductID
		uom         string
	}

	totals := make(map[key]decimal.Decimal)
	unitsSeen := make(map[entities.ProductID]map[string]bool)

	for leaf := range r.Leaves() {
		k := key{componentID: leaf.ComponentID, uom: leaf.UoM}
		totals[k] = totals[k].Add(leaf.CumulativeQuantity)

		if unitsSeen[leaf.ComponentID] == nil {
			unitsSeen[leaf.ComponentID] = make(map[string]bool)
		}
		unitsSeen[leaf.ComponentID][leaf.UoM] = true
	}

	materials := make([]RawMaterial, 0, len(totals))
	for k, total := range totals {
		materials = append(materials, RawMaterial{
			ComponentID:   k.componentID,
			UoM:           k.uom,
			TotalQuantity: total,
			UnitMismatch:  len(unitsSeen[k.componentID]) > 1,
		})
	}

	sort.Slice(materials, func(i, j int) bool {
		if materials[i].ComponentID != materials[j].ComponentID {
			return materials[i].ComponentID < materials[j].ComponentID
		}
		return materials[i].UoM < materials[j].UoM
	})

	return materials
}
