package diff

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// ChangeType classifies one component across two BOM item lists
type ChangeType int

const (
	Added ChangeType = iota
	Removed
	Modified
	Unchanged
)

// quantityEpsilon tolerates floating rounding in persisted quantities.
var quantityEpsilon = decimal.New(1, -6)

// Entry is the comparison outcome for one component. Before is nil for
// added components, After is nil for removed ones. ChangedFields lists
// the differing field names for modified components.
type Entry struct {
	ComponentID   entities.ProductID
	Type          ChangeType
	Before        *entities.BOMLineItem
	After         *entities.BOMLineItem
	ChangedFields []string
}

// Summary counts entries per change type
type Summary struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Compare matches two BOM item lists by component id and classifies
// every component. It is total: empty lists are valid and produce an
// all-added or all-removed diff. Output order follows the before list's
// sequence, then pure additions in the after list's sequence order.
func Compare(before, after []*entities.BOMLineItem) []Entry {
	afterByComponent := make(map[entities.ProductID]*entities.BOMLineItem, len(after))
	for _, item := range after {
		afterByComponent[item.ComponentID] = item
	}

	entries := make([]Entry, 0, len(before)+len(after))
	matched := make(map[entities.ProductID]bool, len(before))

	for _, b := range sortBySequence(before) {
		matched[b.ComponentID] = true
		a, ok := afterByComponent[b.ComponentID]
		if !ok {
			entries = append(entries, Entry{
				ComponentID: b.ComponentID,
				Type:        Removed,
				Before:      b,
			})
			continue
		}

		changed := changedFields(b, a)
		entryType := Unchanged
		if len(changed) > 0 {
			entryType = Modified
		}
		entries = append(entries, Entry{
			ComponentID:   b.ComponentID,
			Type:          entryType,
			Before:        b,
			After:         a,
			ChangedFields: changed,
		})
	}

	for _, a := range sortBySequence(after) {
		if matched[a.ComponentID] {
			continue
		}
		entries = append(entries, Entry{
			ComponentID: a.ComponentID,
			Type:        Added,
			After:       a,
		})
	}

	return entries
}

// Summarize tallies a diff by change type
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		case Unchanged:
			s.Unchanged++
		}
	}
	return s
}

// changedFields reports which comparable fields differ between two
// lines of the same component
func changedFields(b, a *entities.BOMLineItem) []string {
	var changed []string

	if b.Quantity.Sub(a.Quantity).Abs().GreaterThan(quantityEpsilon) {
		changed = append(changed, "quantity")
	}
	if b.UoM != a.UoM {
		changed = append(changed, "uom")
	}
	if !b.ScrapPercent.Equal(a.ScrapPercent) {
		changed = append(changed, "scrapPercent")
	}
	if b.Sequence != a.Sequence {
		changed = append(changed, "sequence")
	}
	if b.ConsumeWholeUnit != a.ConsumeWholeUnit {
		changed = append(changed, "consumeWholeUnit")
	}

	return changed
}

func sortBySequence(items []*entities.BOMLineItem) []*entities.BOMLineItem {
	sorted := make([]*entities.BOMLineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return sorted
}

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}
