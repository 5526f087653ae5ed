package services

import (
	"sort"
	"time"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// VersionResolver handles date effectivity resolution across the BOM
// versions of a single product: which version is authoritative on a
// given date, and whether the set of effective ranges is self-consistent.
type VersionResolver struct{}

// NewVersionResolver creates a new version resolver
func NewVersionResolver() *VersionResolver {
	return &VersionResolver{}
}

// Gap is a day range not covered by any version's effective range.
// After names the version whose range ends immediately before the gap.
type Gap struct {
	After entities.BOMID
	From  time.Time
	To    time.Time
}

// ResolveActiveVersion returns the version that is authoritative on asOf,
// or nil when no version qualifies. Only active-status versions are
// considered; drafts and retired versions never resolve. When several
// versions cover the same date (an overlap the caller should surface via
// DetectOverlaps), the one with the latest EffectiveFrom wins, and the
// highest version number breaks a remaining tie.
func (vr *VersionResolver) ResolveActiveVersion(versions []*entities.BOMVersion, asOf time.Time) *entities.BOMVersion {
	var best *entities.BOMVersion

	for _, v := range versions {
		if v.Status != entities.StatusActive {
			continue
		}
		if !v.ActiveOn(asOf) {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		if v.EffectiveFrom.After(best.EffectiveFrom) {
			best = v
		} else if v.EffectiveFrom.Equal(best.EffectiveFrom) && v.Version > best.Version {
			best = v
		}
	}

	return best
}

// DetectOverlaps returns the ids of versions whose effective ranges
// intersect another version's range. Open-ended ranges extend to
// positive infinity. Ranges are day-inclusive on both ends, so a range
// ending 2024-06-30 does not overlap one starting 2024-07-01.
func (vr *VersionResolver) DetectOverlaps(versions []*entities.BOMVersion) map[entities.BOMID]bool {
	overlapping := make(map[entities.BOMID]bool)
	sorted := sortByEffectiveFrom(versions)

	for i := 0; i+1 < len(sorted); i++ {
		earlier, later := sorted[i], sorted[i+1]
		if earlier.EffectiveTo == nil || !later.EffectiveFrom.After(*earlier.EffectiveTo) {
			overlapping[earlier.ID] = true
			overlapping[later.ID] = true
		}
	}

	return overlapping
}

// DetectGaps returns the uncovered day ranges between consecutive
// versions. Adjacent ranges, where the later one starts the day after
// the earlier one ends, produce no gap.
func (vr *VersionResolver) DetectGaps(versions []*entities.BOMVersion) []Gap {
	var gaps []Gap
	sorted := sortByEffectiveFrom(versions)

	for i := 0; i+1 < len(sorted); i++ {
		earlier, later := sorted[i], sorted[i+1]
		if earlier.EffectiveTo == nil {
			continue
		}
		dayAfterEnd := earlier.EffectiveTo.AddDate(0, 0, 1)
		if dayAfterEnd.Before(later.EffectiveFrom) {
			gaps = append(gaps, Gap{
				After: earlier.ID,
				From:  dayAfterEnd,
				To:    later.EffectiveFrom.AddDate(0, 0, -1),
			})
		}
	}

	return gaps
}

// NextVersion returns the version number a newly authored BOM should
// take: one past the highest existing number, or 1 for a product with
// no versions yet.
func (vr *VersionResolver) NextVersion(versions []*entities.BOMVersion) int {
	next := 1
	for _, v := range versions {
		if v.Version >= next {
			next = v.Version + 1
		}
	}
	return next
}

// sortByEffectiveFrom returns a copy ordered by EffectiveFrom ascending,
// with version number as tie-break so the ordering is deterministic.
func sortByEffectiveFrom(versions []*entities.BOMVersion) []*entities.BOMVersion {
	sorted := make([]*entities.BOMVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].EffectiveFrom.Equal(sorted[j].EffectiveFrom) {
			return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
		}
		return sorted[i].Version < sorted[j].Version
	})
	return sorted
}
