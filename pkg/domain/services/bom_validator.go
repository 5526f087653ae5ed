package services

import (
	"fmt"
	"sort"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// BOMValidator checks the structural integrity of a BOM dataset before
// it is handed to the explosion engine. Findings mirror the engine's
// data-quality philosophy: reported, never fatal.
type BOMValidator struct {
	resolver *VersionResolver
}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{resolver: NewVersionResolver()}
}

// ValidationResult contains the findings of a dataset validation
type ValidationResult struct {
	HasCycles          bool
	CyclePaths         [][]entities.ProductID
	DuplicateLines     []*entities.BOMLineItem
	DanglingComponents []entities.ProductID
	EmptyBOMs          []entities.BOMID
	OverlappingBOMs    []entities.BOMID
	Gaps               []Gap
	Errors             []string
}

// IsClean reports whether validation produced no findings
func (r *ValidationResult) IsClean() bool {
	return len(r.Errors) == 0
}

// ValidateDataset validates versions, line items, and product references
// as one consistent dataset.
func (v *BOMValidator) ValidateDataset(
	products []*entities.Product,
	versions []*entities.BOMVersion,
	items []*entities.BOMLineItem,
) *ValidationResult {
	result := &ValidationResult{}

	productSet := make(map[entities.ProductID]bool, len(products))
	for _, p := range products {
		productSet[p.ID] = true
	}
	versionOwner := make(map[entities.BOMID]entities.ProductID, len(versions))
	byProduct := make(map[entities.ProductID][]*entities.BOMVersion)
	for _, ver := range versions {
		versionOwner[ver.ID] = ver.ProductID
		byProduct[ver.ProductID] = append(byProduct[ver.ProductID], ver)
	}

	v.checkLines(result, items, versionOwner, productSet)
	v.checkTimelines(result, byProduct)

	cycles := v.detectCycles(v.buildAdjacency(versions, items))
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("bom cycle detected: %v", cycle))
	}

	return result
}

// checkLines finds duplicate input lines, dangling component references,
// and versions without a single input line.
func (v *BOMValidator) checkLines(
	result *ValidationResult,
	items []*entities.BOMLineItem,
	versionOwner map[entities.BOMID]entities.ProductID,
	productSet map[entities.ProductID]bool,
) {
	seen := make(map[string]bool)
	dangling := make(map[entities.ProductID]bool)
	inputCount := make(map[entities.BOMID]int)

	for _, item := range items {
		if !productSet[item.ComponentID] {
			dangling[item.ComponentID] = true
		}
		if item.IsOutput {
			continue
		}
		inputCount[item.BOMID]++
		key := fmt.Sprintf("%s|%s", item.BOMID, item.ComponentID)
		if seen[key] {
			result.DuplicateLines = append(result.DuplicateLines, item)
		}
		seen[key] = true
	}

	for id := range dangling {
		result.DanglingComponents = append(result.DanglingComponents, id)
	}
	sort.Slice(result.DanglingComponents, func(i, j int) bool {
		return result.DanglingComponents[i] < result.DanglingComponents[j]
	})

	for bomID := range versionOwner {
		if inputCount[bomID] == 0 {
			result.EmptyBOMs = append(result.EmptyBOMs, bomID)
		}
	}
	sort.Slice(result.EmptyBOMs, func(i, j int) bool {
		return result.EmptyBOMs[i] < result.EmptyBOMs[j]
	})

	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("found %d duplicate input lines", len(result.DuplicateLines)))
	}
	if len(result.DanglingComponents) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("found %d unresolvable component references: %v",
				len(result.DanglingComponents), result.DanglingComponents))
	}
	if len(result.EmptyBOMs) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("found %d bom versions with no input lines: %v",
				len(result.EmptyBOMs), result.EmptyBOMs))
	}
}

// checkTimelines runs overlap and gap detection per product
func (v *BOMValidator) checkTimelines(result *ValidationResult, byProduct map[entities.ProductID][]*entities.BOMVersion) {
	productIDs := make([]entities.ProductID, 0, len(byProduct))
	for id := range byProduct {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	for _, productID := range productIDs {
		versions := byProduct[productID]

		overlaps := v.resolver.DetectOverlaps(versions)
		if len(overlaps) > 0 {
			ids := make([]entities.BOMID, 0, len(overlaps))
			for id := range overlaps {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			result.OverlappingBOMs = append(result.OverlappingBOMs, ids...)
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %s has overlapping effective ranges: %v", productID, ids))
		}

		gaps := v.resolver.DetectGaps(versions)
		if len(gaps) > 0 {
			result.Gaps = append(result.Gaps, gaps...)
			result.Errors = append(result.Errors,
				fmt.Sprintf("product %s has %d uncovered date gaps", productID, len(gaps)))
		}
	}
}

// buildAdjacency maps each BOM-owning product to the distinct components
// its versions consume
func (v *BOMValidator) buildAdjacency(versions []*entities.BOMVersion, items []*entities.BOMLineItem) map[entities.ProductID][]entities.ProductID {
	owner := make(map[entities.BOMID]entities.ProductID, len(versions))
	for _, ver := range versions {
		owner[ver.ID] = ver.ProductID
	}

	adjacency := make(map[entities.ProductID][]entities.ProductID)
	for _, item := range items {
		if item.IsOutput {
			continue
		}
		parent, ok := owner[item.BOMID]
		if !ok {
			continue
		}

		found := false
		for _, child := range adjacency[parent] {
			if child == item.ComponentID {
				found = true
				break
			}
		}
		if !found {
			adjacency[parent] = append(adjacency[parent], item.ComponentID)
		}
	}

	return adjacency
}

// detectCycles uses DFS over the product adjacency to find cycles
func (v *BOMValidator) detectCycles(adjacency map[entities.ProductID][]entities.ProductID) [][]entities.ProductID {
	visited := make(map[entities.ProductID]bool)
	onStack := make(map[entities.ProductID]bool)
	var cycles [][]entities.ProductID

	roots := make([]entities.ProductID, 0, len(adjacency))
	for id := range adjacency {
		roots = append(roots, id)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	for _, root := range roots {
		if !visited[root] {
			v.dfsDetectCycle(root, adjacency, visited, onStack, nil, &cycles)
		}
	}

	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current entities.ProductID,
	adjacency map[entities.ProductID][]entities.ProductID,
	visited map[entities.ProductID]bool,
	onStack map[entities.ProductID]bool,
	path []entities.ProductID,
	cycles *[][]entities.ProductID,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, child := range adjacency[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacency, visited, onStack, path, cycles)
		} else if onStack[child] {
			cycleStart := -1
			for i, id := range path {
				if id == child {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]entities.ProductID, 0, len(path)-cycleStart+1)
				cycle = append(cycle, path[cycleStart:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
			}
		}
	}

	onStack[current] = false
}
