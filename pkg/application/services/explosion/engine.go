package explosion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// DefaultMaxDepth bounds recursion for pathological but acyclic BOM graphs.
const DefaultMaxDepth = 50

// Source provides synchronous lookups against a pre-fetched, pre-indexed
// dataset. Implementations must not perform per-call I/O: the transitive
// closure of referenced BOMs is expected to be loaded before Explode is
// invoked. A nil return means "not found" and is never an error.
type Source interface {
	// Version returns a BOM version by id, or nil when unknown.
	Version(id entities.BOMID) *entities.BOMVersion

	// BOMForComponent returns the component's version that is active on
	// asOf, or nil when the component has no effective BOM (a purchased
	// or raw material).
	BOMForComponent(componentID entities.ProductID, asOf time.Time) *entities.BOMVersion

	// LineItems returns the lines of a version ordered by sequence.
	LineItems(bomID entities.BOMID) []*entities.BOMLineItem

	// Component returns product master data, or nil when the component
	// id is unresolvable.
	Component(id entities.ProductID) *entities.Product
}

// Node is one expanded component in the explosion tree. CumulativeQuantity
// is the amount of this component needed to produce one unit of the root
// product's output, with every intermediate recipe ratio and scrap factor
// applied. Nodes are immutable once the explosion returns.
type Node struct {
	ComponentID        entities.ProductID
	ComponentName      string
	Level              int
	Line               *entities.BOMLineItem
	CumulativeQuantity decimal.Decimal
	UoM                string
	BOMID              entities.BOMID // version expanded beneath this node, empty for leaves
	IsLeaf             bool
	Cyclic             bool
	Truncated          bool
	MissingComponent   bool
	Children           []*Node
}

// ByProduct is a secondary output recorded during explosion. By-products
// never appear in the input tree; they are summarized here instead.
type ByProduct struct {
	ComponentID entities.ProductID
	BOMID       entities.BOMID
	Quantity    decimal.Decimal
	UoM         string
}

// Result is the outcome of one explosion. The Has* flags aggregate the
// per-node data-quality conditions so callers can render warnings without
// rewalking the tree.
type Result struct {
	RootBOMID      entities.BOMID
	RootProductID  entities.ProductID
	AsOf           time.Time
	OutputQuantity decimal.Decimal
	OutputUoM      string
	Items          []*Node
	ByProducts     []ByProduct

	HasCycles            bool
	HasTruncation        bool
	HasMissingComponents bool
}

// Engine performs multi-level BOM explosion over an injected Source.
// It holds no mutable state across calls, so one engine may serve
// concurrent explosions.
type Engine struct {
	source   Source
	maxDepth int
}

// NewEngine creates an explosion engine with the default depth bound
func NewEngine(source Source) *Engine {
	return NewEngineWithDepth(source, DefaultMaxDepth)
}

// NewEngineWithDepth creates an explosion engine with a custom depth
// bound. maxDepth is the number of tree levels allowed; a node on the
// last level that still carries a BOM becomes a truncated leaf.
func NewEngineWithDepth(source Source, maxDepth int) *Engine {
	return &Engine{
		source:   source,
		maxDepth: maxDepth,
	}
}

// Explode expands the BOM rooted at rootBOMID into its full component
// tree, normalized to one unit of the root product's output. Cycles,
// depth truncation, and unresolvable components are reported as node
// flags on the result, never as errors; an error indicates invalid input.
func (e *Engine) Explode(rootBOMID entities.BOMID, asOf time.Time) (*Result, error) {
	if e.maxDepth < 1 {
		return nil, fmt.Errorf("max depth must be >= 1, got %d", e.maxDepth)
	}

	root := e.source.Version(rootBOMID)
	if root == nil {
		return nil, fmt.Errorf("bom version not found: %s", rootBOMID)
	}

	result := &Result{
		RootBOMID:      root.ID,
		RootProductID:  root.ProductID,
		AsOf:           asOf,
		OutputQuantity: root.OutputQuantity,
		OutputUoM:      root.OutputUoM,
	}

	// Path-based cycle detection: the ancestor set is threaded through
	// the recursion, so the same component may legitimately appear in
	// two independent subtrees.
	ancestors := map[entities.ProductID]bool{root.ProductID: true}

	result.Items = e.expandLines(result, root, decimal.NewFromInt(1), 0, ancestors)
	return result, nil
}

// expandLines expands one version's input lines under a parent whose own
// cumulative quantity is parentCum. By-product lines are diverted to the
// result summary.
func (e *Engine) expandLines(result *Result, parent *entities.BOMVersion, parentCum decimal.Decimal, level int, ancestors map[entities.ProductID]bool) []*Node {
	lines := e.source.LineItems(parent.ID)
	nodes := make([]*Node, 0, len(lines))

	for _, line := range lines {
		if line.IsOutput {
			result.ByProducts = append(result.ByProducts, ByProduct{
				ComponentID: line.ComponentID,
				BOMID:       parent.ID,
				Quantity:    line.Quantity,
				UoM:         line.UoM,
			})
			continue
		}
		nodes = append(nodes, e.expandLine(result, parent, line, parentCum, level, ancestors))
	}

	return nodes
}

func (e *Engine) expandLine(result *Result, parent *entities.BOMVersion, line *entities.BOMLineItem, parentCum decimal.Decimal, level int, ancestors map[entities.ProductID]bool) *Node {
	// cumulative = parentCum * (qty / parentOutput) * (1 + scrap/100),
	// carried in exact decimal so deep trees do not drift.
	cum := parentCum.
		Mul(line.Quantity.Div(parent.OutputQuantity)).
		Mul(line.ScrapFactor())

	node := &Node{
		ComponentID:        line.ComponentID,
		Level:              level,
		Line:               line,
		CumulativeQuantity: cum,
		UoM:                line.UoM,
	}

	component := e.source.Component(line.ComponentID)
	if component == nil {
		node.IsLeaf = true
		node.MissingComponent = true
		result.HasMissingComponents = true
		return node
	}
	node.ComponentName = component.Name

	childBOM := e.source.BOMForComponent(line.ComponentID, result.AsOf)
	if childBOM == nil {
		node.IsLeaf = true
		return node
	}

	if ancestors[line.ComponentID] {
		node.IsLeaf = true
		node.Cyclic = true
		result.HasCycles = true
		return node
	}

	if level+1 >= e.maxDepth {
		node.IsLeaf = true
		node.Truncated = true
		result.HasTruncation = true
		return node
	}

	node.BOMID = childBOM.ID
	ancestors[line.ComponentID] = true
	node.Children = e.expandLines(result, childBOM, cum, level+1, ancestors)
	delete(ancestors, line.ComponentID)

	// A child BOM whose lines are all by-products expands to nothing.
	node.IsLeaf = len(node.Children) == 0
	return node
}

// NodeCount returns the total number of nodes in the explosion tree.
func (r *Result) NodeCount() int {
	count := 0
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		count += len(nodes)
		for _, n := range nodes {
			walk(n.Children)
		}
	}
	walk(r.Items)
	return count
}

// MaxLevel returns the deepest level present in the tree, or -1 for an
// empty explosion.
func (r *Result) MaxLevel() int {
	max := -1
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Level > max {
				max = n.Level
			}
			walk(n.Children)
		}
	}
	walk(r.Items)
	return max
}
