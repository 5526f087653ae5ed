package explosion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// fakeSource is a pre-indexed in-memory dataset for engine tests.
type fakeSource struct {
	versions map[entities.BOMID]*entities.BOMVersion
	byOwner  map[entities.ProductID][]*entities.BOMVersion
	lines    map[entities.BOMID][]*entities.BOMLineItem
	products map[entities.ProductID]*entities.Product
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		versions: make(map[entities.BOMID]*entities.BOMVersion),
		byOwner:  make(map[entities.ProductID][]*entities.BOMVersion),
		lines:    make(map[entities.BOMID][]*entities.BOMLineItem),
		products: make(map[entities.ProductID]*entities.Product),
	}
}

func (f *fakeSource) Version(id entities.BOMID) *entities.BOMVersion {
	return f.versions[id]
}

func (f *fakeSource) BOMForComponent(componentID entities.ProductID, asOf time.Time) *entities.BOMVersion {
	for _, v := range f.byOwner[componentID] {
		if v.Status == entities.StatusActive && v.ActiveOn(asOf) {
			return v
		}
	}
	return nil
}

func (f *fakeSource) LineItems(bomID entities.BOMID) []*entities.BOMLineItem {
	return f.lines[bomID]
}

func (f *fakeSource) Component(id entities.ProductID) *entities.Product {
	return f.products[id]
}

func (f *fakeSource) addProduct(t *testing.T, id entities.ProductID, kind entities.ProductKind) {
	t.Helper()
	p, err := entities.NewProduct(id, string(id), string(id), kind, "kg")
	if err != nil {
		t.Fatalf("Failed to create product %s: %v", id, err)
	}
	f.products[id] = p
}

func (f *fakeSource) addBOM(t *testing.T, id entities.BOMID, productID entities.ProductID, outputQty string) {
	t.Helper()
	v, err := entities.NewBOMVersion(id, productID, 1, entities.StatusActive,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil,
		decimal.RequireFromString(outputQty), "kg")
	if err != nil {
		t.Fatalf("Failed to create version %s: %v", id, err)
	}
	f.versions[id] = v
	f.byOwner[productID] = append(f.byOwner[productID], v)
}

func (f *fakeSource) addLine(t *testing.T, id string, bomID entities.BOMID, componentID entities.ProductID, qty, scrap string, seq int) {
	t.Helper()
	line, err := entities.NewBOMLineItem(id, bomID, componentID,
		decimal.RequireFromString(qty), "kg", decimal.RequireFromString(scrap), seq)
	if err != nil {
		t.Fatalf("Failed to create line %s: %v", id, err)
	}
	f.lines[bomID] = append(f.lines[bomID], line)
}

func asOf() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestExplode_TwoLevelCumulativeQuantities(t *testing.T) {
	// Root outputs 100 kg using 50 kg of X. X outputs 10 kg from 2 kg
	// of raw material Y. Per one unit of root output: X = 0.5, Y = 0.1.
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addProduct(t, "X", entities.Intermediate)
	src.addProduct(t, "Y", entities.RawMaterial)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")
	src.addBOM(t, "BOM-X", "X", "10")
	src.addLine(t, "L1", "BOM-ROOT", "X", "50", "0", 10)
	src.addLine(t, "L2", "BOM-X", "Y", "2", "0", 10)

	result, err := NewEngine(src).Explode("BOM-ROOT", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 top-level node, got %d", len(result.Items))
	}
	x := result.Items[0]
	if x.ComponentID != "X" {
		t.Errorf("Expected component X, got %s", x.ComponentID)
	}
	if !x.CumulativeQuantity.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected X cumulative 0.5, got %s", x.CumulativeQuantity)
	}
	if x.IsLeaf {
		t.Error("X has a BOM and should not be a leaf")
	}

	if len(x.Children) != 1 {
		t.Fatalf("Expected X to expand into 1 child, got %d", len(x.Children))
	}
	y := x.Children[0]
	if y.ComponentID != "Y" {
		t.Errorf("Expected component Y, got %s", y.ComponentID)
	}
	if !y.CumulativeQuantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Expected Y cumulative 0.1, got %s", y.CumulativeQuantity)
	}
	if !y.IsLeaf {
		t.Error("Y has no BOM and should be a leaf")
	}
	if y.Level != 1 {
		t.Errorf("Expected Y at level 1, got %d", y.Level)
	}

	if result.HasCycles || result.HasTruncation || result.HasMissingComponents {
		t.Error("Clean explosion should carry no data-quality flags")
	}
}

func TestExplode_ScrapInflatesCumulative(t *testing.T) {
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addProduct(t, "X", entities.RawMaterial)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")
	src.addLine(t, "L1", "BOM-ROOT", "X", "50", "5", 10)

	result, err := NewEngine(src).Explode("BOM-ROOT", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	// 0.5 * 1.05
	want := decimal.RequireFromString("0.525")
	if !result.Items[0].CumulativeQuantity.Equal(want) {
		t.Errorf("Expected cumulative %s, got %s", want, result.Items[0].CumulativeQuantity)
	}
}

func TestExplode_CycleTerminatesAndFlags(t *testing.T) {
	// A's BOM contains B, B's BOM contains A.
	src := newFakeSource()
	src.addProduct(t, "A", entities.Intermediate)
	src.addProduct(t, "B", entities.Intermediate)
	src.addBOM(t, "BOM-A", "A", "1")
	src.addBOM(t, "BOM-B", "B", "1")
	src.addLine(t, "L1", "BOM-A", "B", "1", "0", 10)
	src.addLine(t, "L2", "BOM-B", "A", "1", "0", 10)

	result, err := NewEngine(src).Explode("BOM-A", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if !result.HasCycles {
		t.Fatal("Expected cycle flag on result")
	}
	b := result.Items[0]
	if b.Cyclic {
		t.Error("B itself is not the cycle node")
	}
	a := b.Children[0]
	if a.ComponentID != "A" {
		t.Fatalf("Expected cycle back to A, got %s", a.ComponentID)
	}
	if !a.Cyclic || !a.IsLeaf {
		t.Error("Cycle node must be a flagged leaf")
	}
	if len(a.Children) != 0 {
		t.Error("Cycle node must not be expanded")
	}
}

func TestExplode_RepeatedComponentInIndependentSubtreesIsNotACycle(t *testing.T) {
	// SALT appears under both DOUGH and SAUCE. Path-based detection
	// must not flag it.
	src := newFakeSource()
	src.addProduct(t, "PIZZA", entities.FinishedGood)
	src.addProduct(t, "DOUGH", entities.Intermediate)
	src.addProduct(t, "SAUCE", entities.Intermediate)
	src.addProduct(t, "SALT", entities.RawMaterial)
	src.addBOM(t, "BOM-PIZZA", "PIZZA", "10")
	src.addBOM(t, "BOM-DOUGH", "DOUGH", "5")
	src.addBOM(t, "BOM-SAUCE", "SAUCE", "5")
	src.addLine(t, "L1", "BOM-PIZZA", "DOUGH", "6", "0", 10)
	src.addLine(t, "L2", "BOM-PIZZA", "SAUCE", "3", "0", 20)
	src.addLine(t, "L3", "BOM-DOUGH", "SALT", "0.1", "0", 10)
	src.addLine(t, "L4", "BOM-SAUCE", "SALT", "0.05", "0", 10)

	result, err := NewEngine(src).Explode("BOM-PIZZA", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	if result.HasCycles {
		t.Error("Repeated component in independent subtrees is not a cycle")
	}
	if result.NodeCount() != 4 {
		t.Errorf("Expected 4 nodes, got %d", result.NodeCount())
	}
}

func TestExplode_DepthTruncation(t *testing.T) {
	// A chain P0 -> P1 -> P2 -> P3 with maxDepth 2 truncates at P2.
	src := newFakeSource()
	for _, id := range []entities.ProductID{"P0", "P1", "P2", "P3"} {
		src.addProduct(t, id, entities.Intermediate)
	}
	src.addBOM(t, "BOM-P0", "P0", "1")
	src.addBOM(t, "BOM-P1", "P1", "1")
	src.addBOM(t, "BOM-P2", "P2", "1")
	src.addLine(t, "L1", "BOM-P0", "P1", "1", "0", 10)
	src.addLine(t, "L2", "BOM-P1", "P2", "1", "0", 10)
	src.addLine(t, "L3", "BOM-P2", "P3", "1", "0", 10)

	result, err := NewEngineWithDepth(src, 2).Explode("BOM-P0", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if !result.HasTruncation {
		t.Fatal("Expected truncation flag on result")
	}
	p1 := result.Items[0]
	p2 := p1.Children[0]
	if !p2.Truncated || !p2.IsLeaf {
		t.Error("Node at the depth bound with a BOM must be a truncated leaf")
	}
	if result.MaxLevel() != 1 {
		t.Errorf("Expected max level 1, got %d", result.MaxLevel())
	}
}

func TestExplode_MissingComponent(t *testing.T) {
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")
	src.addLine(t, "L1", "BOM-ROOT", "GHOST", "1", "0", 10)

	result, err := NewEngine(src).Explode("BOM-ROOT", asOf())
	if err != nil {
		t.Fatalf("Explode must not fail on a dangling component reference: %v", err)
	}

	if !result.HasMissingComponents {
		t.Fatal("Expected missing-component flag on result")
	}
	node := result.Items[0]
	if !node.MissingComponent || !node.IsLeaf {
		t.Error("Dangling reference must be a flagged leaf")
	}
}

func TestExplode_ByProductsExcludedFromTree(t *testing.T) {
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addProduct(t, "X", entities.RawMaterial)
	src.addProduct(t, "WHEY", entities.ByProduct)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")
	src.addLine(t, "L1", "BOM-ROOT", "X", "50", "0", 10)

	whey, err := entities.NewBOMLineItem("L2", "BOM-ROOT", "WHEY",
		decimal.NewFromInt(20), "kg", decimal.Zero, 20)
	if err != nil {
		t.Fatalf("Failed to create by-product line: %v", err)
	}
	whey.IsOutput = true
	src.lines["BOM-ROOT"] = append(src.lines["BOM-ROOT"], whey)

	result, err := NewEngine(src).Explode("BOM-ROOT", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if len(result.Items) != 1 {
		t.Fatalf("By-product must not appear in the tree, got %d nodes", len(result.Items))
	}
	if len(result.ByProducts) != 1 {
		t.Fatalf("Expected 1 by-product in the summary, got %d", len(result.ByProducts))
	}
	if result.ByProducts[0].ComponentID != "WHEY" {
		t.Errorf("Expected WHEY in summary, got %s", result.ByProducts[0].ComponentID)
	}
	if !result.ByProducts[0].Quantity.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected by-product quantity 20, got %s", result.ByProducts[0].Quantity)
	}
}

func TestExplode_UnknownRootIsAnError(t *testing.T) {
	src := newFakeSource()

	_, err := NewEngine(src).Explode("NOPE", asOf())
	if err == nil {
		t.Fatal("Expected error for unknown root BOM id")
	}
	if err.Error() != "bom version not found: NOPE" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
}

func TestExplode_InvalidDepthBound(t *testing.T) {
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")

	_, err := NewEngineWithDepth(src, 0).Explode("BOM-ROOT", asOf())
	if err == nil {
		t.Fatal("Expected error for non-positive depth bound")
	}
}

func TestExplode_ExpiredChildBOMIsALeaf(t *testing.T) {
	// X's only BOM ended before the reference date, so X is treated as
	// a purchased material.
	src := newFakeSource()
	src.addProduct(t, "ROOT", entities.FinishedGood)
	src.addProduct(t, "X", entities.Intermediate)
	src.addProduct(t, "Y", entities.RawMaterial)
	src.addBOM(t, "BOM-ROOT", "ROOT", "100")

	expiredTo := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	expired, err := entities.NewBOMVersion("BOM-X", "X", 1, entities.StatusActive,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &expiredTo,
		decimal.NewFromInt(10), "kg")
	if err != nil {
		t.Fatalf("Failed to create expired version: %v", err)
	}
	src.versions["BOM-X"] = expired
	src.byOwner["X"] = append(src.byOwner["X"], expired)

	src.addLine(t, "L1", "BOM-ROOT", "X", "50", "0", 10)
	src.addLine(t, "L2", "BOM-X", "Y", "2", "0", 10)

	result, err := NewEngine(src).Explode("BOM-ROOT", asOf())
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	x := result.Items[0]
	if !x.IsLeaf {
		t.Error("Component with no effective BOM on the reference date must be a leaf")
	}
	if len(x.Children) != 0 {
		t.Error("Expired BOM must not be expanded")
	}
}
