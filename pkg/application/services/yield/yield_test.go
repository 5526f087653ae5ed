package yield

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

func testVersion(t *testing.T, outputQty string) *entities.BOMVersion {
	t.Helper()
	v, err := entities.NewBOMVersion("BOM-001", "PROD-A", 1, entities.StatusActive,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil,
		decimal.RequireFromString(outputQty), "kg")
	if err != nil {
		t.Fatalf("Failed to create version: %v", err)
	}
	return v
}

func testLine(t *testing.T, id string, qty, uom, scrap string, isOutput bool) *entities.BOMLineItem {
	t.Helper()
	item, err := entities.NewBOMLineItem(id, "BOM-001", entities.ProductID("COMP-"+id),
		decimal.RequireFromString(qty), uom, decimal.RequireFromString(scrap), 10)
	if err != nil {
		t.Fatalf("Failed to create line: %v", err)
	}
	item.IsOutput = isOutput
	return item
}

func TestAnalyze(t *testing.T) {
	// 80 kg output from 96 kg of scrap-adjusted inputs: 83.33...% yield.
	version := testVersion(t, "80")
	items := []*entities.BOMLineItem{
		testLine(t, "L1", "60", "kg", "0", false),
		testLine(t, "L2", "30", "kg", "20", false), // 36 after scrap
	}

	report, err := Analyze(version, items)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !report.TotalInput.Equal(decimal.NewFromInt(96)) {
		t.Errorf("Expected total input 96, got %s", report.TotalInput)
	}
	want := decimal.NewFromInt(8000).Div(decimal.NewFromInt(96))
	if !report.YieldPercent.Equal(want) {
		t.Errorf("Expected yield %s, got %s", want, report.YieldPercent)
	}
	if report.UnitMismatch {
		t.Error("Unexpected unit mismatch")
	}
}

func TestAnalyze_ByProductsAndMismatchedUnits(t *testing.T) {
	version := testVersion(t, "100")
	items := []*entities.BOMLineItem{
		testLine(t, "L1", "110", "kg", "0", false),
		testLine(t, "L2", "5", "l", "0", false),    // excluded, wrong unit
		testLine(t, "L3", "15", "kg", "0", true),   // by-product
	}

	report, err := Analyze(version, items)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !report.TotalInput.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Expected total input 110, got %s", report.TotalInput)
	}
	if !report.ByProductQuantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected by-product quantity 15, got %s", report.ByProductQuantity)
	}
	if !report.UnitMismatch {
		t.Error("Expected unit-mismatch flag for the liter line")
	}
}

func TestAnalyze_NoInputs(t *testing.T) {
	report, err := Analyze(testVersion(t, "100"), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !report.YieldPercent.IsZero() {
		t.Errorf("Expected zero yield with no inputs, got %s", report.YieldPercent)
	}

	if _, err := Analyze(nil, nil); err == nil {
		t.Fatal("Expected error for nil version")
	}
}
