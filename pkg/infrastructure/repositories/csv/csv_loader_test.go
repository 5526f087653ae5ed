package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadProducts(t *testing.T) {
	path := writeFile(t, "products.csv",
		"product_id,code,name,kind,base_uom\n"+
			"PIZZA,PZ-001,Margherita Pizza,FinishedGood,kg\n"+
			"FLOUR,FLR-001,Wheat Flour,RawMaterial,kg\n")

	products, err := NewLoader().LoadProducts(path)
	if err != nil {
		t.Fatalf("LoadProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	if products[0].ID != "PIZZA" || products[0].Name != "Margherita Pizza" {
		t.Errorf("Unexpected first product: %+v", products[0])
	}

	// Bad kind fails with the row number.
	bad := writeFile(t, "bad.csv",
		"product_id,code,name,kind,base_uom\nX,C,N,Widget,kg\n")
	if _, err := NewLoader().LoadProducts(bad); err == nil {
		t.Fatal("Expected error for invalid kind")
	}
}

func TestLoadVersions(t *testing.T) {
	path := writeFile(t, "bom_versions.csv",
		"bom_id,product_id,version,status,effective_from,effective_to,output_quantity,output_uom\n"+
			"BOM-V1,PIZZA,1,active,2024-01-01,2024-06-30,10,kg\n"+
			"BOM-V2,PIZZA,2,active,2024-07-01,,10,kg\n")

	versions, err := NewLoader().LoadVersions(path)
	if err != nil {
		t.Fatalf("LoadVersions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(versions))
	}
	if versions[0].EffectiveTo == nil {
		t.Error("Expected bounded effective range for BOM-V1")
	}
	if versions[1].EffectiveTo != nil {
		t.Error("Expected open-ended range for BOM-V2")
	}

	badDate := writeFile(t, "bad.csv",
		"bom_id,product_id,version,status,effective_from,effective_to,output_quantity,output_uom\n"+
			"B,P,1,active,01/01/2024,,10,kg\n")
	if _, err := NewLoader().LoadVersions(badDate); err == nil {
		t.Fatal("Expected error for bad date format")
	}
}

func TestLoadLineItems(t *testing.T) {
	path := writeFile(t, "bom_items.csv",
		"item_id,bom_id,component_id,quantity,uom,scrap_percent,sequence,is_output,consume_whole_unit\n"+
			"L1,BOM-V1,FLOUR,6.5,kg,2.5,10,false,false\n"+
			"L2,BOM-V1,WHEY,1,kg,,20,true,false\n")

	items, err := NewLoader().LoadLineItems(path)
	if err != nil {
		t.Fatalf("LoadLineItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if !items[0].Quantity.Equal(decimal.RequireFromString("6.5")) {
		t.Errorf("Expected quantity 6.5, got %s", items[0].Quantity)
	}
	if !items[0].ScrapPercent.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected scrap 2.5, got %s", items[0].ScrapPercent)
	}
	if !items[1].IsOutput {
		t.Error("Expected L2 flagged as output")
	}
	if !items[1].ScrapPercent.IsZero() {
		t.Errorf("Expected empty scrap to default to 0, got %s", items[1].ScrapPercent)
	}
}

func TestHeaderMismatch(t *testing.T) {
	path := writeFile(t, "products.csv", "id,name\nX,Y\n")
	if _, err := NewLoader().LoadProducts(path); err == nil {
		t.Fatal("Expected header mismatch error")
	}
}
