package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/application/services/diff"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/application/services/scaling"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

func main() {
	dataset := memory.NewDataset(8, 16)
	setupPizzaBOM(dataset)

	asOf := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	fmt.Println("🍕 Exploding the pizza BOM...")
	fmt.Printf("As of: %s\n\n", asOf.Format("2006-01-02"))

	engine := explosion.NewEngine(dataset)
	result, err := engine.Explode("BOM-PIZZA-2", asOf)
	if err != nil {
		fmt.Printf("❌ Explosion failed: %v\n", err)
		return
	}

	fmt.Printf("📊 Tree (%d nodes, per %s %s of output):\n",
		result.NodeCount(), result.OutputQuantity, result.OutputUoM)
	for _, node := range result.Items {
		printTree(node)
	}
	fmt.Println()

	fmt.Println("🧾 Raw material totals:")
	for _, m := range result.FlattenToRawMaterials() {
		fmt.Printf("  %s: %s %s\n", m.ComponentID, m.TotalQuantity, m.UoM)
	}
	fmt.Println()

	// Scale the recipe from a 10 kg batch to 250 kg
	target := scaling.ToOutputQuantity(decimal.NewFromInt(250))
	opts := scaling.Options{RoundingIncrement: decimal.NewFromFloat(0.01)}

	items, _ := dataset.GetLineItems("BOM-PIZZA-2")
	version, _ := dataset.GetVersion("BOM-PIZZA-2")
	scaled, err := scaling.Scale(items, target, version.OutputQuantity, opts)
	if err != nil {
		fmt.Printf("❌ Scaling failed: %v\n", err)
		return
	}

	fmt.Println("⚖️  Scaled to a 250 kg batch:")
	for _, item := range scaled {
		note := ""
		if item.Warning {
			note = "  ⚠️ rounding distortion"
		}
		fmt.Printf("  %s: %s -> %s %s%s\n",
			item.Original.ComponentID, item.Original.Quantity, item.NewQuantity, item.Original.UoM, note)
	}
	fmt.Println()

	// Compare the two recipe versions
	before, _ := dataset.GetLineItems("BOM-PIZZA-1")
	after, _ := dataset.GetLineItems("BOM-PIZZA-2")
	entries := diff.Compare(before, after)
	summary := diff.Summarize(entries)

	fmt.Println("🔍 Changes from v1 to v2:")
	for _, entry := range entries {
		if entry.Type == diff.Unchanged {
			continue
		}
		fmt.Printf("  %s: %s %v\n", entry.ComponentID, entry.Type, entry.ChangedFields)
	}
	fmt.Printf("  (%d added, %d removed, %d modified, %d unchanged)\n",
		summary.Added, summary.Removed, summary.Modified, summary.Unchanged)
}

func printTree(node *explosion.Node) {
	for i := 0; i < node.Level; i++ {
		fmt.Print("  ")
	}
	fmt.Printf("  %s: %s %s\n", node.ComponentID, node.CumulativeQuantity, node.UoM)
	for _, child := range node.Children {
		printTree(child)
	}
}

func setupPizzaBOM(dataset *memory.Dataset) {
	mustProduct := func(id entities.ProductID, name string, kind entities.ProductKind) {
		p, err := entities.NewProduct(id, string(id), name, kind, "kg")
		if err != nil {
			panic(err)
		}
		dataset.AddProduct(*p)
	}
	mustProduct("PIZZA", "Margherita Pizza", entities.FinishedGood)
	mustProduct("DOUGH", "Pizza Dough", entities.Intermediate)
	mustProduct("SAUCE", "Tomato Sauce", entities.Intermediate)
	mustProduct("FLOUR", "Wheat Flour", entities.RawMaterial)
	mustProduct("SALT", "Sea Salt", entities.RawMaterial)
	mustProduct("TOMATO", "Crushed Tomatoes", entities.RawMaterial)

	date := func(value string) time.Time {
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			panic(err)
		}
		return t
	}
	mustVersion := func(id entities.BOMID, productID entities.ProductID, num int, from string, to *time.Time, output float64) {
		v, err := entities.NewBOMVersion(id, productID, num, entities.StatusActive,
			date(from), to, decimal.NewFromFloat(output), "kg")
		if err != nil {
			panic(err)
		}
		dataset.AddVersion(*v)
	}
	june30 := date("2024-06-30")
	mustVersion("BOM-PIZZA-1", "PIZZA", 1, "2024-01-01", &june30, 10)
	mustVersion("BOM-PIZZA-2", "PIZZA", 2, "2024-07-01", nil, 10)
	mustVersion("BOM-DOUGH-1", "DOUGH", 1, "2024-01-01", nil, 1)
	mustVersion("BOM-SAUCE-1", "SAUCE", 1, "2024-01-01", nil, 1)

	mustLine := func(id string, bomID entities.BOMID, componentID entities.ProductID, qty, scrap float64, seq int) {
		item, err := entities.NewBOMLineItem(id, bomID, componentID,
			decimal.NewFromFloat(qty), "kg", decimal.NewFromFloat(scrap), seq)
		if err != nil {
			panic(err)
		}
		dataset.AddLineItem(*item)
	}
	mustLine("L1", "BOM-PIZZA-1", "DOUGH", 6, 0, 10)
	mustLine("L2", "BOM-PIZZA-1", "SAUCE", 3, 0, 20)
	mustLine("L3", "BOM-PIZZA-2", "DOUGH", 6, 2.5, 10)
	mustLine("L4", "BOM-PIZZA-2", "SAUCE", 3.5, 0, 20)
	mustLine("L5", "BOM-DOUGH-1", "FLOUR", 0.6, 0, 10)
	mustLine("L6", "BOM-DOUGH-1", "SALT", 0.02, 0, 20)
	mustLine("L7", "BOM-SAUCE-1", "TOMATO", 0.5, 0, 10)
	mustLine("L8", "BOM-SAUCE-1", "SALT", 0.01, 0, 20)
}
