package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/batchforge/bom/pkg/application/services/explosion"
)

const (
	treeSheet      = "Explosion Tree"
	materialsSheet = "Raw Materials"
	byProductSheet = "By-Products"
)

// generateXLSXOutput writes the explosion as a multi-sheet workbook
func generateXLSXOutput(result *explosion.Result, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for xlsx format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "explosion.xlsx")
	if err := WriteWorkbook(result, filename); err != nil {
		return err
	}

	if config.Verbose {
		fmt.Printf("Workbook saved to: %s\n", filename)
	}
	return nil
}

// WriteWorkbook renders an explosion result as an xlsx workbook with
// one sheet each for the tree, the raw material rollup, and by-products
func WriteWorkbook(result *explosion.Result, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", treeSheet)
	if _, err := f.NewSheet(materialsSheet); err != nil {
		return fmt.Errorf("failed to create materials sheet: %w", err)
	}
	if _, err := f.NewSheet(byProductSheet); err != nil {
		return fmt.Errorf("failed to create by-products sheet: %w", err)
	}

	if err := writeTreeSheet(f, result); err != nil {
		return err
	}
	if err := writeMaterialsSheet(f, result); err != nil {
		return err
	}
	if err := writeByProductSheet(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeTreeSheet(f *excelize.File, result *explosion.Result) error {
	header := []interface{}{"Level", "Component", "Name", "Cumulative Qty", "UoM", "BOM", "Flags"}
	if err := f.SetSheetRow(treeSheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	var writeRows func(node *explosion.Node) error
	writeRows = func(node *explosion.Node) error {
		qty, _ := node.CumulativeQuantity.Float64()
		values := []interface{}{
			node.Level,
			string(node.ComponentID),
			node.ComponentName,
			qty,
			node.UoM,
			string(node.BOMID),
			nodeFlags(node),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(treeSheet, cell, &values); err != nil {
			return err
		}
		row++
		for _, child := range node.Children {
			if err := writeRows(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, node := range result.Items {
		if err := writeRows(node); err != nil {
			return err
		}
	}
	return nil
}

func writeMaterialsSheet(f *excelize.File, result *explosion.Result) error {
	header := []interface{}{"Component", "Total Qty", "UoM", "Unit Mismatch"}
	if err := f.SetSheetRow(materialsSheet, "A1", &header); err != nil {
		return err
	}

	for i, m := range result.FlattenToRawMaterials() {
		qty, _ := m.TotalQuantity.Float64()
		values := []interface{}{string(m.ComponentID), qty, m.UoM, m.UnitMismatch}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(materialsSheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func writeByProductSheet(f *excelize.File, result *explosion.Result) error {
	header := []interface{}{"Component", "Quantity", "UoM", "Source BOM"}
	if err := f.SetSheetRow(byProductSheet, "A1", &header); err != nil {
		return err
	}

	for i, bp := range result.ByProducts {
		qty, _ := bp.Quantity.Float64()
		values := []interface{}{string(bp.ComponentID), qty, bp.UoM, string(bp.BOMID)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(byProductSheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
