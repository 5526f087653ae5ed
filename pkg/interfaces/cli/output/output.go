package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/batchforge/bom/pkg/application/services/explosion"
)

// Config holds configuration for output generation
type Config struct {
	Format        string
	OutputDir     string
	Verbose       bool
	ExplosionTime time.Duration
}

// Generate renders an explosion result in the configured format
func Generate(result *explosion.Result, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "xlsx":
		return generateXLSXOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput prints a human-readable component tree
func generateTextOutput(result *explosion.Result, config Config) error {
	fmt.Printf("BOM Explosion: %s (version %s)\n", result.RootProductID, result.RootBOMID)
	fmt.Printf("As of: %s\n", result.AsOf.Format("2006-01-02"))
	fmt.Printf("Output: %s %s\n", result.OutputQuantity, result.OutputUoM)
	if config.ExplosionTime > 0 {
		fmt.Printf("Explosion time: %v\n", config.ExplosionTime)
	}
	fmt.Println()

	for _, node := range result.Items {
		printNode(node)
	}

	if len(result.ByProducts) > 0 {
		fmt.Println()
		fmt.Println("By-products:")
		for _, bp := range result.ByProducts {
			fmt.Printf("  %s: %s %s (from %s)\n", bp.ComponentID, bp.Quantity, bp.UoM, bp.BOMID)
		}
	}

	materials := result.FlattenToRawMaterials()
	if len(materials) > 0 {
		fmt.Println()
		fmt.Println("Raw material totals (per unit of root output):")
		fmt.Printf("%-20s %-16s %-8s %s\n", "Component", "Total Qty", "UoM", "Flags")
		fmt.Printf("%-20s %-16s %-8s %s\n", "--------------------", "----------------", "--------", "-----")
		for _, m := range materials {
			flag := ""
			if m.UnitMismatch {
				flag = "unit-mismatch"
			}
			fmt.Printf("%-20s %-16s %-8s %s\n", m.ComponentID, m.TotalQuantity, m.UoM, flag)
		}
	}

	printFindings(result)

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

func printNode(node *explosion.Node) {
	indent := strings.Repeat("  ", node.Level)
	flags := nodeFlags(node)
	fmt.Printf("%s%s: %s %s%s\n", indent, node.ComponentID, node.CumulativeQuantity, node.UoM, flags)
	for _, child := range node.Children {
		printNode(child)
	}
}

func nodeFlags(node *explosion.Node) string {
	var flags []string
	if node.Cyclic {
		flags = append(flags, "cyclic")
	}
	if node.Truncated {
		flags = append(flags, "truncated")
	}
	if node.MissingComponent {
		flags = append(flags, "missing-component")
	}
	if len(flags) == 0 {
		return ""
	}
	return "  [" + strings.Join(flags, ", ") + "]"
}

func printFindings(result *explosion.Result) {
	if !result.HasCycles && !result.HasTruncation && !result.HasMissingComponents {
		return
	}
	fmt.Println()
	fmt.Println("Data-quality findings:")
	if result.HasCycles {
		fmt.Println("  - circular reference detected; affected branches were cut")
	}
	if result.HasTruncation {
		fmt.Println("  - depth limit reached; deeper structure was not expanded")
	}
	if result.HasMissingComponents {
		fmt.Println("  - line items reference unknown components")
	}
}

// explosionDocument is the JSON shape written for an explosion
type explosionDocument struct {
	RootBOMID      string               `json:"root_bom_id"`
	RootProductID  string               `json:"root_product_id"`
	AsOf           string               `json:"as_of"`
	OutputQuantity string               `json:"output_quantity"`
	OutputUoM      string               `json:"output_uom"`
	Items          []nodeDocument       `json:"items"`
	ByProducts     []byProductDocument  `json:"by_products"`
	RawMaterials   []rawMaterialJSONRow `json:"raw_materials"`
	HasCycles      bool                 `json:"has_cycles"`
	HasTruncation  bool                 `json:"has_truncation"`
	HasMissing     bool                 `json:"has_missing_components"`
}

type nodeDocument struct {
	ComponentID        string         `json:"component_id"`
	ComponentName      string         `json:"component_name,omitempty"`
	Level              int            `json:"level"`
	CumulativeQuantity string         `json:"cumulative_quantity"`
	UoM                string         `json:"uom"`
	Cyclic             bool           `json:"cyclic,omitempty"`
	Truncated          bool           `json:"truncated,omitempty"`
	MissingComponent   bool           `json:"missing_component,omitempty"`
	Children           []nodeDocument `json:"children,omitempty"`
}

type byProductDocument struct {
	ComponentID string `json:"component_id"`
	BOMID       string `json:"bom_id"`
	Quantity    string `json:"quantity"`
	UoM         string `json:"uom"`
}

type rawMaterialJSONRow struct {
	ComponentID   string `json:"component_id"`
	UoM           string `json:"uom"`
	TotalQuantity string `json:"total_quantity"`
	UnitMismatch  bool   `json:"unit_mismatch,omitempty"`
}

func newExplosionDocument(result *explosion.Result) explosionDocument {
	doc := explosionDocument{
		RootBOMID:      string(result.RootBOMID),
		RootProductID:  string(result.RootProductID),
		AsOf:           result.AsOf.Format("2006-01-02"),
		OutputQuantity: result.OutputQuantity.String(),
		OutputUoM:      result.OutputUoM,
		HasCycles:      result.HasCycles,
		HasTruncation:  result.HasTruncation,
		HasMissing:     result.HasMissingComponents,
	}
	for _, node := range result.Items {
		doc.Items = append(doc.Items, newNodeDocument(node))
	}
	for _, bp := range result.ByProducts {
		doc.ByProducts = append(doc.ByProducts, byProductDocument{
			ComponentID: string(bp.ComponentID),
			BOMID:       string(bp.BOMID),
			Quantity:    bp.Quantity.String(),
			UoM:         bp.UoM,
		})
	}
	for _, m := range result.FlattenToRawMaterials() {
		doc.RawMaterials = append(doc.RawMaterials, rawMaterialJSONRow{
			ComponentID:   string(m.ComponentID),
			UoM:           m.UoM,
			TotalQuantity: m.TotalQuantity.String(),
			UnitMismatch:  m.UnitMismatch,
		})
	}
	return doc
}

func newNodeDocument(node *explosion.Node) nodeDocument {
	doc := nodeDocument{
		ComponentID:        string(node.ComponentID),
		ComponentName:      node.ComponentName,
		Level:              node.Level,
		CumulativeQuantity: node.CumulativeQuantity.String(),
		UoM:                node.UoM,
		Cyclic:             node.Cyclic,
		Truncated:          node.Truncated,
		MissingComponent:   node.MissingComponent,
	}
	for _, child := range node.Children {
		doc.Children = append(doc.Children, newNodeDocument(child))
	}
	return doc
}

// generateJSONOutput writes the explosion as a JSON document
func generateJSONOutput(result *explosion.Result, config Config) error {
	jsonData, err := json.MarshalIndent(newExplosionDocument(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Println(string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "explosion.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Printf("JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes the tree and raw material rollup as CSV files
func generateCSVOutput(result *explosion.Result, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	treeFile := filepath.Join(config.OutputDir, "explosion_tree.csv")
	if err := writeTreeCSV(result, treeFile); err != nil {
		return fmt.Errorf("failed to write explosion tree CSV: %w", err)
	}

	materialsFile := filepath.Join(config.OutputDir, "raw_materials.csv")
	if err := writeRawMaterialsCSV(result, materialsFile); err != nil {
		return fmt.Errorf("failed to write raw materials CSV: %w", err)
	}

	if config.Verbose {
		fmt.Printf("CSV results saved to:\n")
		fmt.Printf("  Tree: %s\n", treeFile)
		fmt.Printf("  Raw materials: %s\n", materialsFile)
	}
	return nil
}

func writeTreeCSV(result *explosion.Result, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"level", "component_id", "cumulative_quantity", "uom", "bom_id", "flags"}); err != nil {
		return err
	}

	var writeRows func(node *explosion.Node) error
	writeRows = func(node *explosion.Node) error {
		flags := strings.Trim(nodeFlags(node), " []")
		row := []string{
			fmt.Sprintf("%d", node.Level),
			string(node.ComponentID),
			node.CumulativeQuantity.String(),
			node.UoM,
			string(node.BOMID),
			flags,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
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

func writeRawMaterialsCSV(result *explosion.Result, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"component_id", "total_quantity", "uom", "unit_mismatch"}); err != nil {
		return err
	}
	for _, m := range result.FlattenToRawMaterials() {
		row := []string{
			string(m.ComponentID),
			m.TotalQuantity.String(),
			m.UoM,
			fmt.Sprintf("%t", m.UnitMismatch),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}
