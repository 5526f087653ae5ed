package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Products  int    // Total number of products to generate
	MaxDepth  int    // Maximum depth of the BOM graph
	Versions  int    // Versions per BOM-carrying product
	OutputDir string // Output directory for generated files
	Seed      int64  // Random seed for reproducible generation
	Messy     bool   // Inject overlaps and gaps into some timelines
	Verbose   bool   // Verbose output
}

// GenerateCommand produces synthetic scenario CSVs for testing and
// benchmarking. With -messy it deliberately plants timeline overlaps
// and gaps so validate and timeline runs have findings to report.
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
}

func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

type genProduct struct {
	ID    string
	Kind  string
	Level int
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Products < 2 {
		return fmt.Errorf("must generate at least 2 products")
	}
	if cmd.config.MaxDepth < 1 {
		cmd.config.MaxDepth = 4
	}
	if cmd.config.Versions < 1 {
		cmd.config.Versions = 2
	}
	if cmd.config.OutputDir == "" {
		return fmt.Errorf("must specify -output directory")
	}

	if cmd.config.Verbose {
		fmt.Printf("🔧 Generating scenario with %d products, max depth %d, %d versions each\n",
			cmd.config.Products, cmd.config.MaxDepth, cmd.config.Versions)
		fmt.Printf("🎲 Random seed: %d\n", cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	products := cmd.generateProducts()
	if err := cmd.writeProducts(products); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}
	versionRows, itemRows := cmd.generateStructure(products)
	if err := cmd.writeVersions(versionRows); err != nil {
		return fmt.Errorf("failed to write bom versions: %w", err)
	}
	if err := cmd.writeLineItems(itemRows); err != nil {
		return fmt.Errorf("failed to write line items: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Printf("✅ Scenario generated in %s (%d products, %d versions, %d lines)\n",
			cmd.config.OutputDir, len(products), len(versionRows), len(itemRows))
	}
	return nil
}

// generateProducts spreads products across the depth levels, leaves
// are raw materials
func (cmd *GenerateCommand) generateProducts() []genProduct {
	products := make([]genProduct, 0, cmd.config.Products)
	perLevel := max(1, cmd.config.Products/cmd.config.MaxDepth)

	count := 0
	for level := 0; level < cmd.config.MaxDepth && count < cmd.config.Products; level++ {
		n := perLevel
		if level == cmd.config.MaxDepth-1 {
			n = cmd.config.Products - count
		}
		for i := 0; i < n && count < cmd.config.Products; i++ {
			kind := "intermediate"
			switch {
			case level == 0:
				kind = "finished_good"
			case level == cmd.config.MaxDepth-1:
				kind = "raw_material"
			}
			products = append(products, genProduct{
				ID:    fmt.Sprintf("P%03d_L%d", count+1, level),
				Kind:  kind,
				Level: level,
			})
			count++
		}
	}
	return products
}

// generateStructure builds version timelines and component links. Each
// non-leaf product consumes 2-4 products from deeper levels.
func (cmd *GenerateCommand) generateStructure(products []genProduct) ([][]string, [][]string) {
	var versionRows, itemRows [][]string

	byLevel := make(map[int][]genProduct)
	for _, p := range products {
		byLevel[p.Level] = append(byLevel[p.Level], p)
	}

	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lineSeq := 0

	for _, p := range products {
		deeper := cmd.deeperProducts(byLevel, p.Level)
		if len(deeper) == 0 {
			continue
		}

		from := baseDate
		for v := 1; v <= cmd.config.Versions; v++ {
			bomID := fmt.Sprintf("BOM-%s-%d", p.ID, v)
			spanDays := 120 + cmd.rand.Intn(240)
			to := from.AddDate(0, 0, spanDays)

			toValue := to.Format("2006-01-02")
			if v == cmd.config.Versions {
				toValue = "" // newest version stays open-ended
			}
			status := "active"
			if v < cmd.config.Versions && cmd.rand.Intn(4) == 0 {
				status = "phased_out"
			}

			versionRows = append(versionRows, []string{
				bomID, p.ID, fmt.Sprintf("%d", v), status,
				from.Format("2006-01-02"), toValue,
				fmt.Sprintf("%d", 10+cmd.rand.Intn(90)), "kg",
			})

			components := cmd.pickComponents(deeper)
			for seq, comp := range components {
				lineSeq++
				scrap := ""
				if cmd.rand.Intn(3) == 0 {
					scrap = fmt.Sprintf("%.1f", cmd.rand.Float64()*10)
				}
				itemRows = append(itemRows, []string{
					fmt.Sprintf("L%05d", lineSeq), bomID, comp.ID,
					fmt.Sprintf("%.2f", 0.1+cmd.rand.Float64()*5), "kg",
					scrap, fmt.Sprintf("%d", (seq+1)*10), "false", "false",
				})
			}

			from = cmd.nextEffectiveFrom(to)
		}
	}
	return versionRows, itemRows
}

// nextEffectiveFrom places the next interval; messy mode sometimes
// overlaps the previous interval or leaves a gap after it
func (cmd *GenerateCommand) nextEffectiveFrom(previousEnd time.Time) time.Time {
	if !cmd.config.Messy {
		return previousEnd.AddDate(0, 0, 1)
	}
	switch cmd.rand.Intn(3) {
	case 0: // overlap into the previous interval
		return previousEnd.AddDate(0, 0, -(1 + cmd.rand.Intn(14)))
	case 1: // coverage gap
		return previousEnd.AddDate(0, 0, 2+cmd.rand.Intn(30))
	default:
		return previousEnd.AddDate(0, 0, 1)
	}
}

func (cmd *GenerateCommand) deeperProducts(byLevel map[int][]genProduct, level int) []genProduct {
	var deeper []genProduct
	for l := level + 1; l < cmd.config.MaxDepth; l++ {
		deeper = append(deeper, byLevel[l]...)
	}
	return deeper
}

func (cmd *GenerateCommand) pickComponents(deeper []genProduct) []genProduct {
	n := min(2+cmd.rand.Intn(3), len(deeper))
	picked := make([]genProduct, 0, n)
	seen := make(map[string]bool)
	for len(picked) < n {
		candidate := deeper[cmd.rand.Intn(len(deeper))]
		if seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true
		picked = append(picked, candidate)
	}
	return picked
}

func (cmd *GenerateCommand) writeProducts(products []genProduct) error {
	rows := [][]string{{"product_id", "code", "name", "kind", "base_uom"}}
	for _, p := range products {
		rows = append(rows, []string{p.ID, p.ID, "Generated " + p.ID, p.Kind, "kg"})
	}
	return writeCSVFile(filepath.Join(cmd.config.OutputDir, "products.csv"), rows)
}

func (cmd *GenerateCommand) writeVersions(rows [][]string) error {
	all := [][]string{{"bom_id", "product_id", "version", "status", "effective_from", "effective_to", "output_quantity", "output_uom"}}
	all = append(all, rows...)
	return writeCSVFile(filepath.Join(cmd.config.OutputDir, "bom_versions.csv"), all)
}

func (cmd *GenerateCommand) writeLineItems(rows [][]string) error {
	all := [][]string{{"item_id", "bom_id", "component_id", "quantity", "uom", "scrap_percent", "sequence", "is_output", "consume_whole_unit"}}
	all = append(all, rows...)
	return writeCSVFile(filepath.Join(cmd.config.OutputDir, "bom_line_items.csv"), all)
}

func writeCSVFile(filename string, rows [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	return writer.WriteAll(rows)
}
