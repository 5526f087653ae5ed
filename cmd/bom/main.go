package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/batchforge/bom/pkg/interfaces/cli/commands"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	var err error

	switch os.Args[1] {
	case "explode":
		err = runExplode(ctx, os.Args[2:])
	case "scale":
		err = runScale(ctx, os.Args[2:])
	case "diff":
		err = runDiff(ctx, os.Args[2:])
	case "timeline":
		err = runTimeline(ctx, os.Args[2:])
	case "validate":
		err = runValidate(ctx, os.Args[2:])
	case "generate":
		err = runGenerate(ctx, os.Args[2:])
	case "help", "-help", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// scenarioFlags registers the shared data-source flags on a flag set
func scenarioFlags(fs *flag.FlagSet) (scenario, products, versions, items *string) {
	scenario = fs.String("scenario", "", "Path to scenario directory containing CSV files")
	products = fs.String("products", "", "Path to products CSV file")
	versions = fs.String("versions", "", "Path to BOM versions CSV file")
	items = fs.String("items", "", "Path to BOM line items CSV file")
	return
}

func runExplode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("explode", flag.ExitOnError)
	scenario, products, versions, items := scenarioFlags(fs)
	product := fs.String("product", "", "Product id to explode (resolves the active version)")
	bom := fs.String("bom", "", "Explicit BOM version id to explode")
	asOf := fs.String("asof", "", "Effectivity date YYYY-MM-DD (default today)")
	maxDepth := fs.Int("max-depth", 0, "Maximum tree depth (default 50)")
	outputDir := fs.String("output", "", "Output directory for results (optional)")
	format := fs.String("format", "text", "Output format: text, json, csv, xlsx")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewExplodeCommand(commands.ExplodeConfig{
		ScenarioDir:  *scenario,
		ProductsFile: *products,
		VersionsFile: *versions,
		ItemsFile:    *items,
		Product:      *product,
		BOM:          *bom,
		AsOf:         *asOf,
		MaxDepth:     *maxDepth,
		OutputDir:    *outputDir,
		Format:       *format,
		Verbose:      *verbose,
	})
	return cmd.Execute(ctx)
}

func runScale(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scale", flag.ExitOnError)
	scenario, products, versions, items := scenarioFlags(fs)
	bom := fs.String("bom", "", "BOM version id to scale")
	newOutput := fs.String("output-quantity", "", "Target output quantity")
	multiplier := fs.String("multiplier", "", "Direct scale multiplier")
	increment := fs.String("increment", "", "Rounding increment, e.g. 0.01")
	warnThreshold := fs.String("warn-threshold", "", "Rounding distortion warning threshold percent (default 5)")
	format := fs.String("format", "text", "Output format: text, json")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewScaleCommand(commands.ScaleConfig{
		ScenarioDir:   *scenario,
		ProductsFile:  *products,
		VersionsFile:  *versions,
		ItemsFile:     *items,
		BOM:           *bom,
		NewOutput:     *newOutput,
		Multiplier:    *multiplier,
		Increment:     *increment,
		WarnThreshold: *warnThreshold,
		Format:        *format,
		Verbose:       *verbose,
	})
	return cmd.Execute(ctx)
}

func runDiff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	scenario, products, versions, items := scenarioFlags(fs)
	before := fs.String("before", "", "Baseline BOM version id")
	after := fs.String("after", "", "Comparison BOM version id")
	format := fs.String("format", "text", "Output format: text, json")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewDiffCommand(commands.DiffConfig{
		ScenarioDir:  *scenario,
		ProductsFile: *products,
		VersionsFile: *versions,
		ItemsFile:    *items,
		Before:       *before,
		After:        *after,
		Format:       *format,
		Verbose:      *verbose,
	})
	return cmd.Execute(ctx)
}

func runTimeline(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("timeline", flag.ExitOnError)
	scenario, products, versions, items := scenarioFlags(fs)
	product := fs.String("product", "", "Product id")
	asOf := fs.String("asof", "", "Date used to mark the active version (default today)")
	format := fs.String("format", "text", "Output format: text, html")
	outputDir := fs.String("output", "", "Output directory for the HTML page")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewTimelineCommand(commands.TimelineConfig{
		ScenarioDir:  *scenario,
		ProductsFile: *products,
		VersionsFile: *versions,
		ItemsFile:    *items,
		Product:      *product,
		AsOf:         *asOf,
		Format:       *format,
		OutputDir:    *outputDir,
		Verbose:      *verbose,
	})
	return cmd.Execute(ctx)
}

func runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	scenario, products, versions, items := scenarioFlags(fs)
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewValidateCommand(commands.ValidateConfig{
		ScenarioDir:  *scenario,
		ProductsFile: *products,
		VersionsFile: *versions,
		ItemsFile:    *items,
		Verbose:      *verbose,
	})
	return cmd.Execute(ctx)
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	products := fs.Int("products", 50, "Number of products to generate")
	maxDepth := fs.Int("max-depth", 4, "Maximum depth of the BOM graph")
	versions := fs.Int("versions", 2, "Versions per BOM-carrying product")
	outputDir := fs.String("output", "", "Output directory for the scenario")
	seed := fs.Int64("seed", 0, "Random seed (0 = time-based)")
	messy := fs.Bool("messy", false, "Inject timeline overlaps and gaps")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := commands.NewGenerateCommand(commands.GenerateConfig{
		Products:  *products,
		MaxDepth:  *maxDepth,
		Versions:  *versions,
		OutputDir: *outputDir,
		Seed:      *seed,
		Messy:     *messy,
		Verbose:   *verbose,
	})
	return cmd.Execute(ctx)
}

func showUsage() {
	fmt.Print(`bom - BOM version resolution and multi-level explosion

USAGE:
    bom <command> [options]

COMMANDS:
    explode     Explode a product or BOM version into its component tree
    scale       Resize a version's input lines to a new batch size
    diff        Compare the line items of two versions
    timeline    Show a product's version intervals with overlap/gap findings
    validate    Check a scenario for structural and timeline defects
    generate    Produce a synthetic scenario for testing
    help        Show this message

DATA SOURCE (shared by all commands):
    -scenario <dir>     Directory containing products.csv, bom_versions.csv,
                        bom_line_items.csv
    -products <file>    Individual products CSV file
    -versions <file>    Individual BOM versions CSV file
    -items <file>       Individual line items CSV file

CSV FILE FORMATS:

products.csv:
    product_id,code,name,kind,base_uom
    PIZZA,PZ-001,Margherita Pizza,finished_good,kg

bom_versions.csv:
    bom_id,product_id,version,status,effective_from,effective_to,output_quantity,output_uom
    BOM-PIZZA-2,PIZZA,2,active,2024-07-01,,10,kg

bom_line_items.csv:
    item_id,bom_id,component_id,quantity,uom,scrap_percent,sequence,is_output,consume_whole_unit
    L1,BOM-PIZZA-2,DOUGH,7,kg,2.5,10,false,false

EXAMPLES:
    bom explode -scenario examples/pizza -product PIZZA -asof 2024-09-01 -verbose
    bom explode -scenario examples/pizza -bom BOM-PIZZA-2 -format json
    bom scale -scenario examples/pizza -bom BOM-PIZZA-2 -output-quantity 250 -increment 0.01
    bom diff -scenario examples/pizza -before BOM-PIZZA-1 -after BOM-PIZZA-2
    bom timeline -scenario examples/pizza -product PIZZA -format html -output results/
    bom validate -scenario examples/pizza
`)
}
