package commands

import (
	"context"
	"fmt"
	"time"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/interfaces/cli/output"
)

// ExplodeConfig holds configuration for the explode command
type ExplodeConfig struct {
	ScenarioDir  string
	ProductsFile string
	VersionsFile string
	ItemsFile    string
	Product      string
	BOM          string
	AsOf         string
	MaxDepth     int
	OutputDir    string
	Format       string
	Verbose      bool
}

// ExplodeCommand runs a multi-level BOM explosion over a CSV scenario
type ExplodeCommand struct {
	config ExplodeConfig
}

func NewExplodeCommand(config ExplodeConfig) *ExplodeCommand {
	return &ExplodeCommand{config: config}
}

// Execute runs the explode command
func (c *ExplodeCommand) Execute(ctx context.Context) error {
	if c.config.Product == "" && c.config.BOM == "" {
		return fmt.Errorf("must specify -product or -bom")
	}

	asOf, err := parseAsOfFlag(c.config.AsOf)
	if err != nil {
		return err
	}

	files, err := ResolveScenarioFiles(c.config.ScenarioDir, c.config.ProductsFile, c.config.VersionsFile, c.config.ItemsFile)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Println("📂 Loading scenario data...")
	}

	scenario, err := LoadScenario(files)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Printf("✅ Loaded %d products, %d versions, %d line items\n\n",
			len(scenario.Products), len(scenario.Versions), len(scenario.LineItems))
	}

	maxDepth := c.config.MaxDepth
	if maxDepth <= 0 {
		maxDepth = explosion.DefaultMaxDepth
	}
	svc := appservices.NewBOMService(scenario.Dataset, scenario.Dataset, scenario.Dataset, nil, nil, maxDepth)

	startTime := time.Now()
	var result *explosion.Result
	if c.config.BOM != "" {
		result, err = svc.ExplodeBOM(entities.BOMID(c.config.BOM), asOf)
	} else {
		result, err = svc.ExplodeProduct(entities.ProductID(c.config.Product), asOf)
	}
	explosionTime := time.Since(startTime)

	if err != nil {
		return fmt.Errorf("error running explosion: %w", err)
	}

	if c.config.Verbose {
		fmt.Printf("✅ Explosion completed in %v (%d nodes)\n\n", explosionTime, result.NodeCount())
	}

	return output.Generate(result, output.Config{
		Format:        c.config.Format,
		OutputDir:     c.config.OutputDir,
		Verbose:       c.config.Verbose,
		ExplosionTime: explosionTime,
	})
}

// parseAsOfFlag parses an -asof date flag, defaulting to today
func parseAsOfFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -asof date %q, expected YYYY-MM-DD", raw)
	}
	return asOf, nil
}
