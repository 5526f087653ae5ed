package commands

import (
	"context"
	"fmt"

	"github.com/batchforge/bom/pkg/domain/services"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	ScenarioDir  string
	ProductsFile string
	VersionsFile string
	ItemsFile    string
	Verbose      bool
}

// ValidateCommand checks a scenario for structural and timeline defects
type ValidateCommand struct {
	config ValidateConfig
}

func NewValidateCommand(config ValidateConfig) *ValidateCommand {
	return &ValidateCommand{config: config}
}

// Execute runs the validate command. A dataset with findings returns an
// error so scripted callers see a non-zero exit code.
func (c *ValidateCommand) Execute(ctx context.Context) error {
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

	validator := services.NewBOMValidator()
	result := validator.ValidateDataset(scenario.Products, scenario.Versions, scenario.LineItems)

	if result.IsClean() {
		fmt.Printf("✅ Dataset is clean: %d products, %d versions, %d line items\n",
			len(scenario.Products), len(scenario.Versions), len(scenario.LineItems))
		return nil
	}

	fmt.Printf("Found %d issue(s):\n\n", len(result.Errors))
	for _, msg := range result.Errors {
		fmt.Printf("  - %s\n", msg)
	}

	if result.HasCycles {
		fmt.Println("\nCycles:")
		for _, path := range result.CyclePaths {
			for i, id := range path {
				if i > 0 {
					fmt.Print(" -> ")
				}
				fmt.Print(id)
			}
			fmt.Println()
		}
	}

	if len(result.Gaps) > 0 {
		fmt.Println("\nCoverage gaps:")
		for _, gap := range result.Gaps {
			fmt.Printf("  after %s: %s to %s\n",
				gap.After, gap.From.Format("2006-01-02"), gap.To.Format("2006-01-02"))
		}
	}

	return fmt.Errorf("validation found %d issue(s)", len(result.Errors))
}
