package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/csv"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

// Scenario is a fully loaded CSV dataset plus its raw slices, kept for
// commands that need whole-file validation rather than keyed lookups.
type Scenario struct {
	Dataset   *memory.Dataset
	Products  []*entities.Product
	Versions  []*entities.BOMVersion
	LineItems []*entities.BOMLineItem
}

// ScenarioFiles names the three CSV inputs of a scenario
type ScenarioFiles struct {
	Products  string
	Versions  string
	LineItems string
}

// ResolveScenarioFiles maps a scenario directory or explicit file flags
// to concrete paths and verifies they exist
func ResolveScenarioFiles(scenarioDir, productsFile, versionsFile, itemsFile string) (ScenarioFiles, error) {
	var files ScenarioFiles

	if scenarioDir != "" {
		files = ScenarioFiles{
			Products:  filepath.Join(scenarioDir, "products.csv"),
			Versions:  filepath.Join(scenarioDir, "bom_versions.csv"),
			LineItems: filepath.Join(scenarioDir, "bom_line_items.csv"),
		}
	} else {
		if productsFile == "" || versionsFile == "" || itemsFile == "" {
			return files, fmt.Errorf("must specify either -scenario directory or individual CSV files")
		}
		files = ScenarioFiles{
			Products:  productsFile,
			Versions:  versionsFile,
			LineItems: itemsFile,
		}
	}

	for name, path := range map[string]string{
		"products":   files.Products,
		"versions":   files.Versions,
		"line items": files.LineItems,
	} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return files, fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return files, nil
}

// LoadScenario reads the CSV files into an indexed in-memory dataset
func LoadScenario(files ScenarioFiles) (*Scenario, error) {
	loader := csv.NewLoader()

	products, err := loader.LoadProducts(files.Products)
	if err != nil {
		return nil, fmt.Errorf("error loading products: %w", err)
	}
	versions, err := loader.LoadVersions(files.Versions)
	if err != nil {
		return nil, fmt.Errorf("error loading bom versions: %w", err)
	}
	items, err := loader.LoadLineItems(files.LineItems)
	if err != nil {
		return nil, fmt.Errorf("error loading line items: %w", err)
	}

	dataset := memory.NewDataset(len(products), len(items))
	if err := dataset.LoadProducts(products); err != nil {
		return nil, fmt.Errorf("failed to index products: %w", err)
	}
	if err := dataset.LoadVersions(versions); err != nil {
		return nil, fmt.Errorf("failed to index bom versions: %w", err)
	}
	if err := dataset.LoadLineItems(items); err != nil {
		return nil, fmt.Errorf("failed to index line items: %w", err)
	}

	return &Scenario{
		Dataset:   dataset,
		Products:  products,
		Versions:  versions,
		LineItems: items,
	}, nil
}
