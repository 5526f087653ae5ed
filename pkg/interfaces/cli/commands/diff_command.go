package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/diff"
	"github.com/batchforge/bom/pkg/domain/entities"
)

// DiffConfig holds configuration for the diff command
type DiffConfig struct {
	ScenarioDir  string
	ProductsFile string
	VersionsFile string
	ItemsFile    string
	Before       string
	After        string
	Format       string
	Verbose      bool
}

// DiffCommand compares the line items of two BOM versions
type DiffCommand struct {
	config DiffConfig
}

func NewDiffCommand(config DiffConfig) *DiffCommand {
	return &DiffCommand{config: config}
}

// Execute runs the diff command
func (c *DiffCommand) Execute(ctx context.Context) error {
	if c.config.Before == "" || c.config.After == "" {
		return fmt.Errorf("must specify -before and -after bom ids")
	}

	files, err := ResolveScenarioFiles(c.config.ScenarioDir, c.config.ProductsFile, c.config.VersionsFile, c.config.ItemsFile)
	if err != nil {
		return err
	}
	scenario, err := LoadScenario(files)
	if err != nil {
		return err
	}

	svc := appservices.NewBOMService(scenario.Dataset, scenario.Dataset, scenario.Dataset, nil, nil, 0)
	entries, summary, err := svc.CompareVersions(entities.BOMID(c.config.Before), entities.BOMID(c.config.After))
	if err != nil {
		return fmt.Errorf("error comparing versions: %w", err)
	}

	switch c.config.Format {
	case "", "text":
		c.printText(entries, summary)
	case "json":
		return c.printJSON(entries, summary)
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	return nil
}

func (c *DiffCommand) printText(entries []diff.Entry, summary diff.Summary) {
	fmt.Printf("BOM Diff: %s -> %s\n\n", c.config.Before, c.config.After)

	fmt.Printf("%-20s %-10s %s\n", "Component", "Change", "Fields")
	fmt.Printf("%-20s %-10s %s\n", "--------------------", "----------", "------")
	for _, entry := range entries {
		fields := strings.Join(entry.ChangedFields, ", ")
		fmt.Printf("%-20s %-10s %s\n", entry.ComponentID, entry.Type, fields)
	}

	fmt.Printf("\nSummary: %d added, %d removed, %d modified, %d unchanged\n",
		summary.Added, summary.Removed, summary.Modified, summary.Unchanged)
}

type diffEntryDocument struct {
	ComponentID   string   `json:"component_id"`
	Type          string   `json:"type"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func (c *DiffCommand) printJSON(entries []diff.Entry, summary diff.Summary) error {
	doc := struct {
		Before  string              `json:"before_bom_id"`
		After   string              `json:"after_bom_id"`
		Entries []diffEntryDocument `json:"entries"`
		Summary struct {
			Added     int `json:"added"`
			Removed   int `json:"removed"`
			Modified  int `json:"modified"`
			Unchanged int `json:"unchanged"`
		} `json:"summary"`
	}{
		Before: c.config.Before,
		After:  c.config.After,
	}
	doc.Summary.Added = summary.Added
	doc.Summary.Removed = summary.Removed
	doc.Summary.Modified = summary.Modified
	doc.Summary.Unchanged = summary.Unchanged

	for _, entry := range entries {
		doc.Entries = append(doc.Entries, diffEntryDocument{
			ComponentID:   string(entry.ComponentID),
			Type:          entry.Type.String(),
			ChangedFields: entry.ChangedFields,
		})
	}

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}
