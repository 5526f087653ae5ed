package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/interfaces/cli/output"
)

// TimelineConfig holds configuration for the timeline command
type TimelineConfig struct {
	ScenarioDir  string
	ProductsFile string
	VersionsFile string
	ItemsFile    string
	Product      string
	AsOf         string
	Format       string
	OutputDir    string
	Verbose      bool
}

// TimelineCommand reports a product's version intervals with overlap
// and gap findings
type TimelineCommand struct {
	config TimelineConfig
}

func NewTimelineCommand(config TimelineConfig) *TimelineCommand {
	return &TimelineCommand{config: config}
}

// Execute runs the timeline command
func (c *TimelineCommand) Execute(ctx context.Context) error {
	if c.config.Product == "" {
		return fmt.Errorf("must specify -product")
	}

	asOf, err := parseAsOfFlag(c.config.AsOf)
	if err != nil {
		return err
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
	timeline, err := svc.GetTimeline(entities.ProductID(c.config.Product), asOf)
	if err != nil {
		return fmt.Errorf("error building timeline: %w", err)
	}

	switch c.config.Format {
	case "", "text":
		c.printText(timeline, asOf.Format("2006-01-02"))
	case "html":
		return c.writeHTML(timeline)
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	return nil
}

func (c *TimelineCommand) printText(timeline *appservices.Timeline, asOf string) {
	fmt.Printf("Version timeline for %s (as of %s)\n\n", timeline.ProductID, asOf)

	fmt.Printf("%-16s %-8s %-12s %-12s %-12s %s\n",
		"BOM", "Version", "Status", "From", "To", "Flags")
	fmt.Printf("%-16s %-8s %-12s %-12s %-12s %s\n",
		"----------------", "--------", "------------", "------------", "------------", "-----")

	for _, v := range timeline.Versions {
		to := "open-ended"
		if v.EffectiveTo != nil {
			to = v.EffectiveTo.Format("2006-01-02")
		}
		var flags []string
		if timeline.Active != nil && timeline.Active.ID == v.ID {
			flags = append(flags, "active-on-date")
		}
		if timeline.Overlaps[v.ID] {
			flags = append(flags, "overlap")
		}
		fmt.Printf("%-16s v%-7d %-12s %-12s %-12s %s\n",
			v.ID, v.Version, v.Status, v.EffectiveFrom.Format("2006-01-02"), to,
			joinFlags(flags))
	}

	if len(timeline.Gaps) > 0 {
		fmt.Println("\nCoverage gaps:")
		for _, gap := range timeline.Gaps {
			fmt.Printf("  after %s: %s to %s\n",
				gap.After, gap.From.Format("2006-01-02"), gap.To.Format("2006-01-02"))
		}
	}

	if timeline.Active == nil {
		fmt.Println("\nNo version is active on the given date")
	}
}

func joinFlags(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	out := flags[0]
	for _, f := range flags[1:] {
		out += ", " + f
	}
	return out
}

func (c *TimelineCommand) writeHTML(timeline *appservices.Timeline) error {
	dir := c.config.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("timeline_%s.html", c.config.Product))
	if err := output.WriteTimelineHTML(timeline, filename); err != nil {
		return err
	}
	if c.config.Verbose {
		fmt.Printf("💾 Timeline saved to: %s\n", filename)
	}
	return nil
}
