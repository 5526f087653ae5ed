package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/scaling"
	"github.com/batchforge/bom/pkg/domain/entities"
)

// ScaleConfig holds configuration for the scale command
type ScaleConfig struct {
	ScenarioDir   string
	ProductsFile  string
	VersionsFile  string
	ItemsFile     string
	BOM           string
	NewOutput     string
	Multiplier    string
	Increment     string
	WarnThreshold string
	Format        string
	Verbose       bool
}

// ScaleCommand resizes one BOM version's input lines to a target batch
type ScaleCommand struct {
	config ScaleConfig
}

func NewScaleCommand(config ScaleConfig) *ScaleCommand {
	return &ScaleCommand{config: config}
}

// Execute runs the scale command
func (c *ScaleCommand) Execute(ctx context.Context) error {
	if c.config.BOM == "" {
		return fmt.Errorf("must specify -bom")
	}
	if c.config.NewOutput == "" && c.config.Multiplier == "" {
		return fmt.Errorf("must specify -output-quantity or -multiplier")
	}

	target, opts, err := c.resolveTarget()
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
	version, scaled, err := svc.ScaleBOM(entities.BOMID(c.config.BOM), target, opts)
	if err != nil {
		return fmt.Errorf("error scaling bom: %w", err)
	}

	switch c.config.Format {
	case "", "text":
		c.printText(version, scaled)
	case "json":
		return c.printJSON(version, scaled)
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	return nil
}

func (c *ScaleCommand) resolveTarget() (scaling.Target, scaling.Options, error) {
	var target scaling.Target
	var opts scaling.Options

	if c.config.NewOutput != "" {
		qty, err := decimal.NewFromString(c.config.NewOutput)
		if err != nil {
			return target, opts, fmt.Errorf("invalid -output-quantity: %w", err)
		}
		target.NewOutputQuantity = &qty
	}
	if c.config.Multiplier != "" {
		mult, err := decimal.NewFromString(c.config.Multiplier)
		if err != nil {
			return target, opts, fmt.Errorf("invalid -multiplier: %w", err)
		}
		target.Multiplier = &mult
	}
	if c.config.Increment != "" {
		inc, err := decimal.NewFromString(c.config.Increment)
		if err != nil {
			return target, opts, fmt.Errorf("invalid -increment: %w", err)
		}
		opts.RoundingIncrement = inc
	}
	if c.config.WarnThreshold != "" {
		threshold, err := decimal.NewFromString(c.config.WarnThreshold)
		if err != nil {
			return target, opts, fmt.Errorf("invalid -warn-threshold: %w", err)
		}
		opts.WarnThresholdPercent = threshold
	}
	return target, opts, nil
}

func (c *ScaleCommand) printText(version *entities.BOMVersion, scaled []scaling.ScaledItem) {
	fmt.Printf("Scaled BOM %s (base output %s %s)\n\n", version.ID, version.OutputQuantity, version.OutputUoM)

	fmt.Printf("%-20s %-14s %-14s %-8s %-10s %s\n",
		"Component", "Original", "Scaled", "UoM", "Delta %", "Flags")
	fmt.Printf("%-20s %-14s %-14s %-8s %-10s %s\n",
		"--------------------", "--------------", "--------------", "--------", "----------", "-----")

	warnings := 0
	for _, item := range scaled {
		flag := ""
		if item.Warning {
			flag = "rounding-warning"
			warnings++
		} else if item.Rounded {
			flag = "rounded"
		}
		fmt.Printf("%-20s %-14s %-14s %-8s %-10s %s\n",
			item.Original.ComponentID,
			item.Original.Quantity,
			item.NewQuantity,
			item.Original.UoM,
			item.RoundingDeltaPercent.StringFixed(4),
			flag)
	}

	if warnings > 0 {
		fmt.Printf("\n⚠️  %d line(s) exceeded the rounding distortion threshold\n", warnings)
	}
}

type scaledLineDocument struct {
	ComponentID          string `json:"component_id"`
	OriginalQuantity     string `json:"original_quantity"`
	NewQuantity          string `json:"new_quantity"`
	UoM                  string `json:"uom"`
	Rounded              bool   `json:"rounded"`
	RoundingDeltaPercent string `json:"rounding_delta_percent"`
	Warning              bool   `json:"warning"`
}

func (c *ScaleCommand) printJSON(version *entities.BOMVersion, scaled []scaling.ScaledItem) error {
	doc := struct {
		BOMID       string               `json:"bom_id"`
		ScaleFactor string               `json:"scale_factor"`
		Items       []scaledLineDocument `json:"items"`
	}{
		BOMID: string(version.ID),
	}
	if len(scaled) > 0 {
		doc.ScaleFactor = scaled[0].ScaleFactor.String()
	}
	for _, item := range scaled {
		doc.Items = append(doc.Items, scaledLineDocument{
			ComponentID:          string(item.Original.ComponentID),
			OriginalQuantity:     item.Original.Quantity.String(),
			NewQuantity:          item.NewQuantity.String(),
			UoM:                  item.Original.UoM,
			Rounded:              item.Rounded,
			RoundingDeltaPercent: item.RoundingDeltaPercent.String(),
			Warning:              item.Warning,
		})
	}

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}
