package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// Loader handles loading BOM data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadProducts loads product master data from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readAll(filename, "products")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "code", "name", "kind", "base_uom"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("products CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var products []*entities.Product
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("products CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		product, err := parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}

		products = append(products, product)
	}

	return products, nil
}

// LoadVersions loads BOM versions from a CSV file
func (l *Loader) LoadVersions(filename string) ([]*entities.BOMVersion, error) {
	records, err := readAll(filename, "bom_versions")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"bom_id", "product_id", "version", "status", "effective_from", "effective_to", "output_quantity", "output_uom"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("bom_versions CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var versions []*entities.BOMVersion
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("bom_versions CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		version, err := parseVersion(record)
		if err != nil {
			return nil, fmt.Errorf("bom_versions CSV row %d: %w", i+2, err)
		}

		versions = append(versions, version)
	}

	return versions, nil
}

// LoadLineItems loads BOM line items from a CSV file
func (l *Loader) LoadLineItems(filename string) ([]*entities.BOMLineItem, error) {
	records, err := readAll(filename, "bom_items")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"item_id", "bom_id", "component_id", "quantity", "uom", "scrap_percent", "sequence", "is_output", "consume_whole_unit"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("bom_items CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var items []*entities.BOMLineItem
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("bom_items CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		item, err := parseLineItem(record)
		if err != nil {
			return nil, fmt.Errorf("bom_items CSV row %d: %w", i+2, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// Helper functions for parsing CSV records

func readAll(filename, label string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", label, filename, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", label, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", label)
	}

	return records, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseProduct(record []string) (*entities.Product, error) {
	kind, err := entities.ParseProductKind(record[3])
	if err != nil {
		return nil, err
	}

	return entities.NewProduct(
		entities.ProductID(record[0]),
		record[1],
		record[2],
		kind,
		record[4],
	)
}

func parseVersion(record []string) (*entities.BOMVersion, error) {
	versionNum, err := strconv.Atoi(record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid version: %s", record[2])
	}

	status, err := entities.ParseVersionStatus(record[3])
	if err != nil {
		return nil, err
	}

	effectiveFrom, err := time.Parse("2006-01-02", record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid effective_from format: %s (expected YYYY-MM-DD)", record[4])
	}

	// Empty effective_to means open-ended.
	var effectiveTo *time.Time
	if strings.TrimSpace(record[5]) != "" {
		to, err := time.Parse("2006-01-02", record[5])
		if err != nil {
			return nil, fmt.Errorf("invalid effective_to format: %s (expected YYYY-MM-DD)", record[5])
		}
		effectiveTo = &to
	}

	outputQty, err := decimal.NewFromString(record[6])
	if err != nil {
		return nil, fmt.Errorf("invalid output_quantity: %s", record[6])
	}

	return entities.NewBOMVersion(
		entities.BOMID(record[0]),
		entities.ProductID(record[1]),
		versionNum,
		status,
		effectiveFrom,
		effectiveTo,
		outputQty,
		record[7],
	)
}

func parseLineItem(record []string) (*entities.BOMLineItem, error) {
	quantity, err := decimal.NewFromString(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %s", record[3])
	}

	scrap := decimal.Zero
	if strings.TrimSpace(record[5]) != "" {
		scrap, err = decimal.NewFromString(record[5])
		if err != nil {
			return nil, fmt.Errorf("invalid scrap_percent: %s", record[5])
		}
	}

	sequence, err := strconv.Atoi(record[6])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence: %s", record[6])
	}

	item, err := entities.NewBOMLineItem(
		record[0],
		entities.BOMID(record[1]),
		entities.ProductID(record[2]),
		quantity,
		record[4],
		scrap,
		sequence,
	)
	if err != nil {
		return nil, err
	}

	if item.IsOutput, err = parseBool(record[7], "is_output"); err != nil {
		return nil, err
	}
	if item.ConsumeWholeUnit, err = parseBool(record[8], "consume_whole_unit"); err != nil {
		return nil, err
	}

	return item, nil
}

func parseBool(s, field string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
}
