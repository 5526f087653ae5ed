package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/domain/repositories"
	"github.com/batchforge/bom/pkg/domain/services"
)

// Dataset is a memory-efficient, pre-indexed BOM store. It backs both
// the repository interfaces and the explosion engine's Source: the
// Source accessors are plain map lookups with no I/O, which is what
// keeps deep explosions free of fetch storms.
//
// Add* and Load* upsert by id, so re-saving a row replaces it in place.
// Accessors return pointers into the backing arrays; adding a new row
// may reallocate them, so pointers must not be held across later loads.
type Dataset struct {
	products    []entities.Product
	productsMap map[entities.ProductID]int

	versions    []entities.BOMVersion
	versionsMap map[entities.BOMID]int
	byProduct   map[entities.ProductID][]int

	lineItems   []entities.BOMLineItem
	lineMap     map[string]int
	lineIndexes map[entities.BOMID][]int

	resolver *services.VersionResolver
}

// NewDataset creates a dataset with capacity hints
func NewDataset(expectedProducts, expectedLines int) *Dataset {
	return &Dataset{
		products:    make([]entities.Product, 0, expectedProducts),
		productsMap: make(map[entities.ProductID]int, expectedProducts),
		versionsMap: make(map[entities.BOMID]int, expectedProducts),
		byProduct:   make(map[entities.ProductID][]int, expectedProducts),
		lineItems:   make([]entities.BOMLineItem, 0, expectedLines),
		lineMap:     make(map[string]int, expectedLines),
		lineIndexes: make(map[entities.BOMID][]int, expectedProducts),
		resolver:    services.NewVersionResolver(),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*Dataset)(nil)
var _ repositories.ProductRepository = (*Dataset)(nil)

// LoadProducts loads product master data (ProductRepository interface)
func (d *Dataset) LoadProducts(products []*entities.Product) error {
	for _, p := range products {
		d.AddProduct(*p)
	}
	return nil
}

// AddProduct adds one product, replacing any existing row with the same id
func (d *Dataset) AddProduct(p entities.Product) {
	if index, exists := d.productsMap[p.ID]; exists {
		d.products[index] = p
		return
	}
	d.productsMap[p.ID] = len(d.products)
	d.products = append(d.products, p)
}

// GetProduct returns product master data (ProductRepository interface)
func (d *Dataset) GetProduct(id entities.ProductID) (*entities.Product, error) {
	index, exists := d.productsMap[id]
	if !exists {
		return nil, fmt.Errorf("product %s: %w", id, repositories.ErrNotFound)
	}
	return &d.products[index], nil
}

// GetAllProducts returns all products (ProductRepository interface)
func (d *Dataset) GetAllProducts() ([]*entities.Product, error) {
	products := make([]*entities.Product, 0, len(d.products))
	for i := range d.products {
		products = append(products, &d.products[i])
	}
	return products, nil
}

// LoadVersions loads BOM versions (BOMRepository interface)
func (d *Dataset) LoadVersions(versions []*entities.BOMVersion) error {
	for _, v := range versions {
		d.AddVersion(*v)
	}
	return nil
}

// AddVersion adds one BOM version, replacing any existing row with the
// same id so the byProduct index never holds duplicates
func (d *Dataset) AddVersion(v entities.BOMVersion) {
	if index, exists := d.versionsMap[v.ID]; exists {
		prev := d.versions[index]
		d.versions[index] = v
		if prev.ProductID != v.ProductID {
			d.byProduct[prev.ProductID] = dropIndex(d.byProduct[prev.ProductID], index)
			d.byProduct[v.ProductID] = append(d.byProduct[v.ProductID], index)
		}
		return
	}
	index := len(d.versions)
	d.versions = append(d.versions, v)
	d.versionsMap[v.ID] = index
	d.byProduct[v.ProductID] = append(d.byProduct[v.ProductID], index)
}

// GetVersion returns a BOM version by id (BOMRepository interface)
func (d *Dataset) GetVersion(id entities.BOMID) (*entities.BOMVersion, error) {
	index, exists := d.versionsMap[id]
	if !exists {
		return nil, fmt.Errorf("bom version %s: %w", id, repositories.ErrNotFound)
	}
	return &d.versions[index], nil
}

// GetVersionsForProduct returns every version of a product ordered by
// version number ascending (BOMRepository interface)
func (d *Dataset) GetVersionsForProduct(productID entities.ProductID) ([]*entities.BOMVersion, error) {
	indexes := d.byProduct[productID]
	versions := make([]*entities.BOMVersion, 0, len(indexes))
	for _, index := range indexes {
		versions = append(versions, &d.versions[index])
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version < versions[j].Version
	})
	return versions, nil
}

// GetActiveVersions returns all versions effective on asOf (BOMRepository interface)
func (d *Dataset) GetActiveVersions(asOf time.Time) ([]*entities.BOMVersion, error) {
	var active []*entities.BOMVersion
	for i := range d.versions {
		v := &d.versions[i]
		if v.Status == entities.StatusActive && v.ActiveOn(asOf) {
			active = append(active, v)
		}
	}
	return active, nil
}

// LoadLineItems loads line items (BOMRepository interface)
func (d *Dataset) LoadLineItems(items []*entities.BOMLineItem) error {
	for _, item := range items {
		d.AddLineItem(*item)
	}
	return nil
}

// AddLineItem adds one line item, replacing any existing row with the
// same id
func (d *Dataset) AddLineItem(item entities.BOMLineItem) {
	if index, exists := d.lineMap[item.ID]; exists {
		prev := d.lineItems[index]
		d.lineItems[index] = item
		if prev.BOMID != item.BOMID {
			d.lineIndexes[prev.BOMID] = dropIndex(d.lineIndexes[prev.BOMID], index)
			d.lineIndexes[item.BOMID] = append(d.lineIndexes[item.BOMID], index)
		}
		return
	}
	index := len(d.lineItems)
	d.lineItems = append(d.lineItems, item)
	d.lineMap[item.ID] = index
	d.lineIndexes[item.BOMID] = append(d.lineIndexes[item.BOMID], index)
}

// GetLineItems returns a version's lines ordered by sequence (BOMRepository interface)
func (d *Dataset) GetLineItems(bomID entities.BOMID) ([]*entities.BOMLineItem, error) {
	return d.LineItems(bomID), nil
}

// Version returns a BOM version by id, or nil (explosion Source)
func (d *Dataset) Version(id entities.BOMID) *entities.BOMVersion {
	index, exists := d.versionsMap[id]
	if !exists {
		return nil
	}
	return &d.versions[index]
}

// BOMForComponent resolves the component's version active on asOf, or
// nil when the component has none (explosion Source)
func (d *Dataset) BOMForComponent(componentID entities.ProductID, asOf time.Time) *entities.BOMVersion {
	indexes := d.byProduct[componentID]
	if len(indexes) == 0 {
		return nil
	}
	versions := make([]*entities.BOMVersion, 0, len(indexes))
	for _, index := range indexes {
		versions = append(versions, &d.versions[index])
	}
	return d.resolver.ResolveActiveVersion(versions, asOf)
}

// LineItems returns a version's lines ordered by sequence (explosion Source)
func (d *Dataset) LineItems(bomID entities.BOMID) []*entities.BOMLineItem {
	indexes := d.lineIndexes[bomID]
	items := make([]*entities.BOMLineItem, 0, len(indexes))
	for _, index := range indexes {
		items = append(items, &d.lineItems[index])
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})
	return items
}

// dropIndex removes one slice index from a secondary index list
func dropIndex(indexes []int, index int) []int {
	for i, candidate := range indexes {
		if candidate == index {
			return append(indexes[:i], indexes[i+1:]...)
		}
	}
	return indexes
}

// Component returns product master data, or nil (explosion Source)
func (d *Dataset) Component(id entities.ProductID) *entities.Product {
	index, exists := d.productsMap[id]
	if !exists {
		return nil
	}
	return &d.products[index]
}
