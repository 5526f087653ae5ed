package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/domain/repositories"
	"github.com/batchforge/bom/pkg/infrastructure/config"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

// Store persists BOM data in postgres via gorm. Read methods implement
// the domain repository interfaces; LoadClosure pre-fetches the full
// transitive closure of a product's BOM graph into an in-memory dataset
// so the explosion engine never touches the database mid-recursion.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to postgres and configures the connection pool
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Store{db: db, logger: logger}, nil
}

// AutoMigrate creates or updates the schema
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&productRecord{}, &bomVersionRecord{}, &bomLineItemRecord{})
}

// Verify interface compliance
var _ repositories.BOMRepository = (*Store)(nil)
var _ repositories.ProductRepository = (*Store)(nil)

type productRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Code      string `gorm:"size:64;uniqueIndex"`
	Name      string `gorm:"size:255"`
	Kind      string `gorm:"size:32"`
	BaseUoM   string `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productRecord) TableName() string { return "products" }

type bomVersionRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	ProductID      string `gorm:"size:64;index"`
	Version        int
	Status         string `gorm:"size:16;index"`
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	OutputQuantity decimal.Decimal `gorm:"type:numeric(20,6)"`
	OutputUoM      string          `gorm:"size:16"`
	YieldPercent   decimal.Decimal `gorm:"type:numeric(7,3)"`
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (bomVersionRecord) TableName() string { return "bom_versions" }

type bomLineItemRecord struct {
	ID               string `gorm:"primaryKey;size:64"`
	BOMID            string `gorm:"column:bom_id;size:64;index"`
	ComponentID      string `gorm:"size:64;index"`
	Quantity         decimal.Decimal `gorm:"type:numeric(20,6)"`
	UoM              string          `gorm:"size:16"`
	ScrapPercent     decimal.Decimal `gorm:"type:numeric(7,3)"`
	Sequence         int
	IsOutput         bool
	ConsumeWholeUnit bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (bomLineItemRecord) TableName() string { return "bom_line_items" }

// GetProduct returns product master data (ProductRepository interface)
func (s *Store) GetProduct(id entities.ProductID) (*entities.Product, error) {
	var rec productRecord
	if err := s.db.First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return recordToProduct(rec)
}

// GetAllProducts returns all products (ProductRepository interface)
func (s *Store) GetAllProducts() ([]*entities.Product, error) {
	var recs []productRecord
	if err := s.db.Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	products := make([]*entities.Product, 0, len(recs))
	for _, rec := range recs {
		p, err := recordToProduct(rec)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadProducts upserts product master data (ProductRepository interface)
func (s *Store) LoadProducts(products []*entities.Product) error {
	for _, p := range products {
		rec := productRecord{
			ID:      string(p.ID),
			Code:    p.Code,
			Name:    p.Name,
			Kind:    p.Kind.String(),
			BaseUoM: p.BaseUoM,
		}
		if err := s.db.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
	}
	return nil
}

// GetVersion returns one BOM version (BOMRepository interface)
func (s *Store) GetVersion(id entities.BOMID) (*entities.BOMVersion, error) {
	var rec bomVersionRecord
	if err := s.db.First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bom version %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch bom version %s: %w", id, err)
	}
	return recordToVersion(rec)
}

// GetVersionsForProduct returns a product's versions ordered ascending
// (BOMRepository interface)
func (s *Store) GetVersionsForProduct(productID entities.ProductID) ([]*entities.BOMVersion, error) {
	var recs []bomVersionRecord
	if err := s.db.Where("product_id = ?", string(productID)).
		Order("version").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query versions for %s: %w", productID, err)
	}
	return recordsToVersions(recs)
}

// GetActiveVersions returns all versions effective on asOf (BOMRepository interface)
func (s *Store) GetActiveVersions(asOf time.Time) ([]*entities.BOMVersion, error) {
	var recs []bomVersionRecord
	err := s.db.Where("status = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)",
		entities.StatusActive.String(), asOf, asOf).
		Order("product_id, version").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query active versions: %w", err)
	}
	return recordsToVersions(recs)
}

// GetLineItems returns a version's lines ordered by sequence (BOMRepository interface)
func (s *Store) GetLineItems(bomID entities.BOMID) ([]*entities.BOMLineItem, error) {
	var recs []bomLineItemRecord
	if err := s.db.Where("bom_id = ?", string(bomID)).
		Order("sequence").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query line items for %s: %w", bomID, err)
	}
	items := make([]*entities.BOMLineItem, 0, len(recs))
	for _, rec := range recs {
		item, err := recordToLineItem(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadVersions upserts BOM versions (BOMRepository interface)
func (s *Store) LoadVersions(versions []*entities.BOMVersion) error {
	for _, v := range versions {
		rec := bomVersionRecord{
			ID:             string(v.ID),
			ProductID:      string(v.ProductID),
			Version:        v.Version,
			Status:         v.Status.String(),
			EffectiveFrom:  v.EffectiveFrom,
			EffectiveTo:    v.EffectiveTo,
			OutputQuantity: v.OutputQuantity,
			OutputUoM:      v.OutputUoM,
			YieldPercent:   v.YieldPercent,
			Notes:          v.Notes,
		}
		if err := s.db.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save version %s: %w", v.ID, err)
		}
	}
	return nil
}

// LoadLineItems upserts line items (BOMRepository interface)
func (s *Store) LoadLineItems(items []*entities.BOMLineItem) error {
	for _, item := range items {
		rec := bomLineItemRecord{
			ID:               item.ID,
			BOMID:            string(item.BOMID),
			ComponentID:      string(item.ComponentID),
			Quantity:         item.Quantity,
			UoM:              item.UoM,
			ScrapPercent:     item.ScrapPercent,
			Sequence:         item.Sequence,
			IsOutput:         item.IsOutput,
			ConsumeWholeUnit: item.ConsumeWholeUnit,
		}
		if err := s.db.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save line item %s: %w", item.ID, err)
		}
	}
	return nil
}

// LoadClosure fetches the transitive closure of a product's BOM graph
// effective on asOf into an in-memory dataset, breadth-first over
// component references. Dangling references are left unresolved so the
// explosion engine can flag them.
func (s *Store) LoadClosure(productID entities.ProductID, asOf time.Time) (*memory.Dataset, error) {
	dataset := memory.NewDataset(64, 256)

	visited := make(map[entities.ProductID]bool)
	queue := []entities.ProductID{productID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		if product, err := s.GetProduct(current); err == nil {
			dataset.AddProduct(*product)
		}

		versions, err := s.GetVersionsForProduct(current)
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			dataset.AddVersion(*v)

			items, err := s.GetLineItems(v.ID)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				dataset.AddLineItem(*item)
				if !visited[item.ComponentID] {
					queue = append(queue, item.ComponentID)
				}
			}
		}
	}

	s.logger.Debug("loaded bom closure",
		zap.String("product_id", string(productID)),
		zap.Time("as_of", asOf),
		zap.Int("products", len(visited)))

	return dataset, nil
}

// FetchDataset loads the entire BOM database into an in-memory dataset.
// Serves dataset caches that need every product, not a single closure.
func (s *Store) FetchDataset() (*memory.Dataset, error) {
	var productRecs []productRecord
	if err := s.db.Order("id").Find(&productRecs).Error; err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var versionRecs []bomVersionRecord
	if err := s.db.Order("id").Find(&versionRecs).Error; err != nil {
		return nil, fmt.Errorf("failed to query bom versions: %w", err)
	}
	var itemRecs []bomLineItemRecord
	if err := s.db.Order("id").Find(&itemRecs).Error; err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}

	dataset := memory.NewDataset(len(productRecs), len(itemRecs))
	for _, rec := range productRecs {
		p, err := recordToProduct(rec)
		if err != nil {
			return nil, err
		}
		dataset.AddProduct(*p)
	}
	for _, rec := range versionRecs {
		v, err := recordToVersion(rec)
		if err != nil {
			return nil, err
		}
		dataset.AddVersion(*v)
	}
	for _, rec := range itemRecs {
		item, err := recordToLineItem(rec)
		if err != nil {
			return nil, err
		}
		dataset.AddLineItem(*item)
	}

	s.logger.Debug("fetched full bom dataset",
		zap.Int("products", len(productRecs)),
		zap.Int("versions", len(versionRecs)),
		zap.Int("line_items", len(itemRecs)))

	return dataset, nil
}

func recordToProduct(rec productRecord) (*entities.Product, error) {
	kind, err := entities.ParseProductKind(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", rec.ID, err)
	}
	return entities.NewProduct(entities.ProductID(rec.ID), rec.Code, rec.Name, kind, rec.BaseUoM)
}

func recordToVersion(rec bomVersionRecord) (*entities.BOMVersion, error) {
	status, err := entities.ParseVersionStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", rec.ID, err)
	}
	v, err := entities.NewBOMVersion(
		entities.BOMID(rec.ID),
		entities.ProductID(rec.ProductID),
		rec.Version,
		status,
		rec.EffectiveFrom,
		rec.EffectiveTo,
		rec.OutputQuantity,
		rec.OutputUoM,
	)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", rec.ID, err)
	}
	v.YieldPercent = rec.YieldPercent
	v.Notes = rec.Notes
	return v, nil
}

func recordsToVersions(recs []bomVersionRecord) ([]*entities.BOMVersion, error) {
	versions := make([]*entities.BOMVersion, 0, len(recs))
	for _, rec := range recs {
		v, err := recordToVersion(rec)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func recordToLineItem(rec bomLineItemRecord) (*entities.BOMLineItem, error) {
	item, err := entities.NewBOMLineItem(
		rec.ID,
		entities.BOMID(rec.BOMID),
		entities.ProductID(rec.ComponentID),
		rec.Quantity,
		rec.UoM,
		rec.ScrapPercent,
		rec.Sequence,
	)
	if err != nil {
		return nil, fmt.Errorf("line item %s: %w", rec.ID, err)
	}
	item.IsOutput = rec.IsOutput
	item.ConsumeWholeUnit = rec.ConsumeWholeUnit
	return item, nil
}
