package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/batchforge/bom/pkg/application/services/diff"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/application/services/scaling"
	"github.com/batchforge/bom/pkg/application/services/yield"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/domain/repositories"
	"github.com/batchforge/bom/pkg/domain/services"
	"github.com/batchforge/bom/pkg/infrastructure/events"
)

// BOMService coordinates version resolution, explosion, scaling, and
// diffing over injected repositories. The explosion Source must be
// backed by pre-fetched data covering the products being exploded.
type BOMService struct {
	products repositories.ProductRepository
	boms     repositories.BOMRepository
	source   explosion.Source
	resolver *services.VersionResolver
	store    events.EventStore
	logger   *zap.Logger
	maxDepth int
}

// NewBOMService creates a BOM service. The event store and logger may
// be nil; maxDepth <= 0 falls back to the explosion default.
func NewBOMService(
	products repositories.ProductRepository,
	boms repositories.BOMRepository,
	source explosion.Source,
	store events.EventStore,
	logger *zap.Logger,
	maxDepth int,
) *BOMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDepth <= 0 {
		maxDepth = explosion.DefaultMaxDepth
	}
	return &BOMService{
		products: products,
		boms:     boms,
		source:   source,
		resolver: services.NewVersionResolver(),
		store:    store,
		logger:   logger,
		maxDepth: maxDepth,
	}
}

// Timeline is a product's version set with its data-quality findings
type Timeline struct {
	ProductID entities.ProductID
	Versions  []*entities.BOMVersion
	Active    *entities.BOMVersion
	Overlaps  map[entities.BOMID]bool
	Gaps      []services.Gap
}

// GetTimeline returns a product's full version timeline as of a date
func (s *BOMService) GetTimeline(productID entities.ProductID, asOf time.Time) (*Timeline, error) {
	if _, err := s.products.GetProduct(productID); err != nil {
		return nil, err
	}

	versions, err := s.boms.GetVersionsForProduct(productID)
	if err != nil {
		return nil, err
	}

	return &Timeline{
		ProductID: productID,
		Versions:  versions,
		Active:    s.resolver.ResolveActiveVersion(versions, asOf),
		Overlaps:  s.resolver.DetectOverlaps(versions),
		Gaps:      s.resolver.DetectGaps(versions),
	}, nil
}

// ExplodeBOM expands one version into its full component tree
func (s *BOMService) ExplodeBOM(bomID entities.BOMID, asOf time.Time) (*explosion.Result, error) {
	engine := explosion.NewEngineWithDepth(s.source, s.maxDepth)
	result, err := engine.Explode(bomID, asOf)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("exploded bom",
		zap.String("bom_id", string(bomID)),
		zap.Time("as_of", asOf),
		zap.Int("nodes", result.NodeCount()),
		zap.Bool("cycles", result.HasCycles))

	return result, nil
}

// ExplodeProduct resolves the product's active version on asOf and
// explodes it
func (s *BOMService) ExplodeProduct(productID entities.ProductID, asOf time.Time) (*explosion.Result, error) {
	versions, err := s.boms.GetVersionsForProduct(productID)
	if err != nil {
		return nil, err
	}

	active := s.resolver.ResolveActiveVersion(versions, asOf)
	if active == nil {
		return nil, fmt.Errorf("no active bom for product %s on %s", productID, asOf.Format("2006-01-02"))
	}

	return s.ExplodeBOM(active.ID, asOf)
}

// ScaleBOM resizes one version's input lines to a target batch size
func (s *BOMService) ScaleBOM(bomID entities.BOMID, target scaling.Target, opts scaling.Options) (*entities.BOMVersion, []scaling.ScaledItem, error) {
	version, err := s.boms.GetVersion(bomID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.boms.GetLineItems(bomID)
	if err != nil {
		return nil, nil, err
	}
	inputs := make([]*entities.BOMLineItem, 0, len(items))
	for _, item := range items {
		if !item.IsOutput {
			inputs = append(inputs, item)
		}
	}

	scaled, err := scaling.Scale(inputs, target, version.OutputQuantity, opts)
	if err != nil {
		return nil, nil, err
	}
	return version, scaled, nil
}

// CompareVersions diffs the input lines of two versions
func (s *BOMService) CompareVersions(beforeID, afterID entities.BOMID) ([]diff.Entry, diff.Summary, error) {
	before, err := s.boms.GetLineItems(beforeID)
	if err != nil {
		return nil, diff.Summary{}, err
	}
	after, err := s.boms.GetLineItems(afterID)
	if err != nil {
		return nil, diff.Summary{}, err
	}

	entries := diff.Compare(before, after)
	return entries, diff.Summarize(entries), nil
}

// AnalyzeYield reports a version's mass yield
func (s *BOMService) AnalyzeYield(bomID entities.BOMID) (*yield.Report, error) {
	version, err := s.boms.GetVersion(bomID)
	if err != nil {
		return nil, err
	}
	items, err := s.boms.GetLineItems(bomID)
	if err != nil {
		return nil, err
	}
	return yield.Analyze(version, items)
}

// AuthorVersion creates the next draft version for a product and emits
// a creation event. The version number is always one past the highest
// existing number, never reused.
func (s *BOMService) AuthorVersion(
	productID entities.ProductID,
	effectiveFrom time.Time,
	effectiveTo *time.Time,
	outputQuantity decimal.Decimal,
	outputUoM string,
) (*entities.BOMVersion, error) {
	product, err := s.products.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if !product.CanCarryBOM() {
		return nil, fmt.Errorf("product %s (%s) cannot carry a bom", productID, product.Kind)
	}

	existing, err := s.boms.GetVersionsForProduct(productID)
	if err != nil {
		return nil, err
	}

	version, err := entities.NewBOMVersion(
		entities.BOMID(uuid.NewString()),
		productID,
		s.resolver.NextVersion(existing),
		entities.StatusDraft,
		effectiveFrom,
		effectiveTo,
		outputQuantity,
		outputUoM,
	)
	if err != nil {
		return nil, err
	}

	if err := s.boms.LoadVersions([]*entities.BOMVersion{version}); err != nil {
		return nil, err
	}

	s.publish(events.NewVersionCreatedEvent(*version))
	s.logger.Info("authored bom version",
		zap.String("product_id", string(productID)),
		zap.Int("version", version.Version))

	return version, nil
}

// ChangeStatus moves a version through its lifecycle and emits a
// status-change event
func (s *BOMService) ChangeStatus(bomID entities.BOMID, newStatus entities.VersionStatus) (*entities.BOMVersion, error) {
	version, err := s.boms.GetVersion(bomID)
	if err != nil {
		return nil, err
	}

	oldStatus := version.Status
	if oldStatus == newStatus {
		return version, nil
	}
	version.Status = newStatus

	if err := s.boms.LoadVersions([]*entities.BOMVersion{version}); err != nil {
		return nil, err
	}

	s.publish(events.NewVersionStatusChangedEvent(version.ProductID, bomID, oldStatus, newStatus))
	return version, nil
}

func (s *BOMService) publish(event events.Event) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to append event",
			zap.String("event_type", event.Type()),
			zap.Error(err))
	}
}
