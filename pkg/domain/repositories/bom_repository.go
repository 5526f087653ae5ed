package repositories

import (
	"errors"
	"time"

	"github.com/batchforge/bom/pkg/domain/entities"
)

// ErrNotFound reports a lookup miss for any repository entity. Callers
// distinguish missing data from other failures with errors.Is.
var ErrNotFound = errors.New("not found")

// BOMRepository provides access to BOM version and line item data
type BOMRepository interface {
	GetVersion(id entities.BOMID) (*entities.BOMVersion, error)

	// GetVersionsForProduct returns every version recorded for a product,
	// regardless of status, ordered by version number ascending.
	GetVersionsForProduct(productID entities.ProductID) ([]*entities.BOMVersion, error)

	// GetActiveVersions returns the active-status versions whose effective
	// range covers asOf, for every product. Used to warm explosion caches.
	GetActiveVersions(asOf time.Time) ([]*entities.BOMVersion, error)

	// GetLineItems returns the lines of one version ordered by sequence.
	GetLineItems(bomID entities.BOMID) ([]*entities.BOMLineItem, error)

	LoadVersions(versions []*entities.BOMVersion) error
	LoadLineItems(items []*entities.BOMLineItem) error
}
