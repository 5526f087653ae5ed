package rest

import (
	"sync"

	"go.uber.org/zap"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/infrastructure/events"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

// CachedProvider serves a BOM service over a cached in-memory dataset
// and rebuilds it after the dataset changes. Reads hit the cache;
// writes go to the backing repositories through the built service, and
// the resulting events evict the cache.
type CachedProvider struct {
	mu      sync.Mutex
	load    func() (*memory.Dataset, error)
	build   func(source explosion.Source) *appservices.BOMService
	logger  *zap.Logger
	current *appservices.BOMService
}

// NewCachedProvider creates a provider. load fetches a fresh dataset
// from the backing store; build assembles the service around it.
func NewCachedProvider(
	load func() (*memory.Dataset, error),
	build func(source explosion.Source) *appservices.BOMService,
	logger *zap.Logger,
) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{load: load, build: build, logger: logger}
}

func (p *CachedProvider) Service() (*appservices.BOMService, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return p.current, nil
	}

	dataset, err := p.load()
	if err != nil {
		return nil, err
	}
	p.current = p.build(dataset)
	p.logger.Debug("rebuilt cached bom dataset")
	return p.current, nil
}

// Invalidate drops the cached dataset so the next request reloads
func (p *CachedProvider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// SubscribeTo evicts the cache whenever a BOM mutation event lands
func (p *CachedProvider) SubscribeTo(store events.EventStore) error {
	return store.Subscribe([]string{
		events.ProductCreatedEvent,
		events.VersionCreatedEvent,
		events.VersionStatusChangedEvent,
		events.LineAddedEvent,
		events.LineUpdatedEvent,
		events.LineRemovedEvent,
		events.DatasetReloadedEvent,
	}, &evictionHandler{provider: p})
}

type evictionHandler struct {
	provider *CachedProvider
}

func (h *evictionHandler) Handle(event events.Event) error {
	h.provider.logger.Debug("evicting dataset cache",
		zap.String("event_type", event.Type()),
		zap.String("stream_id", event.StreamID()))
	h.provider.Invalidate()
	return nil
}

func (h *evictionHandler) CanHandle(eventType string) bool {
	switch eventType {
	case events.ProductCreatedEvent,
		events.VersionCreatedEvent,
		events.VersionStatusChangedEvent,
		events.LineAddedEvent,
		events.LineUpdatedEvent,
		events.LineRemovedEvent,
		events.DatasetReloadedEvent:
		return true
	}
	return false
}
