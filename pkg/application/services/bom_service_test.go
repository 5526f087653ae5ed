package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchforge/bom/pkg/application/services/scaling"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/infrastructure/events"
	"github.com/batchforge/bom/pkg/infrastructure/repositories/memory"
)

func serviceFixture(t *testing.T) (*BOMService, *memory.Dataset, *events.InMemoryEventStore) {
	t.Helper()

	ds := memory.NewDataset(8, 16)

	addProduct := func(id entities.ProductID, kind entities.ProductKind) {
		p, err := entities.NewProduct(id, string(id), string(id), kind, "kg")
		if err != nil {
			t.Fatalf("product %s: %v", id, err)
		}
		ds.AddProduct(*p)
	}
	addProduct("PIZZA", entities.FinishedGood)
	addProduct("DOUGH", entities.Intermediate)
	addProduct("FLOUR", entities.RawMaterial)

	addVersion := func(id entities.BOMID, productID entities.ProductID, num int, from string, to *string, output float64) {
		fromDate, err := time.Parse("2006-01-02", from)
		if err != nil {
			t.Fatalf("parse from: %v", err)
		}
		var toDate *time.Time
		if to != nil {
			d, err := time.Parse("2006-01-02", *to)
			if err != nil {
				t.Fatalf("parse to: %v", err)
			}
			toDate = &d
		}
		v, err := entities.NewBOMVersion(id, productID, num, entities.StatusActive, fromDate, toDate, decimal.NewFromFloat(output), "kg")
		if err != nil {
			t.Fatalf("version %s: %v", id, err)
		}
		ds.AddVersion(*v)
	}
	june30 := "2024-06-30"
	addVersion("BOM-PIZZA-1", "PIZZA", 1, "2024-01-01", &june30, 10)
	addVersion("BOM-PIZZA-2", "PIZZA", 2, "2024-07-01", nil, 10)
	addVersion("BOM-DOUGH-1", "DOUGH", 1, "2024-01-01", nil, 1)

	addLine := func(id string, bomID entities.BOMID, componentID entities.ProductID, qty, scrap float64, seq int) {
		item, err := entities.NewBOMLineItem(id, bomID, componentID, decimal.NewFromFloat(qty), "kg", decimal.NewFromFloat(scrap), seq)
		if err != nil {
			t.Fatalf("line %s: %v", id, err)
		}
		ds.AddLineItem(*item)
	}
	addLine("L1", "BOM-PIZZA-1", "DOUGH", 6, 0, 10)
	addLine("L2", "BOM-PIZZA-2", "DOUGH", 7, 0, 10)
	addLine("L3", "BOM-PIZZA-2", "FLOUR", 0.5, 0, 20)
	addLine("L4", "BOM-DOUGH-1", "FLOUR", 0.6, 0, 10)

	store := events.NewInMemoryEventStore(nil)
	svc := NewBOMService(ds, ds, ds, store, nil, 0)
	return svc, ds, store
}

func TestGetTimeline(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	timeline, err := svc.GetTimeline("PIZZA", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(timeline.Versions) != 2 {
		t.Errorf("expected 2 versions, got %d", len(timeline.Versions))
	}
	if timeline.Active == nil || timeline.Active.ID != "BOM-PIZZA-2" {
		t.Errorf("expected active BOM-PIZZA-2, got %+v", timeline.Active)
	}
	if len(timeline.Overlaps) != 0 {
		t.Errorf("expected no overlaps, got %v", timeline.Overlaps)
	}
	if len(timeline.Gaps) != 0 {
		t.Errorf("expected no gaps, got %v", timeline.Gaps)
	}
}

func TestGetTimelineUnknownProduct(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	_, err := svc.GetTimeline("NOPE", time.Now())
	if err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestExplodeProductResolvesActiveVersion(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	result, err := svc.ExplodeProduct("PIZZA", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RootBOMID != "BOM-PIZZA-1" {
		t.Errorf("expected root BOM-PIZZA-1, got %s", result.RootBOMID)
	}

	// DOUGH line plus its FLOUR child
	if result.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", result.NodeCount())
	}
}

func TestExplodeProductNoActiveVersion(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	_, err := svc.ExplodeProduct("PIZZA", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error when no version is active")
	}
	if !strings.Contains(err.Error(), "no active bom") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestScaleBOMSkipsOutputLines(t *testing.T) {
	svc, ds, _ := serviceFixture(t)

	output, err := entities.NewBOMLineItem("L5", "BOM-PIZZA-2", "PIZZA", decimal.NewFromInt(10), "kg", decimal.Zero, 1)
	if err != nil {
		t.Fatalf("output line: %v", err)
	}
	output.IsOutput = true
	ds.AddLineItem(*output)

	version, scaled, err := svc.ScaleBOM("BOM-PIZZA-2", scaling.ToOutputQuantity(decimal.NewFromInt(25)), scaling.Options{RoundingIncrement: decimal.New(1, -3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version.ID != "BOM-PIZZA-2" {
		t.Errorf("expected version BOM-PIZZA-2, got %s", version.ID)
	}
	if len(scaled) != 2 {
		t.Fatalf("expected 2 scaled input lines, got %d", len(scaled))
	}
	if !scaled[0].NewQuantity.Equal(decimal.NewFromFloat(17.5)) {
		t.Errorf("expected 17.5, got %s", scaled[0].NewQuantity)
	}
}

func TestCompareVersions(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	entries, summary, err := svc.CompareVersions("BOM-PIZZA-1", "BOM-PIZZA-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Added != 1 || summary.Modified != 1 || summary.Removed != 0 || summary.Unchanged != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestAuthorVersion(t *testing.T) {
	svc, _, store := serviceFixture(t)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	version, err := svc.AuthorVersion("PIZZA", from, nil, decimal.NewFromInt(12), "kg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if version.Version != 3 {
		t.Errorf("expected version 3, got %d", version.Version)
	}
	if version.Status != entities.StatusDraft {
		t.Errorf("expected draft status, got %s", version.Status)
	}
	if version.ID == "" {
		t.Error("expected generated bom id")
	}

	stream, err := store.ReadEvents("PIZZA", 0)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(stream) != 1 || stream[0].Type() != events.VersionCreatedEvent {
		t.Errorf("expected one version-created event, got %+v", stream)
	}
}

func TestAuthorVersionRejectsRawMaterial(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	_, err := svc.AuthorVersion("FLOUR", time.Now(), nil, decimal.NewFromInt(1), "kg")
	if err == nil {
		t.Fatal("expected error for raw material product")
	}
	if !strings.Contains(err.Error(), "cannot carry a bom") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestChangeStatusEmitsEvent(t *testing.T) {
	svc, _, store := serviceFixture(t)

	version, err := svc.ChangeStatus("BOM-PIZZA-1", entities.StatusPhasedOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version.Status != entities.StatusPhasedOut {
		t.Errorf("expected phased_out, got %s", version.Status)
	}

	stream, err := store.ReadEvents("PIZZA", 0)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(stream) != 1 || stream[0].Type() != events.VersionStatusChangedEvent {
		t.Errorf("expected one status-changed event, got %+v", stream)
	}
}

func TestChangeStatusKeepsTimelineClean(t *testing.T) {
	svc, _, _ := serviceFixture(t)

	if _, err := svc.ChangeStatus("BOM-PIZZA-1", entities.StatusPhasedOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timeline, err := svc.GetTimeline("PIZZA", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(timeline.Versions) != 2 {
		t.Fatalf("expected 2 versions after status change, got %d", len(timeline.Versions))
	}
	if len(timeline.Overlaps) != 0 {
		t.Errorf("expected no overlaps after status change, got %v", timeline.Overlaps)
	}
	if timeline.Versions[0].Status != entities.StatusPhasedOut {
		t.Errorf("expected version 1 phased_out, got %s", timeline.Versions[0].Status)
	}
}
