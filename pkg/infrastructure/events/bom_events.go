package events

import (
	"github.com/batchforge/bom/pkg/domain/entities"
)

const (
	ProductCreatedEvent = "product.created"

	VersionCreatedEvent       = "bom.version.created"
	VersionStatusChangedEvent = "bom.version.status_changed"

	LineAddedEvent   = "bom.line.added"
	LineUpdatedEvent = "bom.line.updated"
	LineRemovedEvent = "bom.line.removed"

	DatasetReloadedEvent = "bom.dataset.reloaded"
)

type ProductCreated struct {
	Product entities.Product `json:"product"`
}

type VersionCreated struct {
	Version entities.BOMVersion `json:"version"`
}

type VersionStatusChanged struct {
	BOMID     entities.BOMID         `json:"bom_id"`
	OldStatus entities.VersionStatus `json:"old_status"`
	NewStatus entities.VersionStatus `json:"new_status"`
}

type LineAdded struct {
	Line entities.BOMLineItem `json:"line"`
}

type LineUpdated struct {
	OldLine entities.BOMLineItem `json:"old_line"`
	NewLine entities.BOMLineItem `json:"new_line"`
}

type LineRemoved struct {
	Line entities.BOMLineItem `json:"line"`
}

type DatasetReloaded struct {
	Products  int `json:"products"`
	Versions  int `json:"versions"`
	LineItems int `json:"line_items"`
}

func NewProductCreatedEvent(product entities.Product) Event {
	return NewEvent(ProductCreatedEvent, string(product.ID), ProductCreated{Product: product})
}

func NewVersionCreatedEvent(version entities.BOMVersion) Event {
	return NewEvent(VersionCreatedEvent, string(version.ProductID), VersionCreated{Version: version})
}

func NewVersionStatusChangedEvent(productID entities.ProductID, bomID entities.BOMID, oldStatus, newStatus entities.VersionStatus) Event {
	return NewEvent(VersionStatusChangedEvent, string(productID), VersionStatusChanged{
		BOMID:     bomID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

func NewLineAddedEvent(productID entities.ProductID, line entities.BOMLineItem) Event {
	return NewEvent(LineAddedEvent, string(productID), LineAdded{Line: line})
}

func NewLineUpdatedEvent(productID entities.ProductID, oldLine, newLine entities.BOMLineItem) Event {
	return NewEvent(LineUpdatedEvent, string(productID), LineUpdated{
		OldLine: oldLine,
		NewLine: newLine,
	})
}

func NewLineRemovedEvent(productID entities.ProductID, line entities.BOMLineItem) Event {
	return NewEvent(LineRemovedEvent, string(productID), LineRemoved{Line: line})
}

func NewDatasetReloadedEvent(products, versions, lineItems int) Event {
	return NewEvent(DatasetReloadedEvent, "dataset", DatasetReloaded{
		Products:  products,
		Versions:  versions,
		LineItems: lineItems,
	})
}
