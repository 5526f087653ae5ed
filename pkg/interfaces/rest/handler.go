package rest

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appservices "github.com/batchforge/bom/pkg/application/services"
	"github.com/batchforge/bom/pkg/application/services/diff"
	"github.com/batchforge/bom/pkg/application/services/explosion"
	"github.com/batchforge/bom/pkg/application/services/scaling"
	"github.com/batchforge/bom/pkg/domain/entities"
	"github.com/batchforge/bom/pkg/domain/repositories"
)

// ServiceProvider hands out the BOM service backed by current data.
// Implementations may rebuild the underlying dataset between calls.
type ServiceProvider interface {
	Service() (*appservices.BOMService, error)
}

// StaticProvider always serves the same service instance
type StaticProvider struct {
	Svc *appservices.BOMService
}

func (p StaticProvider) Service() (*appservices.BOMService, error) {
	return p.Svc, nil
}

// Handler exposes explosion, scaling, diff, and timeline operations
// over HTTP. Data-quality findings are returned inline as flags; they
// never fail a request.
type Handler struct {
	provider ServiceProvider
}

func NewHandler(provider ServiceProvider) *Handler {
	return &Handler{provider: provider}
}

// parseAsOf reads the as_of query parameter, defaulting to today
func parseAsOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		BadRequest(c, "as_of must be a YYYY-MM-DD date: "+raw)
		return time.Time{}, false
	}
	return asOf, true
}

func (h *Handler) service(c *gin.Context) (*appservices.BOMService, bool) {
	svc, err := h.provider.Service()
	if err != nil {
		InternalError(c, "dataset unavailable: "+err.Error())
		return nil, false
	}
	return svc, true
}

// GetTimeline returns a product's versions with overlap and gap findings
func (h *Handler) GetTimeline(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	timeline, err := svc.GetTimeline(entities.ProductID(c.Param("id")), asOf)
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, newTimelineResponse(timeline, asOf))
}

// ExplodeProduct resolves the product's active version and explodes it
func (h *Handler) ExplodeProduct(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	result, err := svc.ExplodeProduct(entities.ProductID(c.Param("id")), asOf)
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, newExplosionResponse(result))
}

// ExplodeBOM explodes one specific version
func (h *Handler) ExplodeBOM(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	result, err := svc.ExplodeBOM(entities.BOMID(c.Param("id")), asOf)
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, newExplosionResponse(result))
}

// GetRawMaterials returns the aggregated leaf requirements of a version
func (h *Handler) GetRawMaterials(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	result, err := svc.ExplodeBOM(entities.BOMID(c.Param("id")), asOf)
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	materials := result.FlattenToRawMaterials()
	out := make([]rawMaterialDTO, len(materials))
	for i, m := range materials {
		out[i] = rawMaterialDTO{
			ComponentID:   string(m.ComponentID),
			UoM:           m.UoM,
			TotalQuantity: m.TotalQuantity.String(),
			UnitMismatch:  m.UnitMismatch,
		}
	}
	Success(c, gin.H{"bom_id": string(result.RootBOMID), "raw_materials": out})
}

type scaleRequest struct {
	NewOutputQuantity    string `json:"new_output_quantity"`
	Multiplier           string `json:"multiplier"`
	RoundingIncrement    string `json:"rounding_increment"`
	WarnThresholdPercent string `json:"warn_threshold_percent"`
}

// ScaleBOM resizes a version's input lines to a new batch size
func (h *Handler) ScaleBOM(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	var req scaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	target, opts, err := req.toTarget()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	version, scaled, err := svc.ScaleBOM(entities.BOMID(c.Param("id")), target, opts)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			NotFound(c, err.Error())
		} else {
			BadRequest(c, err.Error())
		}
		return
	}

	Success(c, newScaleResponse(version, scaled))
}

func (r scaleRequest) toTarget() (scaling.Target, scaling.Options, error) {
	var target scaling.Target
	if r.NewOutputQuantity != "" {
		qty, err := decimal.NewFromString(r.NewOutputQuantity)
		if err != nil {
			return target, scaling.Options{}, err
		}
		target.NewOutputQuantity = &qty
	}
	if r.Multiplier != "" {
		mult, err := decimal.NewFromString(r.Multiplier)
		if err != nil {
			return target, scaling.Options{}, err
		}
		target.Multiplier = &mult
	}

	var opts scaling.Options
	if r.RoundingIncrement != "" {
		inc, err := decimal.NewFromString(r.RoundingIncrement)
		if err != nil {
			return target, opts, err
		}
		opts.RoundingIncrement = inc
	}
	if r.WarnThresholdPercent != "" {
		threshold, err := decimal.NewFromString(r.WarnThresholdPercent)
		if err != nil {
			return target, opts, err
		}
		opts.WarnThresholdPercent = threshold
	}
	return target, opts, nil
}

// CompareBOMs diffs the line items of two versions
func (h *Handler) CompareBOMs(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	beforeID := c.Query("before")
	afterID := c.Query("after")
	if beforeID == "" || afterID == "" {
		BadRequest(c, "before and after bom ids are required")
		return
	}

	entries, summary, err := svc.CompareVersions(entities.BOMID(beforeID), entities.BOMID(afterID))
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, newDiffResponse(beforeID, afterID, entries, summary))
}

// GetYield reports a version's mass yield
func (h *Handler) GetYield(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	report, err := svc.AnalyzeYield(entities.BOMID(c.Param("id")))
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, gin.H{
		"bom_id":              string(report.BOMID),
		"output_quantity":     report.OutputQuantity.String(),
		"output_uom":          report.OutputUoM,
		"total_input":         report.TotalInput.String(),
		"by_product_quantity": report.ByProductQuantity.String(),
		"yield_percent":       report.YieldPercent.String(),
		"unit_mismatch":       report.UnitMismatch,
	})
}

type authorVersionRequest struct {
	EffectiveFrom  string `json:"effective_from" binding:"required"`
	EffectiveTo    string `json:"effective_to"`
	OutputQuantity string `json:"output_quantity" binding:"required"`
	OutputUoM      string `json:"output_uom" binding:"required"`
}

// AuthorVersion creates the next draft version for a product
func (h *Handler) AuthorVersion(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	var req authorVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	from, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		BadRequest(c, "effective_from must be a YYYY-MM-DD date")
		return
	}
	var to *time.Time
	if req.EffectiveTo != "" {
		parsed, err := time.Parse("2006-01-02", req.EffectiveTo)
		if err != nil {
			BadRequest(c, "effective_to must be a YYYY-MM-DD date")
			return
		}
		to = &parsed
	}
	outputQty, err := decimal.NewFromString(req.OutputQuantity)
	if err != nil {
		BadRequest(c, "output_quantity must be a decimal number")
		return
	}

	version, err := svc.AuthorVersion(entities.ProductID(c.Param("id")), from, to, outputQty, req.OutputUoM)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	Created(c, newVersionDTO(version))
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeStatus moves a version through its lifecycle
func (h *Handler) ChangeStatus(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	status, err := entities.ParseVersionStatus(req.Status)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	version, err := svc.ChangeStatus(entities.BOMID(c.Param("id")), status)
	if err != nil {
		NotFound(c, err.Error())
		return
	}

	Success(c, newVersionDTO(version))
}

// Health responds when the process is up
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

type versionDTO struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Version        int    `json:"version"`
	Status         string `json:"status"`
	EffectiveFrom  string `json:"effective_from"`
	EffectiveTo    string `json:"effective_to,omitempty"`
	OutputQuantity string `json:"output_quantity"`
	OutputUoM      string `json:"output_uom"`
}

func newVersionDTO(v *entities.BOMVersion) versionDTO {
	dto := versionDTO{
		ID:             string(v.ID),
		ProductID:      string(v.ProductID),
		Version:        v.Version,
		Status:         v.Status.String(),
		EffectiveFrom:  v.EffectiveFrom.Format("2006-01-02"),
		OutputQuantity: v.OutputQuantity.String(),
		OutputUoM:      v.OutputUoM,
	}
	if v.EffectiveTo != nil {
		dto.EffectiveTo = v.EffectiveTo.Format("2006-01-02")
	}
	return dto
}

type timelineResponse struct {
	ProductID string       `json:"product_id"`
	AsOf      string       `json:"as_of"`
	Versions  []versionDTO `json:"versions"`
	ActiveID  string       `json:"active_bom_id,omitempty"`
	Overlaps  []string     `json:"overlapping_bom_ids"`
	Gaps      []gapDTO     `json:"gaps"`
}

type gapDTO struct {
	AfterBOMID string `json:"after_bom_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func newTimelineResponse(t *appservices.Timeline, asOf time.Time) timelineResponse {
	resp := timelineResponse{
		ProductID: string(t.ProductID),
		AsOf:      asOf.Format("2006-01-02"),
		Versions:  make([]versionDTO, len(t.Versions)),
		Overlaps:  make([]string, 0, len(t.Overlaps)),
		Gaps:      make([]gapDTO, len(t.Gaps)),
	}
	for i, v := range t.Versions {
		resp.Versions[i] = newVersionDTO(v)
	}
	if t.Active != nil {
		resp.ActiveID = string(t.Active.ID)
	}
	for _, v := range t.Versions {
		if t.Overlaps[v.ID] {
			resp.Overlaps = append(resp.Overlaps, string(v.ID))
		}
	}
	for i, g := range t.Gaps {
		resp.Gaps[i] = gapDTO{
			AfterBOMID: string(g.After),
			From:       g.From.Format("2006-01-02"),
			To:         g.To.Format("2006-01-02"),
		}
	}
	return resp
}

type nodeDTO struct {
	ComponentID        string    `json:"component_id"`
	ComponentName      string    `json:"component_name,omitempty"`
	Level              int       `json:"level"`
	CumulativeQuantity string    `json:"cumulative_quantity"`
	UoM                string    `json:"uom"`
	BOMID              string    `json:"bom_id,omitempty"`
	IsLeaf             bool      `json:"is_leaf"`
	Cyclic             bool      `json:"cyclic,omitempty"`
	Truncated          bool      `json:"truncated,omitempty"`
	MissingComponent   bool      `json:"missing_component,omitempty"`
	Children           []nodeDTO `json:"children,omitempty"`
}

func newNodeDTO(n *explosion.Node) nodeDTO {
	dto := nodeDTO{
		ComponentID:        string(n.ComponentID),
		ComponentName:      n.ComponentName,
		Level:              n.Level,
		CumulativeQuantity: n.CumulativeQuantity.String(),
		UoM:                n.UoM,
		BOMID:              string(n.BOMID),
		IsLeaf:             n.IsLeaf,
		Cyclic:             n.Cyclic,
		Truncated:          n.Truncated,
		MissingComponent:   n.MissingComponent,
	}
	for _, child := range n.Children {
		dto.Children = append(dto.Children, newNodeDTO(child))
	}
	return dto
}

type explosionResponse struct {
	RootBOMID      string         `json:"root_bom_id"`
	RootProductID  string         `json:"root_product_id"`
	AsOf           string         `json:"as_of"`
	OutputQuantity string         `json:"output_quantity"`
	OutputUoM      string         `json:"output_uom"`
	Items          []nodeDTO      `json:"items"`
	ByProducts     []byProductDTO `json:"by_products"`
	HasCycles      bool           `json:"has_cycles"`
	HasTruncation  bool           `json:"has_truncation"`
	HasMissing     bool           `json:"has_missing_components"`
}

type byProductDTO struct {
	ComponentID string `json:"component_id"`
	BOMID       string `json:"bom_id"`
	Quantity    string `json:"quantity"`
	UoM         string `json:"uom"`
}

type rawMaterialDTO struct {
	ComponentID   string `json:"component_id"`
	UoM           string `json:"uom"`
	TotalQuantity string `json:"total_quantity"`
	UnitMismatch  bool   `json:"unit_mismatch"`
}

func newExplosionResponse(r *explosion.Result) explosionResponse {
	resp := explosionResponse{
		RootBOMID:      string(r.RootBOMID),
		RootProductID:  string(r.RootProductID),
		AsOf:           r.AsOf.Format("2006-01-02"),
		OutputQuantity: r.OutputQuantity.String(),
		OutputUoM:      r.OutputUoM,
		Items:          make([]nodeDTO, len(r.Items)),
		ByProducts:     make([]byProductDTO, len(r.ByProducts)),
		HasCycles:      r.HasCycles,
		HasTruncation:  r.HasTruncation,
		HasMissing:     r.HasMissingComponents,
	}
	for i, item := range r.Items {
		resp.Items[i] = newNodeDTO(item)
	}
	for i, bp := range r.ByProducts {
		resp.ByProducts[i] = byProductDTO{
			ComponentID: string(bp.ComponentID),
			BOMID:       string(bp.BOMID),
			Quantity:    bp.Quantity.String(),
			UoM:         bp.UoM,
		}
	}
	return resp
}

type scaledItemDTO struct {
	ComponentID          string `json:"component_id"`
	OriginalQuantity     string `json:"original_quantity"`
	NewQuantity          string `json:"new_quantity"`
	UoM                  string `json:"uom"`
	Rounded              bool   `json:"rounded"`
	RoundingDeltaPercent string `json:"rounding_delta_percent"`
	Warning              bool   `json:"warning"`
}

type scaleResponse struct {
	BOMID       string          `json:"bom_id"`
	ScaleFactor string          `json:"scale_factor"`
	Items       []scaledItemDTO `json:"items"`
	HasWarnings bool            `json:"has_warnings"`
}

func newScaleResponse(version *entities.BOMVersion, scaled []scaling.ScaledItem) scaleResponse {
	resp := scaleResponse{
		BOMID: string(version.ID),
		Items: make([]scaledItemDTO, len(scaled)),
	}
	for i, item := range scaled {
		resp.Items[i] = scaledItemDTO{
			ComponentID:          string(item.Original.ComponentID),
			OriginalQuantity:     item.Original.Quantity.String(),
			NewQuantity:          item.NewQuantity.String(),
			UoM:                  item.Original.UoM,
			Rounded:              item.Rounded,
			RoundingDeltaPercent: item.RoundingDeltaPercent.String(),
			Warning:              item.Warning,
		}
		if item.Warning {
			resp.HasWarnings = true
		}
	}
	if len(scaled) > 0 {
		resp.ScaleFactor = scaled[0].ScaleFactor.String()
	}
	return resp
}

type diffEntryDTO struct {
	ComponentID   string   `json:"component_id"`
	Type          string   `json:"type"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

type diffResponse struct {
	BeforeBOMID string         `json:"before_bom_id"`
	AfterBOMID  string         `json:"after_bom_id"`
	Entries     []diffEntryDTO `json:"entries"`
	Summary     diffSummaryDTO `json:"summary"`
}

type diffSummaryDTO struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

func newDiffResponse(beforeID, afterID string, entries []diff.Entry, summary diff.Summary) diffResponse {
	resp := diffResponse{
		BeforeBOMID: beforeID,
		AfterBOMID:  afterID,
		Entries:     make([]diffEntryDTO, len(entries)),
		Summary: diffSummaryDTO{
			Added:     summary.Added,
			Removed:   summary.Removed,
			Modified:  summary.Modified,
			Unchanged: summary.Unchanged,
		},
	}
	for i, entry := range entries {
		resp.Entries[i] = diffEntryDTO{
			ComponentID:   string(entry.ComponentID),
			Type:          entry.Type.String(),
			ChangedFields: entry.ChangedFields,
		}
	}
	return resp
}
