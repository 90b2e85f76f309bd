package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wms-service/internal/importer"
	"wms-service/internal/middleware"
	"wms-service/internal/models"
	"wms-service/internal/workflow"
)

// previewLimit caps how many errors and warnings an import response inlines;
// the full lists stay available in the summary payload.
const previewLimit = 3

type ImportHandler struct {
	products *workflow.ProductFlow
	entities *workflow.EntityFlow
}

func NewImportHandler(products *workflow.ProductFlow, entities *workflow.EntityFlow) *ImportHandler {
	return &ImportHandler{products: products, entities: entities}
}

func readUpload(c *gin.Context, field string) (string, []byte, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, workflow.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, false
	}
	return file.Filename, data, true
}

func respondImportError(c *gin.Context, err error) {
	var verr *importer.ValidationError
	var verrs workflow.ValidationErrors
	switch {
	case errors.Is(err, workflow.ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error(), "errors": []string(verrs)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func summaryResponse(summary *models.ImportSummary) gin.H {
	errorsPreview := summary.Errors
	if len(errorsPreview) > previewLimit {
		errorsPreview = errorsPreview[:previewLimit]
	}
	warningsPreview := summary.Warnings
	if len(warningsPreview) > previewLimit {
		warningsPreview = warningsPreview[:previewLimit]
	}
	return gin.H{
		"success":         true,
		"summary":         summary,
		"errorsPreview":   errorsPreview,
		"warningsPreview": warningsPreview,
	}
}

func quantityMode(c *gin.Context) importer.QuantityMode {
	if c.PostForm("quantity_mode") == string(importer.ModeOverwrite) {
		return importer.ModeOverwrite
	}
	return importer.ModeMovement
}

// ImportProducts uploads a product file; rows matching existing products are
// parked for review and the response carries the review context instead of a
// summary.
// POST /api/v1/imports/products
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	filename, data, ok := readUpload(c, "file")
	if !ok {
		return
	}
	updateExisting, _ := strconv.ParseBool(c.PostForm("update_existing"))
	result, err := h.products.Upload(c.Request.Context(), filename, data, workflow.ProductUploadOptions{
		UpdateExisting: updateExisting,
		Mode:           quantityMode(c),
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		respondImportError(c, err)
		return
	}
	if result.Pending != nil {
		c.JSON(http.StatusAccepted, gin.H{"success": true, "pending": result.Pending})
		return
	}
	c.JSON(http.StatusOK, summaryResponse(result.Summary))
}

// ImportProductRow imports a single product built from form values.
// POST /api/v1/imports/products/row
func (h *ImportHandler) ImportProductRow(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.products.ImportSingle(c.Request.Context(), values, workflow.ProductUploadOptions{
		UpdateExisting: true,
		Mode:           importer.ModeMovement,
		Actor:          middleware.Actor(c),
	})
	if err != nil {
		respondImportError(c, err)
		return
	}
	if result.Pending != nil {
		c.JSON(http.StatusAccepted, gin.H{"success": true, "pending": result.Pending})
		return
	}
	c.JSON(http.StatusOK, summaryResponse(result.Summary))
}

// GetProductReview returns the match review for a pending product import.
// GET /api/v1/imports/products/:token
func (h *ImportHandler) GetProductReview(c *gin.Context) {
	review, err := h.products.Review(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pending": review})
}

type confirmRequest struct {
	Decisions map[int]workflow.ConfirmDecision `json:"decisions"`
}

// ConfirmProductImport resumes a pending product import with decisions.
// POST /api/v1/imports/products/:token/confirm
func (h *ImportHandler) ConfirmProductImport(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.products.Confirm(c.Request.Context(), c.Param("token"), req.Decisions)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse(summary))
}

// CancelProductImport drops a pending product import.
// POST /api/v1/imports/products/:token/cancel
func (h *ImportHandler) CancelProductImport(c *gin.Context) {
	if err := h.products.Cancel(c.Request.Context(), c.Param("token")); err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

var entityKinds = map[string]workflow.EntityKind{
	"locations":  workflow.EntityLocations,
	"categories": workflow.EntityCategories,
	"warehouses": workflow.EntityWarehouses,
	"contacts":   workflow.EntityContacts,
	"users":      workflow.EntityUsers,
}

// ImportEntities runs a single-step batch import for the named entity kind.
// POST /api/v1/imports/:kind
func (h *ImportHandler) ImportEntities(c *gin.Context) {
	kind, ok := entityKinds[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown import kind"})
		return
	}
	filename, data, uploaded := readUpload(c, "file")
	if !uploaded {
		return
	}
	summary, err := h.entities.ImportFile(c.Request.Context(), kind, filename, data)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse(summary))
}

// ImportEntityRow imports one entity row built from form values.
// POST /api/v1/imports/:kind/row
func (h *ImportHandler) ImportEntityRow(c *gin.Context) {
	kind, ok := entityKinds[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown import kind"})
		return
	}
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.entities.ImportSingle(c.Request.Context(), kind, values)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse(summary))
}
