package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wms-service/internal/importer"
	"wms-service/internal/middleware"
	"wms-service/internal/tabular"
	"wms-service/internal/workflow"
)

type ListingHandler struct {
	flow *workflow.ListingFlow
}

func NewListingHandler(flow *workflow.ListingFlow) *ListingHandler {
	return &ListingHandler{flow: flow}
}

// GetMappingFields returns the column-mapping vocabulary.
// GET /api/v1/receipts/listings/fields
func (h *ListingHandler) GetMappingFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "fields": workflow.ListingMappingFields})
}

func parseOptionalUUID(raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func parseOptionalDate(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// UploadListing starts a pallet-listing reception from a tabular file.
// POST /api/v1/receipts/listings
func (h *ListingHandler) UploadListing(c *gin.Context) {
	filename, data, ok := readUpload(c, "file")
	if !ok {
		return
	}

	sourceID, ok := parseOptionalUUID(c.PostForm("source_contact_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source contact id"})
		return
	}
	carrierID, ok := parseOptionalUUID(c.PostForm("carrier_contact_id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid carrier contact id"})
		return
	}
	receivedOn, ok := parseOptionalDate(c.PostForm("received_on"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid received_on date"})
		return
	}
	transportDate, ok := parseOptionalDate(c.PostForm("transport_request_date"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transport_request_date"})
		return
	}
	palletCount := 0
	if raw := c.PostForm("pallet_count"); raw != "" {
		parsed, err := importer.ParseInt(tabular.StringCell(raw))
		if err != nil || parsed == nil || *parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pallet count"})
			return
		}
		palletCount = *parsed
	}
	headerRow := 0
	if raw := c.PostForm("header_row"); raw != "" {
		parsed, err := importer.ParseInt(tabular.StringCell(raw))
		if err != nil || parsed == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid header row"})
			return
		}
		headerRow = *parsed
	}
	pageStart, pageEnd := 0, 0
	if raw := c.PostForm("pdf_page_start"); raw != "" {
		parsed, err := importer.ParseInt(tabular.StringCell(raw))
		if err != nil || parsed == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid PDF start page"})
			return
		}
		pageStart = *parsed
	}
	if raw := c.PostForm("pdf_page_end"); raw != "" {
		parsed, err := importer.ParseInt(tabular.StringCell(raw))
		if err != nil || parsed == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid PDF end page"})
			return
		}
		pageEnd = *parsed
	}

	result, err := h.flow.Upload(c.Request.Context(), data, workflow.ListingUploadOptions{
		Filename:  filename,
		SheetName: c.PostForm("sheet_name"),
		HeaderRow: headerRow,
		PDFMode:   c.DefaultPostForm("pdf_pages_mode", "all"),
		PageStart: pageStart,
		PageEnd:   pageEnd,
		Meta: importer.ReceiptMeta{
			SourceContactID:      sourceID,
			CarrierContactID:     carrierID,
			ReceivedOn:           receivedOn,
			PalletCount:          palletCount,
			TransportRequestDate: transportDate,
		},
		Actor: middleware.Actor(c),
	})
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "listing": result})
}

// GetListingColumns rebuilds the mapping screen for a pending listing.
// GET /api/v1/receipts/listings/:token/columns
func (h *ListingHandler) GetListingColumns(c *gin.Context) {
	columns, err := h.flow.Columns(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "columns": columns})
}

type mappingRequest struct {
	Mapping map[int]string `json:"mapping"`
}

// SubmitListingMapping stores column assignments and returns review rows.
// POST /api/v1/receipts/listings/:token/mapping
func (h *ListingHandler) SubmitListingMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := h.flow.SubmitMapping(c.Request.Context(), c.Param("token"), req.Mapping)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rows": rows})
}

// GetListingReview rebuilds the review rows for a pending listing.
// GET /api/v1/receipts/listings/:token/review
func (h *ListingHandler) GetListingReview(c *gin.Context) {
	rows, err := h.flow.Review(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rows": rows})
}

type listingConfirmRequest struct {
	Rows []importer.ListingRowPayload `json:"rows"`
}

// ConfirmListing receives the reviewed rows into stock under one receipt.
// POST /api/v1/receipts/listings/:token/confirm
func (h *ListingHandler) ConfirmListing(c *gin.Context) {
	var req listingConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.flow.Confirm(c.Request.Context(), c.Param("token"), req.Rows)
	if err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// CancelListing drops a pending listing.
// POST /api/v1/receipts/listings/:token/cancel
func (h *ListingHandler) CancelListing(c *gin.Context) {
	if err := h.flow.Cancel(c.Request.Context(), c.Param("token")); err != nil {
		respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
