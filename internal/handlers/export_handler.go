package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wms-service/internal/exports"
)

type ExportHandler struct {
	exporter *exports.Exporter
}

func NewExportHandler(exporter *exports.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// ExportEntities downloads the named entity export as semicolon CSV.
// GET /api/v1/exports/:kind
func (h *ExportHandler) ExportEntities(c *gin.Context) {
	file, err := h.exporter.Export(c.Request.Context(), c.Param("kind"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exports.ErrUnknownKind) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", file.Content)
}
