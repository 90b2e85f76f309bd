package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wms-service/internal/importer"
	"wms-service/internal/middleware"
	"wms-service/internal/models"
	"wms-service/internal/repository"
	"wms-service/internal/stock"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("lotstatus", func(fl validator.FieldLevel) bool {
			switch models.ProductLotStatus(fl.Field().String()) {
			case models.LotAvailable, models.LotQuarantined, models.LotHold, models.LotExpired:
				return true
			}
			return false
		})
	}
}

type StockHandler struct {
	repo  *repository.CatalogRepository
	stock *stock.Service
}

func NewStockHandler(repo *repository.CatalogRepository, stockService *stock.Service) *StockHandler {
	return &StockHandler{repo: repo, stock: stockService}
}

func respondStockError(c *gin.Context, err error) {
	var serr *stock.Error
	if errors.As(err, &serr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type receiveRequest struct {
	ProductID         uuid.UUID  `json:"productId" binding:"required"`
	Quantity          int        `json:"quantity" binding:"required"`
	LocationID        uuid.UUID  `json:"locationId" binding:"required"`
	LotCode           string     `json:"lotCode"`
	Status            string     `json:"status" binding:"omitempty,lotstatus"`
	ExpiresOn         *time.Time `json:"expiresOn"`
	StorageConditions string     `json:"storageConditions"`
}

// ReceiveStock creates a lot and its IN movement.
// POST /api/v1/stock/receive
func (h *StockHandler) ReceiveStock(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := models.LotAvailable
	if req.Status != "" {
		status = models.ProductLotStatus(req.Status)
	}
	lot, err := h.stock.Receive(c.Request.Context(), importer.ReceiveParams{
		ProductID:         req.ProductID,
		Quantity:          req.Quantity,
		LocationID:        req.LocationID,
		LotCode:           req.LotCode,
		Status:            status,
		ReasonCode:        "receive",
		ExpiresOn:         req.ExpiresOn,
		StorageConditions: req.StorageConditions,
		Actor:             middleware.Actor(c),
	})
	if err != nil {
		respondStockError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "lot": lot})
}

type adjustRequest struct {
	LotID       uuid.UUID `json:"lotId" binding:"required"`
	Delta       int       `json:"delta" binding:"required"`
	ReasonCode  string    `json:"reasonCode"`
	ReasonNotes string    `json:"reasonNotes"`
}

// AdjustStock applies a signed quantity delta to a lot.
// POST /api/v1/stock/adjust
func (h *StockHandler) AdjustStock(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	movement, err := h.stock.Adjust(c.Request.Context(), importer.AdjustParams{
		LotID:       req.LotID,
		Delta:       req.Delta,
		ReasonCode:  req.ReasonCode,
		ReasonNotes: req.ReasonNotes,
		Actor:       middleware.Actor(c),
	})
	if err != nil {
		respondStockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "movement": movement})
}

type transferRequest struct {
	LotID        uuid.UUID `json:"lotId" binding:"required"`
	ToLocationID uuid.UUID `json:"toLocationId" binding:"required"`
}

// TransferStock moves a lot to another location.
// POST /api/v1/stock/transfer
func (h *StockHandler) TransferStock(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lot, err := h.stock.Transfer(c.Request.Context(), req.LotID, req.ToLocationID, middleware.Actor(c))
	if err != nil {
		respondStockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lot": lot})
}

// GetReceipts lists receipts newest first.
// GET /api/v1/receipts
func (h *StockHandler) GetReceipts(c *gin.Context) {
	receipts, err := h.repo.ListReceipts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "receipts": receipts, "count": len(receipts)})
}

// GetReceipt fetches one receipt with its lines.
// GET /api/v1/receipts/:id
func (h *StockHandler) GetReceipt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt ID"})
		return
	}
	receipt, err := h.repo.ReceiptByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if receipt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "receipt": receipt})
}

// ReceiveReceiptLine receives one receipt line into stock. The receipt flips
// to RECEIVED once its last line is processed.
// POST /api/v1/receipts/:id/lines/:lineId/receive
func (h *StockHandler) ReceiveReceiptLine(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt ID"})
		return
	}
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt line ID"})
		return
	}
	line, err := h.repo.ReceiptLineByID(c.Request.Context(), lineID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if line == nil || line.ReceiptID != receiptID {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt line not found"})
		return
	}
	lot, err := h.stock.ReceiveReceiptLine(c.Request.Context(), line, middleware.Actor(c))
	if err != nil {
		respondStockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lot": lot, "line": line})
}
