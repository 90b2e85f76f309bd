package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wms-service/internal/repository"
	"wms-service/internal/stock"
)

type ProductsHandler struct {
	repo  *repository.CatalogRepository
	stock *stock.Service
}

func NewProductsHandler(repo *repository.CatalogRepository, stockService *stock.Service) *ProductsHandler {
	return &ProductsHandler{repo: repo, stock: stockService}
}

// GetProducts lists the catalog with categories, tags and default locations.
// GET /api/v1/products
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	products, err := h.repo.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products, "count": len(products)})
}

// GetProduct fetches one product.
// GET /api/v1/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}
	product, err := h.repo.ProductByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// ResolveProduct looks a scanned code up against barcode, EAN, SKU and name
// in that order.
// GET /api/v1/products/resolve?code=...
func (h *ProductsHandler) ResolveProduct(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code query parameter is required"})
		return
	}
	product, err := h.repo.ProductByCode(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found for " + code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// GetProductLots lists a product's stock lots oldest first.
// GET /api/v1/products/:id/lots
func (h *ProductsHandler) GetProductLots(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}
	lots, err := h.stock.LotsByProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	available, err := h.stock.AvailableQuantity(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lots": lots, "available": available})
}
