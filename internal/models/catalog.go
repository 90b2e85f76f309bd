package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCategory is a node in the category tree. Root names are stored
// upper-cased, deeper levels title-cased (see importer.NormalizeCategoryName).
type ProductCategory struct {
	Base
	Name     string           `gorm:"size:120;index:idx_category_parent_name,unique" json:"name"`
	ParentID *uuid.UUID       `gorm:"type:uuid;index:idx_category_parent_name,unique" json:"parentId"`
	Parent   *ProductCategory `gorm:"foreignKey:ParentID" json:"-"`
}

func (c *ProductCategory) Path() string {
	if c.Parent != nil {
		return c.Parent.Path() + " > " + c.Name
	}
	return c.Name
}

// ProductTag is a free-form label attached to products.
type ProductTag struct {
	Base
	Name string `gorm:"size:80;uniqueIndex" json:"name"`
}

// Warehouse groups locations under a human name and a short code.
type Warehouse struct {
	Base
	Name string `gorm:"size:120;uniqueIndex" json:"name"`
	Code string `gorm:"size:20" json:"code"`
}

// Location is one storage slot: warehouse / zone / aisle / shelf.
// Components are stored upper-cased.
type Location struct {
	Base
	WarehouseID uuid.UUID  `gorm:"type:uuid;index:idx_location_slot,unique" json:"warehouseId"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	Zone        string     `gorm:"size:40;index:idx_location_slot,unique" json:"zone"`
	Aisle       string     `gorm:"size:40;index:idx_location_slot,unique" json:"aisle"`
	Shelf       string     `gorm:"size:40;index:idx_location_slot,unique" json:"shelf"`
	Notes       string     `json:"notes"`
}

func (l *Location) Label() string {
	name := ""
	if l.Warehouse != nil {
		name = l.Warehouse.Name
	}
	return fmt.Sprintf("%s %s-%s-%s", name, l.Zone, l.Aisle, l.Shelf)
}

// RackColor assigns a display colour to every shelf of a warehouse zone.
type RackColor struct {
	Base
	WarehouseID uuid.UUID `gorm:"type:uuid;index:idx_rack_color_zone,unique" json:"warehouseId"`
	Zone        string    `gorm:"size:40;index:idx_rack_color_zone,unique" json:"zone"`
	Color       string    `gorm:"size:40" json:"color"`
}

// Product is a catalog entry. SKU is unique case-insensitively; a blank SKU
// is replaced by a generated one before the row is first persisted.
type Product struct {
	Base
	SKU   string `gorm:"size:40;uniqueIndex" json:"sku"`
	Name  string `gorm:"size:200" json:"name"`
	Brand string `gorm:"size:120" json:"brand"`
	Color string `gorm:"size:120" json:"color"`

	CategoryID *uuid.UUID       `gorm:"type:uuid" json:"categoryId"`
	Category   *ProductCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags       []ProductTag     `gorm:"many2many:product_tag_assignments" json:"tags,omitempty"`

	Barcode string `gorm:"size:80" json:"barcode"`
	EAN     string `gorm:"size:32" json:"ean"`

	UnitPriceHT *decimal.Decimal `gorm:"type:numeric(10,2)" json:"unitPriceHt"`
	VATRate     *decimal.Decimal `gorm:"type:numeric(6,4)" json:"vatRate"`
	UnitPriceTTC *decimal.Decimal `gorm:"type:numeric(10,2)" json:"unitPriceTtc"`

	DefaultLocationID *uuid.UUID `gorm:"type:uuid" json:"defaultLocationId"`
	DefaultLocation   *Location  `gorm:"foreignKey:DefaultLocationID" json:"defaultLocation,omitempty"`

	LengthCM *decimal.Decimal `gorm:"type:numeric(8,2)" json:"lengthCm"`
	WidthCM  *decimal.Decimal `gorm:"type:numeric(8,2)" json:"widthCm"`
	HeightCM *decimal.Decimal `gorm:"type:numeric(8,2)" json:"heightCm"`
	WeightG  *int             `json:"weightG"`
	VolumeCM3 *int            `json:"volumeCm3"`

	StorageConditions string `gorm:"size:200" json:"storageConditions"`
	Perishable        bool   `json:"perishable"`
	QuarantineDefault bool   `json:"quarantineDefault"`
	Notes             string `json:"notes"`
	PhotoPath         string `gorm:"size:300" json:"photoPath"`
}

// GenerateSKU returns a fresh SKU under the configured prefix.
func GenerateSKU(prefix string) string {
	if prefix == "" {
		prefix = "ASF"
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:8]))
}

// RefreshPriceTTC recomputes the tax-inclusive unit price. A VAT value above 1
// is read as a percentage. Must be called whenever price or VAT changes; the
// persistence layer never does this implicitly.
func (p *Product) RefreshPriceTTC() {
	if p.UnitPriceHT == nil || p.VATRate == nil {
		p.UnitPriceTTC = nil
		return
	}
	rate := *p.VATRate
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = rate.Div(decimal.NewFromInt(100)).Round(4)
	}
	ttc := p.UnitPriceHT.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
	p.UnitPriceTTC = &ttc
}
