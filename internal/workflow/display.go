package workflow

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wms-service/internal/importer"
	"wms-service/internal/models"
)

const categoryMaxLevels = 4

// CategoryLevels flattens a product's category chain into fixed root-first
// levels, padding with blanks up to four.
func CategoryLevels(ctx context.Context, store importer.TaxonomyStore, categoryID *uuid.UUID) ([]string, error) {
	levels := make([]string, 0, categoryMaxLevels)
	id := categoryID
	for id != nil {
		cat, err := store.CategoryByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			break
		}
		levels = append(levels, cat.Name)
		id = cat.ParentID
	}
	// The chain was collected leaf-first.
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	if len(levels) > categoryMaxLevels {
		levels = levels[:categoryMaxLevels]
	}
	for len(levels) < categoryMaxLevels {
		levels = append(levels, "")
	}
	return levels, nil
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func yesNo(v bool) string {
	if v {
		return "Oui"
	}
	return "Non"
}

// BuildProductDisplay renders a catalog product as the flat field map used by
// review screens, with the same field names as mapped listing columns.
func BuildProductDisplay(ctx context.Context, store importer.Store, p *models.Product) (map[string]string, error) {
	levels, err := CategoryLevels(ctx, store, p.CategoryID)
	if err != nil {
		return nil, err
	}
	tagNames := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		tagNames = append(tagNames, tag.Name)
	}
	display := map[string]string{
		"id":                 p.ID.String(),
		"sku":                p.SKU,
		"name":               p.Name,
		"brand":              p.Brand,
		"color":              p.Color,
		"category_l1":        levels[0],
		"category_l2":        levels[1],
		"category_l3":        levels[2],
		"category_l4":        levels[3],
		"barcode":            p.Barcode,
		"ean":                p.EAN,
		"tags":               strings.Join(tagNames, " | "),
		"pu_ht":              decimalString(p.UnitPriceHT),
		"tva":                decimalString(p.VATRate),
		"length_cm":          decimalString(p.LengthCM),
		"width_cm":           decimalString(p.WidthCM),
		"height_cm":          decimalString(p.HeightCM),
		"weight_g":           intString(p.WeightG),
		"volume_cm3":         intString(p.VolumeCM3),
		"storage_conditions": p.StorageConditions,
		"perishable":         yesNo(p.Perishable),
		"quarantine_default": yesNo(p.QuarantineDefault),
		"notes":              p.Notes,
	}
	if loc := p.DefaultLocation; loc != nil {
		if loc.Warehouse != nil {
			display["warehouse"] = loc.Warehouse.Name
		} else {
			display["warehouse"] = ""
		}
		display["zone"] = loc.Zone
		display["aisle"] = loc.Aisle
		display["shelf"] = loc.Shelf
	} else {
		display["warehouse"] = ""
		display["zone"] = ""
		display["aisle"] = ""
		display["shelf"] = ""
	}
	return display, nil
}

// AvailableStock sums available quantities over a product's AVAILABLE lots.
func AvailableStock(ctx context.Context, ledger importer.Ledger, productID uuid.UUID) (int, error) {
	lots, err := ledger.LotsByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, lot := range lots {
		if lot.Status == models.LotAvailable {
			total += lot.Available()
		}
	}
	return total, nil
}
