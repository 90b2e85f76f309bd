package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// Decision overrides automatic matching for one reviewed row.
type Decision struct {
	Action    string // "create" or "update"
	ProductID uuid.UUID
}

// RowOptions tune a single product row import.
type RowOptions struct {
	// BaseDir resolves relative photo paths.
	BaseDir string
	Mode    QuantityMode
	Actor   string
	// SkipQuantity creates or updates the product without touching stock,
	// for flows that apply quantities separately.
	SkipQuantity bool
}

// BatchOptions tune a product batch import.
type BatchOptions struct {
	RowOptions
	// Decisions maps row origins to reviewer decisions.
	Decisions map[int]Decision
	// CollectDistinct counts distinct products touched across the batch.
	CollectDistinct bool
}

// ProductImporter maps rows onto catalog products.
type ProductImporter struct {
	store  Store
	ledger Ledger
}

// NewProductImporter builds a product row importer over the given stores.
func NewProductImporter(store Store, ledger Ledger) *ProductImporter {
	return &ProductImporter{store: store, ledger: ledger}
}

type productValues struct {
	name              string
	sku               string
	brand             *string
	ean               *string
	barcode           *string
	color             *string
	notes             *string
	quantity          *int
	priceHT           *decimal.Decimal
	vatRate           *decimal.Decimal
	category          *models.ProductCategory
	categoryProvided  bool
	tags              []models.ProductTag
	tagsProvided      bool
	defaultLocation   *models.Location
	locationProvided  bool
	photoPath         string
	lengthCM          *decimal.Decimal
	widthCM           *decimal.Decimal
	heightCM          *decimal.Decimal
	weightG           *int
	volumeCM3         *int
	storageConditions *string
	perishable        *bool
	quarantineDefault *bool
}

func parseProductName(rec tabular.Record) (string, error) {
	name, ok := ParseStr(GetValue(rec, "name", "nom", "nom_produit", "produit"))
	if !ok {
		return "", Invalid("product name required")
	}
	return NormalizeTitle(name, nil), nil
}

func optStr(rec tabular.Record, keys ...string) *string {
	if s, ok := ParseStr(GetValue(rec, keys...)); ok {
		return &s
	}
	return nil
}

func (im *ProductImporter) parseValues(ctx context.Context, rec tabular.Record, baseDir string) (*productValues, error) {
	name, err := parseProductName(rec)
	if err != nil {
		return nil, err
	}

	v := &productValues{name: name}
	if sku, ok := ParseStr(GetValue(rec, "sku")); ok {
		v.sku = sku
	}
	if brand := optStr(rec, "brand", "marque"); brand != nil {
		up := NormalizeUpper(*brand)
		v.brand = &up
	}
	v.ean = optStr(rec, "ean")
	v.barcode = optStr(rec, "barcode", "code_barre", "codebarre")
	v.color = optStr(rec, "color", "couleur")
	v.notes = optStr(rec, "notes", "note")
	v.storageConditions = optStr(rec, "storage_conditions", "conditions_stockage")

	if v.quantity, err = ParseInt(GetValue(rec, "quantity", "quantite", "stock", "qty")); err != nil {
		return nil, err
	}
	if v.priceHT, err = ParseDecimal(GetValue(rec, "pu_ht", "price_ht", "unit_price_ht")); err != nil {
		return nil, err
	}
	if v.vatRate, err = ParseDecimal(GetValue(rec, "tva", "vat")); err != nil {
		return nil, err
	}
	if v.lengthCM, err = ParseDecimal(GetValue(rec, "length_cm", "longueur_cm")); err != nil {
		return nil, err
	}
	if v.widthCM, err = ParseDecimal(GetValue(rec, "width_cm", "largeur_cm")); err != nil {
		return nil, err
	}
	if v.heightCM, err = ParseDecimal(GetValue(rec, "height_cm", "hauteur_cm")); err != nil {
		return nil, err
	}
	if v.weightG, err = ParseInt(GetValue(rec, "weight_g", "poids_g")); err != nil {
		return nil, err
	}
	if v.volumeCM3, err = ParseInt(GetValue(rec, "volume_cm3")); err != nil {
		return nil, err
	}
	if v.volumeCM3 == nil {
		v.volumeCM3 = computeVolume(v.lengthCM, v.widthCM, v.heightCM)
	}

	if val, ok, err := ParseBool(GetValue(rec, "perishable", "perissable")); err != nil {
		return nil, err
	} else if ok {
		v.perishable = &val
	}
	if val, ok, err := ParseBool(GetValue(rec, "quarantine_default", "quarantaine_defaut")); err != nil {
		return nil, err
	} else if ok {
		v.quarantineDefault = &val
	}

	if v.categoryProvided, v.category, err = im.parseCategory(ctx, rec); err != nil {
		return nil, err
	}
	if v.tagsProvided, v.tags, err = im.parseTags(ctx, rec); err != nil {
		return nil, err
	}
	if v.locationProvided, v.defaultLocation, err = im.parseDefaultLocation(ctx, rec); err != nil {
		return nil, err
	}

	if photo := optStr(rec, "photo", "image", "photo_path", "image_path"); photo != nil {
		v.photoPath, err = resolvePhotoPath(*photo, baseDir)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (im *ProductImporter) parseCategory(ctx context.Context, rec tabular.Record) (bool, *models.ProductCategory, error) {
	parts := []*string{
		optStr(rec, "category_l1", "categorie_l1", "category_1", "categorie_1"),
		optStr(rec, "category_l2", "categorie_l2", "category_2", "categorie_2"),
		optStr(rec, "category_l3", "categorie_l3", "category_3", "categorie_3"),
		optStr(rec, "category_l4", "categorie_l4", "category_4", "categorie_4"),
	}
	var names []string
	provided := false
	for _, p := range parts {
		if p != nil {
			provided = true
			names = append(names, *p)
		}
	}
	if len(names) == 0 {
		return provided, nil, nil
	}
	cat, err := BuildCategoryPath(ctx, im.store, names)
	return provided, cat, err
}

func (im *ProductImporter) parseTags(ctx context.Context, rec tabular.Record) (bool, []models.ProductTag, error) {
	cell := GetValue(rec, "tags", "etiquettes", "etiquette")
	if _, ok := ParseStr(cell); !ok {
		return false, nil, nil
	}
	var tags []models.ProductTag
	for _, name := range ParseTokens(cell) {
		tag, err := im.store.GetOrCreateTag(ctx, name)
		if err != nil {
			return true, nil, err
		}
		tags = append(tags, *tag)
	}
	return true, tags, nil
}

func (im *ProductImporter) parseDefaultLocation(ctx context.Context, rec tabular.Record) (bool, *models.Location, error) {
	warehouse, _ := ParseStr(GetValue(rec, "warehouse", "entrepot"))
	zone, _ := ParseStr(GetValue(rec, "zone", "rack"))
	aisle, _ := ParseStr(GetValue(rec, "aisle", "etagere"))
	shelf, _ := ParseStr(GetValue(rec, "shelf", "bac", "emplacement"))

	loc, err := GetOrCreateLocation(ctx, im.store, warehouse, zone, aisle, shelf)
	if err != nil {
		return false, nil, err
	}
	if loc == nil {
		return false, nil, nil
	}
	if color, ok := ParseStr(GetValue(rec, "rack_color", "couleur_rack", "color_rack")); ok {
		if err := im.store.SetRackColor(ctx, loc.WarehouseID, loc.Zone, color); err != nil {
			return true, nil, err
		}
	}
	return true, loc, nil
}

func resolvePhotoPath(raw, baseDir string) (string, error) {
	path := raw
	if !filepath.IsAbs(path) {
		if baseDir == "" {
			return "", nil
		}
		path = filepath.Join(baseDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", Invalid("Photo not found: " + path)
	}
	return path, nil
}

func computeVolume(length, width, height *decimal.Decimal) *int {
	if length == nil || width == nil || height == nil {
		return nil
	}
	vol := int(length.Mul(*width).Mul(*height).Round(0).IntPart())
	return &vol
}

// ImportRow creates or updates one product from a parsed record. Optional
// fields missing from the row never blank out existing values; the tag set
// is replaced only when a tags column was present at all.
func (im *ProductImporter) ImportRow(ctx context.Context, rec tabular.Record, existing *models.Product, opts RowOptions) (*models.Product, bool, []string, error) {
	v, err := im.parseValues(ctx, rec, opts.BaseDir)
	if err != nil {
		return nil, false, nil, err
	}
	if existing == nil && v.sku != "" {
		taken, err := im.store.SKUExists(ctx, v.sku, nil)
		if err != nil {
			return nil, false, nil, err
		}
		if taken {
			return nil, false, nil, Invalid("SKU already in use")
		}
	}

	var warnings []string
	if existing == nil {
		product := &models.Product{Name: v.name, SKU: NormalizeUpper(v.sku)}
		if product.SKU == "" {
			product.SKU = models.GenerateSKU("")
		}
		applyOptionalFields(product, v, true)
		product.RefreshPriceTTC()
		if err := im.store.CreateProduct(ctx, product); err != nil {
			return nil, false, nil, err
		}
		if v.tagsProvided {
			if err := im.store.ReplaceProductTags(ctx, product, v.tags); err != nil {
				return nil, false, nil, err
			}
		}
		if !opts.SkipQuantity {
			loc := v.defaultLocation
			if !v.locationProvided {
				loc = nil
			}
			if err := applyQuantity(ctx, im.store, im.ledger, product, v.quantity, loc, opts.Mode, opts.Actor); err != nil {
				return nil, false, nil, err
			}
		}
		return product, true, warnings, nil
	}

	existing.Name = v.name
	if v.categoryProvided {
		if v.category != nil {
			existing.CategoryID = &v.category.ID
			existing.Category = v.category
		} else {
			existing.CategoryID = nil
			existing.Category = nil
		}
	}
	applyOptionalFields(existing, v, false)
	existing.RefreshPriceTTC()
	if err := im.store.SaveProduct(ctx, existing); err != nil {
		return nil, false, nil, err
	}
	if v.tagsProvided {
		if err := im.store.ReplaceProductTags(ctx, existing, v.tags); err != nil {
			return nil, false, nil, err
		}
	}
	if !opts.SkipQuantity {
		loc := v.defaultLocation
		if !v.locationProvided {
			loc = nil
		}
		if err := applyQuantity(ctx, im.store, im.ledger, existing, v.quantity, loc, opts.Mode, opts.Actor); err != nil {
			return nil, false, nil, err
		}
	}
	return existing, false, warnings, nil
}

// applyOptionalFields copies present values onto the product. On create the
// category is set when resolved; the update path handles category above to
// honor the provided-but-empty distinction.
func applyOptionalFields(p *models.Product, v *productValues, creating bool) {
	if creating && v.category != nil {
		p.CategoryID = &v.category.ID
		p.Category = v.category
	}
	if v.brand != nil {
		p.Brand = *v.brand
	}
	if v.ean != nil {
		p.EAN = *v.ean
	}
	if v.barcode != nil {
		p.Barcode = *v.barcode
	}
	if v.color != nil {
		p.Color = *v.color
	}
	if v.notes != nil {
		p.Notes = *v.notes
	}
	if v.priceHT != nil {
		p.UnitPriceHT = v.priceHT
	}
	if v.vatRate != nil {
		p.VATRate = v.vatRate
	}
	if v.locationProvided {
		p.DefaultLocationID = &v.defaultLocation.ID
		p.DefaultLocation = v.defaultLocation
	}
	if v.lengthCM != nil {
		p.LengthCM = v.lengthCM
	}
	if v.widthCM != nil {
		p.WidthCM = v.widthCM
	}
	if v.heightCM != nil {
		p.HeightCM = v.heightCM
	}
	if v.weightG != nil {
		p.WeightG = v.weightG
	}
	if v.volumeCM3 != nil {
		p.VolumeCM3 = v.volumeCM3
	}
	if v.storageConditions != nil {
		p.StorageConditions = *v.storageConditions
	}
	if v.perishable != nil {
		p.Perishable = *v.perishable
	}
	if v.quarantineDefault != nil {
		p.QuarantineDefault = *v.quarantineDefault
	}
	if v.photoPath != "" {
		p.PhotoPath = v.photoPath
	}
}

// ImportRows runs the product importer over every record, isolating row
// failures as "Row <n>: <message>" entries keyed by each record's origin.
func (im *ProductImporter) ImportRows(ctx context.Context, recs []tabular.Record, opts BatchOptions) (models.ImportSummary, error) {
	var summary models.ImportSummary
	distinct := make(map[uuid.UUID]bool)

	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}

		var existing *models.Product
		if decision, ok := opts.Decisions[rec.Origin]; ok {
			switch decision.Action {
			case "update":
				p, err := im.store.ProductByID(ctx, decision.ProductID)
				if err != nil {
					return summary, err
				}
				if p == nil {
					summary.AddError(fmt.Sprintf("Row %d: target product not found", rec.Origin))
					continue
				}
				existing = p
			case "create":
				if sku, ok := ParseStr(GetValue(rec, "sku")); ok {
					taken, err := im.store.SKUExists(ctx, sku, nil)
					if err != nil {
						return summary, err
					}
					if taken {
						rec = blankSKU(rec)
						summary.AddWarning(fmt.Sprintf("Row %d: SKU %s already in use, SKU auto-generated", rec.Origin, sku))
					}
				}
			}
		}

		product, created, rowWarnings, err := im.ImportRow(ctx, rec, existing, opts.RowOptions)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				summary.AddError(fmt.Sprintf("Row %d: %s", rec.Origin, verr.Message))
				continue
			}
			return summary, err
		}
		summary.Warnings = append(summary.Warnings, rowWarnings...)
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
		if opts.CollectDistinct {
			distinct[product.ID] = true
		}
	}

	if opts.CollectDistinct {
		summary.DistinctProducts = len(distinct)
	}
	return summary, nil
}

func recordIsEmpty(rec tabular.Record) bool {
	for _, c := range rec.Cells {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

func blankSKU(rec tabular.Record) tabular.Record {
	cells := make(map[string]tabular.Cell, len(rec.Cells))
	for k, v := range rec.Cells {
		cells[k] = v
	}
	cells["sku"] = tabular.StringCell("")
	return tabular.Record{Origin: rec.Origin, Cells: cells}
}
