// Package exports renders catalog entities as semicolon-separated CSV files
// whose columns round-trip through the importers: a file exported here can
// be re-imported unchanged.
package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wms-service/internal/models"
)

// Catalog supplies the entity listings the exporters render.
type Catalog interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListCategories(ctx context.Context) ([]models.ProductCategory, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)
	ListContacts(ctx context.Context) ([]models.Contact, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListRackColors(ctx context.Context) ([]models.RackColor, error)
	AvailableStockTotals(ctx context.Context) (map[uuid.UUID]int, error)
}

// File is one rendered export.
type File struct {
	Name    string
	Content []byte
}

// Exporter renders the CSV exports.
type Exporter struct {
	catalog Catalog
}

func NewExporter(catalog Catalog) *Exporter {
	return &Exporter{catalog: catalog}
}

// Export renders the named entity export. Known kinds are products,
// locations, categories, warehouses, contacts and users.
func (e *Exporter) Export(ctx context.Context, kind string) (*File, error) {
	switch kind {
	case "products":
		return e.Products(ctx)
	case "locations":
		return e.Locations(ctx)
	case "categories":
		return e.Categories(ctx)
	case "warehouses":
		return e.Warehouses(ctx)
	case "contacts":
		return e.Contacts(ctx)
	case "users":
		return e.Users(ctx)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// ErrUnknownKind is returned for export kinds the exporter does not know.
var ErrUnknownKind = errors.New("unknown export kind")

// buildCSV writes semicolon-separated rows behind a UTF-8 BOM so
// spreadsheet tools pick up both the delimiter and the encoding.
func buildCSV(name string, header []string, rows [][]string) (*File, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &File{Name: name, Content: buf.Bytes()}, nil
}

func boolCSV(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func decimalCSV(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func intCSV(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

// categoryLevels flattens a category chain root-first into four levels,
// resolving parents through the byID map when preloads stop short.
func categoryLevels(cat *models.ProductCategory, byID map[uuid.UUID]*models.ProductCategory) [4]string {
	var levels [4]string
	var chain []string
	for cat != nil {
		chain = append(chain, cat.Name)
		switch {
		case cat.Parent != nil:
			cat = cat.Parent
		case cat.ParentID != nil:
			cat = byID[*cat.ParentID]
		default:
			cat = nil
		}
	}
	for i, j := 0, len(chain)-1; i < len(levels) && j >= 0; i, j = i+1, j-1 {
		levels[i] = chain[j]
	}
	return levels
}

func sortedTagNames(tags []models.ProductTag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

var productHeader = []string{
	"sku", "nom", "marque", "couleur",
	"category_l1", "category_l2", "category_l3", "category_l4",
	"tags", "entrepot", "rack", "etagere", "bac", "rack_color",
	"barcode", "ean", "pu_ht", "tva", "pu_ttc",
	"length_cm", "width_cm", "height_cm", "weight_g", "volume_cm3",
	"quantity", "storage_conditions", "perishable", "quarantine_default",
	"notes", "photo",
}

func (e *Exporter) Products(ctx context.Context) (*File, error) {
	products, err := e.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	categoriesByID := make(map[uuid.UUID]*models.ProductCategory, len(categories))
	for i := range categories {
		categoriesByID[categories[i].ID] = &categories[i]
	}
	rackColors, err := e.rackColorIndex(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := e.catalog.AvailableStockTotals(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(products))
	for i := range products {
		p := &products[i]
		levels := categoryLevels(p.Category, categoriesByID)
		warehouse, zone, aisle, shelf, rackColor := "", "", "", "", ""
		if loc := p.DefaultLocation; loc != nil {
			if loc.Warehouse != nil {
				warehouse = loc.Warehouse.Name
			}
			zone, aisle, shelf = loc.Zone, loc.Aisle, loc.Shelf
			rackColor = rackColors[rackColorKey(loc.WarehouseID, loc.Zone)]
		}
		quantity := ""
		if total := totals[p.ID]; total > 0 {
			quantity = fmt.Sprintf("%d", total)
		}
		rows = append(rows, []string{
			p.SKU, p.Name, p.Brand, p.Color,
			levels[0], levels[1], levels[2], levels[3],
			sortedTagNames(p.Tags), warehouse, zone, aisle, shelf, rackColor,
			p.Barcode, p.EAN,
			decimalCSV(p.UnitPriceHT), decimalCSV(p.VATRate), decimalCSV(p.UnitPriceTTC),
			decimalCSV(p.LengthCM), decimalCSV(p.WidthCM), decimalCSV(p.HeightCM),
			intCSV(p.WeightG), intCSV(p.VolumeCM3),
			quantity, p.StorageConditions,
			boolCSV(p.Perishable), boolCSV(p.QuarantineDefault),
			p.Notes, p.PhotoPath,
		})
	}
	return buildCSV("products_export.csv", productHeader, rows)
}

func (e *Exporter) Locations(ctx context.Context) (*File, error) {
	locations, err := e.catalog.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	rackColors, err := e.rackColorIndex(ctx)
	if err != nil {
		return nil, err
	}
	header := []string{"entrepot", "rack", "etagere", "bac", "notes", "rack_color"}
	rows := make([][]string, 0, len(locations))
	for i := range locations {
		loc := &locations[i]
		warehouse := ""
		if loc.Warehouse != nil {
			warehouse = loc.Warehouse.Name
		}
		rows = append(rows, []string{
			warehouse, loc.Zone, loc.Aisle, loc.Shelf,
			loc.Notes, rackColors[rackColorKey(loc.WarehouseID, loc.Zone)],
		})
	}
	return buildCSV("locations_export.csv", header, rows)
}

func (e *Exporter) Categories(ctx context.Context) (*File, error) {
	categories, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	header := []string{"name", "parent"}
	rows := make([][]string, 0, len(categories))
	for i := range categories {
		parent := ""
		if categories[i].Parent != nil {
			parent = categories[i].Parent.Name
		}
		rows = append(rows, []string{categories[i].Name, parent})
	}
	return buildCSV("categories_export.csv", header, rows)
}

func (e *Exporter) Warehouses(ctx context.Context) (*File, error) {
	warehouses, err := e.catalog.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	header := []string{"name", "code"}
	rows := make([][]string, 0, len(warehouses))
	for i := range warehouses {
		rows = append(rows, []string{warehouses[i].Name, warehouses[i].Code})
	}
	return buildCSV("warehouses_export.csv", header, rows)
}

var contactHeader = []string{
	"contact_type", "title", "first_name", "last_name", "name",
	"organization", "role", "email", "email2", "phone", "phone2",
	"use_organization_address", "tags", "destination",
	"siret", "vat_number", "legal_registration_number", "external_ref",
	"address_label", "address_line1", "address_line2", "postal_code",
	"city", "region", "country", "address_phone", "address_email",
	"notes",
}

func (e *Exporter) Contacts(ctx context.Context) (*File, error) {
	contacts, err := e.catalog.ListContacts(ctx)
	if err != nil {
		return nil, err
	}
	namesByID := make(map[uuid.UUID]string, len(contacts))
	for i := range contacts {
		namesByID[contacts[i].ID] = contacts[i].Name
	}

	var rows [][]string
	for i := range contacts {
		c := &contacts[i]
		tagNames := make([]string, 0, len(c.Tags))
		for _, tag := range c.Tags {
			tagNames = append(tagNames, tag.Name)
		}
		sort.Strings(tagNames)
		organization := ""
		if c.OrganizationID != nil {
			organization = namesByID[*c.OrganizationID]
		}
		destination := ""
		if c.DestinationID != nil {
			for j := range c.Destinations {
				if c.Destinations[j].ID == *c.DestinationID {
					destination = c.Destinations[j].Label()
					break
				}
			}
		}
		if destination == "" && len(c.Destinations) > 0 {
			destination = c.Destinations[0].Label()
		}
		base := []string{
			string(c.ContactType), c.Title, c.FirstName, c.LastName, c.Name,
			organization, c.Role, c.Email, c.Email2, c.Phone, c.Phone2,
			boolCSV(c.UseOrganizationAddress), strings.Join(tagNames, "|"), destination,
			c.SIRET, c.VATNumber, c.LegalRegistrationNumber, c.ExternalRef,
		}
		if len(c.Addresses) == 0 {
			rows = append(rows, append(append([]string{}, base...),
				"", "", "", "", "", "", "", "", "", c.Notes))
			continue
		}
		for j := range c.Addresses {
			a := &c.Addresses[j]
			rows = append(rows, append(append([]string{}, base...),
				a.Label, a.Line1, a.Line2, a.PostalCode,
				a.City, a.Region, a.Country, a.Phone, a.Email,
				c.Notes))
		}
	}
	return buildCSV("contacts_export.csv", contactHeader, rows)
}

func (e *Exporter) Users(ctx context.Context) (*File, error) {
	users, err := e.catalog.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	header := []string{
		"username", "email", "first_name", "last_name",
		"is_staff", "is_superuser", "is_active", "password",
	}
	rows := make([][]string, 0, len(users))
	for i := range users {
		u := &users[i]
		// Password hashes never leave the system; the column stays so the
		// file keeps its import shape.
		rows = append(rows, []string{
			u.Username, u.Email, u.FirstName, u.LastName,
			boolCSV(u.IsStaff), boolCSV(u.IsSuperuser), boolCSV(u.IsActive), "",
		})
	}
	return buildCSV("users_export.csv", header, rows)
}

func rackColorKey(warehouseID uuid.UUID, zone string) string {
	return warehouseID.String() + "|" + zone
}

func (e *Exporter) rackColorIndex(ctx context.Context) (map[string]string, error) {
	colors, err := e.catalog.ListRackColors(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(colors))
	for _, rc := range colors {
		index[rackColorKey(rc.WarehouseID, rc.Zone)] = rc.Color
	}
	return index, nil
}
