package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// memStore is an in-memory Store used by the importer tests. Lookups follow
// the same case-insensitive rules as the real repository.
type memStore struct {
	products     []*models.Product
	categories   []*models.ProductCategory
	tags         []*models.ProductTag
	warehouses   []*models.Warehouse
	locations    []*models.Location
	rackColors   map[string]string
	contacts     []*models.Contact
	contactTags  []*models.ContactTag
	addresses    []*models.ContactAddress
	destinations []*models.Destination
	users        []*models.User
}

func newMemStore() *memStore {
	return &memStore{rackColors: make(map[string]string)}
}

func (m *memStore) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) ProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	for _, p := range m.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) ProductByCode(ctx context.Context, code string) (*models.Product, error) {
	for _, p := range m.products {
		if strings.EqualFold(p.SKU, code) || p.Barcode == code || p.EAN == code {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) ProductsByNameBrand(ctx context.Context, name, brand string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		if strings.EqualFold(p.Name, name) && strings.EqualFold(p.Brand, brand) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ProductsWithSKU(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range m.products {
		if p.SKU != "" {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) AllProducts(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) SKUExists(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error) {
	for _, p := range m.products {
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		if strings.EqualFold(p.SKU, sku) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.EnsureID()
	m.products = append(m.products, p)
	return nil
}

func (m *memStore) SaveProduct(ctx context.Context, p *models.Product) error {
	for i, existing := range m.products {
		if existing.ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	m.products = append(m.products, p)
	return nil
}

func (m *memStore) ReplaceProductTags(ctx context.Context, p *models.Product, tags []models.ProductTag) error {
	p.Tags = tags
	return nil
}

func (m *memStore) CategoryByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetOrCreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*models.ProductCategory, error) {
	for _, c := range m.categories {
		if c.Name == name && uuidPtrEqual(c.ParentID, parentID) {
			return c, nil
		}
	}
	c := &models.ProductCategory{Name: name, ParentID: parentID}
	c.EnsureID()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memStore) GetOrCreateTag(ctx context.Context, name string) (*models.ProductTag, error) {
	for _, t := range m.tags {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	t := &models.ProductTag{Name: name}
	t.EnsureID()
	m.tags = append(m.tags, t)
	return t, nil
}

func (m *memStore) WarehouseByName(ctx context.Context, name string) (*models.Warehouse, error) {
	for _, w := range m.warehouses {
		if strings.EqualFold(w.Name, name) {
			return w, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetOrCreateWarehouse(ctx context.Context, name string) (*models.Warehouse, bool, error) {
	if w, _ := m.WarehouseByName(ctx, name); w != nil {
		return w, false, nil
	}
	w := &models.Warehouse{Name: name}
	w.EnsureID()
	m.warehouses = append(m.warehouses, w)
	return w, true, nil
}

func (m *memStore) SaveWarehouse(ctx context.Context, w *models.Warehouse) error {
	return nil
}

func (m *memStore) GetOrCreateLocation(ctx context.Context, warehouseID uuid.UUID, zone, aisle, shelf string) (*models.Location, bool, error) {
	for _, l := range m.locations {
		if l.WarehouseID == warehouseID && l.Zone == zone && l.Aisle == aisle && l.Shelf == shelf {
			return l, false, nil
		}
	}
	l := &models.Location{WarehouseID: warehouseID, Zone: zone, Aisle: aisle, Shelf: shelf}
	l.EnsureID()
	m.locations = append(m.locations, l)
	return l, true, nil
}

func (m *memStore) SaveLocation(ctx context.Context, l *models.Location) error {
	return nil
}

func (m *memStore) SetRackColor(ctx context.Context, warehouseID uuid.UUID, zone, color string) error {
	m.rackColors[warehouseID.String()+"|"+zone] = color
	return nil
}

func (m *memStore) ContactByNameType(ctx context.Context, name string, kind models.ContactType) (*models.Contact, error) {
	for _, c := range m.contacts {
		if strings.EqualFold(c.Name, name) && c.ContactType == kind {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) ActiveContactByTagNames(ctx context.Context, names []string) (*models.Contact, error) {
	for _, c := range m.contacts {
		if !c.IsActive {
			continue
		}
		for _, tag := range c.Tags {
			for _, want := range names {
				if strings.EqualFold(tag.Name, want) {
					return c, nil
				}
			}
		}
	}
	return nil, nil
}

func (m *memStore) CreateContact(ctx context.Context, c *models.Contact) error {
	c.EnsureID()
	m.contacts = append(m.contacts, c)
	return nil
}

func (m *memStore) SaveContact(ctx context.Context, c *models.Contact) error {
	return nil
}

func (m *memStore) GetOrCreateContactTag(ctx context.Context, name string) (*models.ContactTag, error) {
	for _, t := range m.contactTags {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	t := &models.ContactTag{Name: name}
	t.EnsureID()
	m.contactTags = append(m.contactTags, t)
	return t, nil
}

func (m *memStore) ContactTagsOf(ctx context.Context, c *models.Contact) ([]models.ContactTag, error) {
	return c.Tags, nil
}

func (m *memStore) AddContactTags(ctx context.Context, c *models.Contact, tags []models.ContactTag) error {
	c.Tags = append(c.Tags, tags...)
	return nil
}

func (m *memStore) FindContactAddress(ctx context.Context, contactID uuid.UUID, addr models.ContactAddress) (*models.ContactAddress, error) {
	for _, a := range m.addresses {
		if a.ContactID == contactID && a.Line1 == addr.Line1 && a.Line2 == addr.Line2 &&
			a.PostalCode == addr.PostalCode && a.City == addr.City && a.Country == addr.Country {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateContactAddress(ctx context.Context, a *models.ContactAddress) error {
	a.EnsureID()
	m.addresses = append(m.addresses, a)
	return nil
}

func (m *memStore) SaveContactAddress(ctx context.Context, a *models.ContactAddress) error {
	return nil
}

func (m *memStore) SetLinkedShippers(ctx context.Context, c *models.Contact, shippers []models.Contact) error {
	c.LinkedShippers = shippers
	return nil
}

func (m *memStore) DestinationByIATA(ctx context.Context, code string) (*models.Destination, error) {
	for _, d := range m.destinations {
		if strings.EqualFold(d.IATACode, code) {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memStore) DestinationByCity(ctx context.Context, city string) (*models.Destination, error) {
	for _, d := range m.destinations {
		if strings.EqualFold(d.City, city) {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateDestination(ctx context.Context, d *models.Destination) error {
	d.EnsureID()
	m.destinations = append(m.destinations, d)
	return nil
}

func (m *memStore) SaveDestination(ctx context.Context, d *models.Destination) error {
	return nil
}

func (m *memStore) SetContactDestinations(ctx context.Context, c *models.Contact, dests []models.Destination) error {
	c.Destinations = dests
	if len(dests) == 1 {
		c.DestinationID = &dests[0].ID
	} else {
		c.DestinationID = nil
	}
	return nil
}

func (m *memStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	u.EnsureID()
	m.users = append(m.users, u)
	return nil
}

func (m *memStore) SaveUser(ctx context.Context, u *models.User) error {
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// memLedger is an in-memory Ledger and ReceiptLedger with the same guards as
// the stock service: adjustments cannot take on-hand below reservations.
type memLedger struct {
	lots      []*models.ProductLot
	movements []models.StockMovement
}

func (l *memLedger) Receive(ctx context.Context, params ReceiveParams) (*models.ProductLot, error) {
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	lot := &models.ProductLot{
		ProductID:         params.ProductID,
		LotCode:           params.LotCode,
		Status:            params.Status,
		QuantityOnHand:    params.Quantity,
		LocationID:        params.LocationID,
		SourceReceiptID:   params.SourceReceiptID,
		ExpiresOn:         params.ExpiresOn,
		StorageConditions: params.StorageConditions,
	}
	lot.EnsureID()
	l.lots = append(l.lots, lot)
	l.movements = append(l.movements, models.StockMovement{
		MovementType: models.MovementIn,
		ProductID:    params.ProductID,
		ProductLotID: &lot.ID,
		Quantity:     params.Quantity,
		ReasonCode:   params.ReasonCode,
		CreatedBy:    params.Actor,
	})
	return lot, nil
}

func (l *memLedger) Adjust(ctx context.Context, params AdjustParams) (*models.StockMovement, error) {
	for _, lot := range l.lots {
		if lot.ID != params.LotID {
			continue
		}
		next := lot.QuantityOnHand + params.Delta
		if next < lot.QuantityReserved {
			return nil, fmt.Errorf("adjustment would take on-hand below reserved quantity")
		}
		lot.QuantityOnHand = next
		mv := models.StockMovement{
			MovementType: models.MovementAdjust,
			ProductID:    lot.ProductID,
			ProductLotID: &lot.ID,
			Quantity:     params.Delta,
			ReasonCode:   params.ReasonCode,
			CreatedBy:    params.Actor,
		}
		l.movements = append(l.movements, mv)
		return &mv, nil
	}
	return nil, fmt.Errorf("lot not found")
}

func (l *memLedger) LotsByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductLot, error) {
	var out []models.ProductLot
	for _, lot := range l.lots {
		if lot.ProductID == productID {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (l *memLedger) ReceiveReceiptLine(ctx context.Context, line *models.ReceiptLine, actor string) (*models.ProductLot, error) {
	locationID := uuid.Nil
	if line.LocationID != nil {
		locationID = *line.LocationID
	}
	status := line.LotStatus
	if status == "" {
		status = models.LotAvailable
	}
	lot, err := l.Receive(ctx, ReceiveParams{
		ProductID:         line.ProductID,
		Quantity:          line.Quantity,
		LocationID:        locationID,
		LotCode:           line.LotCode,
		Status:            status,
		ReasonCode:        "receipt_line",
		SourceReceiptID:   &line.ReceiptID,
		ExpiresOn:         line.ExpiresOn,
		StorageConditions: line.StorageConditions,
		Actor:             actor,
	})
	if err != nil {
		return nil, err
	}
	line.ReceivedLotID = &lot.ID
	return lot, nil
}

func (l *memLedger) onHand(productID uuid.UUID) int {
	total := 0
	for _, lot := range l.lots {
		if lot.ProductID == productID {
			total += lot.QuantityOnHand
		}
	}
	return total
}

// memReceipts is an in-memory ReceiptStore.
type memReceipts struct {
	receipts []*models.Receipt
	lines    []*models.ReceiptLine
}

func (m *memReceipts) CreateReceipt(ctx context.Context, r *models.Receipt) error {
	r.EnsureID()
	m.receipts = append(m.receipts, r)
	return nil
}

func (m *memReceipts) CreateReceiptLine(ctx context.Context, line *models.ReceiptLine) error {
	line.EnsureID()
	m.lines = append(m.lines, line)
	return nil
}

// rec builds a record with string cells keyed by normalized headers, the way
// file rows arrive after extraction.
func rec(origin int, values map[string]string) tabular.Record {
	cells := make(map[string]tabular.Cell, len(values))
	for k, v := range values {
		cells[k] = tabular.StringCell(v)
	}
	return tabular.Record{Origin: origin, Cells: cells}
}
