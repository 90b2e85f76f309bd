package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wms-service/internal/models"
)

// Lookup methods return (nil, nil) when no record matches; a non-nil error
// always means an infrastructure failure, never "not found".

// ProductStore is the catalog surface product imports need.
type ProductStore interface {
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ProductByCode(ctx context.Context, code string) (*models.Product, error)
	ProductsByNameBrand(ctx context.Context, name, brand string) ([]models.Product, error)
	ProductsWithSKU(ctx context.Context) ([]models.Product, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
	SKUExists(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	SaveProduct(ctx context.Context, p *models.Product) error
	ReplaceProductTags(ctx context.Context, p *models.Product, tags []models.ProductTag) error
}

// TaxonomyStore creates category tree nodes and tags lazily.
type TaxonomyStore interface {
	CategoryByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error)
	GetOrCreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*models.ProductCategory, error)
	GetOrCreateTag(ctx context.Context, name string) (*models.ProductTag, error)
}

// LocationStore resolves warehouses, storage slots and rack colors.
type LocationStore interface {
	WarehouseByName(ctx context.Context, name string) (*models.Warehouse, error)
	GetOrCreateWarehouse(ctx context.Context, name string) (*models.Warehouse, bool, error)
	SaveWarehouse(ctx context.Context, w *models.Warehouse) error
	GetOrCreateLocation(ctx context.Context, warehouseID uuid.UUID, zone, aisle, shelf string) (*models.Location, bool, error)
	SaveLocation(ctx context.Context, l *models.Location) error
	SetRackColor(ctx context.Context, warehouseID uuid.UUID, zone, color string) error
}

// ContactStore is the surface contact and destination imports need.
type ContactStore interface {
	ContactByNameType(ctx context.Context, name string, kind models.ContactType) (*models.Contact, error)
	ActiveContactByTagNames(ctx context.Context, names []string) (*models.Contact, error)
	CreateContact(ctx context.Context, c *models.Contact) error
	SaveContact(ctx context.Context, c *models.Contact) error
	GetOrCreateContactTag(ctx context.Context, name string) (*models.ContactTag, error)
	ContactTagsOf(ctx context.Context, c *models.Contact) ([]models.ContactTag, error)
	AddContactTags(ctx context.Context, c *models.Contact, tags []models.ContactTag) error
	FindContactAddress(ctx context.Context, contactID uuid.UUID, addr models.ContactAddress) (*models.ContactAddress, error)
	CreateContactAddress(ctx context.Context, a *models.ContactAddress) error
	SaveContactAddress(ctx context.Context, a *models.ContactAddress) error
	SetLinkedShippers(ctx context.Context, c *models.Contact, shippers []models.Contact) error
	DestinationByIATA(ctx context.Context, code string) (*models.Destination, error)
	DestinationByCity(ctx context.Context, city string) (*models.Destination, error)
	CreateDestination(ctx context.Context, d *models.Destination) error
	SaveDestination(ctx context.Context, d *models.Destination) error
	SetContactDestinations(ctx context.Context, c *models.Contact, dests []models.Destination) error
}

// UserStore is the surface user imports need.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SaveUser(ctx context.Context, u *models.User) error
}

// Ledger is the stock operations surface quantity reconciliation rides on.
// Implementations return errors with operator-readable messages; those are
// surfaced verbatim as row validation errors.
type Ledger interface {
	Receive(ctx context.Context, params ReceiveParams) (*models.ProductLot, error)
	Adjust(ctx context.Context, params AdjustParams) (*models.StockMovement, error)
	LotsByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductLot, error)
}

// ReceiveParams describes an inbound stock receipt.
type ReceiveParams struct {
	ProductID         uuid.UUID
	Quantity          int
	LocationID        uuid.UUID
	LotCode           string
	Status            models.ProductLotStatus
	ReasonCode        string
	SourceReceiptID   *uuid.UUID
	ExpiresOn         *time.Time
	StorageConditions string
	Actor             string
}

// AdjustParams describes a signed on-hand correction against one lot.
type AdjustParams struct {
	LotID       uuid.UUID
	Delta       int
	ReasonCode  string
	ReasonNotes string
	Actor       string
}

// Store bundles every persistence surface the importers touch.
type Store interface {
	ProductStore
	TaxonomyStore
	LocationStore
	ContactStore
	UserStore
}

// Transactor runs a function with a Store and Ledger bound to one database
// transaction. Confirm flows use it so a failed batch leaves nothing behind.
type Transactor interface {
	Transaction(ctx context.Context, fn func(store Store, ledger Ledger) error) error
}
