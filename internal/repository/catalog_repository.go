package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"wms-service/internal/importer"
	"wms-service/internal/models"
	"wms-service/internal/stock"
)

// Cache TTL constants
const (
	productCacheTTL  = 5 * time.Minute
	taxonomyCacheTTL = 30 * time.Minute // categories and tags rarely change
)

const cachePrefix = "wms:catalog:"

// CatalogRepository persists catalog, contact and user entities with a
// Redis read-through cache for hot product lookups.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogRepository(db *gorm.DB, rdb *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: rdb}
}

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Warehouse{},
		&models.Location{},
		&models.RackColor{},
		&models.ProductCategory{},
		&models.ProductTag{},
		&models.Product{},
		&models.ProductLot{},
		&models.StockMovement{},
		&models.ContactTag{},
		&models.Contact{},
		&models.ContactAddress{},
		&models.Destination{},
		&models.Receipt{},
		&models.ReceiptLine{},
		&models.User{},
	)
}

// Transaction runs fn with a store and ledger bound to one database
// transaction.
func (r *CatalogRepository) Transaction(ctx context.Context, fn func(store importer.Store, ledger importer.Ledger) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.withTx(tx), stock.NewService(tx))
	})
}

// TransactionReceipts is Transaction with the receipt surface pallet
// confirms need.
func (r *CatalogRepository) TransactionReceipts(ctx context.Context, fn func(store importer.Store, receipts importer.ReceiptStore, ledger importer.ReceiptLedger) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound := r.withTx(tx)
		return fn(bound, bound, stock.NewService(tx))
	})
}

func (r *CatalogRepository) withTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: tx, redis: r.redis}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (r *CatalogRepository) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if r.redis == nil {
		return false
	}
	val, err := r.redis.Get(ctx, cachePrefix+key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dst) == nil
}

func (r *CatalogRepository) cacheSet(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if r.redis == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		r.redis.Set(ctx, cachePrefix+key, data, ttl)
	}
}

func (r *CatalogRepository) invalidateProduct(ctx context.Context, p *models.Product) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx,
		cachePrefix+"product:id:"+p.ID.String(),
		cachePrefix+"product:sku:"+strings.ToLower(p.SKU),
	)
}

// Product lookups

func (r *CatalogRepository) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	cacheKey := "product:id:" + id.String()
	if r.cacheGet(ctx, cacheKey, &product) {
		return &product, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Tags").
		Preload("DefaultLocation").Preload("DefaultLocation.Warehouse").
		First(&product, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, cacheKey, &product, productCacheTTL)
	return &product, nil
}

func (r *CatalogRepository) ProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	cacheKey := "product:sku:" + strings.ToLower(sku)
	if r.cacheGet(ctx, cacheKey, &product) {
		return &product, nil
	}
	err := r.db.WithContext(ctx).
		Preload("DefaultLocation").Preload("DefaultLocation.Warehouse").
		Where("LOWER(sku) = LOWER(?)", sku).
		First(&product).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, cacheKey, &product, productCacheTTL)
	return &product, nil
}

// ProductByCode resolves a scanned code against barcode, EAN, SKU and name
// in that order of precedence.
func (r *CatalogRepository) ProductByCode(ctx context.Context, code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	for _, column := range []string{"barcode", "ean", "sku", "name"} {
		var product models.Product
		err := r.db.WithContext(ctx).
			Preload("DefaultLocation").
			Where(fmt.Sprintf("LOWER(%s) = LOWER(?)", column), code).
			First(&product).Error
		if notFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &product, nil
	}
	return nil, nil
}

func (r *CatalogRepository) ProductsByNameBrand(ctx context.Context, name, brand string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND LOWER(brand) = LOWER(?)", name, brand).
		Find(&products).Error
	return products, err
}

func (r *CatalogRepository) ProductsWithSKU(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Where("sku <> ''").Find(&products).Error
	return products, err
}

func (r *CatalogRepository) AllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Find(&products).Error
	return products, err
}

func (r *CatalogRepository) SKUExists(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("LOWER(sku) = LOWER(?)", sku)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, p *models.Product) error {
	p.EnsureID()
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return err
	}
	r.invalidateProduct(ctx, p)
	return nil
}

func (r *CatalogRepository) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Omit("Tags", "Category", "DefaultLocation").Save(p).Error; err != nil {
		return err
	}
	r.invalidateProduct(ctx, p)
	return nil
}

func (r *CatalogRepository) ReplaceProductTags(ctx context.Context, p *models.Product, tags []models.ProductTag) error {
	if err := r.db.WithContext(ctx).Model(p).Association("Tags").Replace(tags); err != nil {
		return err
	}
	r.invalidateProduct(ctx, p)
	return nil
}

// Taxonomy

func (r *CatalogRepository) CategoryByID(ctx context.Context, id uuid.UUID) (*models.ProductCategory, error) {
	var category models.ProductCategory
	err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CatalogRepository) GetOrCreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*models.ProductCategory, error) {
	var category models.ProductCategory
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !notFound(err) {
		return nil, err
	}
	category = models.ProductCategory{Name: name, ParentID: parentID}
	category.EnsureID()
	if err := r.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CatalogRepository) GetOrCreateTag(ctx context.Context, name string) (*models.ProductTag, error) {
	var tag models.ProductTag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !notFound(err) {
		return nil, err
	}
	tag = models.ProductTag{Name: name}
	tag.EnsureID()
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// Warehouses and locations

func (r *CatalogRepository) WarehouseByName(ctx context.Context, name string) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&wh).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (r *CatalogRepository) GetOrCreateWarehouse(ctx context.Context, name string) (*models.Warehouse, bool, error) {
	wh, err := r.WarehouseByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if wh != nil {
		return wh, false, nil
	}
	created := &models.Warehouse{Name: name}
	created.EnsureID()
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *CatalogRepository) SaveWarehouse(ctx context.Context, w *models.Warehouse) error {
	return r.db.WithContext(ctx).Save(w).Error
}

func (r *CatalogRepository) GetOrCreateLocation(ctx context.Context, warehouseID uuid.UUID, zone, aisle, shelf string) (*models.Location, bool, error) {
	var loc models.Location
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND zone = ? AND aisle = ? AND shelf = ?", warehouseID, zone, aisle, shelf).
		First(&loc).Error
	if err == nil {
		return &loc, false, nil
	}
	if !notFound(err) {
		return nil, false, err
	}
	loc = models.Location{WarehouseID: warehouseID, Zone: zone, Aisle: aisle, Shelf: shelf}
	loc.EnsureID()
	if err := r.db.WithContext(ctx).Create(&loc).Error; err != nil {
		return nil, false, err
	}
	return &loc, true, nil
}

func (r *CatalogRepository) SaveLocation(ctx context.Context, l *models.Location) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *CatalogRepository) SetRackColor(ctx context.Context, warehouseID uuid.UUID, zone, color string) error {
	var rc models.RackColor
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND zone = ?", warehouseID, zone).
		First(&rc).Error
	if notFound(err) {
		rc = models.RackColor{WarehouseID: warehouseID, Zone: zone, Color: color}
		rc.EnsureID()
		return r.db.WithContext(ctx).Create(&rc).Error
	}
	if err != nil {
		return err
	}
	if rc.Color == color {
		return nil
	}
	return r.db.WithContext(ctx).Model(&rc).Update("color", color).Error
}

// RackColorFor returns the color configured for a warehouse zone, or "".
func (r *CatalogRepository) RackColorFor(ctx context.Context, warehouseID uuid.UUID, zone string) (string, error) {
	var rc models.RackColor
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND zone = ?", warehouseID, zone).
		First(&rc).Error
	if notFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rc.Color, nil
}

// Contacts

func (r *CatalogRepository) ContactByNameType(ctx context.Context, name string, kind models.ContactType) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND contact_type = ?", name, kind).
		First(&contact).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *CatalogRepository) ActiveContactByTagNames(ctx context.Context, names []string) (*models.Contact, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Joins("JOIN contact_tag_assignments cta ON cta.contact_id = contacts.id").
		Joins("JOIN contact_tags ct ON ct.id = cta.contact_tag_id").
		Where("contacts.is_active = ?", true).
		Where("LOWER(ct.name) IN ?", lowered).
		First(&contact).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *CatalogRepository) CreateContact(ctx context.Context, c *models.Contact) error {
	c.EnsureID()
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CatalogRepository) SaveContact(ctx context.Context, c *models.Contact) error {
	return r.db.WithContext(ctx).
		Omit("Tags", "Destinations", "LinkedShippers", "Addresses", "Organization").
		Save(c).Error
}

func (r *CatalogRepository) GetOrCreateContactTag(ctx context.Context, name string) (*models.ContactTag, error) {
	var tag models.ContactTag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !notFound(err) {
		return nil, err
	}
	tag = models.ContactTag{Name: name}
	tag.EnsureID()
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *CatalogRepository) ContactTagsOf(ctx context.Context, c *models.Contact) ([]models.ContactTag, error) {
	var tags []models.ContactTag
	err := r.db.WithContext(ctx).Model(c).Association("Tags").Find(&tags)
	return tags, err
}

func (r *CatalogRepository) AddContactTags(ctx context.Context, c *models.Contact, tags []models.ContactTag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(c).Association("Tags").Append(tags)
}

func (r *CatalogRepository) FindContactAddress(ctx context.Context, contactID uuid.UUID, addr models.ContactAddress) (*models.ContactAddress, error) {
	var existing models.ContactAddress
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Where("LOWER(line1) = LOWER(?)", addr.Line1).
		Where("LOWER(line2) = LOWER(?)", addr.Line2).
		Where("LOWER(postal_code) = LOWER(?)", addr.PostalCode).
		Where("LOWER(city) = LOWER(?)", addr.City).
		Where("LOWER(country) = LOWER(?)", addr.Country).
		First(&existing).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *CatalogRepository) CreateContactAddress(ctx context.Context, a *models.ContactAddress) error {
	a.EnsureID()
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *CatalogRepository) SaveContactAddress(ctx context.Context, a *models.ContactAddress) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *CatalogRepository) SetLinkedShippers(ctx context.Context, c *models.Contact, shippers []models.Contact) error {
	return r.db.WithContext(ctx).Model(c).Association("LinkedShippers").Replace(shippers)
}

// Destinations

func (r *CatalogRepository) DestinationByIATA(ctx context.Context, code string) (*models.Destination, error) {
	var dest models.Destination
	err := r.db.WithContext(ctx).Where("LOWER(iata_code) = LOWER(?)", code).First(&dest).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

func (r *CatalogRepository) DestinationByCity(ctx context.Context, city string) (*models.Destination, error) {
	var dest models.Destination
	err := r.db.WithContext(ctx).Where("LOWER(city) = LOWER(?)", city).First(&dest).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

func (r *CatalogRepository) CreateDestination(ctx context.Context, d *models.Destination) error {
	d.EnsureID()
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *CatalogRepository) SaveDestination(ctx context.Context, d *models.Destination) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *CatalogRepository) SetContactDestinations(ctx context.Context, c *models.Contact, dests []models.Destination) error {
	return r.db.WithContext(ctx).Model(c).Association("Destinations").Replace(dests)
}

// Users

func (r *CatalogRepository) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *CatalogRepository) CreateUser(ctx context.Context, u *models.User) error {
	u.EnsureID()
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *CatalogRepository) SaveUser(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// Receipts

func (r *CatalogRepository) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	receipt.EnsureID()
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *CatalogRepository) CreateReceiptLine(ctx context.Context, line *models.ReceiptLine) error {
	line.EnsureID()
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *CatalogRepository) ReceiptByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.db.WithContext(ctx).Preload("Lines").First(&receipt, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *CatalogRepository) ReceiptLineByID(ctx context.Context, id uuid.UUID) (*models.ReceiptLine, error) {
	var line models.ReceiptLine
	err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *CatalogRepository) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	var receipts []models.Receipt
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Order("created_at DESC, id").
		Find(&receipts).Error
	return receipts, err
}

// Export list queries

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").Preload("Category.Parent").
		Preload("Tags").
		Preload("DefaultLocation").Preload("DefaultLocation.Warehouse").
		Order("name, id").
		Find(&products).Error
	return products, err
}

func (r *CatalogRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	err := r.db.WithContext(ctx).
		Preload("Warehouse").
		Order("zone, aisle, shelf").
		Find(&locations).Error
	return locations, err
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.ProductCategory, error) {
	var categories []models.ProductCategory
	err := r.db.WithContext(ctx).Preload("Parent").Order("name").Find(&categories).Error
	return categories, err
}

// AvailableStockTotals sums available quantities of AVAILABLE lots per
// product, for the product export's quantity column.
func (r *CatalogRepository) AvailableStockTotals(ctx context.Context) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.ProductLot{}).
		Select("product_id, SUM(quantity_on_hand - quantity_reserved) AS total").
		Where("status = ?", models.LotAvailable).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		if row.Total > 0 {
			totals[row.ProductID] = row.Total
		}
	}
	return totals, nil
}

func (r *CatalogRepository) ListRackColors(ctx context.Context) ([]models.RackColor, error) {
	var colors []models.RackColor
	err := r.db.WithContext(ctx).Find(&colors).Error
	return colors, err
}

func (r *CatalogRepository) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := r.db.WithContext(ctx).Order("name").Find(&warehouses).Error
	return warehouses, err
}

func (r *CatalogRepository) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.WithContext(ctx).
		Preload("Tags").Preload("Destinations").Preload("Addresses").
		Order("name").
		Find(&contacts).Error
	return contacts, err
}

func (r *CatalogRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}
