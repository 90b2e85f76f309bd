package workflow

import (
	"context"
	"fmt"

	"wms-service/internal/importer"
	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// EntityKind names a bulk-importable entity family.
type EntityKind string

const (
	EntityLocations  EntityKind = "locations"
	EntityCategories EntityKind = "categories"
	EntityWarehouses EntityKind = "warehouses"
	EntityContacts   EntityKind = "contacts"
	EntityUsers      EntityKind = "users"
)

// EntityFlow runs single-step batch imports for the entities that need no
// review: locations, categories, warehouses, contacts and users.
type EntityFlow struct {
	tx       Transactor
	registry *tabular.Registry
	// defaultPassword fills in user rows that carry no password column.
	defaultPassword string
}

func NewEntityFlow(tx Transactor, registry *tabular.Registry, defaultPassword string) *EntityFlow {
	return &EntityFlow{tx: tx, registry: registry, defaultPassword: defaultPassword}
}

// ImportFile extracts the upload and imports every row in one transaction.
func (f *EntityFlow) ImportFile(ctx context.Context, kind EntityKind, filename string, data []byte) (*models.ImportSummary, error) {
	if len(data) > MaxUploadBytes {
		return nil, importer.Invalid("file too large (over 10 MB)")
	}
	table, err := f.registry.Extract(filename, data, tabular.Options{})
	if err != nil {
		return nil, importer.Invalid(err.Error())
	}
	return f.importRecords(ctx, kind, table.Records())
}

// ImportSingle imports one row built from form values.
func (f *EntityFlow) ImportSingle(ctx context.Context, kind EntityKind, values map[string]string) (*models.ImportSummary, error) {
	return f.importRecords(ctx, kind, []tabular.Record{stringRecord(values, 1)})
}

func (f *EntityFlow) importRecords(ctx context.Context, kind EntityKind, recs []tabular.Record) (*models.ImportSummary, error) {
	var summary models.ImportSummary
	err := f.tx.Transaction(ctx, func(store importer.Store, _ importer.Ledger) error {
		var err error
		switch kind {
		case EntityLocations:
			summary, err = importer.ImportLocations(ctx, store, recs)
		case EntityCategories:
			summary, err = importer.ImportCategories(ctx, store, recs)
		case EntityWarehouses:
			summary, err = importer.ImportWarehouses(ctx, store, recs)
		case EntityContacts:
			summary, err = importer.ImportContacts(ctx, store, recs)
		case EntityUsers:
			summary, err = importer.ImportUsers(ctx, store, recs, f.defaultPassword)
		default:
			err = fmt.Errorf("unknown import kind %q", kind)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
