package importer

import (
	"context"
	"fmt"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// GetOrCreateLocation resolves a (warehouse, zone, aisle, shelf) tuple,
// creating the warehouse and slot as needed. Any missing sub-field resolves
// to no location rather than an error.
func GetOrCreateLocation(ctx context.Context, store LocationStore, warehouseName, zone, aisle, shelf string) (*models.Location, error) {
	if warehouseName == "" || zone == "" || aisle == "" || shelf == "" {
		return nil, nil
	}
	wh, _, err := store.GetOrCreateWarehouse(ctx, warehouseName)
	if err != nil {
		return nil, err
	}
	loc, _, err := store.GetOrCreateLocation(ctx, wh.ID, NormalizeUpper(zone), NormalizeUpper(aisle), NormalizeUpper(shelf))
	return loc, err
}

// ResolveListingLocation resolves a location for a pallet-listing line. The
// warehouse name falls back to the receipt's default warehouse. Rows with no
// location fields resolve to nil; a partially filled location is an error.
func ResolveListingLocation(ctx context.Context, store LocationStore, rec tabular.Record, defaultWarehouse *models.Warehouse) (*models.Location, error) {
	warehouseName, _ := ParseStr(rec.Get("warehouse"))
	if warehouseName == "" && defaultWarehouse != nil {
		warehouseName = defaultWarehouse.Name
	}
	zone, _ := ParseStr(rec.Get("zone"))
	aisle, _ := ParseStr(rec.Get("aisle"))
	shelf, _ := ParseStr(rec.Get("shelf"))

	if zone == "" && aisle == "" && shelf == "" {
		return nil, nil
	}
	if warehouseName == "" || zone == "" || aisle == "" || shelf == "" {
		return nil, Invalid("incomplete location (warehouse/zone/aisle/shelf)")
	}
	return GetOrCreateLocation(ctx, store, warehouseName, zone, aisle, shelf)
}

// ImportLocations imports storage-slot rows. All four location sub-fields
// are required; notes update in place and a rack color applies to the
// slot's zone.
func ImportLocations(ctx context.Context, store LocationStore, recs []tabular.Record) (models.ImportSummary, error) {
	var summary models.ImportSummary
	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}
		created, updated, err := importLocationRecord(ctx, store, rec)
		if err != nil {
			if verr, ok := err.(*ValidationError); ok {
				summary.AddError(fmt.Sprintf("Row %d: %s", rec.Origin, verr.Message))
				continue
			}
			return summary, err
		}
		summary.Created += created
		summary.Updated += updated
	}
	return summary, nil
}

func importLocationRecord(ctx context.Context, store LocationStore, rec tabular.Record) (created, updated int, err error) {
	warehouseName, _ := ParseStr(GetValue(rec, "warehouse", "entrepot"))
	zone, _ := ParseStr(GetValue(rec, "zone", "rack"))
	aisle, _ := ParseStr(GetValue(rec, "aisle", "etagere"))
	shelf, _ := ParseStr(GetValue(rec, "shelf", "bac"))
	if warehouseName == "" || zone == "" || aisle == "" || shelf == "" {
		return 0, 0, Invalid("required fields: warehouse, zone, aisle, shelf")
	}

	wh, _, err := store.GetOrCreateWarehouse(ctx, warehouseName)
	if err != nil {
		return 0, 0, err
	}
	zone, aisle, shelf = NormalizeUpper(zone), NormalizeUpper(aisle), NormalizeUpper(shelf)
	loc, wasCreated, err := store.GetOrCreateLocation(ctx, wh.ID, zone, aisle, shelf)
	if err != nil {
		return 0, 0, err
	}
	if wasCreated {
		created = 1
	}

	if notes, ok := ParseStr(GetValue(rec, "notes", "note")); ok && loc.Notes != notes {
		loc.Notes = notes
		if err := store.SaveLocation(ctx, loc); err != nil {
			return created, 0, err
		}
		if !wasCreated {
			updated = 1
		}
	}
	if color, ok := ParseStr(GetValue(rec, "rack_color", "couleur_rack")); ok {
		if err := store.SetRackColor(ctx, wh.ID, zone, color); err != nil {
			return created, updated, err
		}
	}
	return created, updated, nil
}

// ImportWarehouses imports warehouse rows, deduplicating by name and
// updating the code when a differing non-blank code arrives.
func ImportWarehouses(ctx context.Context, store LocationStore, recs []tabular.Record) (models.ImportSummary, error) {
	var summary models.ImportSummary
	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}
		name, ok := ParseStr(GetValue(rec, "name", "warehouse", "entrepot"))
		if !ok {
			summary.AddError(fmt.Sprintf("Row %d: warehouse name required", rec.Origin))
			continue
		}
		code, codePresent := ParseStr(GetValue(rec, "code"))

		wh, wasCreated, err := store.GetOrCreateWarehouse(ctx, name)
		if err != nil {
			return summary, err
		}
		if wasCreated {
			if code != "" {
				wh.Code = code
				if err := store.SaveWarehouse(ctx, wh); err != nil {
					return summary, err
				}
			}
			summary.Created++
			continue
		}
		if codePresent && wh.Code != code {
			wh.Code = code
			if err := store.SaveWarehouse(ctx, wh); err != nil {
				return summary, err
			}
			summary.Updated++
		}
	}
	return summary, nil
}
