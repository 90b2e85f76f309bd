package importer

import (
	"context"

	"wms-service/internal/models"
)

// QuantityMode selects how an imported quantity reconciles with stock.
type QuantityMode string

const (
	// ModeMovement receives the quantity additively.
	ModeMovement QuantityMode = "movement"
	// ModeOverwrite makes total on-hand equal the imported quantity.
	ModeOverwrite QuantityMode = "overwrite"
)

// Sentinel slot used when a quantity arrives with no resolvable location.
const (
	TempWarehouseName = "TEMP"
	TempZone          = "TEMP"
	TempAisle         = "TEMP"
	TempShelf         = "TEMP"
)

const overwriteReason = "import_overwrite"

// applyQuantity reconciles a product's stock against an imported quantity.
// Absent quantity is a no-op. The location falls back from the explicitly
// imported one to the product's default, then to the TEMP sentinel slot,
// which also becomes the product's default when it had none.
func applyQuantity(ctx context.Context, store Store, ledger Ledger, product *models.Product, quantity *int, location *models.Location, mode QuantityMode, actor string) error {
	if quantity == nil {
		return nil
	}
	if *quantity <= 0 {
		return Invalid("invalid quantity")
	}

	loc, err := resolveStockLocation(ctx, store, product, location)
	if err != nil {
		return err
	}

	if mode == ModeOverwrite {
		return overwriteQuantity(ctx, ledger, product, *quantity, loc, actor)
	}

	_, err = ledger.Receive(ctx, ReceiveParams{
		ProductID:  product.ID,
		Quantity:   *quantity,
		LocationID: loc.ID,
		Status:     lotStatusFor(product),
		ReasonCode: "receive",
		Actor:      actor,
	})
	if err != nil {
		return Invalid(err.Error())
	}
	return nil
}

func resolveStockLocation(ctx context.Context, store Store, product *models.Product, explicit *models.Location) (*models.Location, error) {
	if explicit != nil {
		return explicit, nil
	}
	if product.DefaultLocation != nil {
		return product.DefaultLocation, nil
	}
	wh, _, err := store.GetOrCreateWarehouse(ctx, TempWarehouseName)
	if err != nil {
		return nil, err
	}
	loc, _, err := store.GetOrCreateLocation(ctx, wh.ID, TempZone, TempAisle, TempShelf)
	if err != nil {
		return nil, err
	}
	product.DefaultLocationID = &loc.ID
	product.DefaultLocation = loc
	if err := store.SaveProduct(ctx, product); err != nil {
		return nil, err
	}
	return loc, nil
}

// overwriteQuantity zeroes out the removable part of every existing lot,
// then receives whatever remains to reach the target. Reserved stock cannot
// be removed, so a target below the surviving total is a hard error, raised
// before any lot is touched so a refused overwrite leaves stock unchanged.
// The caller wraps this in one transaction.
func overwriteQuantity(ctx context.Context, ledger Ledger, product *models.Product, target int, loc *models.Location, actor string) error {
	lots, err := ledger.LotsByProduct(ctx, product.ID)
	if err != nil {
		return err
	}

	remaining := 0
	for _, lot := range lots {
		removable := lot.QuantityOnHand - lot.QuantityReserved
		if removable > 0 {
			remaining += lot.QuantityOnHand - removable
		} else {
			remaining += lot.QuantityOnHand
		}
	}
	if remaining > target {
		return Invalid("cannot overwrite: reserved stock exceeds imported quantity")
	}

	for _, lot := range lots {
		removable := lot.QuantityOnHand - lot.QuantityReserved
		if removable <= 0 {
			continue
		}
		_, err := ledger.Adjust(ctx, AdjustParams{
			LotID:      lot.ID,
			Delta:      -removable,
			ReasonCode: overwriteReason,
			Actor:      actor,
		})
		if err != nil {
			return Invalid(err.Error())
		}
	}

	if remaining == target {
		return nil
	}
	_, err = ledger.Receive(ctx, ReceiveParams{
		ProductID:  product.ID,
		Quantity:   target - remaining,
		LocationID: loc.ID,
		Status:     lotStatusFor(product),
		ReasonCode: overwriteReason,
		Actor:      actor,
	})
	if err != nil {
		return Invalid(err.Error())
	}
	return nil
}

func lotStatusFor(product *models.Product) models.ProductLotStatus {
	if product.QuarantineDefault {
		return models.LotQuarantined
	}
	return models.LotAvailable
}
