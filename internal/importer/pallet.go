package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// ReceiptLedger extends the ledger with the receipt-line operation pallet
// confirms use.
type ReceiptLedger interface {
	Ledger
	ReceiveReceiptLine(ctx context.Context, line *models.ReceiptLine, actor string) (*models.ProductLot, error)
}

// ReceiptStore persists receipts during a pallet-listing confirm.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, r *models.Receipt) error
	CreateReceiptLine(ctx context.Context, l *models.ReceiptLine) error
}

// ListingRowPayload is one reviewed pallet-listing row as confirmed by the
// operator: the mapped row values (possibly edited), a selection ("new" or
// "product:<id>"), and an optional scan-code override that wins over the
// selection.
type ListingRowPayload struct {
	Apply        bool              `json:"apply"`
	RowIndex     int               `json:"rowIndex"`
	RowData      map[string]string `json:"rowData"`
	Selection    string            `json:"selection"`
	OverrideCode string            `json:"overrideCode"`
}

// ReceiptMeta carries the receipt header fields gathered at upload time.
type ReceiptMeta struct {
	SourceContactID      *uuid.UUID `json:"sourceContactId"`
	CarrierContactID     *uuid.UUID `json:"carrierContactId"`
	ReceivedOn           *time.Time `json:"receivedOn"`
	PalletCount          int        `json:"palletCount"`
	TransportRequestDate *time.Time `json:"transportRequestDate"`
}

// ListingApplyResult reports a pallet-listing confirm outcome.
type ListingApplyResult struct {
	Created int
	Skipped int
	Errors  []string
	Receipt *models.Receipt
}

func payloadRecord(p ListingRowPayload) tabular.Record {
	cells := make(map[string]tabular.Cell, len(p.RowData))
	for k, v := range p.RowData {
		cells[k] = tabular.StringCell(v)
	}
	return tabular.Record{Origin: p.RowIndex, Cells: cells}
}

// PalletImporter applies confirmed pallet-listing rows: each applied row
// resolves or creates a product, then receives its quantity through the
// ledger as a line of one shared receipt.
type PalletImporter struct {
	store    Store
	receipts ReceiptStore
	ledger   ReceiptLedger
	products *ProductImporter
}

// NewPalletImporter builds a pallet-listing importer over the given stores.
func NewPalletImporter(store Store, receipts ReceiptStore, ledger ReceiptLedger) *PalletImporter {
	return &PalletImporter{
		store:    store,
		receipts: receipts,
		ledger:   ledger,
		products: NewProductImporter(store, ledger),
	}
}

// Apply runs the confirmed rows. The receipt is created lazily on the first
// applied row and shared by all following rows. Row failures are isolated;
// the caller decides transactionality around the whole call.
func (pi *PalletImporter) Apply(ctx context.Context, payloads []ListingRowPayload, warehouse *models.Warehouse, meta ReceiptMeta, actor string) (ListingApplyResult, error) {
	var result ListingApplyResult

	for _, payload := range payloads {
		if !payload.Apply {
			result.Skipped++
			continue
		}
		rec := payloadRecord(payload)

		quantity, err := ParseInt(rec.Get("quantity"))
		if err != nil || quantity == nil || *quantity <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid quantity", payload.RowIndex))
			continue
		}

		product, rowErr, err := pi.resolveRowProduct(ctx, payload, rec, actor)
		if err != nil {
			return result, err
		}
		if rowErr != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", payload.RowIndex, rowErr))
			continue
		}

		if err := pi.receiveRow(ctx, &result, rec, product, *quantity, warehouse, meta, actor); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", payload.RowIndex, verr.Message))
				continue
			}
			return result, err
		}
		result.Created++
	}
	return result, nil
}

// resolveRowProduct picks the product for one row: override code first, then
// an explicit candidate selection, then creation of a new product. The
// returned rowErr is an operator-facing row failure; err is infrastructure.
func (pi *PalletImporter) resolveRowProduct(ctx context.Context, payload ListingRowPayload, rec tabular.Record, actor string) (*models.Product, string, error) {
	override := strings.TrimSpace(payload.OverrideCode)
	if override != "" {
		product, err := pi.store.ProductByCode(ctx, override)
		if err != nil {
			return nil, "", err
		}
		if product == nil {
			return nil, "product not found for " + override, nil
		}
		return product, "", nil
	}

	selection := strings.TrimSpace(payload.Selection)
	if id, ok := strings.CutPrefix(selection, "product:"); ok {
		productID, err := uuid.Parse(id)
		if err != nil {
			return nil, "target product not found", nil
		}
		product, err := pi.store.ProductByID(ctx, productID)
		if err != nil {
			return nil, "", err
		}
		if product == nil {
			return nil, "target product not found", nil
		}
		return product, "", nil
	}

	if selection == "new" {
		newRec := tabular.Record{Origin: rec.Origin, Cells: make(map[string]tabular.Cell, len(rec.Cells))}
		for k, v := range rec.Cells {
			if k == "quantity" {
				continue
			}
			newRec.Cells[k] = v
		}
		product, _, _, err := pi.products.ImportRow(ctx, newRec, nil, RowOptions{Actor: actor, SkipQuantity: true})
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return nil, verr.Message, nil
			}
			return nil, "", err
		}
		return product, "", nil
	}

	return nil, "product not determined", nil
}

func (pi *PalletImporter) receiveRow(ctx context.Context, result *ListingApplyResult, rec tabular.Record, product *models.Product, quantity int, warehouse *models.Warehouse, meta ReceiptMeta, actor string) error {
	location, err := ResolveListingLocation(ctx, pi.store, rec, warehouse)
	if err != nil {
		return err
	}
	if location == nil && product.DefaultLocationID != nil {
		location = product.DefaultLocation
		if location == nil {
			loc := models.Location{}
			loc.ID = *product.DefaultLocationID
			location = &loc
		}
	}
	if location == nil {
		return Invalid("location required for receiving")
	}

	if result.Receipt == nil {
		now := time.Now()
		receivedOn := meta.ReceivedOn
		if receivedOn == nil {
			receivedOn = &now
		}
		receipt := &models.Receipt{
			Reference:            generateReceiptReference(),
			ReceiptType:          models.ReceiptPallet,
			Status:               models.ReceiptDraft,
			SourceContactID:      meta.SourceContactID,
			CarrierContactID:     meta.CarrierContactID,
			ReceivedOn:           receivedOn,
			PalletCount:          meta.PalletCount,
			TransportRequestDate: meta.TransportRequestDate,
			CreatedBy:            actor,
		}
		if warehouse != nil {
			receipt.WarehouseID = &warehouse.ID
		}
		if err := pi.receipts.CreateReceipt(ctx, receipt); err != nil {
			return err
		}
		result.Receipt = receipt
	}

	line := &models.ReceiptLine{
		ReceiptID:         result.Receipt.ID,
		ProductID:         product.ID,
		Quantity:          quantity,
		LocationID:        &location.ID,
		StorageConditions: product.StorageConditions,
	}
	if err := pi.receipts.CreateReceiptLine(ctx, line); err != nil {
		return err
	}
	if _, err := pi.ledger.ReceiveReceiptLine(ctx, line, actor); err != nil {
		return Invalid(err.Error())
	}
	return nil
}

func generateReceiptReference() string {
	return "RCP-" + strings.ToUpper(uuid.NewString()[:8])
}
