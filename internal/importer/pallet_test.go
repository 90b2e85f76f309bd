package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wms-service/internal/models"
)

func receptionWarehouse(t *testing.T, store *memStore) *models.Warehouse {
	t.Helper()
	wh, _, err := store.GetOrCreateWarehouse(context.Background(), "Reception")
	require.NoError(t, err)
	wh.Code = "REC"
	return wh
}

func TestPalletApplyCreatesSharedReceipt(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	pi := NewPalletImporter(store, receipts, ledger)

	payloads := []ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "new", RowData: map[string]string{
			"name": "Gants latex", "brand": "Medline", "quantity": "4",
			"zone": "A", "aisle": "1", "shelf": "B2",
		}},
		{Apply: true, RowIndex: 3, Selection: "new", RowData: map[string]string{
			"name": "Masque FFP2", "quantity": "10",
			"zone": "A", "aisle": "1", "shelf": "B3",
		}},
		{Apply: false, RowIndex: 4, RowData: map[string]string{"name": "Ignore", "quantity": "1"}},
	}
	result, err := pi.Apply(context.Background(), payloads, wh, ReceiptMeta{PalletCount: 2}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Errors)

	require.Len(t, receipts.receipts, 1)
	receipt := receipts.receipts[0]
	assert.Equal(t, models.ReceiptPallet, receipt.ReceiptType)
	assert.Equal(t, 2, receipt.PalletCount)
	assert.Equal(t, "tester", receipt.CreatedBy)
	require.Len(t, receipts.lines, 2)
	for _, line := range receipts.lines {
		assert.Equal(t, receipt.ID, line.ReceiptID)
		assert.NotNil(t, line.ReceivedLotID)
	}
	require.Len(t, ledger.lots, 2)
}

func TestPalletApplySelectionTargetsExisting(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	existing := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")
	pi := NewPalletImporter(store, receipts, ledger)

	result, err := pi.Apply(context.Background(), []ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "product:" + existing.ID.String(), RowData: map[string]string{
			"quantity": "6", "zone": "A", "aisle": "1", "shelf": "B2",
		}},
	}, wh, ReceiptMeta{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 6, ledger.onHand(existing.ID))
}

func TestPalletApplyOverrideCodeWinsOverSelection(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	byCode := seedProduct(t, store, "ASF-0002", "Masque FFP2", "3M")
	other := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")
	pi := NewPalletImporter(store, receipts, ledger)

	result, err := pi.Apply(context.Background(), []ListingRowPayload{
		{Apply: true, RowIndex: 2, OverrideCode: "ASF-0002",
			Selection: "product:" + other.ID.String(),
			RowData: map[string]string{
				"quantity": "3", "zone": "A", "aisle": "1", "shelf": "B2",
			}},
	}, wh, ReceiptMeta{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 3, ledger.onHand(byCode.ID))
	assert.Equal(t, 0, ledger.onHand(other.ID))
}

func TestPalletApplyRowErrorsAreIsolated(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	pi := NewPalletImporter(store, receipts, ledger)

	result, err := pi.Apply(context.Background(), []ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "new", RowData: map[string]string{
			"name": "Produit A", "quantity": "0",
		}},
		{Apply: true, RowIndex: 3, OverrideCode: "UNKNOWN", RowData: map[string]string{
			"quantity": "2",
		}},
		{Apply: true, RowIndex: 4, Selection: "new", RowData: map[string]string{
			"name": "Produit B", "quantity": "2",
			"zone": "A", "aisle": "1", "shelf": "B2",
		}},
	}, wh, ReceiptMeta{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Row 2: invalid quantity", result.Errors[0])
	assert.Equal(t, "Row 3: product not found for UNKNOWN", result.Errors[1])
}

func TestPalletApplyPartialLocationFails(t *testing.T) {
	store := newMemStore()
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	pi := NewPalletImporter(store, receipts, &memLedger{})

	result, err := pi.Apply(context.Background(), []ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "new", RowData: map[string]string{
			"name": "Produit A", "quantity": "2", "zone": "A",
		}},
	}, wh, ReceiptMeta{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "incomplete location")
}

func TestPalletApplyFallsBackToProductDefaultLocation(t *testing.T) {
	store := newMemStore()
	ledger := &memLedger{}
	receipts := &memReceipts{}
	wh := receptionWarehouse(t, store)
	existing := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")
	loc, _, err := store.GetOrCreateLocation(context.Background(), wh.ID, "A", "1", "B2")
	require.NoError(t, err)
	existing.DefaultLocationID = &loc.ID
	existing.DefaultLocation = loc
	pi := NewPalletImporter(store, receipts, ledger)

	result, err := pi.Apply(context.Background(), []ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "product:" + existing.ID.String(), RowData: map[string]string{
			"quantity": "2",
		}},
	}, wh, ReceiptMeta{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, receipts.lines, 1)
	require.NotNil(t, receipts.lines[0].LocationID)
	assert.Equal(t, loc.ID, *receipts.lines[0].LocationID)
}
