package workflow

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wms-service/internal/importer"
	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

func newListingFlow(t *testing.T, store *fakeStore) (*ListingFlow, *fakeTx, *MemorySessionStore) {
	t.Helper()
	sessions := NewMemorySessionStore()
	tx := &fakeTx{store: store, ledger: &fakeLedger{}, receipts: &fakeReceipts{}}
	flow := NewListingFlow(store, store, tx, sessions, tabular.NewRegistry(), t.TempDir(), quietLogger())
	return flow, tx, sessions
}

func uploadListing(t *testing.T, flow *ListingFlow) *ListingUploadResult {
	t.Helper()
	result, err := flow.Upload(context.Background(),
		[]byte("Nom;Marque;Quantité;Zone\nGants latex;Medline;4;A\nMasque FFP2;3M;10;B\n"),
		ListingUploadOptions{Filename: "listing.csv", Actor: "tester"})
	require.NoError(t, err)
	return result
}

func TestListingUploadBuildsColumns(t *testing.T) {
	flow, _, _ := newListingFlow(t, &fakeStore{})
	result := uploadListing(t, flow)

	assert.NotEmpty(t, result.Token)
	require.Len(t, result.Columns, 4)
	assert.Equal(t, ListingColumn{Index: 0, Name: "Nom", Sample: "Gants latex", Mapped: "name"}, result.Columns[0])
	assert.Equal(t, "quantity", result.Columns[2].Mapped)
	assert.Equal(t, "zone", result.Columns[3].Mapped)
}

func TestListingUploadRejectsUnsupportedFormats(t *testing.T) {
	flow, _, _ := newListingFlow(t, &fakeStore{})

	_, err := flow.Upload(context.Background(), []byte("x"), ListingUploadOptions{Filename: "listing.xls"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), ".xlsx")

	_, err = flow.Upload(context.Background(), []byte("x"), ListingUploadOptions{Filename: "listing.txt"})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "unsupported file format")
}

func TestListingUploadRejectsEmptyFile(t *testing.T) {
	flow, _, _ := newListingFlow(t, &fakeStore{})
	_, err := flow.Upload(context.Background(), []byte("Nom;Quantité\n"),
		ListingUploadOptions{Filename: "listing.csv"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "no usable rows")
}

func TestSubmitMappingValidation(t *testing.T) {
	flow, _, _ := newListingFlow(t, &fakeStore{})
	result := uploadListing(t, flow)
	ctx := context.Background()

	_, err := flow.SubmitMapping(ctx, result.Token, map[int]string{0: "name", 1: "name", 2: "quantity"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	// Both offending column positions are named.
	assert.Contains(t, verrs.Error(), "field name assigned twice (columns 1 and 2)")

	_, err = flow.SubmitMapping(ctx, result.Token, map[int]string{0: "name"})
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Error(), "missing required fields: quantity")

	_, err = flow.SubmitMapping(ctx, "unknown-token", map[int]string{0: "name", 2: "quantity"})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSubmitMappingBuildsReviewRows(t *testing.T) {
	store := &fakeStore{}
	existing := seedCatalogProduct(store, "ASF-0001", "Gants Latex", "MEDLINE")
	flow, _, _ := newListingFlow(t, store)
	result := uploadListing(t, flow)

	rows, err := flow.SubmitMapping(context.Background(), result.Token, map[int]string{
		0: "name", 1: "brand", 2: "quantity", 3: "zone",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	matched := rows[0]
	assert.Equal(t, 2, matched.Index)
	assert.Equal(t, "Nom + Marque", matched.MatchType)
	require.Len(t, matched.Options, 1)
	assert.Equal(t, "product:"+existing.ID.String(), matched.Options[0].Value)
	assert.Equal(t, "ASF-0001 - Gants Latex (MEDLINE)", matched.Options[0].Label)
	assert.Equal(t, matched.Options[0].Value, matched.DefaultMatch)
	assert.Equal(t, "4", matched.Values["quantity"])

	unmatched := rows[1]
	assert.Equal(t, 3, unmatched.Index)
	assert.Equal(t, "-", unmatched.MatchType)
	assert.Empty(t, unmatched.Options)
	assert.Equal(t, "new", unmatched.DefaultMatch)
}

func TestListingConfirmCreatesReceiptAndStock(t *testing.T) {
	store := &fakeStore{}
	wh := &models.Warehouse{Name: "Reception", Code: "REC"}
	wh.EnsureID()
	store.warehouses = append(store.warehouses, wh)
	flow, tx, sessions := newListingFlow(t, store)
	result := uploadListing(t, flow)
	ctx := context.Background()

	confirm, err := flow.Confirm(ctx, result.Token, []importer.ListingRowPayload{
		{Apply: true, RowIndex: 2, Selection: "new", RowData: map[string]string{
			"name": "Gants latex", "brand": "Medline", "quantity": "4",
			"zone": "A", "aisle": "1", "shelf": "B2",
		}},
		{Apply: false, RowIndex: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, confirm.Created)
	assert.Equal(t, 1, confirm.Skipped)
	assert.Empty(t, confirm.Errors)
	require.NotNil(t, confirm.Receipt)
	assert.Equal(t, models.ReceiptPallet, confirm.Receipt.ReceiptType)

	require.Len(t, tx.receipts.lines, 1)
	require.Len(t, tx.ledger.lots, 1)
	assert.Equal(t, 4, tx.ledger.lots[0].QuantityOnHand)

	var pending ListingPending
	assert.ErrorIs(t, sessions.Get(ctx, result.Token, &pending), ErrSessionExpired)
}

func TestListingConfirmNeedsWarehouse(t *testing.T) {
	flow, _, _ := newListingFlow(t, &fakeStore{})
	result := uploadListing(t, flow)

	_, err := flow.Confirm(context.Background(), result.Token, nil)
	require.Error(t, err)
	var verr *importer.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no warehouse configured", verr.Message)
}

func TestListingCancelDropsSessionAndTempFile(t *testing.T) {
	flow, _, sessions := newListingFlow(t, &fakeStore{})
	result := uploadListing(t, flow)
	ctx := context.Background()

	var pending ListingPending
	require.NoError(t, sessions.Get(ctx, result.Token, &pending))
	_, err := os.Stat(pending.TempPath)
	require.NoError(t, err)

	require.NoError(t, flow.Cancel(ctx, result.Token))
	_, err = os.Stat(pending.TempPath)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, sessions.Get(ctx, result.Token, &pending), ErrSessionExpired)
}

func TestDefaultWarehousePreference(t *testing.T) {
	store := &fakeStore{}
	alpha := &models.Warehouse{Name: "Alpha"}
	alpha.EnsureID()
	reception := &models.Warehouse{Name: "Reception"}
	reception.EnsureID()
	coded := &models.Warehouse{Name: "Dock", Code: "rec"}
	coded.EnsureID()
	store.warehouses = append(store.warehouses, alpha, reception, coded)

	flow, _, _ := newListingFlow(t, store)
	wh, err := flow.defaultWarehouse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, coded.ID, wh.ID)

	// Without a REC code the Reception name wins, then the first entry.
	store.warehouses = []*models.Warehouse{alpha, reception}
	wh, err = flow.defaultWarehouse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reception.ID, wh.ID)

	store.warehouses = []*models.Warehouse{alpha}
	wh, err = flow.defaultWarehouse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alpha.ID, wh.ID)
}
