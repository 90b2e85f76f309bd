package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wms-service/internal/models"
)

func seedProduct(t *testing.T, store *memStore, sku, name, brand string) *models.Product {
	t.Helper()
	p := &models.Product{SKU: sku, Name: name, Brand: brand}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func TestExtractProductIdentity(t *testing.T) {
	id := ExtractProductIdentity(rec(2, map[string]string{
		"reference": " ab-12 ",
		"nom":       "gants latex",
		"marque":    "medline",
	}))
	assert.Equal(t, "ab-12", id.SKU)
	assert.Equal(t, "Gants Latex", id.Name)
	assert.Equal(t, "MEDLINE", id.Brand)
}

func TestFindProductMatchesSKUFirst(t *testing.T) {
	store := newMemStore()
	bySKU := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")
	seedProduct(t, store, "ASF-0002", "Gants Latex", "MEDLINE")

	result, err := FindProductMatches(context.Background(), store, ProductIdentity{
		SKU: "asf-0001", Name: "Gants Latex", Brand: "MEDLINE",
	})
	require.NoError(t, err)
	assert.Equal(t, MatchSKU, result.Tier)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, bySKU.ID, result.Candidates[0].ID)
}

func TestFindProductMatchesFoldedSKU(t *testing.T) {
	store := newMemStore()
	p := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")

	result, err := FindProductMatches(context.Background(), store, ProductIdentity{SKU: "asf 0001!"})
	require.NoError(t, err)
	assert.Equal(t, MatchSKU, result.Tier)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, p.ID, result.Candidates[0].ID)
}

func TestFindProductMatchesNameBrandFallback(t *testing.T) {
	store := newMemStore()
	p := seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")

	// Unknown SKU falls through to name+brand.
	result, err := FindProductMatches(context.Background(), store, ProductIdentity{
		SKU: "NOPE-99", Name: "gants latex", Brand: "medline",
	})
	require.NoError(t, err)
	assert.Equal(t, MatchNameBrand, result.Tier)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, p.ID, result.Candidates[0].ID)
}

func TestFindProductMatchesFoldedNameBrand(t *testing.T) {
	store := newMemStore()
	p := seedProduct(t, store, "ASF-0001", "Café Crème", "NESPRESSO")

	result, err := FindProductMatches(context.Background(), store, ProductIdentity{
		Name: "cafe creme", Brand: "nespresso",
	})
	require.NoError(t, err)
	assert.Equal(t, MatchNameBrand, result.Tier)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, p.ID, result.Candidates[0].ID)
}

func TestFindProductMatchesNeedsNameAndBrand(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "ASF-0001", "Gants Latex", "")
	seedProduct(t, store, "ASF-0002", "Gants Latex", "MEDLINE")

	// A bare name must not pair up with brandless catalog entries.
	result, err := FindProductMatches(context.Background(), store, ProductIdentity{Name: "Gants Latex"})
	require.NoError(t, err)
	assert.Empty(t, result.Tier)
	assert.Empty(t, result.Candidates)

	result, err = FindProductMatches(context.Background(), store, ProductIdentity{Brand: "MEDLINE"})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestFindProductMatchesNoIdentity(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")

	result, err := FindProductMatches(context.Background(), store, ProductIdentity{})
	require.NoError(t, err)
	assert.Empty(t, result.Tier)
	assert.Empty(t, result.Candidates)
}

func TestFindProductMatchesNoHit(t *testing.T) {
	store := newMemStore()
	seedProduct(t, store, "ASF-0001", "Gants Latex", "MEDLINE")

	result, err := FindProductMatches(context.Background(), store, ProductIdentity{
		Name: "Masque FFP2", Brand: "3M",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}
