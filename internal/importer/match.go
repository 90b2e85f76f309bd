package importer

import (
	"context"
	"strings"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

// Match tier identifiers reported alongside candidates.
const (
	MatchSKU       = "sku"
	MatchNameBrand = "name_brand"
)

// ProductIdentity carries the fields used to look up existing products.
type ProductIdentity struct {
	SKU   string
	Name  string
	Brand string
}

// MatchResult is the outcome of identity matching for one row.
type MatchResult struct {
	Tier       string
	Candidates []models.Product
}

// ExtractProductIdentity pulls the identity fields from a record using the
// recognized header aliases.
func ExtractProductIdentity(rec tabular.Record) ProductIdentity {
	sku, _ := ParseStr(GetValue(rec, "sku", "reference", "ref"))
	name, _ := ParseStr(GetValue(rec, "name", "nom", "nom_produit", "produit"))
	brand, _ := ParseStr(GetValue(rec, "brand", "marque"))
	return ProductIdentity{
		SKU:   strings.TrimSpace(sku),
		Name:  NormalizeTitle(name, nil),
		Brand: NormalizeUpper(brand),
	}
}

// FindProductMatches resolves existing catalog candidates for a row's
// identity, trying tiers in order and stopping at the first that yields any:
//
//  1. exact case-insensitive SKU
//  2. folded SKU (case, diacritics and punctuation ignored)
//  3. exact case-insensitive name+brand
//  4. folded name+brand
//
// The fold tiers scan the catalog in memory, which is fine at warehouse
// catalog sizes. An empty result means the row describes a new product.
func FindProductMatches(ctx context.Context, store ProductStore, id ProductIdentity) (MatchResult, error) {
	if id.SKU != "" {
		p, err := store.ProductBySKU(ctx, id.SKU)
		if err != nil {
			return MatchResult{}, err
		}
		if p != nil {
			return MatchResult{Tier: MatchSKU, Candidates: []models.Product{*p}}, nil
		}

		folded := FoldKey(id.SKU)
		if folded != "" {
			all, err := store.ProductsWithSKU(ctx)
			if err != nil {
				return MatchResult{}, err
			}
			var hits []models.Product
			for _, p := range all {
				if FoldKey(p.SKU) == folded {
					hits = append(hits, p)
				}
			}
			if len(hits) > 0 {
				return MatchResult{Tier: MatchSKU, Candidates: hits}, nil
			}
		}
	}

	// The name+brand tiers need both fields; a bare name would otherwise
	// match every product with an empty brand.
	if id.Name == "" || id.Brand == "" {
		return MatchResult{}, nil
	}

	exact, err := store.ProductsByNameBrand(ctx, id.Name, id.Brand)
	if err != nil {
		return MatchResult{}, err
	}
	if len(exact) > 0 {
		return MatchResult{Tier: MatchNameBrand, Candidates: exact}, nil
	}

	nameKey, brandKey := FoldKey(id.Name), FoldKey(id.Brand)
	all, err := store.AllProducts(ctx)
	if err != nil {
		return MatchResult{}, err
	}
	var hits []models.Product
	for _, p := range all {
		if FoldKey(p.Name) == nameKey && FoldKey(p.Brand) == brandKey {
			hits = append(hits, p)
		}
	}
	if len(hits) > 0 {
		return MatchResult{Tier: MatchNameBrand, Candidates: hits}, nil
	}
	return MatchResult{}, nil
}
