package importer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"wms-service/internal/models"
	"wms-service/internal/tabular"
)

var categoryPathSep = regexp.MustCompile(`[>/]`)

// BuildCategoryPath walks a category chain root-first, get-or-creating each
// segment under the previous one. Blank segments are skipped without
// breaking the chain. Returns the deepest node, or nil for an empty chain.
func BuildCategoryPath(ctx context.Context, store TaxonomyStore, names []string) (*models.ProductCategory, error) {
	var parent *models.ProductCategory
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var parentID *uuid.UUID
		if parent != nil {
			parentID = &parent.ID
		}
		normalized := NormalizeCategoryName(name, parent == nil)
		cat, err := store.GetOrCreateCategory(ctx, normalized, parentID)
		if err != nil {
			return nil, err
		}
		parent = cat
	}
	return parent, nil
}

// ImportCategories imports category rows: either a full "path" column split
// on > or /, or a name with an optional root-level parent.
func ImportCategories(ctx context.Context, store TaxonomyStore, recs []tabular.Record) (models.ImportSummary, error) {
	var summary models.ImportSummary
	for _, rec := range recs {
		if recordIsEmpty(rec) {
			continue
		}
		if err := importCategoryRecord(ctx, store, rec); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				summary.AddError(fmt.Sprintf("Row %d: %s", rec.Origin, verr.Message))
				continue
			}
			return summary, err
		}
		summary.Created++
	}
	return summary, nil
}

func importCategoryRecord(ctx context.Context, store TaxonomyStore, rec tabular.Record) error {
	if path, ok := ParseStr(GetValue(rec, "path", "chemin")); ok {
		var parts []string
		for _, p := range categoryPathSep.Split(path, -1) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return Invalid("empty category path")
		}
		_, err := BuildCategoryPath(ctx, store, parts)
		return err
	}

	name, ok := ParseStr(GetValue(rec, "name", "categorie", "category"))
	if !ok {
		return Invalid("category name required")
	}
	parentName, hasParent := ParseStr(GetValue(rec, "parent", "parent_name"))

	var parentID *uuid.UUID
	if hasParent {
		parent, err := store.GetOrCreateCategory(ctx, NormalizeCategoryName(parentName, true), nil)
		if err != nil {
			return err
		}
		parentID = &parent.ID
	}
	_, err := store.GetOrCreateCategory(ctx, NormalizeCategoryName(name, !hasParent), parentID)
	return err
}
