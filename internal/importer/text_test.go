package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Jean-Pierre D'Arc", NormalizeTitle("  jean-pierre d'arc ", nil))
	assert.Equal(t, "Gants Latex", NormalizeTitle("GANTS LATEX", nil))
	assert.Equal(t, "Kit EPI Chantier", NormalizeTitle("kit epi chantier", CategoryAcronyms))
	assert.Equal(t, "123 Pieces", NormalizeTitle("123 pieces", nil))
	assert.Equal(t, "", NormalizeTitle("   ", nil))
}

func TestNormalizeTitleSubParts(t *testing.T) {
	// Slashes delimit sub-parts like hyphens do, and the keep-upper set
	// applies to each sub-part, not just whole words.
	assert.Equal(t, "Gants EPI/PCA", NormalizeTitle("gants epi/pca", CategoryAcronyms))
	assert.Equal(t, "EPI-Safety", NormalizeTitle("epi-safety", CategoryAcronyms))
	// Sub-parts not starting with a letter keep their casing.
	assert.Equal(t, "Set-3m", NormalizeTitle("set-3m", nil))
	assert.Equal(t, "Aller/Retour", NormalizeTitle("aller/retour", nil))
}

func TestNormalizeCategoryName(t *testing.T) {
	assert.Equal(t, "MATERIEL MEDICAL", NormalizeCategoryName("matériel medical", true))
	assert.Equal(t, "Gants D'Examen", NormalizeCategoryName("gants d'examen", false))
	assert.Equal(t, "Masques EPI", NormalizeCategoryName("masques epi", false))
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, FoldKey("ABC 123!"), FoldKey("abc-123"))
	assert.Equal(t, "cafecreme", FoldKey("Café  Crème"))
	assert.Equal(t, "", FoldKey(" ***  "))
	assert.NotEqual(t, FoldKey("abc"), FoldKey("abd"))
}

func TestNormalizeUpper(t *testing.T) {
	assert.Equal(t, "A1", NormalizeUpper(" a1 "))
	assert.Equal(t, "", NormalizeUpper("  "))
}
