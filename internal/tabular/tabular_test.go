package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Prix Unitaire (HT)", "prix_unitaire_ht"},
		{"prix_unitaire_ht", "prix_unitaire_ht"},
		{"  Quantité  ", "quantite"},
		{"Catégorie L1", "categorie_l1"},
		{"NOM", "nom"},
		{"__weird--header__", "weird_header"},
		{"", ""},
		{"***", ""},
		{"Zone / Rack", "zone_rack"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeHeader(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeHeaderIdempotent(t *testing.T) {
	inputs := []string{"Prix Unitaire (HT)", "Quantité", "café__crème", "A1 B2"}
	for _, in := range inputs {
		once := NormalizeHeader(in)
		assert.Equal(t, once, NormalizeHeader(once), "input %q", in)
	}
}

func TestDecodeTextBOMs(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want string
	}{
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("nom;marque")...), "nom;marque"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'a', 0, 'b', 0}, "ab"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'a', 0, 'b'}, "ab"},
		{"plain utf8", []byte("café"), "café"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeText(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeTextBOMlessUTF16(t *testing.T) {
	// "sku" encoded UTF-16LE without a BOM: nulls sit on odd offsets.
	le := []byte{'s', 0, 'k', 0, 'u', 0}
	got, err := DecodeText(le)
	require.NoError(t, err)
	assert.Equal(t, "sku", got)

	be := []byte{0, 's', 0, 'k', 0, 'u'}
	got, err = DecodeText(be)
	require.NoError(t, err)
	assert.Equal(t, "sku", got)
}

func TestDecodeTextWindows1252Fallback(t *testing.T) {
	// 0xE9 is é in Windows-1252 but invalid standalone UTF-8.
	got, err := DecodeText([]byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", got)
}

func TestExtractCSVSemicolonDefault(t *testing.T) {
	raw := []byte("nom;marque;quantite\nClavier;Logi;4\nSouris;Logi;2\n")
	table, err := ExtractCSV(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"nom", "marque", "quantite"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 2, table.Rows[0].Origin)
	assert.Equal(t, "Clavier", table.Rows[0].Cells[0].Text())
}

func TestExtractCSVCommaSniff(t *testing.T) {
	raw := []byte("name,brand,quantity\nKeyboard,Logi,4\n")
	table, err := ExtractCSV(raw, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "brand", "quantity"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Logi", table.Rows[0].Cells[1].Text())
}

func TestExtractCSVRaggedRows(t *testing.T) {
	raw := []byte("a;b;c\n1;2\n1;2;3;4\n")
	table, err := ExtractCSV(raw, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	recs := table.Records()
	assert.False(t, recs[0].Get("c").Present())
	assert.Equal(t, "3", recs[1].Get("c").Text())
}

func TestRecordsSyntheticAndDuplicateHeaders(t *testing.T) {
	table := Table{
		Headers: []string{"nom", "", "nom"},
		Rows: []Row{{Origin: 2, Cells: []Cell{
			StringCell("a"), StringCell("b"), StringCell("c"),
		}}},
	}
	recs := table.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].Get("nom").Text())
	assert.Equal(t, "b", recs[0].Get("column_2").Text())
	assert.Equal(t, "c", recs[0].Get("column_3").Text())
}

func TestRowIsEmpty(t *testing.T) {
	assert.True(t, Row{Cells: []Cell{StringCell("  "), {}}}.IsEmpty())
	assert.False(t, Row{Cells: []Cell{StringCell(" x ")}}.IsEmpty())
	assert.False(t, Row{Cells: []Cell{NumberCell(0)}}.IsEmpty())
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "4", NumberCell(4).Text())
	assert.Equal(t, "2.5", NumberCell(2.5).Text())
	assert.Equal(t, "true", BoolCell(true).Text())
	assert.Equal(t, "", Cell{}.Text())
}

func TestRegistryExtensions(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Supports("stock.csv"))
	assert.True(t, r.Supports("STOCK.XLSX"))
	assert.True(t, r.Supports("listing.pdf"))
	assert.False(t, r.Supports("stock.xls"))

	_, err := r.Extract("stock.xls", nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xls")

	_, err = r.Extract("stock.txt", nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestExtractCSVHeaderRowOffset(t *testing.T) {
	raw := []byte("Export du 2026-01-01;;\nnom;marque;quantite\nClavier;Logi;4\n")
	table, err := ExtractCSV(raw, Options{HeaderRow: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"nom", "marque", "quantite"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 3, table.Rows[0].Origin)
}
