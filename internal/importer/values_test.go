package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wms-service/internal/tabular"
)

func TestGetValueAliasPrecedence(t *testing.T) {
	r := rec(2, map[string]string{"quantite": "4", "stock": "9"})
	got := GetValue(r, "quantity", "quantite", "stock", "qty")
	assert.Equal(t, "4", got.Text())

	// A blank cell on the first alias does not shadow later ones.
	r = rec(2, map[string]string{"quantite": "  ", "stock": "9"})
	got = GetValue(r, "quantity", "quantite", "stock", "qty")
	assert.Equal(t, "9", got.Text())
}

func TestParseBoolVocabularies(t *testing.T) {
	truthy := []string{"true", "1", "yes", "y", "OUI", "o", "Vrai"}
	for _, s := range truthy {
		v, ok, err := ParseBool(tabular.StringCell(s))
		require.NoError(t, err, "input %q", s)
		assert.True(t, ok)
		assert.True(t, v, "input %q", s)
	}
	falsy := []string{"false", "0", "no", "n", "NON", "Faux"}
	for _, s := range falsy {
		v, ok, err := ParseBool(tabular.StringCell(s))
		require.NoError(t, err, "input %q", s)
		assert.True(t, ok)
		assert.False(t, v, "input %q", s)
	}

	_, ok, err := ParseBool(tabular.StringCell(""))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseBool(tabular.StringCell("peut-etre"))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	v, ok, err := ParseBool(tabular.BoolCell(true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, v)
}

func TestParseDecimalCommaSeparator(t *testing.T) {
	d, err := ParseDecimal(tabular.StringCell("12,50"))
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "12.5", d.String())

	// Interior spaces are not a thousands separator.
	_, err = ParseDecimal(tabular.StringCell("1 234"))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	d, err = ParseDecimal(tabular.StringCell(""))
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDecimal(tabular.StringCell("abc"))
	require.Error(t, err)
}

func TestParseIntRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"4", 4},
		{"2.5", 3},
		{"2,5", 3},
		{"2.4", 2},
		{"-2.5", -3},
	}
	for _, tc := range cases {
		n, err := ParseInt(tabular.StringCell(tc.in))
		require.NoError(t, err, "input %q", tc.in)
		require.NotNil(t, n)
		assert.Equal(t, tc.want, *n, "input %q", tc.in)
	}

	n, err := ParseInt(tabular.StringCell("   "))
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestParseTokens(t *testing.T) {
	got := ParseTokens(tabular.StringCell(" fragile | froid, sec ,,"))
	assert.Equal(t, []string{"fragile", "froid", "sec"}, got)
	assert.Nil(t, ParseTokens(tabular.StringCell("  ")))
}
