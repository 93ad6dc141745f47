package feed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(50, 7)
	b := Generate(50, 7)
	c := Generate(50, 8)

	require.Len(t, a, 50)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	assert.Equal(t, "GEN-000000", a[0].SKU)
	assert.Equal(t, "0", a[0].ExternalID.Value)
	assert.True(t, a[0].ExternalID.Present)
	for _, row := range a {
		require.NotNil(t, row.Price)
		assert.GreaterOrEqual(t, *row.Price, 5.0)
		assert.Len(t, row.Category.Values, 2)
	}
}

func TestWrite_TabularRoundTrip(t *testing.T) {
	rows := Generate(40, 3)
	want := make([]domain.FeedProduct, 0, len(rows))
	for _, row := range rows {
		row.Variants = nil
		want = append(want, row)
	}

	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, rows))

			parsed, err := Parse(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, want, parsed)
		})
	}
}

func TestWrite_JSONKeepsVariants(t *testing.T) {
	rows := Generate(40, 3)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, rows))

	parsed, err := Parse(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, rows, parsed)
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("yaml"), nil))
}
