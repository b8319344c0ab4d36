package caucion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuotesShapes(t *testing.T) {
	cases := map[string]string{
		"bare list": `[{"plazo":1},{"plazo":7}]`,
		"titulos":   `{"titulos":[{"plazo":1},{"plazo":7}]}`,
		"cauciones": `{"cauciones":[{"plazo":1},{"plazo":7}],"total":2}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			quotes, err := ParseQuotes([]byte(body))
			require.NoError(t, err)
			require.Len(t, quotes, 2)

			tenor, ok := quotes[1].Tenor()
			require.True(t, ok)
			assert.Equal(t, 7, tenor)
		})
	}
}

func TestParseQuotesRejectsUnknownBodies(t *testing.T) {
	_, err := ParseQuotes([]byte(`{"message":"not here"}`))
	require.ErrorIs(t, err, ErrUnrecognisedBody)

	_, err = ParseQuotes([]byte(`<html>`))
	require.Error(t, err)
}

func TestParseQuotesDropsNonObjects(t *testing.T) {
	quotes, err := ParseQuotes([]byte(`[1,"x",{"plazo":3}]`))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
}

func TestTenorSynonyms(t *testing.T) {
	quotes, err := ParseQuotes([]byte(`[
		{"plazo": 1},
		{"diasVencimiento": 7},
		{"cantidadDias": "14"},
		{"plazo": 0},
		{"simbolo": "PESOS"}
	]`))
	require.NoError(t, err)

	var got []int
	for _, q := range quotes {
		if tenor, ok := q.Tenor(); ok {
			got = append(got, tenor)
		}
	}
	assert.Equal(t, []int{1, 7, 14}, got)
}

func TestRateSynonymsFirstPresentWins(t *testing.T) {
	quotes, err := ParseQuotes([]byte(`[
		{"plazo":1,"tasaColocadora":45.5,"precioCompra":40,"tasaTomadora":47.25},
		{"plazo":2,"precioCompra":"44,75","precioVenta":"46.1%"},
		{"plazo":3,"puntas":{"precioCompra":43,"precioVenta":45}},
		{"plazo":4,"puntas":[{"precioCompra":42.5,"precioVenta":44.5}]},
		{"plazo":5,"tasaColocadora":null,"tasaTomadora":"n/a"}
	]`))
	require.NoError(t, err)
	require.Len(t, quotes, 5)

	cases := []struct {
		idx      int
		side     Side
		expected string
	}{
		{0, SideLender, "45.5"},
		{0, SideBorrower, "47.25"},
		{1, SideLender, "44.75"},
		{1, SideBorrower, "46.1"},
		{2, SideLender, "43"},
		{2, SideBorrower, "45"},
		{3, SideLender, "42.5"},
		{3, SideBorrower, "44.5"},
	}
	for _, tc := range cases {
		rate, ok := quotes[tc.idx].Rate(tc.side)
		require.True(t, ok, "quote %d side %s", tc.idx, tc.side)
		assert.True(t, rate.Equal(decimal.RequireFromString(tc.expected)), "quote %d side %s: got %s", tc.idx, tc.side, rate)
	}

	_, ok := quotes[4].Rate(SideLender)
	assert.False(t, ok)
	_, ok = quotes[4].Rate(SideBorrower)
	assert.False(t, ok)
}

func TestIndexByTenorLastSeenWins(t *testing.T) {
	quotes, err := ParseQuotes([]byte(`[
		{"plazo":7,"tasaColocadora":40},
		{"plazo":1,"tasaColocadora":38},
		{"plazo":7,"tasaColocadora":41},
		{"simbolo":"no tenor"}
	]`))
	require.NoError(t, err)

	set := IndexByTenor(quotes)
	require.Len(t, set, 2)
	assert.Equal(t, []int{1, 7}, set.Tenors())

	rate, ok := set[7].Rate(SideLender)
	require.True(t, ok)
	assert.Equal(t, "41", rate.String())
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{
		"lender":    SideLender,
		"Colocador": SideLender,
		"borrower":  SideBorrower,
		" tomador ": SideBorrower,
	} {
		got, err := ParseSide(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSide("both")
	assert.Error(t, err)
}
