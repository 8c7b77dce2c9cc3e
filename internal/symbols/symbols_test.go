package symbols

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_DropsEmptyNormalizesAndSorts(t *testing.T) {
	records := []Record{
		{"symbol": "aapl"},
		{"symbol": "MSFT"},
		{"symbol": ""},
		{},
	}
	assert.Equal(t, []string{"AAPL", "MSFT"}, Extract(records))
}

func TestExtract_Deduplicates(t *testing.T) {
	records := []Record{
		{"symbol": "msft", "name": "Microsoft"},
		{"symbol": "MSFT"},
		{"symbol": nil},
		{"ticker": "GOOG"},
	}
	assert.Equal(t, []string{"MSFT"}, Extract(records))
}

func TestExtract_KeepsWhitespace(t *testing.T) {
	records := []Record{
		{"symbol": " aapl "},
		{"symbol": "AAPL"},
		{"symbol": "   "},
	}
	assert.Equal(t, []string{"   ", " AAPL ", "AAPL"}, Extract(records))
}

func TestExtract_StringifiesScalars(t *testing.T) {
	records := []Record{
		{"symbol": float64(7203)},
		{"symbol": json.Number("6758")},
		{"symbol": json.Number("1.0")},
		{"symbol": json.Number("1e21")},
		{"symbol": json.Number("0")},
		{"symbol": json.Number("0.0")},
		{"symbol": 0.000015},
		{"symbol": true},
		{"symbol": false},
		{"symbol": []any{"AAPL"}},
		{"symbol": map[string]any{"x": 1}},
	}
	assert.Equal(t, []string{"1.0", "1.5E-05", "1E+21", "6758", "7203.0", "TRUE"}, Extract(records))
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		1:          "1.0",
		1e15:       "1000000000000000.0",
		1e16:       "1e+16",
		0.0001:     "0.0001",
		1.5e-5:     "1.5e-05",
		-2.5:       "-2.5",
		1.2345e100: "1.2345e+100",
		0:          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatFloat(in), "formatFloat(%v)", in)
	}
}

func TestExtract_OrderIndependent(t *testing.T) {
	records := []Record{
		{"symbol": "tsla"}, {"symbol": "AAPL"}, {"symbol": "sap.de"},
		{"symbol": "BRK-B"}, {"symbol": "aapl"}, {"symbol": "NVDA"},
	}
	want := Extract(records)
	assert.Equal(t, []string{"AAPL", "BRK-B", "NVDA", "SAP.DE", "TSLA"}, want)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Extract(shuffled))
	}
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, Extract(nil))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recommendations.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"symbol": "aapl", "target": 210},
		{"symbol": "MSFT"},
		{"symbol": ""},
		{}
	]`), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"symbol": "AAPL"`), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "parse recommendations")
}

func TestLoad_RejectsNonArrayInput(t *testing.T) {
	cases := map[string]string{
		"object":        `{"symbol": "AAPL"}`,
		"null":          `null`,
		"empty file":    ``,
		"null record":   `[{"symbol": "AAPL"}, null]`,
		"scalar record": `[{"symbol": "AAPL"}, "MSFT"]`,
		"trailing data": `[{"symbol": "AAPL"}] [1]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "recommendations.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := Load(path)
			require.ErrorContains(t, err, "parse recommendations")
		})
	}
}

func TestLoad_NumbersKeepTheirForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recommendations.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"symbol": 7203}, {"symbol": 6758.0}, {"symbol": 0}]`), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"6758.0", "7203"}, got)
}
