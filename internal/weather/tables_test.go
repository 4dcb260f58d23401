package weather

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, []string{
		"RKSI", "RKSS", "RKTU", "RKTN", "RKJJ", "RKJB", "RKPK", "RKPC",
		"RKNW", "RKJK", "RKPU", "RKTH", "RKJY", "RKPS", "RKNY",
	}, tables.ICAOCodes())
	assert.Equal(t, "맑음", tables.Icons["mtph15"])
	assert.Equal(t, "흐림", tables.Icons["wi04"])
	assert.Equal(t, []string{"전라북도", "전북", "전북자치도", "전북특별자치도"}, tables.Airports[9].Upper)
	assert.Equal(t, "부산 서부", tables.Airports[6].Lower)
}

func TestParseTables_Validation(t *testing.T) {
	tests := map[string]string{
		"empty":          "icons: {}\n",
		"missing upper":  "airports:\n  - name: 인천\n    icao: RKSI\n    lower: 인천\n",
		"duplicate name": "airports:\n  - {name: 인천, icao: RKSI, upper: [인천], lower: 인천}\n  - {name: 인천, icao: RKSS, upper: [서울], lower: 서울}\n",
		"bad yaml":       "airports: [",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTables([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	raw := "airports:\n  - {name: 김해, icao: RKPK, upper: [부산], lower: 김해}\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"RKPK"}, tables.ICAOCodes())
	assert.NotNil(t, tables.Icons)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tables, err = LoadTables("")
	require.NoError(t, err)
	assert.Len(t, tables.Airports, 15)
}
