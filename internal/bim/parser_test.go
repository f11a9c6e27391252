package bim

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = "1\trs1\t0.0\t100\tA\tG\n" +
	"1\trs2\t0.0\t900\tA\tT\n" +
	"2\trs3\t1.5\t250\tC\tT\n"

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, "test.bim", sampleCatalog)

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	rec := table.Records()[0]
	assert.Equal(t, "1", rec.Chromosome)
	assert.Equal(t, "rs1", rec.ID)
	assert.Equal(t, int64(100), rec.Position)
	assert.Equal(t, "A", rec.RefAllele)
	assert.Equal(t, "G", rec.AltAllele)
	assert.Equal(t, 0.0, rec.GeneticDistance)
}

func TestLoad_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sampleCatalog))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bim"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, "nope.bim")
}

func TestLoad_WrongColumnCount(t *testing.T) {
	path := writeCatalog(t, "bad.bim", "1\trs1\t0.0\t100\tA\n")

	_, err := Load(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 1, loadErr.Line)
	assert.Contains(t, loadErr.Error(), "columns")
}

func TestLoad_BadNumericField(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"bad position", "1\trs1\t0.0\tabc\tA\tG\n"},
		{"bad distance", "1\trs1\txyz\t100\tA\tG\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, "bad.bim", tt.row)
			_, err := Load(path)
			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
		})
	}
}

func TestLoad_SkipsBlankLines(t *testing.T) {
	path := writeCatalog(t, "blank.bim", "1\trs1\t0.0\t100\tA\tG\n\n1\trs2\t0.0\t900\tA\tT\n")

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestLoad_Idempotent(t *testing.T) {
	path := writeCatalog(t, "test.bim", sampleCatalog)

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Records(), second.Records())
}

func TestTable_ByID(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	rec := table.ByID("rs2")
	require.NotNil(t, rec)
	assert.Equal(t, int64(900), rec.Position)

	assert.Nil(t, table.ByID("rs999"))
}

func TestTable_Chromosome(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	recs := table.Chromosome("1")
	require.Len(t, recs, 2)
	assert.Equal(t, "rs1", recs[0].ID)
	assert.Equal(t, "rs2", recs[1].ID)

	assert.Empty(t, table.Chromosome("X"))
}

func TestTable_NilSafe(t *testing.T) {
	var table *Table
	assert.Zero(t, table.Len())
	assert.Nil(t, table.Records())
	assert.Nil(t, table.ByID("rs1"))
	assert.Nil(t, table.Chromosome("1"))
}
