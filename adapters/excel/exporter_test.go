package excel

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

func TestExportLoci(t *testing.T) {
	loci := []stats.CompositeRecord{
		{
			SNP:      core.NewSNP(1200, "rs12"),
			Raw:      map[stats.TestKind]float64{stats.TestIHS: 2.5, stats.TestFst: 0.4},
			DAF:      0.8,
			UnstdPoP: 0.01,
			UnstdMoP: 0.6,
			StdPoP:   3.1,
			StdMoP:   2.9,
		},
		{
			SNP:      core.NewSNP(3400, "rs34"),
			DAF:      math.NaN(),
			UnstdPoP: math.NaN(),
			UnstdMoP: 0.7,
			StdPoP:   math.NaN(),
			StdMoP:   2.5,
		},
	}

	path := filepath.Join(t.TempDir(), "loci.xlsx")
	require.NoError(t, NewExporter().ExportLoci(path, loci))

	got, err := ReadLoci(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, loci[0].SNP, got[0].SNP)
	assert.Equal(t, 2.5, got[0].RawScore(stats.TestIHS))
	assert.True(t, math.IsNaN(got[0].RawScore(stats.TestXPEHH)))
	assert.Equal(t, 0.8, got[0].DAF)
	assert.Equal(t, 3.1, got[0].StdPoP)

	assert.Equal(t, "rs34", got[1].SNP.ID)
	assert.True(t, math.IsNaN(got[1].DAF))
	assert.True(t, math.IsNaN(got[1].StdPoP))
	assert.Equal(t, 2.5, got[1].StdMoP)
}

func TestExportLoci_EmptyHasHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewExporter().ExportLoci(path, nil))

	got, err := ReadLoci(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
