package tsv

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/adapters/stats/signals"
	"selectcms/domain/core"
	"selectcms/domain/stats"
	"selectcms/internal/testkit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadScoreTable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ddaf.tsv",
		"snp_id\tposition\tscore\tdaf\n"+
			"rs1\t100\t0.5\t0.7\n"+
			"rs2\t200\tNaN\t0.1\n"+
			"\n"+
			"rs3\t300\t-1.25\tNA\n")

	rows, err := ReadScoreTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, core.NewSNP(100, "rs1"), rows[0].SNP)
	assert.Equal(t, 0.5, rows[0].Score)
	assert.Equal(t, 0.7, rows[0].DAF)
	assert.True(t, math.IsNaN(rows[1].Score))
	assert.Equal(t, -1.25, rows[2].Score)
	assert.True(t, math.IsNaN(rows[2].DAF))
}

func TestReadScoreTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadScoreTable(filepath.Join(dir, "missing.tsv"))
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.True(t, core.IsUpstreamError(err))

	path := writeFile(t, dir, "ihs.tsv", "snp_id\tposition\n")
	_, err = ReadScoreTable(path)
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	path = writeFile(t, dir, "fst.tsv", "snp_id\tposition\tscore\nrs1\tabc\t1\n")
	_, err = ReadScoreTable(path)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.Contains(t, err.Error(), "line 2")
}

func TestScoreTables_ScorersRestrictToWindow(t *testing.T) {
	dir := t.TempDir()
	snps := testkit.SNPs(100, 100, 20) // 100..2000
	require.NoError(t, testkit.NewTestKit(1).WriteScoreTables(dir, snps))

	tables := NewScoreTables(dir)
	scorers, err := tables.Scorers()
	require.NoError(t, err)
	require.Len(t, scorers, len(stats.AllTests))

	win := signals.Window{Number: 1, Start: 500, End: 900}
	for _, sc := range scorers {
		res, err := sc.Score(context.Background(), win)
		require.NoError(t, err, sc.Name())
		assert.Len(t, res.Scores, 5, sc.Name())
		if sc.Spec().Kind == stats.TestDDAF {
			assert.Len(t, res.DAF, 5)
		} else {
			assert.Nil(t, res.DAF)
		}
	}

	lo, hi, err := tables.Extent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, lo)
	assert.Equal(t, 2000, hi)

	_, err = scorers[0].Score(context.Background(), signals.Window{Number: 2, Start: 5000, End: 6000})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestReadSimulations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testkit.NewTestKit(2).WriteSimulations(dir, 300))

	ds, err := ReadSimulations(dir)
	require.NoError(t, err)
	for _, spec := range stats.AllTests {
		pair, ok := ds.Pair(spec.Kind)
		require.True(t, ok)
		assert.Equal(t, 300, pair.Neutral.Len())
		assert.Greater(t, pair.Selection.Mean(), pair.Neutral.Mean())
	}
}

func TestReadSimulationFile_AnyColumnOrderSkipsNaN(t *testing.T) {
	path := writeFile(t, t.TempDir(), "neutral_simulation.tsv",
		"Fst\tXPEHH\tiHS\tdDAF\tiHH\n"+
			"0.1\t1\t-2\t0.3\tNaN\n"+
			"0.2\t2\t2\t0.4\t1.5\n")

	samples, err := ReadSimulationFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, samples[stats.TestFst])
	assert.Equal(t, []float64{-2, 2}, samples[stats.TestIHS])
	assert.Equal(t, []float64{1.5}, samples[stats.TestIHH])

	bad := writeFile(t, t.TempDir(), "selection_simulation.tsv", "Fst\tiHS\n1\t2\n")
	_, err = ReadSimulationFile(bad)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}
