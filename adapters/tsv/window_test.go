package tsv

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/domain/core"
	"selectcms/domain/stats"
	"selectcms/internal/testkit"
)

func TestParseWindowFileName(t *testing.T) {
	n, s, e, ok := ParseWindowFileName("stats_files/win12_s1000-e2000.tsv")
	require.True(t, ok)
	assert.Equal(t, []int{12, 1000, 2000}, []int{n, s, e})

	n, s, e, ok = ParseWindowFileName("win3_chr2_CEU_s5-e9.tsv")
	require.True(t, ok)
	assert.Equal(t, []int{3, 5, 9}, []int{n, s, e})

	_, _, _, ok = ParseWindowFileName("combined_windows.tsv")
	assert.False(t, ok)
	assert.Equal(t, "win7_s1-e2.tsv", WindowFileName(7, 1, 2))
}

func TestWriteWindow_MissingValuesAreNaN(t *testing.T) {
	ws := stats.NewWindowStats(1, 0, 100)
	snp := core.NewSNP(10, "rs10")
	ws.AddScore(stats.TestIHS, snp, 1.5)
	ws.AddDAF(snp, 0.25)

	var buf bytes.Buffer
	require.NoError(t, WriteWindow(&buf, ws))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "snp_id\tposition\tiHS\tXPEHH\tiHH\tdDAF\tDAF\tFst\tunstd_PoP\tunstd_MoP\twin_PoP\twin_MoP", lines[0])
	assert.Equal(t, "rs10\t10\t1.5\tNaN\tNaN\tNaN\t0.25\tNaN\tNaN\tNaN\tNaN\tNaN", lines[1])
}

func TestWindowFile_RoundTrip(t *testing.T) {
	kit := testkit.NewTestKit(4)
	ws := kit.RandomWindow(5, testkit.SNPs(100, 7, 12))
	snps := ws.AllSNPs()
	for i, snp := range snps {
		ws.SetComposite(snp, float64(i)*0.01, 0.5+float64(i)*0.02)
		ws.PutStdPoP(snp, float64(i)-6)
		if i%2 == 0 {
			ws.PutStdMoP(snp, float64(i))
		}
	}

	store := NewStore(t.TempDir(), nil)
	path, err := store.WriteWindow(ws)
	require.NoError(t, err)
	assert.Equal(t, WindowFileName(5, ws.Start, ws.End), filepath.Base(path))

	got, err := ReadWindow(path)
	require.NoError(t, err)
	assert.Equal(t, ws.Number, got.Number)
	assert.Equal(t, ws.Start, got.Start)
	assert.Equal(t, ws.End, got.End)

	want, have := ws.Records(), got.Records()
	require.Len(t, have, len(want))
	for i := range want {
		assert.Equal(t, want[i].SNP, have[i].SNP)
		wv, hv := want[i].Values(), have[i].Values()
		for j := range wv {
			if math.IsNaN(wv[j]) {
				assert.True(t, math.IsNaN(hv[j]), "%s col %d", want[i].SNP, j)
			} else {
				assert.Equal(t, wv[j], hv[j], "%s col %d", want[i].SNP, j)
			}
		}
	}
}

func TestReadWindow_RawOnlyLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "win2_s0-e500.tsv")
	require.NoError(t, os.WriteFile(path, []byte(
		"snp_id\tposition\tiHS\tXPEHH\tiHH\tdDAF\tDAF\tFst\n"+
			"rs1\t10\t1\t2\t3\t0.4\t0.6\t0.05\n"+
			"rs2\t20\tNaN\t2\t3\t0.4\tNaN\t0.05\n"), 0o644))

	ws, err := ReadWindow(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ws.NumSNPs())
	assert.Equal(t, 1.0, ws.Score(stats.TestIHS, core.NewSNP(10, "rs1")))
	assert.False(t, ws.HasScore(stats.TestIHS, core.NewSNP(20, "rs2")))
	_, ok := ws.DAF(core.NewSNP(20, "rs2"))
	assert.False(t, ok)
	assert.Empty(t, ws.UnstdPoP())
}

func TestReadWindow_BadName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.tsv")
	require.NoError(t, os.WriteFile(path, []byte("snp_id\tposition\n"), 0o644))
	_, err := ReadWindow(path)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestStore_WriteLociUsesFreshNames(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	rec := stats.CompositeRecord{SNP: core.NewSNP(1, "rs1"), DAF: 0.5, UnstdPoP: 0.1, UnstdMoP: 0.2, StdPoP: 3, StdMoP: 2.5}

	p1, err := store.WriteLoci([]stats.CompositeRecord{rec})
	require.NoError(t, err)
	p2, err := store.WriteLoci(nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.FinalDir(), "significant_loci.tsv"), p1)
	assert.Equal(t, filepath.Join(store.FinalDir(), "significant_loci_1.tsv"), p2)

	b, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Contains(t, string(b), "rs1\t1\tNaN\tNaN\tNaN\tNaN\t0.5\tNaN\t0.1\t0.2\t3\t2.5\n")
}

func TestStore_DuplicateWindowNumberIsMalformed(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	ws := testkit.NewTestKit(4).RandomWindow(3, testkit.SNPs(0, 1, 5))
	ws.Start, ws.End = 0, 10
	_, err := store.WriteWindow(ws)
	require.NoError(t, err)

	files, err := store.WindowFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)

	tagged := filepath.Join(store.StatsDir(), "win3_chr2_s0-e10.tsv")
	require.NoError(t, os.WriteFile(tagged, []byte("snp_id\tposition\n"), 0o644))

	_, err = store.WindowFiles()
	require.ErrorIs(t, err, core.ErrMalformedInput)
	assert.Contains(t, err.Error(), "window 3")

	_, err = store.ReadWindows()
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}
