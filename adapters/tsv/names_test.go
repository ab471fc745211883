package tsv

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAvailableName(t *testing.T) {
	assert.Equal(t, "significant_loci.tsv", NextAvailableName(nil, "significant_loci.tsv"))
	assert.Equal(t, "significant_loci.tsv", NextAvailableName([]string{"other.tsv"}, "significant_loci.tsv"))
	assert.Equal(t, "significant_loci_1.tsv",
		NextAvailableName([]string{"significant_loci.tsv"}, "significant_loci.tsv"))
	assert.Equal(t, "significant_loci_3.tsv",
		NextAvailableName([]string{"significant_loci.tsv", "significant_loci_1.tsv", "significant_loci_2.tsv"}, "significant_loci.tsv"))
	assert.Equal(t, "significant_loci_1.tsv",
		NextAvailableName([]string{"significant_loci.tsv", "significant_loci_2.tsv"}, "significant_loci.tsv"))
	assert.Equal(t, "out_1", NextAvailableName([]string{"out"}, "out"))
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestCreateExclusive_NeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "final_out")

	first, err := CreateExclusive(dir, "significant_loci.tsv", writeString("first\n"))
	require.NoError(t, err)
	second, err := CreateExclusive(dir, "significant_loci.tsv", writeString("second\n"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "significant_loci.tsv"), first)
	assert.Equal(t, filepath.Join(dir, "significant_loci_1.tsv"), second)

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(b))
	b, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files are cleaned up")
}

func TestCreateExclusive_WriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateExclusive(dir, "x.tsv", func(w io.Writer) error {
		io.WriteString(w, "partial")
		return io.ErrShortWrite
	})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ReplaceFile(dir, "win1_s0-e10.tsv", writeString("old"))
	require.NoError(t, err)
	path, err := ReplaceFile(dir, "win1_s0-e10.tsv", writeString("new"))
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}
