package tsv

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

var windowFilePattern = regexp.MustCompile(`^win(\d+)_(?:.*_)?s(-?\d+)-e(-?\d+)\.tsv$`)

// WindowFileName returns the stats file name of a window
func WindowFileName(number, start, end int) string {
	return fmt.Sprintf("win%d_s%d-e%d.tsv", number, start, end)
}

// ParseWindowFileName extracts the window number and bounds from a stats
// file name. Names may carry extra fields between the number and the bounds.
func ParseWindowFileName(name string) (number, start, end int, ok bool) {
	m := windowFilePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, 0, 0, false
	}
	number, _ = strconv.Atoi(m[1])
	start, _ = strconv.Atoi(m[2])
	end, _ = strconv.Atoi(m[3])
	return number, start, end, true
}

// WriteRecords writes the header and one line per record
func WriteRecords(w io.Writer, records []stats.CompositeRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(stats.OutputColumns, "\t") + "\n"); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writeRecord(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, rec stats.CompositeRecord) error {
	fields := make([]string, 0, len(stats.OutputColumns))
	fields = append(fields, rec.SNP.ID, strconv.Itoa(rec.SNP.Position))
	for _, v := range rec.Values() {
		fields = append(fields, formatFloat(v))
	}
	_, err := w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteWindow writes every SNP of ws in SNP order
func WriteWindow(w io.Writer, ws *stats.WindowStats) error {
	return WriteRecords(w, ws.Records())
}

// ReadWindow parses a window stats file. Columns are located by header, so
// both the full layout and the raw-only layout (no composite columns) load.
func ReadWindow(path string) (*stats.WindowStats, error) {
	number, start, end, ok := ParseWindowFileName(path)
	if !ok {
		return nil, core.NewMalformedError(filepath.Base(path), 0, "file name does not match win{N}_s{start}-e{end}.tsv")
	}

	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	cols, err := t.require(stats.ColSNPID, stats.ColPosition)
	if err != nil {
		return nil, err
	}
	testCols := make(map[stats.TestKind]int, len(stats.AllTests))
	for _, spec := range stats.AllTests {
		testCols[spec.Kind] = t.optional(string(spec.Kind))
	}
	dafCol := t.optional(stats.ColDAF)
	unstdPoP, unstdMoP := t.optional(stats.ColUnstdPoP), t.optional(stats.ColUnstdMoP)
	stdPoP, stdMoP := t.optional(stats.ColStdPoP), t.optional(stats.ColStdMoP)

	ws := stats.NewWindowStats(number, start, end)
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		snp, err := t.snp(rec, cols[0], cols[1])
		if err != nil {
			return nil, err
		}

		for _, spec := range stats.AllTests {
			v, err := t.optionalFloat(rec, testCols[spec.Kind])
			if err != nil {
				return nil, err
			}
			ws.AddScore(spec.Kind, snp, v)
		}
		daf, err := t.optionalFloat(rec, dafCol)
		if err != nil {
			return nil, err
		}
		ws.AddDAF(snp, daf)

		vals, err := readFloats(t, rec, unstdPoP, unstdMoP, stdPoP, stdMoP)
		if err != nil {
			return nil, err
		}
		ws.SetComposite(snp, vals[0], vals[1])
		if !math.IsNaN(vals[2]) {
			ws.PutStdPoP(snp, vals[2])
		}
		if !math.IsNaN(vals[3]) {
			ws.PutStdMoP(snp, vals[3])
		}
	}
	return ws, nil
}

func readFloats(t *table, rec []string, cols ...int) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, err := t.optionalFloat(rec, c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
