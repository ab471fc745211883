package tsv

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"selectcms/domain/core"
)

// NaNText is how absent values are written
const NaNText = "NaN"

// table is a header-indexed, tab-separated file opened for streaming
type table struct {
	name   string
	file   *os.File
	reader *csv.Reader
	cols   map[string]int
	line   int
}

func openTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, core.NewNotFoundError("table", path)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrUpstreamData, err)
	}

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	t := &table{name: filepath.Base(path), file: f, reader: r, cols: make(map[string]int)}
	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, core.NewMalformedError(t.name, 1, "empty file")
		}
		return nil, core.NewMalformedError(t.name, 1, err.Error())
	}
	t.line = 1
	for i, h := range header {
		t.cols[strings.TrimSpace(h)] = i
	}
	return t, nil
}

func (t *table) Close() error { return t.file.Close() }

// require returns the column indexes of names, failing if any is missing
func (t *table) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, ok := t.cols[n]
		if !ok {
			return nil, core.NewMalformedError(t.name, 1, fmt.Sprintf("missing column %q", n))
		}
		idx[i] = c
	}
	return idx, nil
}

// optional returns the column index of name or -1
func (t *table) optional(name string) int {
	if c, ok := t.cols[name]; ok {
		return c
	}
	return -1
}

// next returns the next non-blank record, or io.EOF
func (t *table) next() ([]string, error) {
	for {
		rec, err := t.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		t.line++
		if err != nil {
			return nil, core.NewMalformedError(t.name, t.line, err.Error())
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		return rec, nil
	}
}

func (t *table) field(rec []string, col int) (string, error) {
	if col < 0 || col >= len(rec) {
		return "", core.NewMalformedError(t.name, t.line, fmt.Sprintf("expected at least %d fields, got %d", col+1, len(rec)))
	}
	return strings.TrimSpace(rec[col]), nil
}

func (t *table) float(rec []string, col int) (float64, error) {
	s, err := t.field(rec, col)
	if err != nil {
		return 0, err
	}
	v, err := parseFloat(s)
	if err != nil {
		return 0, core.NewMalformedError(t.name, t.line, err.Error())
	}
	return v, nil
}

// optionalFloat reads col or returns NaN when the column is absent
func (t *table) optionalFloat(rec []string, col int) (float64, error) {
	if col < 0 {
		return math.NaN(), nil
	}
	return t.float(rec, col)
}

func (t *table) int(rec []string, col int) (int, error) {
	s, err := t.field(rec, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, core.NewMalformedError(t.name, t.line, fmt.Sprintf("invalid position %q", s))
	}
	return v, nil
}

func (t *table) snp(rec []string, idCol, posCol int) (core.SNP, error) {
	id, err := t.field(rec, idCol)
	if err != nil {
		return core.SNP{}, err
	}
	pos, err := t.int(rec, posCol)
	if err != nil {
		return core.SNP{}, err
	}
	return core.NewSNP(pos, id), nil
}

// parseFloat accepts the usual spellings of a missing value as NaN
func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "-":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return NaNText
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
