package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// ReadLoci loads the significant loci sheet of a workbook written by
// ExportLoci. Empty cells come back as NaN.
func ReadLoci(path string) ([]stats.CompositeRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(LociSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", LociSheet, err)
	}
	if len(rows) == 0 {
		return nil, core.NewMalformedError(path, 1, "missing header row")
	}
	if strings.Join(rows[0], "\t") != strings.Join(stats.OutputColumns, "\t") {
		return nil, core.NewMalformedError(path, 1, "unexpected header")
	}

	out := make([]stats.CompositeRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(c int) string {
			if c < len(row) {
				return strings.TrimSpace(row[c])
			}
			return ""
		}

		pos, err := strconv.Atoi(cell(1))
		if err != nil {
			return nil, core.NewMalformedError(path, line, fmt.Sprintf("invalid position %q", cell(1)))
		}
		vals := make([]float64, len(stats.OutputColumns)-2)
		for j := range vals {
			s := cell(j + 2)
			if s == "" {
				vals[j] = math.NaN()
				continue
			}
			if vals[j], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, core.NewMalformedError(path, line, fmt.Sprintf("invalid number %q", s))
			}
		}
		out = append(out, recordFromValues(core.NewSNP(pos, cell(0)), vals))
	}
	return out, nil
}

// recordFromValues is the inverse of CompositeRecord.Values
func recordFromValues(snp core.SNP, v []float64) stats.CompositeRecord {
	return stats.CompositeRecord{
		SNP: snp,
		Raw: map[stats.TestKind]float64{
			stats.TestIHS:   v[0],
			stats.TestXPEHH: v[1],
			stats.TestIHH:   v[2],
			stats.TestDDAF:  v[3],
			stats.TestFst:   v[5],
		},
		DAF:      v[4],
		UnstdPoP: v[6],
		UnstdMoP: v[7],
		StdPoP:   v[8],
		StdMoP:   v[9],
	}
}
