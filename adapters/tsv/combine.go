package tsv

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// ParseFilter reads a colon-separated stats filter such as "i:h:x:d:f".
// An empty filter selects every test. The result is in output column order.
func ParseFilter(s string) ([]stats.TestSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return stats.AllTests, nil
	}
	want := make(map[string]bool)
	for _, code := range strings.Split(s, ":") {
		code = strings.TrimSpace(code)
		found := false
		for _, spec := range stats.AllTests {
			if spec.Code == code {
				found = true
				break
			}
		}
		if !found {
			return nil, core.NewValidationError("stats filter", fmt.Sprintf("invalid code %q in %q", code, s))
		}
		want[code] = true
	}

	var out []stats.TestSpec
	for _, spec := range stats.AllTests {
		if want[spec.Code] {
			out = append(out, spec)
		}
	}
	return out, nil
}

// ParseRange reads an inclusive window range "x-y"
func ParseRange(s string) (lo, hi int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, core.NewValidationError("window range", fmt.Sprintf("%q is not of the form x-y", s))
	}
	lo, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, core.NewValidationError("window range", fmt.Sprintf("lower bound %q is invalid", parts[0]))
	}
	hi, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, core.NewValidationError("window range", fmt.Sprintf("upper bound %q is invalid", parts[1]))
	}
	if lo > hi {
		return 0, 0, core.NewValidationError("window range", fmt.Sprintf("%d is greater than %d", lo, hi))
	}
	return lo, hi, nil
}

// CombinedColumns returns the header for a combined file. The dDAF test
// carries the DAF column along with it.
func CombinedColumns(specs []stats.TestSpec) []string {
	cols := []string{stats.ColSNPID, stats.ColPosition}
	for _, spec := range specs {
		cols = append(cols, string(spec.Kind))
		if spec.Kind == stats.TestDDAF {
			cols = append(cols, stats.ColDAF)
		}
	}
	return cols
}

// WriteCombined concatenates the raw scores of windows, keeping only specs
func WriteCombined(w io.Writer, windows []*stats.WindowStats, specs []stats.TestSpec) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(CombinedColumns(specs), "\t") + "\n"); err != nil {
		return err
	}
	for _, ws := range windows {
		for _, snp := range ws.AllSNPs() {
			fields := []string{snp.ID, strconv.Itoa(snp.Position)}
			for _, spec := range specs {
				fields = append(fields, formatFloat(ws.Score(spec.Kind, snp)))
				if spec.Kind == stats.TestDDAF {
					daf, ok := ws.DAF(snp)
					if !ok {
						daf = math.NaN()
					}
					fields = append(fields, formatFloat(daf))
				}
			}
			if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Combine writes windows lo..hi of the store into one combined file under a
// fresh name and returns its path and the number of windows found.
func (s *Store) Combine(filter string, lo, hi int) (string, int, error) {
	specs, err := ParseFilter(filter)
	if err != nil {
		return "", 0, err
	}
	windows, err := s.ReadRange(lo, hi)
	if err != nil {
		return "", 0, err
	}
	path, err := CreateExclusive(s.FinalDir(), CombinedName, func(w io.Writer) error {
		return WriteCombined(w, windows, specs)
	})
	if err != nil {
		return "", 0, err
	}
	s.logger.Info("combined %d windows (%d-%d) into %s", len(windows), lo, hi, path)
	return path, len(windows), nil
}
