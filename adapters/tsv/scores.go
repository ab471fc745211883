package tsv

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync"

	"selectcms/adapters/stats/signals"
	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// Score table and simulation file names
const (
	NeutralSimulationFile   = "neutral_simulation.tsv"
	SelectionSimulationFile = "selection_simulation.tsv"
)

// ScoreTableFiles maps each test to its score table file name
var ScoreTableFiles = map[stats.TestKind]string{
	stats.TestIHS:   "ihs.tsv",
	stats.TestIHH:   "ihh.tsv",
	stats.TestXPEHH: "xpehh.tsv",
	stats.TestDDAF:  "ddaf.tsv",
	stats.TestFst:   "fst.tsv",
}

// ReadScoreTable reads a snp_id/position/score table. A daf column is read
// when present.
func ReadScoreTable(path string) ([]stats.ScoreRow, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	cols, err := t.require("snp_id", "position", "score")
	if err != nil {
		return nil, err
	}
	dafCol := t.optional("daf")

	var rows []stats.ScoreRow
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
		score, err := t.float(rec, cols[2])
		if err != nil {
			return nil, err
		}
		daf, err := t.optionalFloat(rec, dafCol)
		if err != nil {
			return nil, err
		}
		rows = append(rows, stats.ScoreRow{SNP: snp, Score: score, DAF: daf})
	}
	return rows, nil
}

// ScoreTables loads each score table of a directory once and shares the rows
// between every window that asks for them.
type ScoreTables struct {
	dir   string
	mu    sync.Mutex
	cache map[stats.TestKind]*tableEntry
}

type tableEntry struct {
	once sync.Once
	rows []stats.ScoreRow
	err  error
}

// NewScoreTables serves the tables in dir
func NewScoreTables(dir string) *ScoreTables {
	return &ScoreTables{dir: dir, cache: make(map[stats.TestKind]*tableEntry)}
}

// Loader returns a RowLoader for kind
func (s *ScoreTables) Loader(kind stats.TestKind) signals.RowLoader {
	return func(ctx context.Context) ([]stats.ScoreRow, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.mu.Lock()
		e, ok := s.cache[kind]
		if !ok {
			e = &tableEntry{}
			s.cache[kind] = e
		}
		s.mu.Unlock()

		e.once.Do(func() {
			name, ok := ScoreTableFiles[kind]
			if !ok {
				e.err = fmt.Errorf("no score table for %s", kind)
				return
			}
			e.rows, e.err = ReadScoreTable(filepath.Join(s.dir, name))
		})
		return e.rows, e.err
	}
}

// Scorers returns one table-backed scorer per test, in output column order
func (s *ScoreTables) Scorers() ([]signals.Scorer, error) {
	out := make([]signals.Scorer, 0, len(stats.AllTests))
	for _, spec := range stats.AllTests {
		sc, err := signals.NewTableScorer(spec.Kind, s.Loader(spec.Kind))
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// Extent returns the smallest and largest position across every table
func (s *ScoreTables) Extent(ctx context.Context) (lo, hi int, err error) {
	lo, hi = math.MaxInt, math.MinInt
	for _, spec := range stats.AllTests {
		rows, err := s.Loader(spec.Kind)(ctx)
		if err != nil {
			return 0, 0, err
		}
		for _, r := range rows {
			lo = min(lo, r.SNP.Position)
			hi = max(hi, r.SNP.Position)
		}
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: score tables in %s are empty", core.ErrInsufficientData, s.dir)
	}
	return lo, hi, nil
}

// ReadSimulationFile reads one simulation file into per-test samples. Columns
// are matched by test name in any order; NaN cells are skipped.
func ReadSimulationFile(path string) (map[stats.TestKind][]float64, error) {
	t, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	cols := make(map[stats.TestKind]int, len(stats.AllTests))
	for name, idx := range t.cols {
		kind, err := stats.ParseTestKind(name)
		if err != nil {
			continue
		}
		cols[kind] = idx
	}
	for _, spec := range stats.AllTests {
		if _, ok := cols[spec.Kind]; !ok {
			return nil, core.NewMalformedError(t.name, 1, fmt.Sprintf("missing column %q", spec.Kind))
		}
	}

	out := make(map[stats.TestKind][]float64, len(stats.AllTests))
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for kind, col := range cols {
			if col >= len(rec) {
				continue
			}
			v, err := t.float(rec, col)
			if err != nil {
				return nil, err
			}
			if !math.IsNaN(v) {
				out[kind] = append(out[kind], v)
			}
		}
	}
	return out, nil
}

// ReadSimulations builds the neutral and selection distributions from dir
func ReadSimulations(dir string) (*stats.DistributionSet, error) {
	build := func(name string) (map[stats.TestKind]*stats.EmpiricalDistribution, error) {
		samples, err := ReadSimulationFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out := make(map[stats.TestKind]*stats.EmpiricalDistribution, len(samples))
		for _, spec := range stats.AllTests {
			d, err := stats.NewEmpiricalDistribution(spec.Kind, samples[spec.Kind])
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", name, spec.Kind, err)
			}
			out[spec.Kind] = d
		}
		return out, nil
	}

	neutral, err := build(NeutralSimulationFile)
	if err != nil {
		return nil, err
	}
	selection, err := build(SelectionSimulationFile)
	if err != nil {
		return nil, err
	}
	return stats.NewDistributionSet(neutral, selection)
}
