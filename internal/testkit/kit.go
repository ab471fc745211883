package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"selectcms/adapters/stats/signals"
	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// TestKit provides deterministic fixtures: simulated distributions, synthetic
// windows and scorers with scripted behavior.
type TestKit struct {
	rng *rand.Rand
}

// NewTestKit creates a kit seeded for reproducible fixtures
func NewTestKit(seed int64) *TestKit {
	return &TestKit{rng: rand.New(rand.NewSource(seed))}
}

// SimulatedSamples draws n values per test for one scenario. Neutral values
// centre on zero; selection values are shifted into the tail. One-sided tests
// get non-negative values.
func (k *TestKit) SimulatedSamples(n int, selection bool) map[stats.TestKind][]float64 {
	out := make(map[stats.TestKind][]float64, len(stats.AllTests))
	for _, spec := range stats.AllTests {
		shift := 0.0
		if selection {
			shift = 2.0
		}
		vals := make([]float64, n)
		for i := range vals {
			v := k.rng.NormFloat64() + shift
			if !spec.TwoSided() {
				v = math.Abs(v)
			}
			vals[i] = v
		}
		out[spec.Kind] = vals
	}
	return out
}

// Distributions builds a full DistributionSet from SimulatedSamples
func (k *TestKit) Distributions(n int) (*stats.DistributionSet, error) {
	build := func(selection bool) (map[stats.TestKind]*stats.EmpiricalDistribution, error) {
		out := make(map[stats.TestKind]*stats.EmpiricalDistribution)
		for kind, vals := range k.SimulatedSamples(n, selection) {
			d, err := stats.NewEmpiricalDistribution(kind, vals)
			if err != nil {
				return nil, err
			}
			out[kind] = d
		}
		return out, nil
	}

	neutral, err := build(false)
	if err != nil {
		return nil, err
	}
	selection, err := build(true)
	if err != nil {
		return nil, err
	}
	return stats.NewDistributionSet(neutral, selection)
}

// SNPs returns n SNPs spaced step apart starting at start
func SNPs(start, step, n int) []core.SNP {
	out := make([]core.SNP, n)
	for i := range out {
		pos := start + i*step
		out[i] = core.NewSNP(pos, fmt.Sprintf("rs%d", pos))
	}
	return out
}

// Constant maps every SNP to v
func Constant(snps []core.SNP, v float64) map[core.SNP]float64 {
	out := make(map[core.SNP]float64, len(snps))
	for _, s := range snps {
		out[s] = v
	}
	return out
}

// RandomWindow fills a window with random raw scores and DAF values
func (k *TestKit) RandomWindow(number int, snps []core.SNP) *stats.WindowStats {
	start, end := 0, 0
	if len(snps) > 0 {
		start, end = snps[0].Position, snps[len(snps)-1].Position
	}
	ws := stats.NewWindowStats(number, start, end)
	for _, snp := range snps {
		for _, spec := range stats.AllTests {
			v := k.rng.NormFloat64() * 2
			if !spec.TwoSided() {
				v = math.Abs(v)
			}
			ws.AddScore(spec.Kind, snp, v)
		}
		ws.AddDAF(snp, 0.2+0.8*k.rng.Float64())
	}
	return ws
}

// ============================================================================
// SCRIPTED SCORERS
// ============================================================================

// StaticScorer returns fixed scores for kind
func StaticScorer(kind stats.TestKind, scores, daf map[core.SNP]float64) signals.Scorer {
	s, err := signals.NewFuncScorer(kind, func(ctx context.Context, win signals.Window) (map[core.SNP]float64, error) {
		return scores, nil
	})
	if err != nil {
		panic(err)
	}
	if daf != nil {
		s.WithDAF(func(ctx context.Context, win signals.Window) (map[core.SNP]float64, error) {
			return daf, nil
		})
	}
	return s
}

// FailingScorer fails with err after delay
func FailingScorer(kind stats.TestKind, delay time.Duration, err error) signals.Scorer {
	s, e := signals.NewFuncScorer(kind, func(ctx context.Context, win signals.Window) (map[core.SNP]float64, error) {
		select {
		case <-time.After(delay):
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if e != nil {
		panic(e)
	}
	return s
}

// BlockingScorer never returns until its context is cancelled
func BlockingScorer(kind stats.TestKind) signals.Scorer {
	s, err := signals.NewFuncScorer(kind, func(ctx context.Context, win signals.Window) (map[core.SNP]float64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if err != nil {
		panic(err)
	}
	return s
}

// StaticScorers returns one StaticScorer per test, all scoring snps with v
// and the dDAF scorer also reporting daf.
func StaticScorers(snps []core.SNP, v, daf float64) []signals.Scorer {
	out := make([]signals.Scorer, 0, len(stats.AllTests))
	for _, spec := range stats.AllTests {
		var dafMap map[core.SNP]float64
		if spec.Kind == stats.TestDDAF {
			dafMap = Constant(snps, daf)
		}
		out = append(out, StaticScorer(spec.Kind, Constant(snps, v), dafMap))
	}
	return out
}

// ============================================================================
// FILE FIXTURES
// ============================================================================

// ScoreTableFile maps each test to the file name used in a score table directory
var ScoreTableFile = map[stats.TestKind]string{
	stats.TestIHS:   "ihs.tsv",
	stats.TestIHH:   "ihh.tsv",
	stats.TestXPEHH: "xpehh.tsv",
	stats.TestDDAF:  "ddaf.tsv",
	stats.TestFst:   "fst.tsv",
}

// WriteScoreTables writes one score table per test into dir with random
// scores for snps.
func (k *TestKit) WriteScoreTables(dir string, snps []core.SNP) error {
	for _, spec := range stats.AllTests {
		var b strings.Builder
		b.WriteString("snp_id\tposition\tscore")
		if spec.Kind == stats.TestDDAF {
			b.WriteString("\tdaf")
		}
		b.WriteString("\n")
		for _, snp := range snps {
			v := k.rng.NormFloat64() * 2
			if !spec.TwoSided() {
				v = math.Abs(v)
			}
			fmt.Fprintf(&b, "%s\t%d\t%s", snp.ID, snp.Position, strconv.FormatFloat(v, 'f', -1, 64))
			if spec.Kind == stats.TestDDAF {
				fmt.Fprintf(&b, "\t%s", strconv.FormatFloat(0.2+0.8*k.rng.Float64(), 'f', -1, 64))
			}
			b.WriteString("\n")
		}
		if err := os.WriteFile(filepath.Join(dir, ScoreTableFile[spec.Kind]), []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteSimulations writes neutral_simulation.tsv and selection_simulation.tsv into dir
func (k *TestKit) WriteSimulations(dir string, n int) error {
	for name, selection := range map[string]bool{"neutral_simulation.tsv": false, "selection_simulation.tsv": true} {
		samples := k.SimulatedSamples(n, selection)
		var b strings.Builder
		header := make([]string, 0, len(stats.AllTests))
		for _, spec := range stats.AllTests {
			header = append(header, string(spec.Kind))
		}
		b.WriteString(strings.Join(header, "\t") + "\n")
		for i := 0; i < n; i++ {
			row := make([]string, 0, len(stats.AllTests))
			for _, spec := range stats.AllTests {
				row = append(row, strconv.FormatFloat(samples[spec.Kind][i], 'f', -1, 64))
			}
			b.WriteString(strings.Join(row, "\t") + "\n")
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
