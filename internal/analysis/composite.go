package analysis

import (
	"fmt"
	"math"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// CompositeOptions controls how per-test posteriors are combined
type CompositeOptions struct {
	// DAFCutoff gates the product composite: SNPs whose derived allele
	// frequency is below it get no product score.
	DAFCutoff float64
	// GateMeanOnDAF applies the same cutoff to the mean composite when the
	// cutoff is nonzero.
	GateMeanOnDAF bool
	// PriorOverride replaces the 1/N prior when set (0 < prior < 1).
	PriorOverride float64
}

// DefaultCompositeOptions matches the standard CMS settings
func DefaultCompositeOptions() CompositeOptions {
	return CompositeOptions{DAFCutoff: 0.2, GateMeanOnDAF: true}
}

// SNPComposite is the outcome of combining one SNP's test scores. Absent
// composites are NaN.
type SNPComposite struct {
	Posteriors map[stats.TestKind]float64
	PoP        float64
	MoP        float64
}

// CompositeScorer turns raw scores into posterior probabilities of selection
// and combines them into the product (PoP) and mean (MoP) composites.
type CompositeScorer struct {
	dists *stats.DistributionSet
	opts  CompositeOptions
}

// NewCompositeScorer creates a scorer over an immutable distribution set
func NewCompositeScorer(dists *stats.DistributionSet, opts CompositeOptions) (*CompositeScorer, error) {
	if dists == nil {
		return nil, fmt.Errorf("%w: no simulated distributions", core.ErrUpstreamData)
	}
	if opts.DAFCutoff < 0 || opts.DAFCutoff > 1 {
		return nil, fmt.Errorf("DAF cutoff must lie in [0,1], got %g", opts.DAFCutoff)
	}
	if opts.PriorOverride != 0 && !(opts.PriorOverride > 0 && opts.PriorOverride < 1) {
		return nil, fmt.Errorf("prior override must lie in (0,1), got %g", opts.PriorOverride)
	}
	return &CompositeScorer{dists: dists, opts: opts}, nil
}

// Prior returns the prior probability of selection for a window of n SNPs
func (c *CompositeScorer) Prior(n int) float64 {
	if c.opts.PriorOverride > 0 {
		return c.opts.PriorOverride
	}
	if n <= 0 {
		return math.NaN()
	}
	return 1 / float64(n)
}

// Posterior applies Bayes' rule to one raw score:
//
//	P(sel|score) = P_sel(score)*prior / (P_sel(score)*prior + P_neut(score)*(1-prior))
//
// It returns NaN when the score is NaN or lies outside the support of both
// distributions (zero denominator).
func (c *CompositeScorer) Posterior(kind stats.TestKind, score, prior float64) float64 {
	if math.IsNaN(score) {
		return math.NaN()
	}
	spec, ok := stats.SpecFor(kind)
	if !ok {
		return math.NaN()
	}
	pair, ok := c.dists.Pair(kind)
	if !ok {
		return math.NaN()
	}

	sel := pair.Selection.Probability(score, spec.TwoSided())
	neut := pair.Neutral.Probability(score, spec.TwoSided())

	nom := sel * prior
	denom := nom + neut*(1-prior)
	if denom == 0 || math.IsNaN(denom) {
		return math.NaN()
	}
	return nom / denom
}

// ScoreSNP combines the raw scores of one SNP. raw may omit tests; NaN
// entries count as absent. daf is NaN when unknown.
func (c *CompositeScorer) ScoreSNP(raw map[stats.TestKind]float64, daf, prior float64) SNPComposite {
	out := SNPComposite{
		Posteriors: make(map[stats.TestKind]float64, stats.NumTests),
		PoP:        math.NaN(),
		MoP:        math.NaN(),
	}

	for _, spec := range stats.AllTests {
		score, ok := raw[spec.Kind]
		if !ok {
			continue
		}
		if p := c.Posterior(spec.Kind, score, prior); !math.IsNaN(p) {
			out.Posteriors[spec.Kind] = p
		}
	}

	passesDAF := !math.IsNaN(daf) && daf >= c.opts.DAFCutoff

	if len(out.Posteriors) == stats.NumTests && passesDAF {
		out.PoP = productOfScores(out.Posteriors)
	}

	gateMean := c.opts.GateMeanOnDAF && c.opts.DAFCutoff > 0
	if len(out.Posteriors) > 0 && (!gateMean || passesDAF) {
		out.MoP = meanOfScores(out.Posteriors)
	}

	return out
}

// ScoreWindow computes both composites for every scored SNP in ws and stores
// them. The prior counts scored SNPs only. It returns the number of SNPs with a
// product and with a mean composite.
func (c *CompositeScorer) ScoreWindow(ws *stats.WindowStats) (products, means int) {
	snps := ws.ScoredSNPs()
	prior := c.Prior(len(snps))

	for _, snp := range snps {
		raw := make(map[stats.TestKind]float64, stats.NumTests)
		for _, spec := range stats.AllTests {
			if ws.HasScore(spec.Kind, snp) {
				raw[spec.Kind] = ws.Score(spec.Kind, snp)
			}
		}
		daf, ok := ws.DAF(snp)
		if !ok {
			daf = math.NaN()
		}

		comp := c.ScoreSNP(raw, daf, prior)
		ws.SetPosteriors(snp, comp.Posteriors)
		ws.SetComposite(snp, comp.PoP, comp.MoP)
		if !math.IsNaN(comp.PoP) {
			products++
		}
		if !math.IsNaN(comp.MoP) {
			means++
		}
	}
	return products, means
}

func productOfScores(posteriors map[stats.TestKind]float64) float64 {
	score := 1.0
	for _, spec := range stats.AllTests {
		if p, ok := posteriors[spec.Kind]; ok {
			score *= p
		}
	}
	return score
}

func meanOfScores(posteriors map[stats.TestKind]float64) float64 {
	sum, n := 0.0, 0
	for _, spec := range stats.AllTests {
		if p, ok := posteriors[spec.Kind]; ok {
			sum += p
			n++
		}
	}
	return sum / float64(n)
}
