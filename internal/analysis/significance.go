package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// Policy selects which standardized composite(s) must clear the cutoff
type Policy string

const (
	RequireBoth Policy = "both"
	ProductOnly Policy = "product"
	MeanOnly    Policy = "mean"
	Either      Policy = "either"
)

// PolicyFromFlags maps the ignore flags onto a policy. Ignoring both forms
// means either one is enough.
func PolicyFromFlags(ignoreMoP, ignorePoP bool) Policy {
	switch {
	case ignoreMoP && ignorePoP:
		return Either
	case ignoreMoP:
		return ProductOnly
	case ignorePoP:
		return MeanOnly
	}
	return RequireBoth
}

// ParsePolicy accepts the Policy string values
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case RequireBoth, ProductOnly, MeanOnly, Either:
		return p, nil
	}
	return "", fmt.Errorf("unknown significance policy %q", s)
}

// PToZ converts a p-value into the standard normal cutoff z such that
// P(Z >= z) = p, i.e. sqrt(2)*erfcinv(2p).
func PToZ(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return math.NaN(), fmt.Errorf("p-value must lie strictly between 0 and 1, got %g", p)
	}
	return distuv.UnitNormal.Quantile(1 - p), nil
}

// Passes reports whether the standardized scores clear z under policy. NaN
// never clears the cutoff.
func (p Policy) Passes(stdPoP, stdMoP, z float64) bool {
	pop := !math.IsNaN(stdPoP) && stdPoP >= z
	mop := !math.IsNaN(stdMoP) && stdMoP >= z

	switch p {
	case ProductOnly:
		return pop
	case MeanOnly:
		return mop
	case Either:
		return pop || mop
	}
	return pop && mop
}

// SignificanceSelector filters standardized windows down to significant SNPs
type SignificanceSelector struct {
	pValue float64
	z      float64
	policy Policy
}

// NewSignificanceSelector computes the z cutoff for pValue
func NewSignificanceSelector(pValue float64, policy Policy) (*SignificanceSelector, error) {
	z, err := PToZ(pValue)
	if err != nil {
		return nil, err
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	return &SignificanceSelector{pValue: pValue, z: z, policy: policy}, nil
}

// PValue returns the configured p-value
func (s *SignificanceSelector) PValue() float64 { return s.pValue }

// Cutoff returns the z cutoff
func (s *SignificanceSelector) Cutoff() float64 { return s.z }

// Policy returns the combination policy
func (s *SignificanceSelector) Policy() Policy { return s.policy }

// Select returns the records of every passing SNP, windows in the given order
// and SNPs in SNP order within each window.
func (s *SignificanceSelector) Select(windows []*stats.WindowStats) []stats.CompositeRecord {
	var out []stats.CompositeRecord
	for _, ws := range windows {
		for _, snp := range candidateSNPs(ws) {
			rec := ws.Record(snp)
			if s.policy.Passes(rec.StdPoP, rec.StdMoP, s.z) {
				out = append(out, rec)
			}
		}
	}
	return out
}

func candidateSNPs(ws *stats.WindowStats) []core.SNP {
	set := make(map[core.SNP]struct{}, len(ws.StdPoP())+len(ws.StdMoP()))
	for snp := range ws.StdPoP() {
		set[snp] = struct{}{}
	}
	for snp := range ws.StdMoP() {
		set[snp] = struct{}{}
	}
	return core.SortedKeys(set)
}
