package analysis

import (
	"math"

	mstats "github.com/montanaflynn/stats"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// Standardize returns the z-score of every value relative to the whole set,
// using the population mean and standard deviation. Non-finite inputs are
// left out of the moments and come back as NaN. With fewer than two finite
// values, or zero variance, every standardized score is NaN.
func Standardize(values map[core.SNP]float64) map[core.SNP]float64 {
	out := make(map[core.SNP]float64, len(values))
	if len(values) == 0 {
		return out
	}

	// sorted keys keep the summation order, and therefore the result, stable
	keys := core.SortedKeys(values)
	data := make(mstats.Float64Data, 0, len(keys))
	for _, k := range keys {
		if v := values[k]; isFinite(v) {
			data = append(data, v)
		}
	}

	mean, sd := math.NaN(), math.NaN()
	if len(data) >= 2 {
		m, errMean := mstats.Mean(data)
		s, errSD := mstats.StandardDeviationPopulation(data)
		if errMean == nil && errSD == nil && s > 0 && isFinite(s) {
			mean, sd = m, s
		}
	}

	for _, k := range keys {
		v := values[k]
		if math.IsNaN(sd) || !isFinite(v) {
			out[k] = math.NaN()
			continue
		}
		out[k] = (v - mean) / sd
	}
	return out
}

// NormalizeWindow standardizes both composites of one window in place
func NormalizeWindow(ws *stats.WindowStats) {
	ws.SetStdPoP(Standardize(ws.UnstdPoP()))
	ws.SetStdMoP(Standardize(ws.UnstdMoP()))
}

// NormalizePooled standardizes the composites of all windows together: the
// composites are merged into one synthetic window, standardized once, and each
// value is written back to the window that owns the SNP. It returns the
// merged window.
func NormalizePooled(windows []*stats.WindowStats) *stats.WindowStats {
	if len(windows) == 0 {
		return stats.NewWindowStats(0, 0, 0)
	}

	merged := stats.NewWindowStats(0, windows[0].Start, windows[len(windows)-1].End)
	for _, ws := range windows {
		merged.AddUnstdPoP(ws.UnstdPoP())
		merged.AddUnstdMoP(ws.UnstdMoP())
	}
	NormalizeWindow(merged)

	for _, ws := range windows {
		pop := make(map[core.SNP]float64, len(ws.UnstdPoP()))
		for snp := range ws.UnstdPoP() {
			pop[snp] = merged.StdPoP()[snp]
		}
		mop := make(map[core.SNP]float64, len(ws.UnstdMoP()))
		for snp := range ws.UnstdMoP() {
			mop[snp] = merged.StdMoP()[snp]
		}
		ws.SetStdPoP(pop)
		ws.SetStdMoP(mop)
	}
	return merged
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
