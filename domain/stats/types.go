package stats

import (
	"fmt"
	"strings"
)

// ============================================================================
// TEST KINDS
// ============================================================================

// TestKind names one of the evolutionary test statistics combined into the
// composite score.
type TestKind string

const (
	TestIHS   TestKind = "iHS"
	TestIHH   TestKind = "iHH"
	TestXPEHH TestKind = "XPEHH"
	TestDDAF  TestKind = "dDAF"
	TestFst   TestKind = "Fst"
)

// Sidedness selects which tail(s) of an empirical distribution count as
// "at least as extreme".
type Sidedness int

const (
	OneSided Sidedness = iota
	TwoSided
)

func (s Sidedness) String() string {
	if s == TwoSided {
		return "two-sided"
	}
	return "one-sided"
}

// TestSpec describes how a test's raw score is interpreted.
type TestSpec struct {
	Kind      TestKind
	Sidedness Sidedness
	// Code is the single-letter filter code used by the window combiner.
	Code string
}

// TwoSided reports whether both tails are used
func (s TestSpec) TwoSided() bool { return s.Sidedness == TwoSided }

// AllTests lists the five tests in output column order (iHS, XPEHH, iHH, dDAF, Fst).
// Haplotype-decay tests and the derived allele frequency differential measure a
// signed deviation and are two-sided; XPEHH and Fst are directional.
var AllTests = []TestSpec{
	{Kind: TestIHS, Sidedness: TwoSided, Code: "i"},
	{Kind: TestXPEHH, Sidedness: OneSided, Code: "x"},
	{Kind: TestIHH, Sidedness: TwoSided, Code: "h"},
	{Kind: TestDDAF, Sidedness: TwoSided, Code: "d"},
	{Kind: TestFst, Sidedness: OneSided, Code: "f"},
}

// NumTests is the number of statistics combined into a composite score
var NumTests = len(AllTests)

// SpecFor returns the TestSpec for kind
func SpecFor(kind TestKind) (TestSpec, bool) {
	for _, spec := range AllTests {
		if spec.Kind == kind {
			return spec, true
		}
	}
	return TestSpec{}, false
}

// ParseTestKind matches a test name case-insensitively
func ParseTestKind(name string) (TestKind, error) {
	for _, spec := range AllTests {
		if strings.EqualFold(string(spec.Kind), strings.TrimSpace(name)) {
			return spec.Kind, nil
		}
	}
	return "", fmt.Errorf("unknown test statistic %q", name)
}

// ============================================================================
// COLUMN NAMES
// ============================================================================

// Column names shared by the window stats and significance output files.
const (
	ColSNPID    = "snp_id"
	ColPosition = "position"
	ColDAF      = "DAF"
	ColUnstdPoP = "unstd_PoP"
	ColUnstdMoP = "unstd_MoP"
	ColStdPoP   = "win_PoP"
	ColStdMoP   = "win_MoP"
)

// OutputColumns is the header of every per-SNP output record.
var OutputColumns = []string{
	ColSNPID, ColPosition,
	string(TestIHS), string(TestXPEHH), string(TestIHH), string(TestDDAF), ColDAF, string(TestFst),
	ColUnstdPoP, ColUnstdMoP, ColStdPoP, ColStdMoP,
}
