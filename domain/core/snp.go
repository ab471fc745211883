package core

import (
	"fmt"
	"sort"
	"strings"
)

// SNP identifies a genomic marker by chromosomal position and identifier.
// It is a comparable value type and can be used directly as a map key.
type SNP struct {
	Position int
	ID       string
}

// NewSNP creates a SNP key
func NewSNP(position int, id string) SNP {
	return SNP{Position: position, ID: id}
}

// String returns "id@position"
func (s SNP) String() string {
	return fmt.Sprintf("%s@%d", s.ID, s.Position)
}

// Less reports whether s sorts before o
func (s SNP) Less(o SNP) bool {
	return Compare(s, o) < 0
}

// Compare orders SNPs by position, ties broken by identifier.
func Compare(a, b SNP) int {
	switch {
	case a.Position < b.Position:
		return -1
	case a.Position > b.Position:
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// SortSNPs sorts in place using Compare
func SortSNPs(snps []SNP) {
	sort.Slice(snps, func(i, j int) bool { return Compare(snps[i], snps[j]) < 0 })
}

// SortedKeys returns the keys of a SNP-keyed map in Compare order.
func SortedKeys[V any](m map[SNP]V) []SNP {
	keys := make([]SNP, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortSNPs(keys)
	return keys
}
