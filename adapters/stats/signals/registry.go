package signals

import (
	"fmt"

	"selectcms/domain/stats"
)

// Engine holds the configured set of scorers, one per test statistic
type Engine struct {
	scorers []Scorer
}

// NewEngine validates that every test in stats.AllTests has exactly one scorer
// and orders them by output column.
func NewEngine(scorers ...Scorer) (*Engine, error) {
	byKind := make(map[stats.TestKind]Scorer, len(scorers))
	for _, s := range scorers {
		kind := s.Spec().Kind
		if _, dup := byKind[kind]; dup {
			return nil, fmt.Errorf("duplicate scorer for %s", kind)
		}
		byKind[kind] = s
	}

	ordered := make([]Scorer, 0, len(stats.AllTests))
	for _, spec := range stats.AllTests {
		s, ok := byKind[spec.Kind]
		if !ok {
			return nil, fmt.Errorf("missing scorer for %s", spec.Kind)
		}
		ordered = append(ordered, s)
	}
	return &Engine{scorers: ordered}, nil
}

// Scorers returns the scorers in output column order
func (e *Engine) Scorers() []Scorer {
	out := make([]Scorer, len(e.scorers))
	copy(out, e.scorers)
	return out
}

// ListScorers returns all scorer names
func (e *Engine) ListScorers() []string {
	names := make([]string, len(e.scorers))
	for i, s := range e.scorers {
		names[i] = s.Name()
	}
	return names
}
