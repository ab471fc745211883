package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"selectcms/domain/core"
)

func TestClassifyWindowError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"insufficient", fmt.Errorf("iHS: %w", core.ErrInsufficientData), CodeComputation},
		{"malformed", core.NewMalformedError("ihs.tsv", 3, "bad float"), CodeComputation},
		{"degenerate", core.ErrDegenerateDistribution, CodeComputation},
		{"missing file", core.NewNotFoundError("window", "/tmp/x"), CodeUpstreamData},
		{"oom", fmt.Errorf("fst: %w", core.ErrResourceExhausted), CodeResourceExhausted},
		{"timeout", fmt.Errorf("%w: %w", core.ErrWindowTimeout, context.DeadlineExceeded), CodeWindowTimeout},
		{"output", fmt.Errorf("%w: disk full", core.ErrOutputIO), CodeOutputIO},
		{"coded", ConfigInvalid("bad p"), CodeConfigInvalid},
		{"other", fmt.Errorf("boom"), CodeInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyWindowError(tc.err))
		})
	}
}

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ConfigInvalid("p-value out of range"), "failed to load configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.Contains(t, err.Error(), "p-value out of range")
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}
