package run

import (
	"crypto/sha256"
	"fmt"

	"selectcms/domain/core"
)

// Run summarizes one completed significance analysis
type Run struct {
	ID            core.RunID     `json:"id"`
	CreatedAt     core.Timestamp `json:"created_at"`
	PValue        float64        `json:"p_value"`
	ZCutoff       float64        `json:"z_cutoff"`
	Policy        string         `json:"policy"`
	Pooled        bool           `json:"pooled"`
	WindowCount   int            `json:"window_count"`
	FailedWindows int            `json:"failed_windows"`
	LociCount     int            `json:"loci_count"`
	OutputPath    string         `json:"output_path"`
	Fingerprint   string         `json:"fingerprint"`
}

// Parameters are the settings that determine a run's selection
type Parameters struct {
	PValue        float64
	Policy        string
	DAFCutoff     float64
	GateMeanOnDAF bool
	Prior         float64
	Pooled        bool
	Inputs        string
}

// Fingerprint hashes the parameters so identical re-runs can be recognised
func (p Parameters) Fingerprint() string {
	data := fmt.Sprintf("p:%g|policy:%s|daf:%g|gate:%t|prior:%g|pooled:%t|inputs:%s",
		p.PValue, p.Policy, p.DAFCutoff, p.GateMeanOnDAF, p.Prior, p.Pooled, p.Inputs)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// WindowFailure records a window that was skipped and why
type WindowFailure struct {
	Window int    `json:"window"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Validate checks that the summary is complete enough to store
func (r *Run) Validate() error {
	if core.ID(r.ID).IsEmpty() {
		return core.NewValidationError("run", "id cannot be empty")
	}
	if !(r.PValue > 0 && r.PValue < 1) {
		return core.NewValidationError("run", fmt.Sprintf("p_value %g outside (0,1)", r.PValue))
	}
	if r.Policy == "" {
		return core.NewValidationError("run", "policy cannot be empty")
	}
	if r.FailedWindows > r.WindowCount {
		return core.NewValidationError("run", "more failed windows than windows")
	}
	return nil
}
