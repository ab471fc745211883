package ports

import (
	"context"

	"selectcms/domain/core"
	"selectcms/domain/run"
	"selectcms/domain/stats"
)

// WindowSink persists a fully scored window and returns where it went
type WindowSink interface {
	WriteWindow(ws *stats.WindowStats) (string, error)
}

// LociWriter persists the significant loci of a run and returns the path used
type LociWriter interface {
	WriteLoci(loci []stats.CompositeRecord) (string, error)
}

// LociExporter writes significant loci to a secondary format
type LociExporter interface {
	ExportLoci(path string, loci []stats.CompositeRecord) error
}

// RunRepository stores run summaries and their significant loci
type RunRepository interface {
	SaveRun(ctx context.Context, r run.Run, loci []stats.CompositeRecord) error
	ListRuns(ctx context.Context, limit int) ([]run.Run, error)
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListLoci(ctx context.Context, id core.RunID) ([]stats.CompositeRecord, error)
	Close() error
}

// RunReader is the read-only subset of RunRepository served over HTTP
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]run.Run, error)
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListLoci(ctx context.Context, id core.RunID) ([]stats.CompositeRecord, error)
}
