package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"selectcms/adapters/sqlstore/migrations"
	"selectcms/domain/core"
	"selectcms/domain/run"
	"selectcms/domain/stats"
	"selectcms/internal/errors"
	"selectcms/ports"
)

// timeLayout has fixed width so created_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository stores runs and their significant loci
type Repository struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*Repository)(nil)

// NewRepository wraps an open database. The schema must already be migrated.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to url and applies pending migrations
func Open(ctx context.Context, url string) (*Repository, error) {
	db, err := Connect(ctx, url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect", err)
	}
	if _, err := migrations.NewMigrator(db).Up(ctx); err != nil {
		_ = db.Close()
		return nil, errors.DatabaseError("failed to migrate", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

type runRow struct {
	ID            string  `db:"id"`
	CreatedAt     string  `db:"created_at"`
	PValue        float64 `db:"p_value"`
	ZCutoff       float64 `db:"z_cutoff"`
	Policy        string  `db:"policy"`
	Pooled        bool    `db:"pooled"`
	WindowCount   int     `db:"window_count"`
	FailedWindows int     `db:"failed_windows"`
	LociCount     int     `db:"loci_count"`
	OutputPath    string  `db:"output_path"`
	Fingerprint   string  `db:"fingerprint"`
}

func (row runRow) toRun() run.Run {
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	return run.Run{
		ID:            core.RunID(row.ID),
		CreatedAt:     core.NewTimestamp(created),
		PValue:        row.PValue,
		ZCutoff:       row.ZCutoff,
		Policy:        row.Policy,
		Pooled:        row.Pooled,
		WindowCount:   row.WindowCount,
		FailedWindows: row.FailedWindows,
		LociCount:     row.LociCount,
		OutputPath:    row.OutputPath,
		Fingerprint:   row.Fingerprint,
	}
}

type lociRow struct {
	RunID    string          `db:"run_id"`
	Window   int             `db:"window_number"`
	SNPID    string          `db:"snp_id"`
	Position int             `db:"position"`
	IHS      sql.NullFloat64 `db:"ihs"`
	XPEHH    sql.NullFloat64 `db:"xpehh"`
	IHH      sql.NullFloat64 `db:"ihh"`
	DDAF     sql.NullFloat64 `db:"ddaf"`
	DAF      sql.NullFloat64 `db:"daf"`
	Fst      sql.NullFloat64 `db:"fst"`
	UnstdPoP sql.NullFloat64 `db:"unstd_pop"`
	UnstdMoP sql.NullFloat64 `db:"unstd_mop"`
	StdPoP   sql.NullFloat64 `db:"std_pop"`
	StdMoP   sql.NullFloat64 `db:"std_mop"`
}

// nullable stores NaN and infinities as NULL
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func newLociRow(id core.RunID, rec stats.CompositeRecord) lociRow {
	return lociRow{
		RunID:    id.String(),
		Window:   rec.Window,
		SNPID:    rec.SNP.ID,
		Position: rec.SNP.Position,
		IHS:      nullable(rec.RawScore(stats.TestIHS)),
		XPEHH:    nullable(rec.RawScore(stats.TestXPEHH)),
		IHH:      nullable(rec.RawScore(stats.TestIHH)),
		DDAF:     nullable(rec.RawScore(stats.TestDDAF)),
		DAF:      nullable(rec.DAF),
		Fst:      nullable(rec.RawScore(stats.TestFst)),
		UnstdPoP: nullable(rec.UnstdPoP),
		UnstdMoP: nullable(rec.UnstdMoP),
		StdPoP:   nullable(rec.StdPoP),
		StdMoP:   nullable(rec.StdMoP),
	}
}

func (row lociRow) toRecord() stats.CompositeRecord {
	return stats.CompositeRecord{
		SNP:    core.NewSNP(row.Position, row.SNPID),
		Window: row.Window,
		Raw: map[stats.TestKind]float64{
			stats.TestIHS:   fromNullable(row.IHS),
			stats.TestXPEHH: fromNullable(row.XPEHH),
			stats.TestIHH:   fromNullable(row.IHH),
			stats.TestDDAF:  fromNullable(row.DDAF),
			stats.TestFst:   fromNullable(row.Fst),
		},
		DAF:      fromNullable(row.DAF),
		UnstdPoP: fromNullable(row.UnstdPoP),
		UnstdMoP: fromNullable(row.UnstdMoP),
		StdPoP:   fromNullable(row.StdPoP),
		StdMoP:   fromNullable(row.StdMoP),
	}
}

// SaveRun stores a run and its loci in one transaction
func (r *Repository) SaveRun(ctx context.Context, rn run.Run, loci []stats.CompositeRecord) error {
	if err := rn.Validate(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	if rn.CreatedAt.IsZero() {
		rn.CreatedAt = core.Now()
	}
	rn.LociCount = len(loci)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO cms_runs (
			id, created_at, p_value, z_cutoff, policy, pooled,
			window_count, failed_windows, loci_count, output_path, fingerprint
		) VALUES (
			:id, :created_at, :p_value, :z_cutoff, :policy, :pooled,
			:window_count, :failed_windows, :loci_count, :output_path, :fingerprint
		)`, runRow{
		ID:            rn.ID.String(),
		CreatedAt:     rn.CreatedAt.Time().UTC().Format(timeLayout),
		PValue:        rn.PValue,
		ZCutoff:       rn.ZCutoff,
		Policy:        rn.Policy,
		Pooled:        rn.Pooled,
		WindowCount:   rn.WindowCount,
		FailedWindows: rn.FailedWindows,
		LociCount:     rn.LociCount,
		OutputPath:    rn.OutputPath,
		Fingerprint:   rn.Fingerprint,
	})
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}

	for _, rec := range loci {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO cms_loci (
				run_id, window_number, snp_id, position, ihs, xpehh, ihh, ddaf, daf, fst,
				unstd_pop, unstd_mop, std_pop, std_mop
			) VALUES (
				:run_id, :window_number, :snp_id, :position, :ihs, :xpehh, :ihh, :ddaf, :daf, :fst,
				:unstd_pop, :unstd_mop, :std_pop, :std_mop
			)`, newLociRow(rn.ID, rec))
		if err != nil {
			return errors.DatabaseError("failed to insert locus "+rec.SNP.String(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit run", err)
	}
	return nil
}

const runColumns = `id, created_at, p_value, z_cutoff, policy, pooled,
	window_count, failed_windows, loci_count, output_path, fingerprint`

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(`SELECT `+runColumns+` FROM cms_runs ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	out := make([]run.Run, len(rows))
	for i, row := range rows {
		out[i] = row.toRun()
	}
	return out, nil
}

// GetRun returns one run or a NOT_FOUND error
func (r *Repository) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT `+runColumns+` FROM cms_runs WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get run", err)
	}
	rn := row.toRun()
	return &rn, nil
}

// ListLoci returns the loci of a run in window, then SNP order
func (r *Repository) ListLoci(ctx context.Context, id core.RunID) ([]stats.CompositeRecord, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}
	var rows []lociRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT run_id, window_number, snp_id, position, ihs, xpehh, ihh, ddaf, daf, fst,
		       unstd_pop, unstd_mop, std_pop, std_mop
		FROM cms_loci
		WHERE run_id = ?
		ORDER BY window_number, position, snp_id`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list loci", err)
	}
	out := make([]stats.CompositeRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}
