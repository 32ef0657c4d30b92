package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/run"
	"github.com/jmoiron/sqlx"
)

const runColumns = `id, name, state, strategy, total_n, start_n, incr_n, max_n, corrupt_n, rounds, epochs, batch_size, error, started_at, finished_at`

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, rn run.Run) error {
	if rn.ID == "" {
		return pkgerrors.ErrEmptyKey
	}
	q := r.db.Rebind(`INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		rn.ID,
		rn.Name,
		string(rn.State),
		rn.Strategy,
		rn.TotalN,
		rn.StartN,
		rn.IncrN,
		rn.MaxN,
		rn.CorruptN,
		rn.Rounds,
		rn.Epochs,
		rn.BatchSize,
		rn.Error,
		rn.StartedAt,
		rn.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (run.Run, error) {
	var rn run.Run
	q := r.db.Rebind(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	if err := r.db.GetContext(ctx, &rn, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run.Run{}, fmt.Errorf("%w: run %s", pkgerrors.ErrNotFound, id)
		}

		return run.Run{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return rn, nil
}

func (r *RunRepository) Update(ctx context.Context, rn run.Run) error {
	q := r.db.Rebind(`UPDATE runs SET name = ?, state = ?, strategy = ?, total_n = ?, start_n = ?, incr_n = ?, max_n = ?,
		corrupt_n = ?, rounds = ?, epochs = ?, batch_size = ?, error = ?, started_at = ?, finished_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		rn.Name,
		string(rn.State),
		rn.Strategy,
		rn.TotalN,
		rn.StartN,
		rn.IncrN,
		rn.MaxN,
		rn.CorruptN,
		rn.Rounds,
		rn.Epochs,
		rn.BatchSize,
		rn.Error,
		rn.StartedAt,
		rn.FinishedAt,
		rn.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s", pkgerrors.ErrNotFound, rn.ID)
	}

	return nil
}

func (r *RunRepository) List(ctx context.Context, offset, limit uint64) ([]run.Run, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM runs`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	var runs []run.Run
	q := r.db.Rebind(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &runs, q, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}
	if runs == nil {
		runs = []run.Run{}
	}

	return runs, total, nil
}
