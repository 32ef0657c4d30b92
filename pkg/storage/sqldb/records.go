package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/jmoiron/sqlx"
)

type roundRow struct {
	RunID        string    `db:"run_id"`
	Round        int       `db:"round"`
	InUse        int       `db:"in_use"`
	Accuracy     float64   `db:"accuracy"`
	Correct      int       `db:"correct"`
	Total        int       `db:"total"`
	ClassCorrect string    `db:"class_correct"`
	ClassTotal   string    `db:"class_total"`
	Timestamp    time.Time `db:"recorded_at"`
}

type RoundRepository struct {
	db *sqlx.DB
}

func NewRoundRepository(db *sqlx.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) Create(ctx context.Context, runID string, rec recorder.RoundRecord) error {
	if runID == "" {
		return pkgerrors.ErrEmptyKey
	}
	correct, err := encode(rec.ClassCorrect)
	if err != nil {
		return err
	}
	total, err := encode(rec.ClassTotal)
	if err != nil {
		return err
	}

	q := r.db.Rebind(`INSERT INTO round_records (run_id, round, in_use, accuracy, correct, total, class_correct, class_total, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, runID, rec.Round, rec.InUse, rec.Accuracy, rec.Correct, rec.Total, correct, total, rec.Timestamp); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *RoundRepository) List(ctx context.Context, runID string) ([]recorder.RoundRecord, error) {
	var rows []roundRow
	q := r.db.Rebind(`SELECT run_id, round, in_use, accuracy, correct, total, class_correct, class_total, recorded_at
		FROM round_records WHERE run_id = ? ORDER BY round`)
	if err := r.db.SelectContext(ctx, &rows, q, runID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	out := make([]recorder.RoundRecord, len(rows))
	for i, row := range rows {
		rec := recorder.RoundRecord{
			Round:     row.Round,
			InUse:     row.InUse,
			Accuracy:  row.Accuracy,
			Correct:   row.Correct,
			Total:     row.Total,
			Timestamp: row.Timestamp,
		}
		if err := decode(row.ClassCorrect, &rec.ClassCorrect); err != nil {
			return nil, err
		}
		if err := decode(row.ClassTotal, &rec.ClassTotal); err != nil {
			return nil, err
		}
		out[i] = rec
	}

	return out, nil
}

type epochRow struct {
	RunID     string    `db:"run_id"`
	Round     int       `db:"round"`
	Epoch     int       `db:"epoch"`
	InUse     int       `db:"in_use"`
	Metrics   string    `db:"metrics"`
	Resources string    `db:"resources"`
	Timestamp time.Time `db:"recorded_at"`
}

type EpochRepository struct {
	db *sqlx.DB
}

func NewEpochRepository(db *sqlx.DB) *EpochRepository {
	return &EpochRepository{db: db}
}

func (r *EpochRepository) Create(ctx context.Context, runID string, rec recorder.EpochRecord) error {
	if runID == "" {
		return pkgerrors.ErrEmptyKey
	}
	metrics, err := encode(rec.Metrics)
	if err != nil {
		return err
	}
	resources := ""
	if rec.Resources != nil {
		if resources, err = encode(rec.Resources); err != nil {
			return err
		}
	}

	q := r.db.Rebind(`INSERT INTO epoch_records (run_id, round, epoch, in_use, metrics, resources, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, runID, rec.Round, rec.Epoch, rec.InUse, metrics, resources, rec.Timestamp); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *EpochRepository) List(ctx context.Context, runID string) ([]recorder.EpochRecord, error) {
	var rows []epochRow
	q := r.db.Rebind(`SELECT run_id, round, epoch, in_use, metrics, resources, recorded_at
		FROM epoch_records WHERE run_id = ? ORDER BY round, epoch`)
	if err := r.db.SelectContext(ctx, &rows, q, runID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	out := make([]recorder.EpochRecord, len(rows))
	for i, row := range rows {
		rec := recorder.EpochRecord{
			Round:     row.Round,
			Epoch:     row.Epoch,
			InUse:     row.InUse,
			Timestamp: row.Timestamp,
		}
		if err := decode(row.Metrics, &rec.Metrics); err != nil {
			return nil, err
		}
		if row.Resources != "" {
			rec.Resources = &recorder.Resources{}
			if err := decode(row.Resources, rec.Resources); err != nil {
				return nil, err
			}
		}
		out[i] = rec
	}

	return out, nil
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return string(b), nil
}

func decode(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return nil
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Runs:   NewRunRepository(db),
		Rounds: NewRoundRepository(db),
		Epochs: NewEpochRepository(db),
	}
}
