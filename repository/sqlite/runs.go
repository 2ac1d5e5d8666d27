package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, now: time.Now}
}

// Start inserts run with status processing. Missing ids and start times are
// filled in.
func (r *RunRepository) Start(ctx context.Context, run *models.Run) error {
	const op = "RunRepository.Start"

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = r.now().UTC()
	}
	run.Status = models.RunProcessing

	_, err := r.db.ExecContext(ctx, insertRunQuery,
		run.ID,
		run.VideoID,
		run.Source,
		run.Method,
		run.Status,
		run.Error,
		run.StartedAt,
	)
	if err != nil {
		return errors.Internal(op, err, "failed to insert run")
	}
	return nil
}

func (r *RunRepository) Finish(ctx context.Context, id string, status models.RunStatus, errMsg string) error {
	const op = "RunRepository.Finish"

	return WithTransaction(ctx, r.db, func(tx Executor) error {
		result, err := tx.ExecContext(ctx, finishRunQuery, status, errMsg, r.now().UTC(), id)
		if err != nil {
			return errors.Internal(op, err, "failed to update run")
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return errors.Internal(op, err, "failed to read affected rows")
		}
		if rows == 0 {
			return errors.NotFound(op, nil, "run not found")
		}
		return nil
	})
}

func (r *RunRepository) Recent(ctx context.Context, limit int) ([]*models.Run, error) {
	const op = "RunRepository.Recent"

	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, recentRunsQuery, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to query runs")
	}
	defer rows.Close()

	runs := make([]*models.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "failed to iterate runs")
	}
	return runs, nil
}

func (r *RunRepository) Latest(ctx context.Context, videoID string) (*models.Run, error) {
	const op = "RunRepository.Latest"

	run, err := scanRun(r.db.QueryRowContext(ctx, latestRunQuery, videoID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(op, err, "no runs for video")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "failed to query run")
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var (
		run      models.Run
		status   string
		finished sql.NullTime
	)
	if err := s.Scan(
		&run.ID,
		&run.VideoID,
		&run.Source,
		&run.Method,
		&status,
		&run.Error,
		&run.StartedAt,
		&finished,
	); err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
