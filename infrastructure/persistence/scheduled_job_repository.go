package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/lib/pq"
)

const jobColumns = `id, user_id, content_id, platforms, scheduled_for, status, notes, error_message, platform_options, resubmitted_from, executed_at, created_at, updated_at`

// ScheduledJobRepository stores jobs in PostgreSQL. Status changes are conditional updates so
// concurrent workers cannot move a job out of a state they did not observe.
type ScheduledJobRepository struct{ db *sql.DB }

func NewScheduledJobRepository(db *sql.DB) repository.IScheduledJob {
	return &ScheduledJobRepository{db: db}
}

func (r *ScheduledJobRepository) Create(ctx context.Context, j *model.ScheduledJob) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = model.JobScheduled
	}
	opts, err := marshalOptions(j.PlatformOptions)
	if err != nil {
		return err
	}
	q := `INSERT INTO scheduled_jobs (id, user_id, content_id, platforms, scheduled_for, status, notes, platform_options, resubmitted_from, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.db.ExecContext(ctx, q, j.ID, j.UserID, j.ContentID, pq.Array(platformStrings(j.Platforms)), j.ScheduledFor.UTC(),
		string(j.Status), j.Notes, opts, j.ResubmittedFrom, j.CreatedAt, j.UpdatedAt)
	return err
}

func (r *ScheduledJobRepository) GetByID(ctx context.Context, id string) (*model.ScheduledJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE id=$1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return j, err
}

func (r *ScheduledJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

func (r *ScheduledJobRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs
		WHERE status='scheduled' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

func (r *ScheduledJobRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_jobs SET status='processing', updated_at=$1 WHERE id=$2 AND status='scheduled'`, now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ScheduledJobRepository) Finish(ctx context.Context, id string, status model.JobStatus, errMsg *string, executedAt time.Time) error {
	if !model.CanTransition(model.JobProcessing, status) {
		return fmt.Errorf("%w: processing -> %s", model.ErrInvalidTransition, status)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_jobs SET status=$1, error_message=$2, executed_at=$3, updated_at=$3
		WHERE id=$4 AND status='processing'`, string(status), errMsg, executedAt.UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: job %s is not processing", model.ErrInvalidTransition, id)
	}
	return nil
}

func (r *ScheduledJobRepository) Cancel(ctx context.Context, id, userID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_jobs SET status='cancelled', updated_at=$1 WHERE id=$2 AND user_id=$3 AND status='scheduled'`, now.UTC(), id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func collectJobs(rows *sql.Rows) ([]*model.ScheduledJob, error) {
	defer rows.Close()
	var list []*model.ScheduledJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func scanJob(row rowScanner) (*model.ScheduledJob, error) {
	j := &model.ScheduledJob{}
	var platforms []string
	var status string
	var notes, errMsg, resubmitted sql.NullString
	var opts []byte
	var executed sql.NullTime
	if err := row.Scan(&j.ID, &j.UserID, &j.ContentID, pq.Array(&platforms), &j.ScheduledFor, &status, &notes, &errMsg,
		&opts, &resubmitted, &executed, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	for _, p := range platforms {
		j.Platforms = append(j.Platforms, model.Platform(p))
	}
	if notes.Valid {
		v := notes.String
		j.Notes = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		j.ErrorMessage = &v
	}
	if resubmitted.Valid {
		v := resubmitted.String
		j.ResubmittedFrom = &v
	}
	if executed.Valid {
		v := executed.Time
		j.ExecutedAt = &v
	}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &j.PlatformOptions); err != nil {
			return nil, fmt.Errorf("decode platform_options of job %s: %w", j.ID, err)
		}
	}
	return j, nil
}

// marshalOptions returns nil for SQL NULL, otherwise the JSON text.
func marshalOptions(opts model.PlatformOptions) (any, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func platformStrings(ps []model.Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
