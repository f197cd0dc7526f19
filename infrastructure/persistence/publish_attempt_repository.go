package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const attemptColumns = `id, job_id, user_id, platform, success, external_id, url, error_kind, retryable, error_message, attempted_at`

type PublishAttemptRepository struct{ db *sql.DB }

func NewPublishAttemptRepository(db *sql.DB) repository.IPublishAttempt {
	return &PublishAttemptRepository{db: db}
}

// Insert appends attempts in one transaction.
func (r *PublishAttemptRepository) Insert(ctx context.Context, attempts []*model.PublishAttempt) (err error) {
	if len(attempts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	q := `INSERT INTO publish_attempts (job_id, user_id, platform, success, external_id, url, error_kind, retryable, error_message, attempted_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`
	now := time.Now().UTC()
	for _, a := range attempts {
		if a.AttemptedAt.IsZero() {
			a.AttemptedAt = now
		}
		var kind *string
		if a.ErrorKind != nil {
			k := string(*a.ErrorKind)
			kind = &k
		}
		if err = tx.QueryRowContext(ctx, q, a.JobID, a.UserID, string(a.Platform), a.Success, a.ExternalID, a.URL,
			kind, a.Retryable, a.ErrorMessage, a.AttemptedAt).Scan(&a.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PublishAttemptRepository) ListByJob(ctx context.Context, jobID string) ([]*model.PublishAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM publish_attempts WHERE job_id=$1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func (r *PublishAttemptRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.PublishAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM publish_attempts WHERE user_id=$1 ORDER BY attempted_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

func collectAttempts(rows *sql.Rows) ([]*model.PublishAttempt, error) {
	defer rows.Close()
	var list []*model.PublishAttempt
	for rows.Next() {
		a := &model.PublishAttempt{}
		var platform string
		var extID, url, kind, errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.JobID, &a.UserID, &platform, &a.Success, &extID, &url, &kind, &a.Retryable, &errMsg, &a.AttemptedAt); err != nil {
			return nil, err
		}
		a.Platform = model.Platform(platform)
		if extID.Valid {
			v := extID.String
			a.ExternalID = &v
		}
		if url.Valid {
			v := url.String
			a.URL = &v
		}
		if kind.Valid {
			k := model.ErrorKind(kind.String)
			a.ErrorKind = &k
		}
		if errMsg.Valid {
			v := errMsg.String
			a.ErrorMessage = &v
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
