package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobRowColumns = []string{"id", "user_id", "content_id", "platforms", "scheduled_for", "status", "notes", "error_message",
	"platform_options", "resubmitted_from", "executed_at", "created_at", "updated_at"}

func TestScheduledJobRepository_ClaimWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_jobs SET status='processing', updated_at=$1 WHERE id=$2 AND status='scheduled'`)).
		WithArgs(sqlmock.AnyArg(), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := NewScheduledJobRepository(db).Claim(context.Background(), "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledJobRepository_ClaimLost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_jobs SET status='processing'`)).
		WithArgs(sqlmock.AnyArg(), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewScheduledJobRepository(db).Claim(context.Background(), "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScheduledJobRepository_FetchDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status='scheduled' AND scheduled_for <= $1`)).
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).
			AddRow("job-1", "u1", "c1", "{video-platform-a,page-platform-b}", now.Add(-time.Minute), "scheduled", "launch", nil,
				`{"page-platform-b":{"scheduled_publish_time":"1767225600"}}`, nil, nil, now, now))

	jobs, err := NewScheduledJobRepository(db).FetchDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	j := jobs[0]
	assert.Equal(t, []model.Platform{model.PlatformVideo, model.PlatformPage}, j.Platforms)
	assert.Equal(t, model.JobScheduled, j.Status)
	assert.Equal(t, "launch", *j.Notes)
	assert.Equal(t, "1767225600", j.OptionsFor(model.PlatformPage)["scheduled_publish_time"])
	assert.Nil(t, j.OptionsFor(model.PlatformVideo))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledJobRepository_FinishRequiresProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewScheduledJobRepository(db)
	msg := "page-platform-b: boom"
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE scheduled_jobs SET status=$1, error_message=$2, executed_at=$3, updated_at=$3`)).
		WithArgs("failed", &msg, sqlmock.AnyArg(), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Finish(context.Background(), "job-1", model.JobFailed, &msg, time.Now())
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	err = repo.Finish(context.Background(), "job-1", model.JobCancelled, nil, time.Now())
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledJobRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	job := &model.ScheduledJob{
		ID: "job-2", UserID: "u1", ContentID: "c1",
		Platforms:    []model.Platform{model.PlatformPhoto},
		ScheduledFor: time.Now().Add(time.Hour),
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO scheduled_jobs`)).
		WithArgs("job-2", "u1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg(), "scheduled", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewScheduledJobRepository(db).Create(context.Background(), job))
	assert.Equal(t, model.JobScheduled, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledJobRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM scheduled_jobs WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, err = NewScheduledJobRepository(db).GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
