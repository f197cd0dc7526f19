package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const connectionColumns = `id, user_id, platform, connected, account_id, account_name, account_handle, access_token, refresh_token, scopes, expires_at, last_sync_at, created_at, updated_at`

type ConnectionRepository struct{ db *sql.DB }

func NewConnectionRepository(db *sql.DB) repository.IConnection {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Upsert(ctx context.Context, c *model.PlatformConnection) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	q := `INSERT INTO platform_connections (user_id, platform, connected, account_id, account_name, account_handle, access_token, refresh_token, scopes, expires_at, last_sync_at, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		  ON CONFLICT (user_id, platform) DO UPDATE SET
			connected=EXCLUDED.connected,
			account_id=EXCLUDED.account_id,
			account_name=EXCLUDED.account_name,
			account_handle=EXCLUDED.account_handle,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			scopes=EXCLUDED.scopes,
			expires_at=EXCLUDED.expires_at,
			last_sync_at=COALESCE(EXCLUDED.last_sync_at, platform_connections.last_sync_at),
			updated_at=EXCLUDED.updated_at
		  RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		c.UserID, string(c.Platform), c.Connected, c.AccountID, c.AccountName, c.AccountHandle,
		c.AccessToken, c.RefreshToken, c.Scopes, c.ExpiresAt, c.LastSyncAt, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

func (r *ConnectionRepository) Get(ctx context.Context, userID string, platform model.Platform) (*model.PlatformConnection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM platform_connections WHERE user_id=$1 AND platform=$2`, userID, string(platform))
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ConnectionRepository) Clear(ctx context.Context, userID string, platform model.Platform) error {
	_, err := r.db.ExecContext(ctx, `UPDATE platform_connections
		SET connected=FALSE, access_token='', refresh_token='', expires_at=NULL, updated_at=$1
		WHERE user_id=$2 AND platform=$3`, time.Now().UTC(), userID, string(platform))
	return err
}

func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*model.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM platform_connections WHERE user_id=$1 ORDER BY platform`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PlatformConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *ConnectionRepository) TouchLastSync(ctx context.Context, userID string, platform model.Platform, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE platform_connections SET last_sync_at=$1 WHERE user_id=$2 AND platform=$3`, at.UTC(), userID, string(platform))
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*model.PlatformConnection, error) {
	c := &model.PlatformConnection{}
	var platform string
	var handle sql.NullString
	var exp, lastSync sql.NullTime
	if err := row.Scan(&c.ID, &c.UserID, &platform, &c.Connected, &c.AccountID, &c.AccountName, &handle,
		&c.AccessToken, &c.RefreshToken, &c.Scopes, &exp, &lastSync, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Platform = model.Platform(platform)
	if handle.Valid {
		v := handle.String
		c.AccountHandle = &v
	}
	if exp.Valid {
		v := exp.Time
		c.ExpiresAt = &v
	}
	if lastSync.Valid {
		v := lastSync.Time
		c.LastSyncAt = &v
	}
	return c, nil
}
