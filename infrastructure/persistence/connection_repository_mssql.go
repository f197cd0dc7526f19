package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

type ConnectionRepositoryMSSQL struct{ db *sql.DB }

func NewConnectionRepositoryMSSQL(db *sql.DB) repository.IConnection {
	return &ConnectionRepositoryMSSQL{db: db}
}

// EnsureConnectionSchemaMSSQL creates the platform_connections table for SQL Server if it does not exist.
func EnsureConnectionSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.platform_connections') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[platform_connections] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        connected BIT NOT NULL DEFAULT 0,
        account_id NVARCHAR(128) NOT NULL DEFAULT '',
        account_name NVARCHAR(255) NOT NULL DEFAULT '',
        account_handle NVARCHAR(255) NULL,
        access_token NVARCHAR(MAX) NOT NULL DEFAULT '',
        refresh_token NVARCHAR(MAX) NOT NULL DEFAULT '',
        scopes NVARCHAR(MAX) NOT NULL DEFAULT '',
        expires_at DATETIME2 NULL,
        last_sync_at DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_platform_connections_user_platform ON dbo.[platform_connections](user_id, platform);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create platform_connections (mssql): %w", err)
	}
	return nil
}

func (r *ConnectionRepositoryMSSQL) Upsert(ctx context.Context, c *model.PlatformConnection) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	var exp, lastSync sql.NullTime
	if c.ExpiresAt != nil {
		exp = sql.NullTime{Time: *c.ExpiresAt, Valid: true}
	}
	if c.LastSyncAt != nil {
		lastSync = sql.NullTime{Time: *c.LastSyncAt, Valid: true}
	}
	var handle sql.NullString
	if c.AccountHandle != nil {
		handle = sql.NullString{String: *c.AccountHandle, Valid: true}
	}
	q := `MERGE dbo.[platform_connections] AS target
USING (VALUES (@p1, @p2)) AS src(user_id, platform)
ON target.user_id = src.user_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    connected=@p3,
    account_id=@p4,
    account_name=@p5,
    account_handle=@p6,
    access_token=@p7,
    refresh_token=@p8,
    scopes=@p9,
    expires_at=@p10,
    last_sync_at=COALESCE(@p11, target.last_sync_at),
    updated_at=@p13
WHEN NOT MATCHED THEN
    INSERT (user_id, platform, connected, account_id, account_name, account_handle, access_token, refresh_token, scopes, expires_at, last_sync_at, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13)
OUTPUT inserted.id;`
	return r.db.QueryRowContext(ctx, q,
		c.UserID, string(c.Platform), c.Connected, c.AccountID, c.AccountName, handle,
		c.AccessToken, c.RefreshToken, c.Scopes, exp, lastSync, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

func (r *ConnectionRepositoryMSSQL) Get(ctx context.Context, userID string, platform model.Platform) (*model.PlatformConnection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM dbo.[platform_connections] WHERE user_id=@p1 AND platform=@p2`, userID, string(platform))
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ConnectionRepositoryMSSQL) Clear(ctx context.Context, userID string, platform model.Platform) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[platform_connections]
SET connected=0, access_token='', refresh_token='', expires_at=NULL, updated_at=@p1
WHERE user_id=@p2 AND platform=@p3`, time.Now().UTC(), userID, string(platform))
	return err
}

func (r *ConnectionRepositoryMSSQL) ListByUser(ctx context.Context, userID string) ([]*model.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM dbo.[platform_connections] WHERE user_id=@p1 ORDER BY platform`, userID)
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

func (r *ConnectionRepositoryMSSQL) TouchLastSync(ctx context.Context, userID string, platform model.Platform, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[platform_connections] SET last_sync_at=@p1 WHERE user_id=@p2 AND platform=@p3`, at.UTC(), userID, string(platform))
	return err
}
