package persistence

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"time"

	"social-publisher/infrastructure/configuration"

	_ "github.com/microsoft/go-mssqldb"
)

// NewMSSQLDB opens the SQL Server credential store (Azure SQL in production).
func NewMSSQLDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", mssqlDSN(configuration.C.Database.Mssql))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(time.Minute)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func mssqlDSN(cfg configuration.Db) string {
	q := url.Values{}
	if cfg.Name != "" {
		q.Set("database", cfg.Name)
	}
	q.Set("encrypt", "true")
	q.Set("app name", "social-publisher")
	// local containers use a self-signed certificate
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("TrustServerCertificate", "true")
	}

	port := cfg.Port
	if port == "" {
		port = "1433"
	}
	u := &url.URL{Scheme: "sqlserver", Host: net.JoinHostPort(cfg.Host, port), RawQuery: q.Encode()}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}
	return u.String()
}
