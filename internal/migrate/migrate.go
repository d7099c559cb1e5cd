// Package migrate brings the tracker schema up to date on startup.
package migrate

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/cpcoders/codetrack/migrations"
)

// Up applies pending migrations from the embedded filesystem. goose drives
// pgx through its database/sql adapter, so this opens a short-lived handle
// separate from the serving pool.
func Up(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
