package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dir = "migrations"

// Up applies all pending migrations embedded in the binary.
//
// It returns an error (no log.Fatal) so the caller can decide how to handle it.
func Up(dbURL string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("migrations: open db: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("database close error", "err", err)
		}
	}()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}

	log.Info("running database migrations")
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migrations: goose up: %w", err)
	}
	log.Info("database migrations applied")
	return nil
}
