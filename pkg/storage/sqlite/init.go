package sqlite

import (
	"errors"
	"fmt"
	"time"

	"github.com/absmach/rounds/pkg/storage/sqldb"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrMigration    = errors.New("database migration error")
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return database, nil
}

func NewRepositories(db *Database) *sqldb.Repositories {
	return sqldb.NewRepositories(db.DB)
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_run_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS runs (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						state TEXT NOT NULL,
						strategy TEXT NOT NULL,
						total_n INTEGER NOT NULL,
						start_n INTEGER NOT NULL,
						incr_n INTEGER NOT NULL,
						max_n INTEGER NOT NULL,
						corrupt_n INTEGER NOT NULL,
						rounds INTEGER NOT NULL,
						epochs INTEGER NOT NULL,
						batch_size INTEGER NOT NULL,
						error TEXT NOT NULL DEFAULT '',
						started_at TIMESTAMP NOT NULL,
						finished_at TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
					`CREATE TABLE IF NOT EXISTS round_records (
						run_id TEXT NOT NULL,
						round INTEGER NOT NULL,
						in_use INTEGER NOT NULL,
						accuracy REAL NOT NULL,
						correct INTEGER NOT NULL,
						total INTEGER NOT NULL,
						class_correct TEXT NOT NULL,
						class_total TEXT NOT NULL,
						recorded_at TIMESTAMP NOT NULL,
						PRIMARY KEY (run_id, round),
						FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE IF NOT EXISTS epoch_records (
						run_id TEXT NOT NULL,
						round INTEGER NOT NULL,
						epoch INTEGER NOT NULL,
						in_use INTEGER NOT NULL,
						metrics TEXT NOT NULL,
						resources TEXT NOT NULL DEFAULT '',
						recorded_at TIMESTAMP NOT NULL,
						PRIMARY KEY (run_id, round, epoch),
						FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS epoch_records`,
					`DROP TABLE IF EXISTS round_records`,
					`DROP INDEX IF EXISTS idx_runs_started_at`,
					`DROP TABLE IF EXISTS runs`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
