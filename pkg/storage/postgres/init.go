package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/absmach/rounds/pkg/storage/sqldb"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrMigration    = errors.New("database migration error")
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(host, port, user, pass, name, sslMode string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", host, port, user, pass, name, sslMode)
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
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
						id VARCHAR(36) PRIMARY KEY,
						name VARCHAR(255) NOT NULL,
						state VARCHAR(16) NOT NULL,
						strategy VARCHAR(32) NOT NULL,
						total_n INTEGER NOT NULL,
						start_n INTEGER NOT NULL,
						incr_n INTEGER NOT NULL,
						max_n INTEGER NOT NULL,
						corrupt_n INTEGER NOT NULL,
						rounds INTEGER NOT NULL,
						epochs INTEGER NOT NULL,
						batch_size INTEGER NOT NULL,
						error TEXT NOT NULL DEFAULT '',
						started_at TIMESTAMPTZ NOT NULL,
						finished_at TIMESTAMPTZ
					)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
					`CREATE TABLE IF NOT EXISTS round_records (
						run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
						round INTEGER NOT NULL,
						in_use INTEGER NOT NULL,
						accuracy DOUBLE PRECISION NOT NULL,
						correct INTEGER NOT NULL,
						total INTEGER NOT NULL,
						class_correct TEXT NOT NULL,
						class_total TEXT NOT NULL,
						recorded_at TIMESTAMPTZ NOT NULL,
						PRIMARY KEY (run_id, round)
					)`,
					`CREATE TABLE IF NOT EXISTS epoch_records (
						run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
						round INTEGER NOT NULL,
						epoch INTEGER NOT NULL,
						in_use INTEGER NOT NULL,
						metrics TEXT NOT NULL,
						resources TEXT NOT NULL DEFAULT '',
						recorded_at TIMESTAMPTZ NOT NULL,
						PRIMARY KEY (run_id, round, epoch)
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

	if _, err := migrate.Exec(db.DB.DB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}

	return nil
}
