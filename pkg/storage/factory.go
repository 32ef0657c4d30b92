package storage

import (
	"fmt"
	"io"

	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/storage/badger"
	"github.com/absmach/rounds/pkg/storage/postgres"
	"github.com/absmach/rounds/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"ROUNDS_STORAGE_TYPE" envDefault:"sqlite"`

	PostgresHost    string `env:"ROUNDS_POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"ROUNDS_POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"ROUNDS_POSTGRES_USER"    envDefault:"rounds"`
	PostgresPass    string `env:"ROUNDS_POSTGRES_PASS"    envDefault:"rounds"`
	PostgresDB      string `env:"ROUNDS_POSTGRES_DB"      envDefault:"rounds"`
	PostgresSSLMode string `env:"ROUNDS_POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"ROUNDS_SQLITE_PATH" envDefault:"./rounds.db"`

	BadgerPath string `env:"ROUNDS_BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Runs   RunRepository
	Rounds RoundRepository
	Epochs EpochRepository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

// Close releases the backing store, if any.
func (r *Repositories) Close() error {
	if r.Closer == nil {
		return nil
	}

	return r.Closer.Close()
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "postgres":
		return newPostgresRepositories(cfg)
	case "sqlite":
		return newSQLiteRepositories(cfg)
	case "badger":
		return newBadgerRepositories(cfg)
	case "memory", "":
		return NewMemoryRepositories(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

func newPostgresRepositories(cfg Config) (*Repositories, error) {
	db, err := postgres.NewDatabase(
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPass,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
	if err != nil {
		return nil, err
	}

	repos := postgres.NewRepositories(db)

	return &Repositories{
		Runs:   repos.Runs,
		Rounds: repos.Rounds,
		Epochs: repos.Epochs,
		Closer: db,
	}, nil
}

func newSQLiteRepositories(cfg Config) (*Repositories, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	repos := sqlite.NewRepositories(db)

	return &Repositories{
		Runs:   repos.Runs,
		Rounds: repos.Rounds,
		Epochs: repos.Epochs,
		Closer: db,
	}, nil
}

func newBadgerRepositories(cfg Config) (*Repositories, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}

	repos := badger.NewRepositories(db)

	return &Repositories{
		Runs:   repos.Runs,
		Rounds: repos.Rounds,
		Epochs: repos.Epochs,
		Closer: db,
	}, nil
}

func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Runs:   newMemoryRunRepository(NewInMemoryStorage()),
		Rounds: newMemoryLog[recorder.RoundRecord](),
		Epochs: newMemoryLog[recorder.EpochRecord](),
	}
}
