// Package sqldb implements the run repositories on top of any sqlx database.
// Queries are written with '?' placeholders and rebound for the driver.
package sqldb

import (
	"errors"
)

var (
	ErrDBQuery  = errors.New("database query error")
	ErrDBScan   = errors.New("database scan error")
	ErrCreate   = errors.New("create error")
	ErrUpdate   = errors.New("update error")
	ErrEncoding = errors.New("record encoding error")
)

type Repositories struct {
	Runs   *RunRepository
	Rounds *RoundRepository
	Epochs *EpochRepository
}
