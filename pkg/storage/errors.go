package storage

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported storage type")
	ErrMissingPayload  = errors.New("event carries no payload")
)
