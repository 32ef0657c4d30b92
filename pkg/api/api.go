// Package api holds the HTTP encoding helpers shared by the rounds API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	pkgerrors "github.com/absmach/rounds/pkg/errors"
	kithttp "github.com/go-kit/kit/transport/http"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"

	MaxLimitSize = 100
)

var (
	ErrValidation         = errors.New("failed to perform validation")
	ErrMissingID          = errors.New("missing entity id")
	ErrInvalidQueryParams = errors.New("invalid query parameters")
	ErrLimitSize          = errors.New("invalid limit size")
)

var (
	Version   = "0.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Response lets an endpoint control the status code and headers of its reply.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	w.Header().Set("Content-Type", ContentType)
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

type errorRes struct {
	Err string `json:"error"`
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		slog.Error("failed to encode error response", slog.Any("error", err))
	}
}

// LoggingErrorEncoder logs failed requests before encoding them.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Is(err, ErrValidation) {
			logger.Warn("request validation failed", slog.Any("error", err))
		} else {
			logger.Error("request failed", slog.Any("error", err))
		}
		enc(ctx, err, w)
	}
}

// ReadUintQuery reads a single unsigned query parameter, returning def when
// it is absent.
func ReadUintQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals := r.URL.Query()[key]
	switch len(vals) {
	case 0:
		return def, nil
	case 1:
	default:
		return 0, fmt.Errorf("%w: %s repeated", ErrInvalidQueryParams, key)
	}

	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidQueryParams, key)
	}

	return v, nil
}

type healthRes struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Description string `json:"description"`
	BuildTime   string `json:"build_time"`
	InstanceID  string `json:"instance_id"`
}

// Health reports liveness and build information.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := healthRes{
			Status:      "pass",
			Version:     Version,
			Commit:      Commit,
			Description: service + " service",
			BuildTime:   BuildTime,
			InstanceID:  instanceID,
		}

		w.Header().Set("Content-Type", "application/health+json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
