// Package api serves run status, reports and stored run history over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/api"
	"github.com/absmach/rounds/pkg/storage"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const svcName = "rounds"

func MakeHandler(svc controller.Service, repos *storage.Repositories, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeStatusReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)
	mux.Get("/report", otelhttp.NewHandler(kithttp.NewServer(
		reportEndpoint(svc),
		decodeStatusReq,
		api.EncodeResponse,
		opts...,
	), "report").ServeHTTP)

	mux.Route("/runs", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRunsEndpoint(repos.Runs),
			decodeListRunsReq,
			api.EncodeResponse,
			opts...,
		), "list-runs").ServeHTTP)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				viewRunEndpoint(repos.Runs),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "view-run").ServeHTTP)
			r.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
				listRoundsEndpoint(repos.Runs, repos.Rounds),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "list-rounds").ServeHTTP)
			r.Get("/epochs", otelhttp.NewHandler(kithttp.NewServer(
				listEpochsEndpoint(repos.Runs, repos.Epochs),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			), "list-epochs").ServeHTTP)
		})
	})

	mux.Get("/health", api.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeStatusReq(_ context.Context, _ *http.Request) (any, error) {
	return statusReq{}, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListRunsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := api.ReadUintQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	l, err := api.ReadUintQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(api.ErrValidation, err)
	}

	return listRunsReq{
		offset: o,
		limit:  l,
	}, nil
}
