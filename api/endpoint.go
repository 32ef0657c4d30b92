package api

import (
	"context"
	"errors"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/api"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/run"
	"github.com/absmach/rounds/pkg/storage"
	"github.com/go-kit/kit/endpoint"
)

func statusEndpoint(svc controller.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: st}, nil
	}
}

func reportEndpoint(svc controller.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		rep, err := svc.Report(ctx)
		if err != nil {
			return reportRes{}, err
		}

		return reportRes{Report: rep}, nil
	}
}

func listRunsEndpoint(runs storage.RunRepository) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRunsReq)
		if !ok {
			return listRunsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRunsRes{}, errors.Join(api.ErrValidation, err)
		}

		rs, total, err := runs.List(ctx, req.offset, req.limit)
		if err != nil {
			return listRunsRes{}, err
		}
		if rs == nil {
			rs = []run.Run{}
		}

		return listRunsRes{
			RunPage: run.RunPage{
				Offset: req.offset,
				Limit:  req.limit,
				Total:  total,
				Runs:   rs,
			},
		}, nil
	}
}

func viewRunEndpoint(runs storage.RunRepository) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return runRes{}, errors.Join(api.ErrValidation, err)
		}

		r, err := runs.Get(ctx, req.id)
		if err != nil {
			return runRes{}, err
		}

		return runRes{Run: r}, nil
	}
}

func listRoundsEndpoint(runs storage.RunRepository, rounds storage.RoundRepository) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return roundsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundsRes{}, errors.Join(api.ErrValidation, err)
		}
		if _, err := runs.Get(ctx, req.id); err != nil {
			return roundsRes{}, err
		}

		recs, err := rounds.List(ctx, req.id)
		if err != nil {
			return roundsRes{}, err
		}

		return roundsRes{RunID: req.id, Total: len(recs), Rounds: recs}, nil
	}
}

func listEpochsEndpoint(runs storage.RunRepository, epochs storage.EpochRepository) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return epochsRes{}, errors.Join(api.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return epochsRes{}, errors.Join(api.ErrValidation, err)
		}
		if _, err := runs.Get(ctx, req.id); err != nil {
			return epochsRes{}, err
		}

		recs, err := epochs.List(ctx, req.id)
		if err != nil {
			return epochsRes{}, err
		}

		return epochsRes{RunID: req.id, Total: len(recs), Epochs: recs}, nil
	}
}
