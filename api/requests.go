package api

import "github.com/absmach/rounds/pkg/api"

type statusReq struct{}

type entityReq struct {
	id string
}

func (e entityReq) validate() error {
	if e.id == "" {
		return api.ErrMissingID
	}

	return nil
}

type listRunsReq struct {
	offset, limit uint64
}

func (l listRunsReq) validate() error {
	if l.limit == 0 || l.limit > api.MaxLimitSize {
		return api.ErrLimitSize
	}

	return nil
}
