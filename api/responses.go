package api

import (
	"net/http"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/api"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

var (
	_ api.Response = (*statusRes)(nil)
	_ api.Response = (*reportRes)(nil)
	_ api.Response = (*runRes)(nil)
	_ api.Response = (*listRunsRes)(nil)
	_ api.Response = (*roundsRes)(nil)
	_ api.Response = (*epochsRes)(nil)
)

type ok struct{}

func (ok) Code() int {
	return http.StatusOK
}

func (ok) Headers() map[string]string {
	return map[string]string{}
}

func (ok) Empty() bool {
	return false
}

type statusRes struct {
	ok
	controller.Status
}

type reportRes struct {
	ok
	controller.Report
}

type runRes struct {
	ok
	run.Run
}

type listRunsRes struct {
	ok
	run.RunPage
}

type roundsRes struct {
	ok
	RunID  string                 `json:"run_id"`
	Total  int                    `json:"total"`
	Rounds []recorder.RoundRecord `json:"rounds"`
}

type epochsRes struct {
	ok
	RunID  string                 `json:"run_id"`
	Total  int                    `json:"total"`
	Epochs []recorder.EpochRecord `json:"epochs"`
}
