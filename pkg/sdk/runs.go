package sdk

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

const runsEndpoint = "/runs"

func (sdk *roundsSDK) Status(ctx context.Context) (controller.Status, error) {
	return get[controller.Status](ctx, sdk, "/status")
}

func (sdk *roundsSDK) Report(ctx context.Context) (controller.Report, error) {
	return get[controller.Report](ctx, sdk, "/report")
}

func (sdk *roundsSDK) ListRuns(ctx context.Context, offset, limit uint64) (run.RunPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}

	return get[run.RunPage](ctx, sdk, runsEndpoint+query)
}

func (sdk *roundsSDK) Run(ctx context.Context, id string) (run.Run, error) {
	return get[run.Run](ctx, sdk, runsEndpoint+"/"+url.PathEscape(id))
}

func (sdk *roundsSDK) Rounds(ctx context.Context, id string) ([]recorder.RoundRecord, error) {
	res, err := get[struct {
		Rounds []recorder.RoundRecord `json:"rounds"`
	}](ctx, sdk, runsEndpoint+"/"+url.PathEscape(id)+"/rounds")

	return res.Rounds, err
}

func (sdk *roundsSDK) Epochs(ctx context.Context, id string) ([]recorder.EpochRecord, error) {
	res, err := get[struct {
		Epochs []recorder.EpochRecord `json:"epochs"`
	}](ctx, sdk, runsEndpoint+"/"+url.PathEscape(id)+"/epochs")

	return res.Epochs, err
}
