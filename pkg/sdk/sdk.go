// Package sdk is a Go client for the rounds HTTP API.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/recorder"
	"github.com/absmach/rounds/pkg/run"
)

const CTJSON string = "application/json"

var ErrUnexpectedCode = errors.New("unexpected response code")

type SDK interface {
	// Status returns the phase, round and pool sizes of the active run.
	//
	// example:
	//  st, _ := sdk.Status(ctx)
	//  fmt.Println(st.Phase, st.InUse)
	Status(ctx context.Context) (controller.Status, error)

	// Report returns the records collected so far by the active run.
	Report(ctx context.Context) (controller.Report, error)

	// ListRuns lists stored runs, newest first.
	//
	// example:
	//  page, _ := sdk.ListRuns(ctx, 0, 10)
	//  fmt.Println(page.Total)
	ListRuns(ctx context.Context, offset, limit uint64) (run.RunPage, error)

	// Run gets a stored run by id.
	Run(ctx context.Context, id string) (run.Run, error)

	// Rounds lists the round records of a stored run.
	Rounds(ctx context.Context, id string) ([]recorder.RoundRecord, error)

	// Epochs lists the epoch records of a stored run.
	Epochs(ctx context.Context, id string) ([]recorder.EpochRecord, error)
}

type roundsSDK struct {
	url    string
	client *http.Client
}

type Config struct {
	URL             string        `env:"ROUNDS_API_URL"          envDefault:"http://localhost:9090"`
	TLSVerification bool          `env:"ROUNDS_API_TLS_VERIFY"   envDefault:"true"`
	Timeout         time.Duration `env:"ROUNDS_API_TIMEOUT"      envDefault:"10s"`
}

func NewSDK(cfg Config) SDK {
	return &roundsSDK{
		url: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *roundsSDK) processRequest(ctx context.Context, method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return []byte{}, fmt.Errorf("%w %d: %s", ErrUnexpectedCode, resp.StatusCode, e.Error)
		}

		return []byte{}, fmt.Errorf("%w: %d", ErrUnexpectedCode, resp.StatusCode)
	}

	return body, nil
}

func get[T any](ctx context.Context, sdk *roundsSDK, path string) (T, error) {
	var out T
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.url+path, nil, http.StatusOK)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}

	return out, nil
}
