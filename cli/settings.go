// Package cli implements the rounds command line: running experiments,
// writing experiment files and browsing stored runs.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/absmach/rounds/pkg/blob"
	"github.com/absmach/rounds/pkg/mqtt"
	"github.com/absmach/rounds/pkg/sdk"
	"github.com/absmach/rounds/pkg/server"
	"github.com/absmach/rounds/pkg/storage"
)

const svcName = "rounds"

// Settings is the process environment shared by every command.
type Settings struct {
	LogLevel    string `env:"ROUNDS_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string `env:"ROUNDS_INSTANCE_ID"`
	Storage     storage.Config
	Blob        blob.Config
	MQTTEnabled bool          `env:"ROUNDS_MQTT_ENABLED" envDefault:"false"`
	MQTT        mqtt.Config   `envPrefix:"ROUNDS_MQTT_"`
	HTTP        server.Config `envPrefix:"ROUNDS_HTTP_"`
	OTELURL     url.URL       `env:"ROUNDS_OTEL_URL"`
	TraceRatio  float64       `env:"ROUNDS_TRACE_RATIO"  envDefault:"0"`
	// API addresses a running service for the status and report commands.
	API sdk.Config
}

var (
	settings Settings
	logger   = slog.New(slog.DiscardHandler)
)

func SetSettings(s Settings) {
	settings = s
}

func SetLogger(l *slog.Logger) {
	logger = l
}

// NewLogger builds the JSON logger used by the service.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
