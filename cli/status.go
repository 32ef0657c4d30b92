package cli

import (
	"github.com/absmach/rounds/pkg/sdk"
	"github.com/spf13/cobra"
)

var apiURL string

func client() sdk.SDK {
	cfg := settings.API
	if apiURL != "" {
		cfg.URL = apiURL
	}

	return sdk.NewSDK(cfg)
}

// NewStatusCmds returns the commands that query a running service.
func NewStatusCmds() []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Run status",
		Long:  `Show the phase, round and pool sizes of the run served at --url.`,
		Run: func(cmd *cobra.Command, _ []string) {
			st, err := client().Status(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, st)
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Run report",
		Long:  `Show the records collected so far by the run served at --url.`,
		Run: func(cmd *cobra.Command, _ []string) {
			rep, err := client().Report(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logReportCmd(*cmd, rep)
		},
	}

	for _, c := range []*cobra.Command{statusCmd, reportCmd} {
		c.Flags().StringVar(&apiURL, "url", "", "Service URL, overrides ROUNDS_API_URL")
	}

	return []*cobra.Command{statusCmd, reportCmd}
}
