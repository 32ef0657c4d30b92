package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/absmach/rounds"
	"github.com/absmach/rounds/controller"
	"github.com/spf13/cobra"
)

const defConfigPath = "experiment.toml"

var (
	configPath string
	modelPath  string
	runName    string
	coldStart  bool
	serve      bool
)

// loadExperiment reads path, falling back to the defaults when the file does
// not exist.
func loadExperiment(cmd cobra.Command, path string) (*rounds.Config, error) {
	cfg, err := rounds.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logWarnCmd(cmd, fmt.Sprintf("%s not found, using default experiment", path))
		def := rounds.DefaultConfig()

		return &def, nil
	}

	return cfg, err
}

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run experiment",
		Long: `Run a growing-pool experiment described by a TOML file.

Examples:
  # Run with the defaults
  rounds run

  # Four rounds, a fresh model every round
  rounds run --config experiment.toml --cold-start --model-path out/model.cbor`,
		Run: func(cmd *cobra.Command, _ []string) {
			exp, err := loadExperiment(*cmd, configPath)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if modelPath != "" {
				exp.Experiment.ModelPath = modelPath
			}
			if runName != "" {
				exp.Experiment.Name = runName
			}
			if coldStart {
				exp.Experiment.Strategy = controller.ResetEachRound.String()
			}
			if err := exp.Validate(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			report, err := Start(cmd.Context(), exp, settings, serve, logger)
			if report.Run.ID != "" {
				logReportCmd(*cmd, report)
			}
			if err != nil {
				logErrorCmd(*cmd, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defConfigPath, "Experiment file")
	cmd.Flags().StringVar(&modelPath, "model-path", "", "Where to save the final model")
	cmd.Flags().StringVar(&runName, "name", "", "Run name, generated when empty")
	cmd.Flags().BoolVar(&coldStart, "cold-start", false, "Build a fresh model at the start of every round")
	cmd.Flags().BoolVar(&serve, "serve", false, "Keep the HTTP API running after the run finishes")

	return cmd
}

func logReportCmd(cmd cobra.Command, report controller.Report) {
	logJSONCmd(cmd, report)

	for _, sa := range report.Accuracy {
		logSuccessCmd(cmd, fmt.Sprintf("%10d samples  %.4f", sa.InUse, sa.Accuracy))
	}
	if a := report.Artifact; a != nil {
		if a.Saved {
			logSuccessCmd(cmd, "model saved to "+a.Path)
		} else {
			logWarnCmd(cmd, fmt.Sprintf("model not saved to %s: %s", a.Path, a.Error))
		}
	}
}
