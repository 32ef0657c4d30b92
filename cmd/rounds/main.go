package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/absmach/rounds/cli"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const pathEnv = ".env"

func main() {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := cli.Settings{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	rootCmd := &cobra.Command{
		Use:   "rounds",
		Short: "Growing-pool training rounds",
		Long:  `rounds trains a model over several rounds, growing the labeled subset it trains on between rounds.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := cli.NewLogger(os.Stdout, cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			cli.SetLogger(logger)
			cli.SetSettings(cfg)

			return nil
		},
	}

	rootCmd.AddCommand(
		cli.NewRunCmd(),
		cli.NewInitCmd(),
		cli.NewRunsCmd(),
		cli.NewWatchCmd(),
	)
	rootCmd.AddCommand(cli.NewStatusCmds()...)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
