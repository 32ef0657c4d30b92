package cli

import (
	"context"

	"github.com/absmach/rounds/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
	offset    uint64
	limit     uint64
)

// withRepos opens the configured storage for the duration of fn.
func withRepos(cmd cobra.Command, fn func(ctx context.Context, repos *storage.Repositories) (any, error)) {
	repos, err := storage.NewRepositories(settings.Storage)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}
	defer repos.Close()

	res, err := fn(cmd.Context(), repos)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}
	logJSONCmd(cmd, res)
}

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [list|view|rounds|epochs]",
		Short: "Stored runs",
		Long:  `List runs and view their round and epoch records.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Long:  `List runs, newest first.`,
		Run: func(cmd *cobra.Command, _ []string) {
			withRepos(*cmd, func(ctx context.Context, repos *storage.Repositories) (any, error) {
				runs, total, err := repos.Runs.List(ctx, offset, limit)
				if err != nil {
					return nil, err
				}

				return map[string]any{"total": total, "offset": offset, "limit": limit, "runs": runs}, nil
			})
		},
	}
	listCmd.Flags().Uint64VarP(&offset, "offset", "o", defOffset, "Offset")
	listCmd.Flags().Uint64VarP(&limit, "limit", "l", defLimit, "Limit")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			withRepos(*cmd, func(ctx context.Context, repos *storage.Repositories) (any, error) {
				return repos.Runs.Get(ctx, args[0])
			})
		},
	}

	roundsCmd := &cobra.Command{
		Use:   "rounds <id>",
		Short: "View run rounds",
		Long:  `View the per-round validation results of a run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			withRepos(*cmd, func(ctx context.Context, repos *storage.Repositories) (any, error) {
				if _, err := repos.Runs.Get(ctx, args[0]); err != nil {
					return nil, err
				}

				return repos.Rounds.List(ctx, args[0])
			})
		},
	}

	epochsCmd := &cobra.Command{
		Use:   "epochs <id>",
		Short: "View run epochs",
		Long:  `View the per-epoch metrics of a run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			withRepos(*cmd, func(ctx context.Context, repos *storage.Repositories) (any, error) {
				if _, err := repos.Runs.Get(ctx, args[0]); err != nil {
					return nil, err
				}

				return repos.Epochs.List(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(listCmd, viewCmd, roundsCmd, epochsCmd)

	return cmd
}
