package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/absmach/rounds/pkg/mqtt"
	"github.com/absmach/rounds/pkg/run"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [run-id]",
		Short: "Watch run events",
		Long:  `Follow run events published over MQTT, for one run or all of them.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}

			cfg := settings.MQTT
			cfg.ClientID = svcName + "-watch-" + uuid.NewString()
			ps, err := mqtt.NewPubSub(cfg, logger)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler := func(topic string, ev run.Event) error {
				logEventCmd(*cmd, topic, ev)

				return nil
			}
			if err := ps.Subscribe(ctx, runID, handler); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			topic := mqtt.EventFilter(cfg.BaseTopic, runID)
			logSuccessCmd(*cmd, "watching "+topic)

			<-ctx.Done()
			if err := ps.Unsubscribe(context.Background(), runID); err != nil {
				logErrorCmd(*cmd, err)
			}
			if err := ps.Disconnect(context.Background()); err != nil {
				logErrorCmd(*cmd, err)
			}
		},
	}
}

func logEventCmd(cmd cobra.Command, topic string, ev run.Event) {
	paint := color.CyanString
	switch ev.Kind {
	case run.RoundCompleted:
		paint = color.GreenString
	case run.PoolGrown:
		paint = color.YellowString
		if ev.Growth != nil && ev.Growth.Exhausted() {
			paint = color.RedString
		}
	case run.RunStarted, run.RunFinished:
		paint = color.MagentaString
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", paint("%-16s", ev.Kind), topic)
	if ev.Kind != run.EpochCompleted {
		logJSONCmd(cmd, ev)
	}
}
