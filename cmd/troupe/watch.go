package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/troupe/internal/events"
	"github.com/alfredjeanlab/troupe/internal/presence"
	"github.com/alfredjeanlab/troupe/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow actor runs on the event bus",
	GroupID: "actors",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return errors.New("watch needs an event bus: set TROUPE_NATS_URL")
		}
		stall, _ := cmd.Flags().GetDuration("stall")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		tracker := presence.New()
		tracker.StartReaper(&presence.ReaperConfig{
			StallThreshold: stall,
			OnStalled: func(e presence.Entry) {
				warnf("%s (%s) has not reported for %s", e.Actor, e.ExecutionID, stall)
			},
		})
		defer tracker.Stop()

		if err := watchEvents(ctx, tracker, quiet); err != nil {
			return err
		}

		roster := tracker.Roster(0)
		if jsonOutput {
			return printJSON(roster)
		}
		printRoster(roster)
		return nil
	},
}

func watchEvents(ctx context.Context, tracker *presence.Tracker, quiet bool) error {
	sub, err := events.NewNATSSubscriber(cfg.NATSURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			if err := tracker.Record(env.Topic, env.Data); err != nil {
				logger.Warn("skipping event", "topic", env.Topic, "error", err)
				continue
			}
			if !quiet && !jsonOutput {
				fmt.Printf("%s %s %s\n", ui.RenderMuted(time.Now().Format(time.TimeOnly)), ui.RenderTag(env.Topic), env.Data)
			}
		}
	}
}

func printRoster(roster []presence.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXECUTION\tACTOR\tSTATE\tPRODUCED\tERRORS\tIDLE")
	for _, e := range roster {
		state := e.State
		if state == presence.StateFailed || state == presence.StateStalled {
			state = ui.RenderError(state)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			ui.RenderMuted(e.ExecutionID),
			ui.RenderName(e.Actor),
			state,
			e.Produced,
			e.Errors,
			time.Duration(e.IdleSecs*float64(time.Second)).Round(time.Second),
		)
	}
	w.Flush()
}

func init() {
	watchCmd.Flags().Duration("stall", 15*time.Minute, "report runs with no end event after this long")
	watchCmd.Flags().BoolP("quiet", "q", false, "only print the roster on exit")
}
