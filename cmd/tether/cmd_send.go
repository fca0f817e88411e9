package main

import (
	"fmt"
	"strings"

	"tether/pkg/config"
	"tether/pkg/queue"

	"github.com/spf13/cobra"
)

// newSendCmd creates the "tether send" subcommand. It is the manual
// enqueue path: chat integrations normally drop inbox artifacts directly.
func newSendCmd() *cobra.Command {
	var (
		channel string
		sender  string
	)

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Enqueue a message for the agent",
		Long:  "Writes a message artifact into the coordinator's inbox.\nThe running coordinator picks it up on its next tick.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			cfg, err := config.Load(paths.ConfigPath, paths.TetherHome)
			if err != nil {
				return err
			}

			q := queue.New(cfg.QueueDir)
			if err := q.EnsureDirs(); err != nil {
				return err
			}

			msg, err := q.Enqueue(queue.Message{
				Channel: channel,
				Sender:  sender,
				Body:    strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on #%s\n", msg.ID, msg.Channel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&channel, "channel", "c", "cli", "chat channel the message belongs to")
	cmd.Flags().StringVarP(&sender, "sender", "s", "", "display name of the sender")

	return cmd
}
