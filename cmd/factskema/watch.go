package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/factskema/internal/watch"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "watch files...",
		Short: "Re-check the facts whenever they or the schema change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run := func() {
				err := runCheck(ctx, cmd, g, f, args, log)
				switch {
				case err == nil, errors.Is(err, errIssues):
				default:
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "---")
			}
			run()
			return watch.Files(ctx, append([]string{g.schema}, args...), log, func(path string) {
				log.Info("re-checking", zap.String("changed", path))
				run()
			})
		},
	}
	f.bind(cmd)
	return cmd
}
