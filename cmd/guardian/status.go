package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the guardian's phase and peer connectivity",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if !watch {
				return displayStatus(cmd.Context(), cmd.OutOrStdout(), a)
			}
			return watchStatus(cmd.Context(), cmd.OutOrStdout(), a, interval)
		}),
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval for --watch")
	return cmd
}

func displayStatus(ctx context.Context, w io.Writer, a *app) error {
	status, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	return output(w, status, func() string { return renderStatus(a.client.Endpoint(), status) })
}

func watchStatus(ctx context.Context, w io.Writer, a *app, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !jsonOutput {
			// Clear screen
			fmt.Fprint(w, "\033[H\033[2J")
		}
		if err := displayStatus(ctx, w, a); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
