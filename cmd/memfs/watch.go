package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/pkg/client"
	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/retry"
)

func newWatchCmd(a *app) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change events from a running memfs server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			stream, _ := newClient(a, server).Subscribe(ctx)
			return watch(ctx, stream, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "memfs server URL")
	return cmd
}

func newClient(a *app, server string) *client.Client {
	rc := retry.DefaultConfig()
	if a.cfg.RetryAttempts > 0 {
		rc.MaxAttempts = a.cfg.RetryAttempts
	}
	if a.cfg.RetryInitialWait > 0 {
		rc.InitialWait = a.cfg.RetryInitialWait
	}
	return client.New(client.Config{
		BaseURL:     server,
		RetryConfig: rc,
		Logger:      logging.Named("client"),
	})
}

// watch prints events until the stream closes.
func watch(ctx context.Context, stream <-chan protocol.SSEEvent, out io.Writer) error {
	for ev := range stream {
		fmt.Fprintln(out, formatEvent(ev))
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func formatEvent(ev protocol.SSEEvent) string {
	ts := time.Unix(ev.Timestamp, 0).Format("15:04:05")
	line := fmt.Sprintf("%s %-6s %s", ts, ev.Type, ev.Path)
	if ev.Target != "" && ev.Target != ev.Path {
		line += " -> " + ev.Target
	}
	if ev.Kind != "" {
		line += " (" + ev.Kind + ")"
	}
	return line
}
