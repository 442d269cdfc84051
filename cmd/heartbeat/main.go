package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"status-notification/internal/heartbeat"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	serverURL string
	object    string
	sub       string
	apiKey    string
	interval  time.Duration
	timeout   time.Duration
	legacy    bool
	once      bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Report liveness to the status notification server",
		Long: `heartbeat posts a status update for an object and sub-object every interval.
With --legacy it sends the single-table format (program_name and api_key in the body).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.serverURL, "url", "http://127.0.0.1:5000", "status server base URL")
	cmd.Flags().StringVar(&opts.object, "object", "", "object name (program name with --legacy)")
	cmd.Flags().StringVar(&opts.sub, "sub", "", "sub-object name")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("HEARTBEAT_API_KEY"), "API key")
	cmd.Flags().DurationVar(&opts.interval, "interval", 5*time.Second, "time between heartbeats")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "use the program_name/api_key request format")
	cmd.Flags().BoolVar(&opts.once, "once", false, "send a single heartbeat and exit")

	return cmd
}

func run(ctx context.Context, opts options) error {
	if opts.object == "" {
		return errors.New("--object is required")
	}
	if opts.legacy && opts.apiKey == "" {
		return errors.New("--api-key is required with --legacy")
	}
	if !opts.legacy && opts.sub == "" {
		return errors.New("--sub is required")
	}
	if !opts.once && opts.interval <= 0 {
		return errors.New("--interval must be positive")
	}

	client := heartbeat.NewClient(opts.serverURL, opts.apiKey, opts.timeout)
	send := func(ctx context.Context) error {
		if opts.legacy {
			return client.SendLegacy(ctx, opts.object)
		}
		return client.Send(ctx, opts.object, opts.sub)
	}

	if opts.once {
		return send(ctx)
	}
	logger := log.WithFields(log.Fields{"object": opts.object, "sub": opts.sub, "url": opts.serverURL})
	return heartbeat.Loop(ctx, opts.interval, logger, send)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
