package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var watchEvents bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			pinger, _ := a.backend.Medium.(apphttp.Pinger)
			srv, err := apphttp.NewServer(apphttp.Config{
				Addr:     ":" + a.cfg.Port,
				CacheTTL: a.cfg.CacheTTL,
				Logger:   a.logger,
				Pinger:   pinger,
			}, a.store)
			if err != nil {
				return err
			}

			a.logger.Info("Starting expensetracker",
				log.FieldOperation, log.OpStartup,
				"port", a.cfg.Port,
				log.FieldBackend, a.cfg.DataBackend,
				log.FieldKey, a.store.Key(),
				"amqp_enabled", a.backend.Notifier != nil)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx, shutdownTimeout) })
			g.Go(func() error { return srv.RunMaintenance(gctx) })
			if watchEvents {
				if !a.cfg.AMQPEnabled() {
					a.logger.Warn("--watch-events ignored: AMQP_URL is not set")
				} else {
					g.Go(func() error { return watch(gctx, a, cmd) })
				}
			}

			if err := g.Wait(); err != nil {
				return err
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&watchEvents, "watch-events", false, "Also consume and log document change events")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Consume document change events from AMQP and log them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.cfg.AMQPEnabled() {
				return errors.New("watch requires AMQP_URL")
			}
			return watch(cmd.Context(), a, cmd)
		},
	}
}

// watch consumes change events on a dedicated connection until ctx is done.
func watch(ctx context.Context, a *app, cmd *cobra.Command) error {
	logger := a.logger.WithComponent(log.ComponentAMQP)
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewEventWorker(a.store, cmd.OutOrStdout(), a.logger)
	err = client.ConsumeDocumentEvents(ctx, w.HandleDocumentEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
