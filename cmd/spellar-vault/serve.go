package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var drainTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive Spellar webhooks and write them into the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Error loading configuration", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := newService(cfg)
		if err := svc.Start(ctx); err != nil {
			fatal("Error starting service", err)
		}

		slog.Info("spellar webhook server",
			"vault", svc.VaultPath,
			"summaries", cfg.NotesFolder,
			"transcripts", cfg.TranscriptsFolder,
			"audio", cfg.AttachmentsFolder,
			"daily_notes", cfg.DailyNotesFolder,
			"port", cfg.Port,
			"log_requests", cfg.LogRequests,
			"secret", cfg.WebhookSecret != "",
		)

		servers := []*http.Server{{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           svc.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if cfg.MetricsPort > 0 {
			mux := http.NewServeMux()
			mux.Handle("/metrics", svc.MetricsHandler())
			servers = append(servers, &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, srv := range servers {
			g.Go(func() error {
				slog.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down", "drain_timeout", drainTimeout)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()

			var errs []error
			for _, srv := range servers {
				errs = append(errs, srv.Shutdown(shutdownCtx))
			}
			// Webhooks already acknowledged are finished before exit.
			errs = append(errs, svc.Stop(shutdownCtx))
			return errors.Join(errs...)
		})

		if err := g.Wait(); err != nil {
			fatal("Server error", err)
		}
		slog.Info("stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 5*time.Minute, "How long to wait for queued meetings on shutdown")
}
