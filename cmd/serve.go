package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeline-manager/internal/server"
	"github.com/Tiliavir/timeline-manager/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve timelines, layouts and interactions over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		p, err := s.cfg.Perspective()
		if err != nil {
			return fail(1, err)
		}
		addr := serveAddr
		if addr == "" {
			addr = s.cfg.Server.Addr
		}

		shutdown, err := telemetry.Setup(ctx, "tlm", s.cfg.Server.OTelEndpoint)
		if err != nil {
			return fail(2, err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("telemetry shutdown: %v", err)
			}
		}()

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.New(s.c, s.repo, p).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Printf("tlm listening on %s (%d timelines)", addr, len(s.c.Timelines()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			return fail(2, err)
		}
		return nil
	})
}
