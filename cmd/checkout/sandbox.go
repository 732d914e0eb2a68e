package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoakhoakhoa23/TMDT-sub000/internal/config"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/handlers"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/router"
	"github.com/khoakhoakhoa23/TMDT-sub000/internal/sandbox/service"
)

const shutdownTimeout = 30 * time.Second

type sandboxFlags struct {
	throttle    int
	settleAfter int
	settleTo    string
}

func (f *sandboxFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.throttle, "throttle", 0, "answer 429 to the first N status checks of each payment")
	cmd.Flags().IntVar(&f.settleAfter, "settle-after", f.settleAfter, "settle payments after N status checks (0 waits for simulate)")
	cmd.Flags().StringVar(&f.settleTo, "settle-status", "completed", "status payments settle to")
}

func sandboxCmd(g *globals) *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory rental backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", ":"+g.cfg.Sandbox.Port)
			if err != nil {
				return err
			}

			return serveSandbox(cmd.Context(), ln, g.cfg, g.logger, f)
		},
	}
	f.register(cmd)
	return cmd
}

// serveSandbox serves on ln until ctx is done and then shuts down gracefully.
func serveSandbox(ctx context.Context, ln net.Listener, cfg *config.Config, logger *slog.Logger, f *sandboxFlags) error {
	rentalService := service.NewRentalService(service.Options{
		Throttle:     f.throttle,
		SettleAfter:  f.settleAfter,
		SettleStatus: f.settleTo,
	})
	h := handlers.NewHandler(rentalService)
	r := router.SetupRouter(h, router.Options{
		Logger:   logger,
		Token:    cfg.Auth.Token,
		Simulate: cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Sandbox starting", "addr", ln.Addr().String(), "simulate", cfg.IsDevelopment())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down sandbox...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Sandbox stopped")
	return <-errCh
}
