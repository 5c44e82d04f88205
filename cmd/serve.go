package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/imovelware/vendazap/internal/http"
	"github.com/imovelware/vendazap/internal/store"
	"github.com/imovelware/vendazap/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the vendazap API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg := loadConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(filepath.Join(cfg.Data.Dir, "vendazap.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := whatsapp.NewManager(
		whatsapp.NewRegistry(),
		whatsapp.NewMeowFactory(cfg.Data.Dir),
		whatsapp.Options{
			ConnectTimeout: cfg.WhatsApp.ConnectTimeout(),
			SendsPerMinute: cfg.WhatsApp.SendsPerMinute,
		},
	)

	srv := &nethttp.Server{
		Addr:              cfg.Server.Listen,
		Handler:           http.NewServer(mgr, st, cfg.Server.Token).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", cfg.Server.Listen)
		if err := srv.ListenAndServe(); !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
