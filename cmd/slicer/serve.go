package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve slices over HTTP",
	Long:  "Starts an HTTP server exposing GET /slice?id=... (zip archive, or JSON summary with format=json), GET /file?fileID=... and GET /health.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	serveCmd.Flags().StringVar(&flagTimeout, "timeout", "", "per-request slicing timeout")
	serveCmd.Flags().BoolVar(&flagCheckSyntax, "check-syntax", false, "parse reconstructed files and warn on syntax errors")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	provider, err := newProvider(s)
	if err != nil {
		return err
	}

	srv := server.NewServer(cfg.Serve.Addr,
		newSlicer(slicer.StoreOpener(s, cfg.Cache.Entities)),
		newReconstructor(provider),
		provider,
		logger,
		server.WithSliceTimeout(cfg.Slice.Timeout),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "slicer listening on %s\n", cfg.Serve.Addr)
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("error during shutdown", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")
	}
	return nil
}
