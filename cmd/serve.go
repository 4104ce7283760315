package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/distortfit/internal/server"
	"github.com/cwbudde/distortfit/internal/store"
)

var (
	serveAddr    string
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Runs an HTTP server that accepts distortion solve jobs, executes
them in the background and serves their results as JSON. Completed
jobs are persisted to the data directory.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data", "./data", "Base directory for result storage")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(serveDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	srv := server.NewServer(serveAddr, resultStore)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
