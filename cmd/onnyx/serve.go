package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/metrics"
	"github.com/Icannotcodelol/onnyx/internal/server"
	"github.com/Icannotcodelol/onnyx/internal/vote"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the arena's HTTP API server",
	Long: `Serves pipeline triggers (generate, dispatch, pair), the voting endpoint,
browse endpoints for tasks and matches, the leaderboard, and Prometheus metrics.`,
	RunE: runServeCmd,
}

var servePort int

func init() {
	serveCommand.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (defaults to PORT env var)")
	rootCmd.AddCommand(serveCommand)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	blobs, err := a.blobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to blob store: %w", err)
	}

	gen, err := a.generator()
	if err != nil {
		return fmt.Errorf("failed to build task generator: %w", err)
	}

	port := servePort
	if port == 0 {
		port = a.cfg.Port
	}

	srv := server.New(server.Options{
		Port:       port,
		CronSecret: a.cfg.CronSecret,
		Store:      a.db,
		Generator:  gen,
		Dispatcher: a.dispatcher(blobs, m),
		Pairer:     a.pairer(m),
		Votes:      vote.New(a.db, m, a.log),
		Blobs:      blobs,
		Gatherer:   registry,
		Metrics:    m,
		Log:        a.log,
	})
	return srv.Start()
}
