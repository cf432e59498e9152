package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/renderer"
)

var renderCommand = &cobra.Command{
	Use:   "render",
	Short: "Run the renderer service",
	Long: `Serves POST /render, which wraps submission code in an execution harness
and returns the harness HTML plus a PNG thumbnail. Runs standalone so it can be
deployed separately from the API server.`,
	RunE: runRenderCmd,
}

var renderPort int

func init() {
	renderCommand.Flags().IntVarP(&renderPort, "port", "p", 0, "Port to listen on (defaults to RENDERER_PORT, then 4000)")
	rootCmd.AddCommand(renderCommand)
}

func runRenderCmd(_ *cobra.Command, _ []string) error {
	port := renderPort
	if port == 0 {
		if v, err := strconv.Atoi(os.Getenv("RENDERER_PORT")); err == nil {
			port = v
		} else {
			port = 4000
		}
	}

	// The renderer needs no database or provider keys.
	log := newLogger(os.Getenv("LOG_LEVEL"))
	return renderer.NewService(port, log).Start()
}
