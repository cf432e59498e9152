// Package main provides the entry point for the Onnyx arena services.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "onnyx",
	Short: "Onnyx automated coding benchmark arena",
	Long: "Onnyx generates creative coding tasks, fans them out to LLM providers, " +
		"renders the results into viewable artifacts, and ranks models from human head-to-head votes.",
}

var (
	flagLogLevel  string
	flagLogPretty bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (trace, debug, info, warn, error); defaults to LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&flagLogPretty, "pretty", false, "Human-readable console log output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the command logger, preferring the CLI flag over
// the environment's LOG_LEVEL.
func newLogger(envLevel string) zerolog.Logger {
	level := flagLogLevel
	if level == "" {
		level = envLevel
	}
	return observability.Default(level, flagLogPretty)
}
