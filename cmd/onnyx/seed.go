package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Icannotcodelol/onnyx/internal/generate"
)

var seedCommand = &cobra.Command{
	Use:   "seed",
	Short: "Seed providers, models, and starter tasks",
	Long: `Registers the supported providers and one model per provider, then
stores the built-in starter task set. Idempotent for providers and models;
starter tasks get fresh ids on every run.`,
	RunE: runSeedCmd,
}

var seedSkipTasks bool

// seedModels is one model per supported provider.
var seedModels = []struct {
	provider      string
	label         string
	apiIdentifier string
}{
	{"OpenAI", "GPT-4.1 Mini", "gpt-4.1-mini"},
	{"Anthropic", "Claude 3 Haiku", "claude-3-haiku-20240307"},
	{"Google", "Gemini 1.5 Pro", "gemini-1.5-pro"},
	{"DeepSeek", "DeepSeek Coder", "deepseek-coder"},
}

func init() {
	seedCommand.Flags().BoolVar(&seedSkipTasks, "skip-tasks", false, "Seed providers and models only")
	rootCmd.AddCommand(seedCommand)
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	for _, m := range seedModels {
		if err := a.db.SeedModel(ctx, m.provider, m.label, m.apiIdentifier); err != nil {
			return fmt.Errorf("seed model %s: %w", m.label, err)
		}
		fmt.Printf("seeded model %s (%s)\n", m.label, m.provider)
	}

	if seedSkipTasks {
		return nil
	}

	stored, err := a.db.InsertTasks(ctx, generate.FallbackTasks())
	if err != nil {
		return fmt.Errorf("seed tasks: %w", err)
	}
	for _, task := range stored {
		fmt.Printf("seeded task %s (%s)\n", task.Slug, task.ID)
	}
	return nil
}
