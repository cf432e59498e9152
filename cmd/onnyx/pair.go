package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pairCommand = &cobra.Command{
	Use:   "pair",
	Short: "Create matches from unmatched submissions",
	Long: `Groups succeeded submissions by task and pairs them off into matches,
skipping pairs that already exist. Safe to run repeatedly.`,
	RunE: runPairCmd,
}

func init() {
	rootCmd.AddCommand(pairCommand)
}

func runPairCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	created, err := a.pairer(nil).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %d matches\n", created)
	return nil
}
