package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelhao/parley"
	"github.com/avelhao/parley/internal/service"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Check a workflow definition for consistency",
	Long:  `Parses the definition and validates node configurations and edge references without executing anything.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Workflow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	wf, err := parley.LoadWorkflow(path)
	if err != nil {
		return err
	}
	return service.LintWorkflow(wf)
}
