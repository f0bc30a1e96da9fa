package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avelhao/parley"
	"github.com/avelhao/parley/internal/adapters/openai"
	"github.com/avelhao/parley/internal/config"
	"github.com/avelhao/parley/internal/logging"
	"github.com/avelhao/parley/internal/presentation/tui"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Run a workflow interactively",
	Long:  `Loads a workflow definition and drives it in the terminal, one turn per line of input.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")

		if err := runInteractive(args[0], headless); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, plain output)")
}

func runInteractive(path string, headless bool) error {
	settings := config.FromEnv()
	logger := logging.New(logging.ParseLevel(settings.LogLevel))

	opts := []parley.Option{parley.WithLogger(logger)}
	if settings.OpenAIKey != "" {
		opts = append(opts, parley.WithCompleter(newCompleter(settings)))
	}

	engine, err := parley.Load(path, opts...)
	if err != nil {
		return err
	}

	runner := parley.NewRunner(os.Stdin, os.Stdout)
	runner.Headless = headless
	if !headless && tui.IsTerminal() {
		tui.PrintBanner()
		runner.Renderer = tui.NewRenderer()
	}

	return runner.Run(context.Background(), engine)
}

func newCompleter(settings config.Settings) *openai.Client {
	var opts []openai.Option
	if settings.OpenAIModel != "" {
		opts = append(opts, openai.WithModel(settings.OpenAIModel))
	}
	if settings.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(settings.OpenAIBaseURL))
	}
	return openai.NewClient(settings.OpenAIKey, opts...)
}
