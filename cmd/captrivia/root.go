package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProlificLabs/captrivia-cli/internal/app"
	"github.com/ProlificLabs/captrivia-cli/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "captrivia",
		Short:         "Terminal client for the Captrivia trivia game.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		newStartCmd(),
		newJoinCmd(),
		newResumeCmd(),
		newGamesCmd(),
	)
	return cmd
}

// setup loads configuration and bootstraps the application.
func setup() (*app.Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	instance, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	instance.StartMetrics()
	return instance, nil
}
