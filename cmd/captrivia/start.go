package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/logging"
)

func newStartCmd() *cobra.Command {
	var (
		name        string
		multiplayer bool
		questions   int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new game and play it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("player name must not be empty")
			}
			if questions < 1 {
				return errors.New("question count must be at least 1")
			}

			instance, err := setup()
			if err != nil {
				return err
			}
			defer instance.Close()

			ctx := logging.IntoContext(cmd.Context(), instance.Logger())
			session, err := instance.API.StartGame(ctx, api.StartGameRequest{
				Name:        name,
				Multiplayer: multiplayer,
				Questions:   questions,
			})
			if err != nil {
				return err
			}
			if err := instance.Sessions.StartOrResume(*session, false); err != nil {
				return err
			}
			instance.Metrics().SessionsStarted.Inc()

			fmt.Printf("Started game %s\n", session.GameID)
			if multiplayer {
				fmt.Printf("Invite others: %s\n", api.JoinURL(instance.Config().Backend.BaseURL, session.GameID))
			}

			return runPlay(ctx, instance)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "player name")
	cmd.Flags().BoolVar(&multiplayer, "multiplayer", false, "create a multiplayer game")
	cmd.Flags().IntVar(&questions, "questions", 10, "number of questions")

	return cmd
}
