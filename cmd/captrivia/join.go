package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/app"
	"github.com/ProlificLabs/captrivia-cli/internal/logging"
	"github.com/ProlificLabs/captrivia-cli/internal/session"
)

func newJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <gameId>",
		Short: "Join a multiplayer game by id and play it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID := strings.TrimSpace(args[0])
			if gameID == "" {
				return errors.New("game id must not be empty")
			}

			instance, err := setup()
			if err != nil {
				return err
			}
			defer instance.Close()
			ctx := logging.IntoContext(cmd.Context(), instance.Logger())

			if err := resolveJoinSession(ctx, instance, gameID, name); err != nil {
				return err
			}
			return runPlay(ctx, instance)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "player name")

	return cmd
}

// resolveJoinSession makes gameID the current session. A game already in the
// registry is rejoined with its stored session; no join request goes out.
func resolveJoinSession(ctx context.Context, instance *app.Application, gameID, name string) error {
	if _, err := instance.Sessions.Load(gameID); err == nil {
		fmt.Printf("Resuming stored session for game %s\n", gameID)
		return nil
	} else if !errors.Is(err, session.ErrNotFound) {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("player name must not be empty")
	}

	joined, err := instance.API.JoinGame(ctx, api.JoinGameRequest{GameID: gameID, Name: name})
	if err != nil {
		return err
	}
	if err := instance.Sessions.StartOrResume(*joined, false); err != nil {
		return err
	}
	instance.Metrics().SessionsStarted.Inc()
	return nil
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [gameId]",
		Short: "Resume the current game, or a stored one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := setup()
			if err != nil {
				return err
			}
			defer instance.Close()

			if len(args) == 1 {
				if _, err := instance.Sessions.Load(strings.TrimSpace(args[0])); err != nil {
					return err
				}
			} else if _, ok := instance.Sessions.Current(); !ok {
				return errors.New("no current game; pass a gameId or start one")
			}

			return runPlay(logging.IntoContext(cmd.Context(), instance.Logger()), instance)
		},
	}
}
