package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "List known game sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := setup()
			if err != nil {
				return err
			}
			defer instance.Close()

			sessions := instance.Sessions.Sessions()
			if len(sessions) == 0 {
				fmt.Println("No known games.")
				return nil
			}

			current, hasCurrent := instance.Sessions.Current()
			for _, s := range sessions {
				marker := " "
				if hasCurrent && s.GameID == current.GameID {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, s.GameID)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <gameId>",
		Short: "Forget a stored game session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := setup()
			if err != nil {
				return err
			}
			defer instance.Close()

			gameID := strings.TrimSpace(args[0])
			if err := instance.Sessions.Delete(gameID); err != nil {
				return err
			}
			fmt.Printf("Deleted session for game %s\n", gameID)
			return nil
		},
	})

	return cmd
}
