package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
	"github.com/ProlificLabs/captrivia-cli/internal/app"
	"github.com/ProlificLabs/captrivia-cli/internal/game"
	"github.com/ProlificLabs/captrivia-cli/internal/logging"
)

// runFinish drives the end-of-game "page": the end-game handshake, and for
// multiplayer the live leaderboard until the server declares it over.
func runFinish(ctx context.Context, instance *app.Application) error {
	var ctrl *game.FinishController

	onChange := func() {
		if ctrl == nil {
			return
		}
		v := ctrl.View()
		if v.Phase == game.FinishWaiting && len(v.Standings) > 0 {
			fmt.Print(renderStandings(v.Standings))
		}
	}

	ctrl = game.NewFinishController(game.FinishConfig{
		API:      instance.API,
		Sessions: instance.Sessions,
		Dialer:   instance.Dialer,
		Logger:   logging.FromContext(ctx),
		OnChange: onChange,
	})
	defer ctrl.Close()

	phase, err := ctrl.Load(ctx)
	if err != nil {
		fmt.Println(ctrl.View().ErrMessage)
		return nil
	}

	switch phase {
	case game.FinishSinglePlayer:
		fmt.Printf("\nGame finished! Final score: %d\n", ctrl.View().FinalScore)
		return nil

	case game.FinishWaiting:
		fmt.Println("\nGame finished for you. Waiting for the other players...")
		fmt.Print(renderStandings(ctrl.View().Standings))
		select {
		case <-ctrl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if v := ctrl.View(); v.Phase == game.FinishError {
			fmt.Println(v.ErrMessage)
			return nil
		}
	}

	v := ctrl.View()
	fmt.Println("\nFinal standings:")
	fmt.Print(renderStandings(v.Standings))
	return nil
}

func renderStandings(rows []api.ScoreUpdate) string {
	var b strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&b, "  %d. %-20s %d\n", i+1, row.Name, row.Score.Int())
	}
	return b.String()
}
