package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ProlificLabs/captrivia-cli/internal/app"
	"github.com/ProlificLabs/captrivia-cli/internal/game"
	"github.com/ProlificLabs/captrivia-cli/internal/logging"
	"github.com/ProlificLabs/captrivia-cli/internal/notify"
)

// runPlay drives one visit to the game "page": load, optionally wait for a
// multiplayer start, answer questions, then hand over to the finish flow.
func runPlay(ctx context.Context, instance *app.Application) error {
	var ctrl *game.Controller

	lastSeconds := -1
	onChange := func() {
		if ctrl == nil {
			return
		}
		v := ctrl.View()
		if v.Phase == game.PhaseWaitingForStart && v.SecondsLeft > 0 && v.SecondsLeft != lastSeconds {
			lastSeconds = v.SecondsLeft
			fmt.Printf("Game starting in %d...\n", v.SecondsLeft)
		}
	}

	ctrl = game.NewController(game.Config{
		API:      instance.API,
		Sessions: instance.Sessions,
		Dialer:   instance.Dialer,
		Notifier: notify.Func(func(m string) { fmt.Println(m) }),
		Logger:   logging.FromContext(ctx),
		OnChange: onChange,
	})
	defer ctrl.Close()

	phase, err := ctrl.Load(ctx)
	if err != nil {
		if errors.Is(err, game.ErrNoCurrentSession) {
			return err
		}
		fmt.Println(ctrl.View().ErrMessage)
		return nil
	}

	// One reader for the whole visit; a second bufio.Reader would lose
	// type-ahead input buffered by the first.
	reader := bufio.NewReader(os.Stdin)

	switch phase {
	case game.PhaseFinished:
		ctrl.Close()
		return runFinish(ctx, instance)
	case game.PhaseWaitingForStart:
		if err := waitForStart(ctx, ctrl, reader); err != nil {
			if errors.Is(err, errConnectionLost) {
				fmt.Println(ctrl.View().ErrMessage)
				return nil
			}
			return err
		}
	}

	return playQuestions(ctx, instance, ctrl, reader)
}

// errConnectionLost means the socket dropped before the game started.
var errConnectionLost = errors.New("connection to the game was lost")

// waitForStart blocks until the server starts the game. The owner can press
// enter to trigger the countdown for everyone.
func waitForStart(ctx context.Context, ctrl *game.Controller, reader *bufio.Reader) error {
	v := ctrl.View()
	fmt.Println("Waiting for the game to start...")
	if len(v.Players) > 0 {
		fmt.Printf("Players: %s\n", strings.Join(v.Players, ", "))
	}

	if v.Owner {
		fmt.Println("Press enter to start the game for everyone.")
		go func() {
			if _, err := reader.ReadString('\n'); err != nil {
				return
			}
			if err := ctrl.RequestStart(); err != nil {
				fmt.Printf("Could not start the game: %v\n", err)
			}
		}()
	}

	select {
	case <-ctrl.Started():
	case <-ctx.Done():
		return ctx.Err()
	}

	// Started also unblocks when the wait ends badly; only Active means the
	// game is actually on.
	if ctrl.View().Phase != game.PhaseActive {
		return errConnectionLost
	}
	fmt.Println("Game on!")
	return nil
}

// playQuestions loops over the remaining questions, reading answers from
// stdin, until the game finishes.
func playQuestions(ctx context.Context, instance *app.Application, ctrl *game.Controller, reader *bufio.Reader) error {
	for {
		v := ctrl.View()
		if v.Phase != game.PhaseActive || v.Question == nil {
			break
		}

		fmt.Printf("\nQuestion %d/%d (score: %d)\n", v.QuestionIndex+1, v.TotalQuestions, v.Score)
		fmt.Println(v.Question.QuestionText)
		for i, option := range v.Question.Options {
			fmt.Printf("  %d) %s\n", i+1, option)
		}
		if v.Multiplayer && len(v.Scores) > 0 {
			fmt.Print(renderStandings(v.Scores))
		}

		fmt.Print("Your answer: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || choice < 1 || choice > len(v.Question.Options) {
			fmt.Printf("Pick a number between 1 and %d.\n", len(v.Question.Options))
			continue
		}

		if ctrl.SubmitAnswer(ctx, choice-1) == game.AnswerFinished {
			break
		}
	}

	// The game socket closes before the finish flow opens its own, like the
	// page unmounting before the finish page mounts. Two live connections to
	// the same game would double-deliver every event.
	ctrl.Close()
	return runFinish(ctx, instance)
}
