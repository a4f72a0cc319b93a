// Command autoplay plays Emoji Maze Quest adventures through the REST API.
// It reads the maze from the session view, visits every challenge (and
// friend, unless told to skip them) in nearest-first order and walks out of
// the exit, exercising the whole session state machine on the way.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/emoji-maze-quest/game/service"
)

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play Emoji Maze Quest adventures automatically",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "profile", Value: "autoplay", Usage: "Profile to play as"},
			&cli.StringFlag{Name: "theme", Usage: "Theme ID (default theme when empty)"},
			&cli.StringFlag{Name: "length", Value: "short", Usage: "Adventure length: short, medium or long"},
			&cli.Int64Flag{Name: "seed", Usage: "Maze seed (random when unset)"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Adventures to play in a row"},
			&cli.IntFlag{Name: "mistakes", Usage: "Wrong answers before each correct one"},
			&cli.BoolFlag{Name: "skip-friends", Usage: "Only rescue friends met on the way"},
			&cli.BoolFlag{Name: "restart", Usage: "Discard a saved adventure instead of continuing it"},
			&cli.IntFlag{Name: "max-steps", Value: 5000, Usage: "Maximum requests per adventure"},
			&cli.DurationFlag{Name: "delay", Value: 150 * time.Millisecond, Usage: "Delay between moves"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("autoplay failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cmd.Bool("v") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	req := service.CreateSessionRequest{
		Profile:         cmd.String("profile"),
		ThemeID:         cmd.String("theme"),
		AdventureLength: cmd.String("length"),
	}
	if cmd.IsSet("seed") {
		seed := cmd.Int64("seed")
		req.Seed = &seed
	}

	log.Info().Str("url", cmd.String("url")).Msg("Connecting to game server")
	player := &Player{
		client:         NewClient(cmd.String("url")),
		strategy:       NewStrategy(!cmd.Bool("skip-friends")),
		collectFriends: !cmd.Bool("skip-friends"),
		restart:        cmd.Bool("restart"),
		mistakes:       cmd.Int("mistakes"),
		maxSteps:       cmd.Int("max-steps"),
		delay:          cmd.Duration("delay"),
	}

	games := cmd.Int("games")
	for game := 1; game <= games; game++ {
		log.Info().Msgf("=== 🎮 Adventure %d/%d ===", game, games)
		res, err := player.Play(ctx, req)
		if err != nil {
			if res != nil {
				log.Error().Str("session", res.SessionID).Int("moves", res.Moves).Msg("❌ Adventure failed")
			}
			return fmt.Errorf("adventure %d: %w", game, err)
		}

		ev := log.Info().Str("session", res.SessionID).Str("result", string(res.Won)).
			Int("moves", res.Moves).Int("answers", res.Answers).
			Int("challenges", res.Challenges).Int("friends", res.Friends)
		if res.Stats != nil {
			ev = ev.Int("mazes_completed", res.Stats.MazesCompleted).Int("friends_saved", res.Stats.FriendsSaved)
		}
		ev.Msg("🎉 VICTORY!")
	}
	return nil
}
