package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
)

// Player plays one adventure through the API
type Player struct {
	client   *Client
	strategy *Strategy

	collectFriends bool
	restart        bool          // discard a saved adventure instead of continuing it
	mistakes       int           // wrong answers given before each correct one
	maxSteps       int           // bound on requests sent
	delay          time.Duration // pause between moves
}

// Result summarizes a finished adventure
type Result struct {
	SessionID  string
	Won        session.State
	Moves      int
	Answers    int
	Friends    int
	Challenges int
	Stats      *engine.LifetimeStats
}

// Play creates (or rejoins) the session for req and plays it to the end
func (p *Player) Play(ctx context.Context, req service.CreateSessionRequest) (*Result, error) {
	view, err := p.client.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session", view.SessionID).Str("state", string(view.State)).Msg("✨ Session ready")

	p.strategy.Reset()
	res := &Result{SessionID: view.SessionID}
	wrong := make(map[string]int)

	for step := 0; step < p.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch view.State {
		case session.PendingResume:
			action := service.ActionContinue
			if p.restart {
				action = service.ActionRestart
			}
			log.Info().Str("action", action).Int("completed", view.Resume.CompletedCount).Msg("🔄 Saved adventure found")
			view, err = p.client.Action(ctx, action)

		case session.Exploring:
			dir, ok := p.strategy.NextMove(view.Game)
			if !ok {
				return res, fmt.Errorf("no reachable target from (%d,%d)", view.Game.PlayerPos.X, view.Game.PlayerPos.Y)
			}
			view, err = p.client.Move(ctx, dir)
			res.Moves++
			if err == nil && view.Outcome == session.OutcomeBlocked {
				return res, fmt.Errorf("move %s blocked at (%d,%d)", dir, view.Game.PlayerPos.X, view.Game.PlayerPos.Y)
			}
			if p.delay > 0 {
				time.Sleep(p.delay)
			}

		case session.ChallengeActive:
			ch := view.ActiveChallenge
			switch {
			case view.Solved:
				view, err = p.client.Action(ctx, service.ActionClose)
			case wrong[ch.ID] < p.mistakes:
				wrong[ch.ID]++
				res.Answers++
				view, err = p.client.Answer(ctx, false)
			default:
				res.Answers++
				view, err = p.client.Answer(ctx, true)
				if err == nil {
					log.Debug().Str("challenge", ch.ID).Int("remaining", view.RemainingCount).Msg("✅ Challenge solved")
				}
			}

		case session.FriendlyDialog:
			if p.collectFriends {
				log.Debug().Str("friend", view.ActiveFriendly.Emoji).Msg("Friend joined")
				view, err = p.client.Action(ctx, service.ActionTake)
			} else {
				view, err = p.client.Action(ctx, service.ActionDecline)
			}

		case session.ExitWarningChallenges:
			view, err = p.client.Action(ctx, service.ActionDismiss)

		case session.ExitWarningFriends:
			if p.collectFriends {
				view, err = p.client.Action(ctx, service.ActionKeepSearching)
			} else {
				view, err = p.client.Action(ctx, service.ActionLeaveAnyway)
			}

		case session.WonComplete, session.WonIncomplete:
			res.Won = view.State
			res.Challenges = view.Game.CompletedCount
			res.Friends = len(view.Game.CollectedFriends)
			view, err = p.client.Action(ctx, service.ActionAcknowledge)
			if err != nil {
				return res, err
			}
			res.Stats = view.Stats
			return res, nil

		default:
			return res, fmt.Errorf("unexpected session state %q", view.State)
		}

		if err != nil {
			return res, err
		}
	}

	return res, fmt.Errorf("gave up after %d steps", p.maxSteps)
}
