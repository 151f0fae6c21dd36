package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

// ErrMoveLimit is returned when a game is not won within the move budget
var ErrMoveLimit = errors.New("move limit reached")

// Player drives one session with a perfect memory
type Player struct {
	client   *Client
	memory   *Memory
	maxMoves int

	// wait is called while a mismatched pair is still showing
	wait func(ctx context.Context) error
}

func NewPlayer(client *Client, maxMoves int, poll time.Duration) *Player {
	return &Player{
		client:   client,
		memory:   NewMemory(0),
		maxMoves: maxMoves,
		wait: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(poll):
				return nil
			}
		},
	}
}

// learn seeds memory from whatever the board shows face up
func (p *Player) learn(state *engine.GameState) {
	p.memory.Reset(len(state.Cards))
	for _, c := range state.Cards {
		if c.Flipped || c.Matched {
			p.memory.Saw(c.Index, c.Value)
		}
	}
	for _, c := range state.Cards {
		if c.Matched {
			p.memory.matched[c.Index] = true
		}
	}
}

// flip retries while a pair is pending and fails on any other rejection
func (p *Player) flip(ctx context.Context, index int) (*service.FlipResult, error) {
	for {
		res, err := p.client.Flip(ctx, index)
		if err != nil {
			return nil, err
		}
		if res.Success {
			p.memory.Saw(index, res.Flip.Card.Value)
			return res, nil
		}
		if res.Code != service.CodePairPending {
			return res, fmt.Errorf("flip %d rejected: %s", index, res.Code)
		}
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// Play finishes the current game and returns its final state
func (p *Player) Play(ctx context.Context) (*engine.GameState, error) {
	state, err := p.client.GetState(ctx)
	if err != nil {
		return nil, err
	}
	p.learn(state)

	// resume a half-finished move
	first, value := -1, ""
	if len(state.PendingCards) == 1 {
		first = state.PendingCards[0]
		value = state.Cards[first].Value
	}

	for state.Status != engine.StatusWon {
		if state.MoveCount >= p.maxMoves {
			return state, fmt.Errorf("%w: %d", ErrMoveLimit, p.maxMoves)
		}

		if first < 0 {
			var ok bool
			if first, ok = p.memory.First(); !ok {
				return state, errors.New("no card left to flip")
			}
			res, err := p.flip(ctx, first)
			if err != nil {
				return state, err
			}
			value = res.Flip.Card.Value
			state = res.GameState
		}

		second, ok := p.memory.Second(first, value)
		if !ok {
			return state, errors.New("no partner left to flip")
		}
		res, err := p.flip(ctx, second)
		if err != nil {
			return state, err
		}
		state = res.GameState

		switch res.Flip.Outcome {
		case engine.EventMatch, engine.EventWon:
			p.memory.Matched(first, second)
			log.Debug().Int("a", first).Int("b", second).Str("value", value).Msg("matched")
		default:
			log.Debug().Int("a", first).Int("b", second).Msg("mismatch")
		}
		first = -1
	}

	log.Info().
		Str("session", p.client.sessionID).
		Str("difficulty", state.Difficulty).
		Int("moves", state.MoveCount).
		Int("pairs", state.TotalPairs).
		Msg("game won")
	return state, nil
}
