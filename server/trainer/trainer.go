package trainer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/engine"
)

// Trainer plays episodes strictly one after another against a single table.
type Trainer struct {
	game        *engine.Game
	agent       *agent.Agent
	log         zerolog.Logger
	reportEvery int
	progress    func(Progress)
}

type Progress struct {
	Episode int
	Stats   Stats
}

type Option func(*Trainer)

func WithLogger(l zerolog.Logger) Option { return func(t *Trainer) { t.log = l } }

// WithReportEvery logs (and calls the progress hook) every n episodes.
func WithReportEvery(n int) Option { return func(t *Trainer) { t.reportEvery = n } }

func WithProgress(fn func(Progress)) Option { return func(t *Trainer) { t.progress = fn } }

func New(g *engine.Game, a *agent.Agent, opts ...Option) *Trainer {
	t := &Trainer{game: g, agent: a, log: zerolog.Nop()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewSeeded wires a game and a fresh agent to one random source.
func NewSeeded(cfg agent.Config, seed int64, opts ...Option) (*Trainer, error) {
	r := rand.New(rand.NewSource(seed))
	ag, err := agent.New(cfg, r)
	if err != nil {
		return nil, err
	}
	return New(engine.NewGame(r), ag, opts...), nil
}

func (t *Trainer) Agent() *agent.Agent { return t.agent }
func (t *Trainer) Game() *engine.Game   { return t.game }

// EpisodeResult is what one episode leaves behind for reporting.
type EpisodeResult struct {
	Outcome engine.Outcome
	Hits    int
	Stands  int
}

// Run trains for the given number of episodes. Cancellation is honoured between
// episodes; the stats gathered so far are returned with ctx.Err().
func (t *Trainer) Run(ctx context.Context, episodes int) (Stats, error) {
	st := Stats{ByKind: map[engine.OutcomeKind]int{}}
	for ep := 1; ep <= episodes; ep++ {
		if err := ctx.Err(); err != nil {
			t.log.Warn().Int("episode", ep).Msg("training stopped early")
			return st, err
		}
		res, err := t.Episode()
		if err != nil {
			return st, fmt.Errorf("episode %d: %w", ep, err)
		}
		st.Add(res.Outcome)
		st.Hits += res.Hits
		st.Stands += res.Stands

		if t.reportEvery > 0 && ep%t.reportEvery == 0 {
			t.log.Info().
				Int("episode", ep).
				Int("wins", st.Wins).
				Int("losses", st.Losses).
				Int("ties", st.Ties).
				Float64("win_rate", st.WinRate()).
				Int("cells", t.agent.Table().Visits()).
				Msg("training progress")
			if t.progress != nil {
				t.progress(Progress{Episode: ep, Stats: st})
			}
		}
	}
	return st, nil
}

// Episode plays one hand: decide, act, learn from the immediate reward, repeat
// until the round is settled, then learn once more from the terminal reward on
// the last decision.
func (t *Trainer) Episode() (EpisodeResult, error) {
	var res EpisodeResult
	g := t.game
	if err := g.Reset(); err != nil {
		return res, err
	}

	upcard := g.UpcardScore()
	var last agent.Transition
	for !g.Over() {
		before := g.PlayerScore()
		s := agent.StateOf(before, upcard)
		a := t.agent.SelectAction(s)

		var err error
		if a == agent.Hit {
			err = g.Hit()
			res.Hits++
		} else {
			err = g.Stand()
			res.Stands++
		}
		if err != nil {
			return res, err
		}

		after := g.PlayerScore()
		last = agent.Transition{
			State:  s,
			Action: a,
			Reward: t.agent.ImmediateReward(before, after),
			Next:   agent.StateOf(after, upcard),
		}
		t.agent.Update(last)
	}

	o, err := g.Outcome()
	if err != nil {
		return res, err
	}
	res.Outcome = o

	last.Reward = t.agent.TerminalReward(o.PlayerScore, o.DealerScore)
	last.Next = agent.StateOf(o.PlayerScore, upcard)
	last.Done = true
	t.agent.Update(last)

	if e := t.log.Debug(); e.Enabled() {
		e.Str("player", engine.Describe(g.Player)).
			Int("player_score", o.PlayerScore).
			Str("dealer", engine.Describe(g.Dealer)).
			Int("dealer_score", o.DealerScore).
			Str("result", string(o.Result())).
			Msg("hand")
	}
	return res, nil
}
