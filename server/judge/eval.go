package judge

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/engine"
	"blackjack-rl/server/trainer"
)

// Report summarizes a policy played over a fixed number of hands.
type Report struct {
	Policy string        `json:"policy"`
	Stats  trainer.Stats `json:"stats"`
	Low    float64       `json:"ci_low"`
	High   float64       `json:"ci_high"`
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %d hands, %d wins / %d losses / %d ties (%.3f, 95%% CI %.3f-%.3f)",
		r.Policy, r.Stats.Episodes, r.Stats.Wins, r.Stats.Losses, r.Stats.Ties,
		r.Stats.Points(), r.Low, r.High)
}

// Evaluate plays hands with p from a seeded source. Nothing is learned; the same
// seed deals the same sequence of decks to every policy.
func Evaluate(ctx context.Context, p Policy, hands int, seed int64, log zerolog.Logger) (Report, error) {
	g := engine.NewGame(rand.New(rand.NewSource(seed)))
	st := trainer.Stats{ByKind: map[engine.OutcomeKind]int{}}
	for i := 1; i <= hands; i++ {
		if err := ctx.Err(); err != nil {
			return report(p, st), err
		}
		o, hits, err := Play(g, p)
		if err != nil {
			return report(p, st), fmt.Errorf("hand %d: %w", i, err)
		}
		st.Add(o)
		st.Hits += hits
		if o.Kind != engine.PlayerBust {
			st.Stands++
		}
		log.Debug().
			Int("game", i).
			Str("result", string(o.Result())).
			Str("player", engine.Describe(g.Player)).
			Int("player_score", o.PlayerScore).
			Str("dealer", engine.Describe(g.Dealer)).
			Int("dealer_score", o.DealerScore).
			Msg("hand")
	}
	return report(p, st), nil
}

// Play deals a fresh round and lets p act until it is settled.
func Play(g *engine.Game, p Policy) (engine.Outcome, int, error) {
	if err := g.Reset(); err != nil {
		return engine.Outcome{}, 0, err
	}
	hits := 0
	for !g.Over() {
		var err error
		if p.Act(agent.BuildObservation(g)) == agent.Hit {
			hits++
			err = g.Hit()
		} else {
			err = g.Stand()
		}
		if err != nil {
			return engine.Outcome{}, hits, err
		}
	}
	o, err := g.Outcome()
	return o, hits, err
}

func report(p Policy, st trainer.Stats) Report {
	lo, hi := trainer.WilsonCI95(st.Wins, st.Ties, st.Episodes)
	return Report{Policy: p.Name(), Stats: st, Low: lo, High: hi}
}
