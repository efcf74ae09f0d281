package judge

import (
	"fmt"

	"blackjack-rl/server/agent"
)

// Policy decides hit or stand from the player's view of the table.
type Policy interface {
	Name() string
	Act(o agent.Observation) agent.Action
}

// Threshold hits below a fixed total. Threshold{17} is the "hit if score < 17"
// bot that the house rules mirror.
type Threshold struct{ Below int }

func (p Threshold) Name() string { return fmt.Sprintf("hit-below-%d", p.Below) }

func (p Threshold) Act(o agent.Observation) agent.Action {
	if o.PlayerScore < p.Below {
		return agent.Hit
	}
	return agent.Stand
}

// Greedy plays the learned table without exploring.
type Greedy struct{ Q *agent.QTable }

func (Greedy) Name() string { return "greedy" }

func (p Greedy) Act(o agent.Observation) agent.Action { return agent.Greedy(p.Q, o.State()) }
