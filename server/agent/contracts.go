package agent

import (
	"fmt"
	"strings"

	"blackjack-rl/server/engine"
)

type Action int

const (
	Hit Action = iota
	Stand
)

// NumActions is the size of the Q-table's action axis. Index order matches
// Hit, Stand.
const NumActions = 2

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit", "h":
		return Hit, nil
	case "stand", "s", "stay":
		return Stand, nil
	}
	return 0, fmt.Errorf("illegal action %q (legals: hit, stand)", s)
}

// Observation is what the player may see of the table: its own hand and the
// dealer's upcard, never the hole card.
type Observation struct {
	PlayerScore int  `json:"player_score"`
	Soft        bool `json:"soft"`
	Upcard      int  `json:"upcard"`
	Cards       int  `json:"cards"`
}

// BuildObservation converts engine state into the agent's view.
func BuildObservation(g *engine.Game) Observation {
	return Observation{
		PlayerScore: g.PlayerScore(),
		Soft:        engine.IsSoft(g.Player),
		Upcard:      g.UpcardScore(),
		Cards:       len(g.Player),
	}
}

func (o Observation) State() State { return StateOf(o.PlayerScore, o.Upcard) }
