package engine

import (
	"errors"
	"fmt"
)

// Card ranks. Pips use their face value; court cards and the ace follow on.
const (
	Jack  = 11
	Queen = 12
	King  = 13
	Ace   = 14
)

// Suits in canonical deck order.
const Suits = "hdcs"

type Card struct {
	Rank int
	Suit byte
} // e.g. "Ah" => rank 14, suit 'h'

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseRoundOver  Phase = "round_over"
)

type OutcomeKind string

const (
	PlayerBust   OutcomeKind = "player_bust"
	DealerBust   OutcomeKind = "dealer_bust"
	PlayerHigher OutcomeKind = "player_higher"
	DealerHigher OutcomeKind = "dealer_higher"
	Push         OutcomeKind = "push"
)

type Result string

const (
	Win  Result = "win"
	Loss Result = "loss"
	Tie  Result = "tie"
)

// Outcome is the settled result of a round together with the final scores.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	PlayerScore int         `json:"player_score"`
	DealerScore int         `json:"dealer_score"`
}

func (o Outcome) Result() Result {
	switch o.Kind {
	case DealerBust, PlayerHigher:
		return Win
	case PlayerBust, DealerHigher:
		return Loss
	default:
		return Tie
	}
}

// Message is the terminal line shown to a human once the round is over.
func (o Outcome) Message() string {
	switch o.Kind {
	case PlayerBust:
		return "Player busts! Dealer wins!"
	case DealerBust, PlayerHigher:
		return "Player wins!"
	case DealerHigher:
		return "Dealer wins!"
	default:
		return "It's a tie!"
	}
}

var (
	ErrEmptyDeck    = errors.New("deck is empty")
	ErrInvalidState = errors.New("invalid game state")
)

// StateError reports an engine operation called outside the phase it is valid in.
type StateError struct {
	Op    string
	Phase Phase
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %s", e.Op, e.Phase)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// Snapshot is a read-only copy of the table after a state-changing call.
type Snapshot struct {
	Phase       Phase    `json:"phase"`
	Player      []Card   `json:"player"`
	Dealer      []Card   `json:"dealer"`
	PlayerScore int      `json:"player_score"`
	DealerScore int      `json:"dealer_score"`
	UpcardScore int      `json:"upcard_score"`
	DeckLeft    int      `json:"deck_left"`
	Outcome     *Outcome `json:"outcome,omitempty"`
}
