package engine

import (
	"fmt"
	"math/rand"
)

// DealerStandsOn is the total at which the dealer stops drawing.
const DealerStandsOn = 17

// Game is one seat of blackjack against the house. It owns the deck and both
// hands; the random source is borrowed so a caller can share it with an agent.
type Game struct {
	rng    *rand.Rand
	Deck   []Card
	Player []Card
	Dealer []Card
	phase  Phase
}

func NewGame(r *rand.Rand) *Game {
	return &Game{rng: r, phase: PhaseNotStarted}
}

// Reset starts a new round from a freshly shuffled deck.
func (g *Game) Reset() error {
	deck := NewDeck()
	Shuffle(deck, g.rng)
	return g.start(deck)
}

// ResetWithDeck starts a round dealing from deck as given, last card first.
func (g *Game) ResetWithDeck(deck []Card) error {
	return g.start(append([]Card(nil), deck...))
}

// DeckFromDraws builds a deck that deals draws in order: draws[0] is the first
// card off the deck.
func DeckFromDraws(draws ...Card) []Card {
	deck := make([]Card, len(draws))
	for i, c := range draws {
		deck[len(draws)-1-i] = c
	}
	return deck
}

// start deals a fresh round from deck. On a short deck the game is left as it
// was before the call.
func (g *Game) start(deck []Card) error {
	var player, dealer []Card
	// player, dealer, player, dealer
	for i := 0; i < 2; i++ {
		if err := Deal(&deck, &player); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		if err := Deal(&deck, &dealer); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	g.Deck, g.Player, g.Dealer = deck, player, dealer
	g.phase = PhaseInProgress
	return nil
}

func (g *Game) Hit() error {
	if g.phase != PhaseInProgress {
		return &StateError{Op: "hit", Phase: g.phase}
	}
	if err := Deal(&g.Deck, &g.Player); err != nil {
		return fmt.Errorf("hit: %w", err)
	}
	if IsBust(Score(g.Player)) {
		g.phase = PhaseRoundOver
	}
	return nil
}

// Stand ends the player's turn and plays the dealer out: draw below 17, stand
// on any 17. If the deck runs out mid-draw nothing is committed.
func (g *Game) Stand() error {
	if g.phase != PhaseInProgress {
		return &StateError{Op: "stand", Phase: g.phase}
	}
	deck := g.Deck
	dealer := append([]Card(nil), g.Dealer...)
	for Score(dealer) < DealerStandsOn {
		if err := Deal(&deck, &dealer); err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
	}
	g.Deck, g.Dealer = deck, dealer
	g.phase = PhaseRoundOver
	return nil
}

func (g *Game) Outcome() (Outcome, error) {
	if g.phase != PhaseRoundOver {
		return Outcome{}, &StateError{Op: "outcome", Phase: g.phase}
	}
	return Settle(Score(g.Player), Score(g.Dealer)), nil
}

// Settle compares final totals. A player bust loses whatever the dealer holds.
func Settle(player, dealer int) Outcome {
	o := Outcome{PlayerScore: player, DealerScore: dealer}
	switch {
	case IsBust(player):
		o.Kind = PlayerBust
	case IsBust(dealer):
		o.Kind = DealerBust
	case player > dealer:
		o.Kind = PlayerHigher
	case player < dealer:
		o.Kind = DealerHigher
	default:
		o.Kind = Push
	}
	return o
}

func (g *Game) Phase() Phase       { return g.phase }
func (g *Game) Over() bool         { return g.phase == PhaseRoundOver }
func (g *Game) PlayerScore() int   { return Score(g.Player) }
func (g *Game) DealerScore() int   { return Score(g.Dealer) }
func (g *Game) DeckLen() int       { return len(g.Deck) }
func (g *Game) PlayerHand() []Card { return append([]Card(nil), g.Player...) }
func (g *Game) DealerHand() []Card { return append([]Card(nil), g.Dealer...) }

// Upcard is the dealer's first card, the one the player sees before acting.
func (g *Game) Upcard() (Card, bool) {
	if len(g.Dealer) == 0 {
		return Card{}, false
	}
	return g.Dealer[0], true
}

func (g *Game) UpcardScore() int {
	c, ok := g.Upcard()
	if !ok {
		return 0
	}
	return Score([]Card{c})
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Phase:       g.phase,
		Player:      g.PlayerHand(),
		Dealer:      g.DealerHand(),
		PlayerScore: g.PlayerScore(),
		DealerScore: g.DealerScore(),
		UpcardScore: g.UpcardScore(),
		DeckLeft:    len(g.Deck),
	}
	if o, err := g.Outcome(); err == nil {
		s.Outcome = &o
	}
	return s
}
