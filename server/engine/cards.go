package engine

import (
	"fmt"
	"math/rand"
	"strings"
)

// NewDeck returns the 52 cards in canonical order: every rank of hearts, then
// diamonds, clubs and spades.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < len(Suits); s++ {
		for rnk := 2; rnk <= Ace; rnk++ {
			deck = append(deck, Card{Rank: rnk, Suit: Suits[s]})
		}
	}
	return deck
}

// Shuffle permutes deck in place using r.
func Shuffle(deck []Card, r *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal moves the last card of deck onto hand.
func Deal(deck *[]Card, hand *[]Card) error {
	n := len(*deck)
	if n == 0 {
		return ErrEmptyDeck
	}
	c := (*deck)[n-1]
	*deck = (*deck)[:n-1]
	*hand = append(*hand, c)
	return nil
}

// Value is the card's contribution before any ace is demoted.
func (c Card) Value() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Jack:
		return 10
	default:
		return c.Rank
	}
}

func (c Card) Short() string {
	ranks := "  23456789TJQKA"
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

func (c Card) String() string {
	return rankName(c.Rank) + " of " + suitName(c.Suit)
}

func (c Card) MarshalText() ([]byte, error) { return []byte(c.Short()), nil }

func (c *Card) UnmarshalText(b []byte) error {
	p, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}

// ParseCard reads the two-character form produced by Short ("Ah", "Td", "7s").
// "10" is accepted in place of "T".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}
	if len(s) != 2 {
		return Card{}, fmt.Errorf("parse card %q: want rank and suit", s)
	}
	var rank int
	switch r := s[0]; r {
	case 'A', 'a':
		rank = Ace
	case 'K', 'k':
		rank = King
	case 'Q', 'q':
		rank = Queen
	case 'J', 'j':
		rank = Jack
	case 'T', 't':
		rank = 10
	default:
		if r >= '2' && r <= '9' {
			rank = int(r - '0')
		}
	}
	if rank == 0 {
		return Card{}, fmt.Errorf("parse card %q: bad rank", s)
	}
	suit := s[1]
	if suit >= 'A' && suit <= 'Z' {
		suit += 'a' - 'A'
	}
	if strings.IndexByte(Suits, suit) < 0 {
		return Card{}, fmt.Errorf("parse card %q: bad suit", s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustParseCards parses a space separated list of cards and panics on error.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// Describe renders a hand the way the round log prints it.
func Describe(hand []Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func rankName(r int) string {
	switch r {
	case Jack:
		return "jack"
	case Queen:
		return "queen"
	case King:
		return "king"
	case Ace:
		return "ace"
	default:
		return fmt.Sprint(r)
	}
}

func suitName(s byte) string {
	switch s {
	case 'h':
		return "hearts"
	case 'd':
		return "diamonds"
	case 'c':
		return "clubs"
	case 's':
		return "spades"
	}
	return string(s)
}
