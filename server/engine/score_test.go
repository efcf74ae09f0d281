package engine

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		hand string
		want int
		soft bool
	}{
		{name: "pips", hand: "Th 7d", want: 17},
		{name: "faces", hand: "Ks Qh", want: 20},
		{name: "king ace", hand: "Kh As", want: 21, soft: true},
		{name: "ace seven soft", hand: "Ah 7d", want: 18, soft: true},
		{name: "ace demoted", hand: "Ah Td 5c", want: 16},
		{name: "two aces", hand: "Ah As", want: 12, soft: true},
		{name: "three aces", hand: "Ah As Ac", want: 13, soft: true},
		{name: "four aces and a ten", hand: "Ah As Ac Ad Th", want: 14},
		{name: "bust", hand: "Kh Qd 5c", want: 25},
		{name: "bust with aces", hand: "Ah Kd Qc 9s", want: 30},
		{name: "lone ace upcard", hand: "As", want: 11, soft: true},
		{name: "lone ten upcard", hand: "Jd", want: 10},
		{name: "empty", hand: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := MustParseCards(tt.hand)
			if got := Score(cards); got != tt.want {
				t.Fatalf("Score(%s) = %d, want %d", tt.hand, got, tt.want)
			}
			if got := IsSoft(cards); got != tt.soft {
				t.Fatalf("IsSoft(%s) = %v, want %v", tt.hand, got, tt.soft)
			}
		})
	}
}

// Every hand of one ace plus non-ace cards worth at most 10 is soft; a further
// card that would push the soft total past 21 demotes the ace.
func TestScoreSoftAceProperty(t *testing.T) {
	ace := Card{Rank: Ace, Suit: 's'}
	var walk func(hand []Card, sum, minRank int)
	walk = func(hand []Card, sum, minRank int) {
		cards := append([]Card{ace}, hand...)
		if got := Score(cards); got != sum+11 {
			t.Fatalf("Score(%s) = %d, want soft %d", Describe(cards), got, sum+11)
		}
		if !IsSoft(cards) {
			t.Fatalf("IsSoft(%s) = false", Describe(cards))
		}
		for rnk := 2; rnk <= King; rnk++ {
			extra := Card{Rank: rnk, Suit: 'h'}
			if sum+11+extra.Value() <= 21 {
				continue
			}
			more := append(append([]Card(nil), cards...), extra)
			if got, want := Score(more), sum+1+extra.Value(); got != want {
				t.Fatalf("Score(%s) = %d, want %d", Describe(more), got, want)
			}
		}
		for rnk := minRank; rnk <= 10; rnk++ {
			if sum+rnk > 10 {
				break
			}
			walk(append(append([]Card(nil), hand...), Card{Rank: rnk, Suit: 'd'}), sum+rnk, rnk)
		}
	}
	walk(nil, 0, 2)
}
