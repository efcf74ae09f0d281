package engine

// Score totals a hand with every ace first counted as 11, then demotes aces to 1
// one at a time while the total is over 21. A single-card slice scores the
// dealer's upcard on its own.
func Score(cards []Card) int {
	total, soft := tally(cards)
	for soft > 0 && total > 21 {
		total -= 10
		soft--
	}
	return total
}

// IsSoft reports whether Score still counts an ace as 11.
func IsSoft(cards []Card) bool {
	total, soft := tally(cards)
	for soft > 0 && total > 21 {
		total -= 10
		soft--
	}
	return soft > 0
}

func IsBust(score int) bool { return score > 21 }

func tally(cards []Card) (total, aces int) {
	for _, c := range cards {
		if c.Rank == Ace {
			aces++
		}
		total += c.Value()
	}
	return total, aces
}
