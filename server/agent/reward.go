package agent

const (
	BustPenalty      = -1.0
	TerminalBust     = -1.5
	TerminalWin      = 1.0
	TerminalLoss     = -1.0
	TerminalTie      = 0.0
	bonus18Threshold = 18
	bonus20Threshold = 20
)

// ImmediateReward scores a single decision. Only busting is punished; a hit
// that strictly raised the total earns the shaping reward.
func (c Config) ImmediateReward(oldScore, newScore int) float64 {
	switch {
	case newScore > 21:
		return BustPenalty
	case newScore > oldScore:
		return c.HitReward
	}
	return 0
}

// TerminalReward scores the settled round from the player's side.
func (c Config) TerminalReward(player, dealer int) float64 {
	switch {
	case player > 21:
		return TerminalBust
	case dealer > 21 || player > dealer:
		r := TerminalWin
		if player >= bonus20Threshold {
			r += c.Bonus20
		} else if player >= bonus18Threshold {
			r += c.Bonus18
		}
		return r
	case player < dealer:
		return TerminalLoss
	}
	return TerminalTie
}
