package trainer

import (
	"math"

	"blackjack-rl/server/engine"
)

// MaxTrackedScore bounds the score histograms. A player hitting on 21 can reach
// 31; anything higher lands in the last bin.
const MaxTrackedScore = 31

// Stats is reporting only; nothing in it feeds back into the table.
type Stats struct {
	Episodes     int                        `json:"episodes"`
	Wins         int                        `json:"wins"`
	Losses       int                        `json:"losses"`
	Ties         int                        `json:"ties"`
	Hits         int                        `json:"hits"`
	Stands       int                        `json:"stands"`
	ByKind       map[engine.OutcomeKind]int `json:"by_kind"`
	PlayerScores [MaxTrackedScore + 1]int   `json:"player_scores"`
	DealerScores [MaxTrackedScore + 1]int   `json:"dealer_scores"`
}

func (s *Stats) Add(o engine.Outcome) {
	if s.ByKind == nil {
		s.ByKind = map[engine.OutcomeKind]int{}
	}
	s.Episodes++
	switch o.Result() {
	case engine.Win:
		s.Wins++
	case engine.Loss:
		s.Losses++
	default:
		s.Ties++
	}
	s.ByKind[o.Kind]++
	s.PlayerScores[scoreBin(o.PlayerScore)]++
	s.DealerScores[scoreBin(o.DealerScore)]++
}

func (s *Stats) Merge(o Stats) {
	if s.ByKind == nil {
		s.ByKind = map[engine.OutcomeKind]int{}
	}
	s.Episodes += o.Episodes
	s.Wins += o.Wins
	s.Losses += o.Losses
	s.Ties += o.Ties
	s.Hits += o.Hits
	s.Stands += o.Stands
	for k, v := range o.ByKind {
		s.ByKind[k] += v
	}
	for i := range s.PlayerScores {
		s.PlayerScores[i] += o.PlayerScores[i]
		s.DealerScores[i] += o.DealerScores[i]
	}
}

func (s Stats) WinRate() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Episodes)
}

// Score per hand with a tie counted as half a win.
func (s Stats) Points() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Ties)) / float64(s.Episodes)
}

// WilsonCI95 for Bernoulli win rate using wins/ties/total.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}

func scoreBin(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxTrackedScore:
		return MaxTrackedScore
	}
	return score
}
