package agent

// Bucket ranges of the Q-table's first two axes.
const (
	PlayerBuckets = 23 // totals 0..21 plus the bust sentinel
	BustBucket    = 22
	UpcardBuckets = 12 // upcard scores 1..11; index 0 is never used
	MinUpcard     = 1
	MaxUpcard     = 11
)

// State is a bucketed (player total, dealer upcard) pair.
type State struct {
	Player int `json:"player"`
	Upcard int `json:"upcard"`
}

// PlayerBucket maps a raw player total to its row. Every bust total shares the
// sentinel row.
func PlayerBucket(score int) int {
	switch {
	case score > 21:
		return BustBucket
	case score < 0:
		return 0
	}
	return score
}

func UpcardBucket(score int) int {
	switch {
	case score > MaxUpcard:
		return MaxUpcard
	case score < MinUpcard:
		return MinUpcard
	}
	return score
}

func StateOf(player, upcard int) State {
	return State{Player: PlayerBucket(player), Upcard: UpcardBucket(upcard)}
}

// Clamp re-buckets s so it always indexes inside the table.
func (s State) Clamp() State { return StateOf(s.Player, s.Upcard) }

func (s State) Bust() bool { return s.Player == BustBucket }
