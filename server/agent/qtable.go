package agent

import (
	"fmt"
	"math"
)

// QTable is the dense action-value table, axis order (player, upcard, action).
type QTable [PlayerBuckets][UpcardBuckets][NumActions]float64

func NewQTable() *QTable { return new(QTable) }

// Shape is the table's dimensions in axis order.
func Shape() [3]int { return [3]int{PlayerBuckets, UpcardBuckets, NumActions} }

func (q *QTable) At(s State, a Action) float64 {
	s = s.Clamp()
	return q[s.Player][s.Upcard][a]
}

func (q *QTable) Set(s State, a Action, v float64) {
	s = s.Clamp()
	q[s.Player][s.Upcard][a] = v
}

func (q *QTable) Max(s State) float64 {
	return math.Max(q.At(s, Hit), q.At(s, Stand))
}

// Best is the greedy action. Equal values go to Stand.
func (q *QTable) Best(s State) Action {
	if q.At(s, Hit) > q.At(s, Stand) {
		return Hit
	}
	return Stand
}

func (q *QTable) Clone() *QTable {
	c := *q
	return &c
}

// Flat returns the values in row-major (C) order.
func (q *QTable) Flat() []float64 {
	out := make([]float64, 0, PlayerBuckets*UpcardBuckets*NumActions)
	for p := range q {
		for u := range q[p] {
			out = append(out, q[p][u][:]...)
		}
	}
	return out
}

// QTableFromFlat is the inverse of Flat.
func QTableFromFlat(vals []float64) (*QTable, error) {
	want := PlayerBuckets * UpcardBuckets * NumActions
	if len(vals) != want {
		return nil, fmt.Errorf("qtable: got %d values, want %d", len(vals), want)
	}
	q := NewQTable()
	i := 0
	for p := range q {
		for u := range q[p] {
			for a := range q[p][u] {
				q[p][u][a] = vals[i]
				i++
			}
		}
	}
	return q, nil
}

// Visits counts cells that have moved off zero, a cheap coverage figure for logs.
func (q *QTable) Visits() int {
	n := 0
	for _, v := range q.Flat() {
		if v != 0 {
			n++
		}
	}
	return n
}
