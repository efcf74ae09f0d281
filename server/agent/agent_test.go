package agent

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackjack-rl/server/engine"
)

func TestBuckets(t *testing.T) {
	tests := []struct {
		player, upcard int
		want           State
	}{
		{player: 4, upcard: 2, want: State{Player: 4, Upcard: 2}},
		{player: 21, upcard: 11, want: State{Player: 21, Upcard: 11}},
		{player: 22, upcard: 10, want: State{Player: BustBucket, Upcard: 10}},
		{player: 31, upcard: 10, want: State{Player: BustBucket, Upcard: 10}},
		{player: -3, upcard: 0, want: State{Player: 0, Upcard: MinUpcard}},
		{player: 12, upcard: 14, want: State{Player: 12, Upcard: MaxUpcard}},
	}
	for _, tt := range tests {
		got := StateOf(tt.player, tt.upcard)
		assert.Equal(t, tt.want, got, "StateOf(%d, %d)", tt.player, tt.upcard)
		assert.Equal(t, got, got.Clamp())
	}
	assert.True(t, StateOf(25, 5).Bust())
	assert.False(t, StateOf(21, 5).Bust())
}

func TestObservationHidesHoleCard(t *testing.T) {
	g := engine.NewGame(nil)
	require.NoError(t, g.ResetWithDeck(engine.DeckFromDraws(engine.MustParseCards("Ah 7d 6c Ks")...)))
	o := BuildObservation(g)
	assert.Equal(t, Observation{PlayerScore: 17, Soft: true, Upcard: 7, Cards: 2}, o)
	assert.Equal(t, State{Player: 17, Upcard: 7}, o.State())

	require.NoError(t, g.ResetWithDeck(engine.DeckFromDraws(engine.MustParseCards("Th Ad 6c Ks")...)))
	assert.Equal(t, 11, BuildObservation(g).Upcard, "a lone ace upcard counts 11")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	edge := Config{Alpha: 0, Gamma: 1, Epsilon: 1}
	require.NoError(t, edge.Validate())

	bad := []struct {
		field string
		mut   func(*Config)
	}{
		{"alpha", func(c *Config) { c.Alpha = 1.5 }},
		{"alpha", func(c *Config) { c.Alpha = math.NaN() }},
		{"gamma", func(c *Config) { c.Gamma = -0.1 }},
		{"epsilon", func(c *Config) { c.Epsilon = 2 }},
		{"hit_reward", func(c *Config) { c.HitReward = -1 }},
		{"bonus_20", func(c *Config) { c.Bonus20 = math.Inf(1) }},
	}
	for _, tt := range bad {
		cfg := DefaultConfig()
		tt.mut(&cfg)
		err := cfg.Validate()
		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, tt.field, ce.Field)
		assert.True(t, errors.Is(err, ErrConfig))

		ag, err := New(cfg, rand.New(rand.NewSource(1)))
		assert.Nil(t, ag)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestImmediateReward(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BustPenalty, cfg.ImmediateReward(15, 25))
	assert.Equal(t, cfg.HitReward, cfg.ImmediateReward(12, 19))
	assert.Equal(t, 0.0, cfg.ImmediateReward(17, 17), "soft 17 + ten stays 17")
	assert.Equal(t, 0.0, cfg.ImmediateReward(18, 13), "soft 18 + five drops to 13")
}

func TestTerminalReward(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name           string
		player, dealer int
		want           float64
	}{
		{name: "player bust", player: 24, dealer: 26, want: TerminalBust},
		{name: "dealer bust low total", player: 13, dealer: 22, want: TerminalWin},
		{name: "win on 18", player: 18, dealer: 17, want: TerminalWin + cfg.Bonus18},
		{name: "win on 19", player: 19, dealer: 23, want: TerminalWin + cfg.Bonus18},
		{name: "win on 20", player: 20, dealer: 19, want: TerminalWin + cfg.Bonus20},
		{name: "win on 21", player: 21, dealer: 17, want: TerminalWin + cfg.Bonus20},
		{name: "loss", player: 16, dealer: 18, want: TerminalLoss},
		{name: "tie", player: 19, dealer: 19, want: TerminalTie},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cfg.TerminalReward(tt.player, tt.dealer), 1e-12)
		})
	}

	plain := Config{}
	assert.Equal(t, TerminalWin, plain.TerminalReward(21, 20), "bonuses are optional")
}

func TestGreedyTiesGoToStand(t *testing.T) {
	q := NewQTable()
	s := State{Player: 12, Upcard: 6}
	assert.Equal(t, Stand, Greedy(q, s))

	q.Set(s, Hit, 0.25)
	assert.Equal(t, Hit, Greedy(q, s))
	q.Set(s, Stand, 0.25)
	assert.Equal(t, Stand, Greedy(q, s))
}

func TestChoose(t *testing.T) {
	q := NewQTable()
	s := State{Player: 10, Upcard: 10}
	q.Set(s, Hit, 1)

	assert.Equal(t, Hit, Choose(q, s, 0.2, 0.5, 1), "exploit above epsilon")
	assert.Equal(t, Stand, Choose(q, s, 0.2, 0.1, 1), "explore takes the coin")
	assert.Equal(t, Hit, Choose(q, s, 0.2, 0.1, 0))
	assert.Equal(t, Hit, Choose(q, s, 0, 0, 1), "epsilon 0 never explores")
}

func TestSelectActionExploresUniformly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epsilon = 1
	ag, err := New(cfg, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	counts := map[Action]int{}
	for i := 0; i < 4000; i++ {
		counts[ag.SelectAction(State{Player: 15, Upcard: 10})]++
	}
	assert.InDelta(t, 2000, counts[Hit], 200)
	assert.InDelta(t, 2000, counts[Stand], 200)
}

func TestLearn(t *testing.T) {
	q := NewQTable()
	s := State{Player: 12, Upcard: 10}
	next := State{Player: 19, Upcard: 10}
	q.Set(next, Stand, 2)
	q.Set(next, Hit, -1)

	delta := Learn(q, Transition{State: s, Action: Hit, Reward: 0.1, Next: next}, 0.5, 0.9)
	assert.InDelta(t, 0.1+0.9*2, delta, 1e-12)
	assert.InDelta(t, 0.5*(0.1+1.8), q.At(s, Hit), 1e-12)
	assert.Equal(t, 0.0, q.At(s, Stand))

	// a settling update does not bootstrap
	before := q.At(s, Stand)
	Learn(q, Transition{State: s, Action: Stand, Reward: -1, Next: next, Done: true}, 0.5, 0.9)
	assert.InDelta(t, before+0.5*(-1-before), q.At(s, Stand), 1e-12)
}

func TestLearnClampsBust(t *testing.T) {
	q := NewQTable()
	tr := Transition{State: State{Player: 30, Upcard: 10}, Action: Hit, Reward: -1, Next: State{Player: 31, Upcard: 10}}
	assert.NotPanics(t, func() { Learn(q, tr, 1, 1) })
	assert.Equal(t, -1.0, q.At(State{Player: BustBucket, Upcard: 10}, Hit))
}

func TestZeroAlphaLeavesTableUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alpha = 0
	r := rand.New(rand.NewSource(8))
	ag, err := New(cfg, r)
	require.NoError(t, err)

	q := ag.Table()
	for p := range q {
		for u := range q[p] {
			q[p][u][Hit] = r.NormFloat64()
			q[p][u][Stand] = r.NormFloat64()
		}
	}
	before := q.Clone()

	for i := 0; i < 5000; i++ {
		ag.Update(Transition{
			State:  StateOf(r.Intn(32), r.Intn(12)),
			Action: Action(r.Intn(NumActions)),
			Reward: r.NormFloat64() * 3,
			Next:   StateOf(r.Intn(32), r.Intn(12)),
			Done:   r.Intn(4) == 0,
		})
	}
	assert.Equal(t, *before, *q)
}

func TestQTableFlat(t *testing.T) {
	q := NewQTable()
	q.Set(State{Player: 4, Upcard: 2}, Stand, 3.5)
	q.Set(State{Player: BustBucket, Upcard: 11}, Hit, -1.5)

	flat := q.Flat()
	require.Len(t, flat, PlayerBuckets*UpcardBuckets*NumActions)
	assert.Equal(t, 3.5, flat[(4*UpcardBuckets+2)*NumActions+1])
	assert.Equal(t, 2, q.Visits())

	back, err := QTableFromFlat(flat)
	require.NoError(t, err)
	assert.Equal(t, *q, *back)

	_, err = QTableFromFlat(flat[1:])
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Hit ")
	require.NoError(t, err)
	assert.Equal(t, Hit, a)
	a, err = ParseAction("stand")
	require.NoError(t, err)
	assert.Equal(t, Stand, a)
	_, err = ParseAction("double")
	assert.Error(t, err)
}
