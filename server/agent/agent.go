package agent

import "math/rand"

// Transition is one observed step. Done marks the settling update, which has no
// successor to bootstrap from.
type Transition struct {
	State  State
	Action Action
	Reward float64
	Next   State
	Done   bool
}

// Agent is a tabular Q-learner. The table is its only state that outlives an
// episode; the random source is shared with the game so one seed fixes a run.
type Agent struct {
	cfg Config
	q   *QTable
	rng *rand.Rand
}

func New(cfg Config, r *rand.Rand) (*Agent, error) {
	return NewWithTable(cfg, r, NewQTable())
}

// NewWithTable continues learning on (or acts from) an existing table.
func NewWithTable(cfg Config, r *rand.Rand, q *QTable) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if q == nil {
		q = NewQTable()
	}
	return &Agent{cfg: cfg, q: q, rng: r}, nil
}

func (a *Agent) Config() Config { return a.cfg }
func (a *Agent) Table() *QTable { return a.q }

// SelectAction draws the exploration coin from the shared source and defers to
// Choose.
func (a *Agent) SelectAction(s State) Action {
	explore := a.rng.Float64()
	coin := 0
	if explore < a.cfg.Epsilon {
		coin = a.rng.Intn(NumActions)
	}
	return Choose(a.q, s, a.cfg.Epsilon, explore, coin)
}

func (a *Agent) ImmediateReward(oldScore, newScore int) float64 {
	return a.cfg.ImmediateReward(oldScore, newScore)
}

func (a *Agent) TerminalReward(player, dealer int) float64 {
	return a.cfg.TerminalReward(player, dealer)
}

// Update applies one Q-learning step and returns the TD error.
func (a *Agent) Update(t Transition) float64 {
	return Learn(a.q, t, a.cfg.Alpha, a.cfg.Gamma)
}

// Choose is epsilon-greedy selection as a pure function of the table and two
// random draws: explore in [0,1) and coin in [0, NumActions).
func Choose(q *QTable, s State, epsilon, explore float64, coin int) Action {
	if explore < epsilon {
		return Action(coin)
	}
	return Greedy(q, s)
}

func Greedy(q *QTable, s State) Action { return q.Best(s) }

// Learn performs Q[s,a] += alpha * (r + gamma*max Q[s'] - Q[s,a]).
func Learn(q *QTable, t Transition, alpha, gamma float64) float64 {
	cur := q.At(t.State, t.Action)
	target := t.Reward
	if !t.Done {
		target += gamma * q.Max(t.Next)
	}
	delta := target - cur
	q.Set(t.State, t.Action, cur+alpha*delta)
	return delta
}
