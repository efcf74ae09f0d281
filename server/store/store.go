package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/trainer"
)

//go:embed schema.sql
var schema embed.FS

var ErrNotFound = errors.New("not found")

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// Run is one training run: its parameters and final tallies.
type Run struct {
	ID        int64        `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Episodes  int          `json:"episodes"`
	Seed      int64        `json:"seed"`
	Config    agent.Config `json:"config"`
	Wins      int          `json:"wins"`
	Losses    int          `json:"losses"`
	Ties      int          `json:"ties"`
	Hits      int          `json:"hits"`
	Stands    int          `json:"stands"`
}

func NewRun(seed int64, cfg agent.Config, st trainer.Stats) Run {
	return Run{
		Episodes: st.Episodes,
		Seed:     seed,
		Config:   cfg,
		Wins:     st.Wins,
		Losses:   st.Losses,
		Ties:     st.Ties,
		Hits:     st.Hits,
		Stands:   st.Stands,
	}
}

// SaveRun writes the run row, its outcome breakdown and every Q-table cell in one
// transaction and returns the new run id.
func (db *DB) SaveRun(ctx context.Context, r Run, st trainer.Stats, q *agent.QTable) (int64, error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // safe if already committed

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO training_runs(
			episodes, seed, alpha, gamma, epsilon,
			hit_reward, bonus_18, bonus_20,
			wins, losses, ties, hits, stands
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, r.Episodes, r.Seed, r.Config.Alpha, r.Config.Gamma, r.Config.Epsilon,
		r.Config.HitReward, r.Config.Bonus18, r.Config.Bonus20,
		r.Wins, r.Losses, r.Ties, r.Hits, r.Stands).Scan(&id)
	if err != nil {
		return 0, err
	}

	for kind, n := range st.ByKind {
		if _, err := tx.Exec(ctx, `
			INSERT INTO run_outcomes(run_id, kind, n) VALUES ($1,$2,$3)
		`, id, string(kind), n); err != nil {
			return 0, err
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"q_values"},
		[]string{"run_id", "player", "upcard", "action", "value"},
		pgx.CopyFromRows(qRows(id, q)),
	); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func qRows(runID int64, q *agent.QTable) [][]any {
	rows := make([][]any, 0, agent.PlayerBuckets*agent.UpcardBuckets*agent.NumActions)
	for p := range q {
		for u := range q[p] {
			for a, v := range q[p][u] {
				rows = append(rows, []any{runID, int16(p), int16(u), int16(a), v})
			}
		}
	}
	return rows
}

func (db *DB) LoadQTable(ctx context.Context, runID int64) (*agent.QTable, error) {
	rows, err := db.Query(ctx, `
		SELECT player, upcard, action, value
		  FROM q_values
		 WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	q := agent.NewQTable()
	n := 0
	for rows.Next() {
		var p, u, a int16
		var v float64
		if err := rows.Scan(&p, &u, &a, &v); err != nil {
			return nil, err
		}
		if int(p) >= agent.PlayerBuckets || int(u) >= agent.UpcardBuckets || int(a) >= agent.NumActions || p < 0 || u < 0 || a < 0 {
			continue
		}
		q[p][u][a] = v
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return q, nil
}

const runColumns = `
	id, created_at, episodes, seed, alpha, gamma, epsilon,
	hit_reward, bonus_18, bonus_20, wins, losses, ties, hits, stands`

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.CreatedAt, &r.Episodes, &r.Seed,
		&r.Config.Alpha, &r.Config.Gamma, &r.Config.Epsilon,
		&r.Config.HitReward, &r.Config.Bonus18, &r.Config.Bonus20,
		&r.Wins, &r.Losses, &r.Ties, &r.Hits, &r.Stands)
	return r, err
}

func (db *DB) GetRun(ctx context.Context, id int64) (Run, error) {
	r, err := scanRun(db.QueryRow(ctx, `SELECT `+runColumns+` FROM training_runs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns returns the newest runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `SELECT `+runColumns+` FROM training_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun is the most recent run, if any.
func (db *DB) LatestRun(ctx context.Context) (Run, error) {
	runs, err := db.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNotFound
	}
	return runs[0], nil
}
