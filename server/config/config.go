package config

import (
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"blackjack-rl/server/agent"
)

// Config is resolved from .env, then the process environment, then flags.
type Config struct {
	Episodes    int
	Seed        int64
	SeedGiven   bool
	Agent       agent.Config
	OutDir      string
	QTable      string
	Heatmap     bool
	EvalHands   int
	Threshold   int
	ReportEvery int

	DatabaseURL string
	AutoMigrate bool
	Port        string
	LogLevel    string
	UseColor    bool
}

// Load reads configuration for one command. args excludes the command name.
func Load(args []string, stderr io.Writer) (Config, error) {
	_ = godotenv.Load()

	def := agent.DefaultConfig()
	var env envReader
	c := Config{
		Episodes:    env.int("EPISODES", 100000),
		OutDir:      getenv("OUT_DIR", "results"),
		QTable:      getenv("QTABLE", ""),
		Heatmap:     asBool(getenv("HEATMAP", "1")),
		EvalHands:   env.int("EVAL_HANDS", 10000),
		Threshold:   env.int("THRESHOLD", 17),
		ReportEvery: env.int("REPORT_EVERY", 10000),
		DatabaseURL: getenv("DATABASE_URL", ""),
		AutoMigrate: asBool(os.Getenv("AUTO_MIGRATE")),
		Port:        getenv("PORT", "8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		UseColor:    (os.Getenv("NO_COLOR") == "") && (strings.TrimSpace(os.Getenv("USE_COLOR")) != "0"),
		Agent: agent.Config{
			Alpha:     env.float("ALPHA", def.Alpha),
			Gamma:     env.float("GAMMA", def.Gamma),
			Epsilon:   env.float("EPSILON", def.Epsilon),
			HitReward: env.float("HIT_REWARD", def.HitReward),
			Bonus18:   env.float("BONUS_18", def.Bonus18),
			Bonus20:   env.float("BONUS_20", def.Bonus20),
		},
	}
	if env.err != nil {
		return c, env.err
	}
	if s := os.Getenv("SEED"); s != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return c, fmt.Errorf("SEED: %w", err)
		}
		c.Seed, c.SeedGiven = v, true
	}

	fs := flag.NewFlagSet("blackjack-rl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&c.Episodes, "episodes", c.Episodes, "number of training episodes")
	fs.Float64Var(&c.Agent.Alpha, "alpha", c.Agent.Alpha, "learning rate in [0,1]")
	fs.Float64Var(&c.Agent.Gamma, "gamma", c.Agent.Gamma, "discount factor in [0,1]")
	fs.Float64Var(&c.Agent.Epsilon, "epsilon", c.Agent.Epsilon, "exploration rate in [0,1]")
	fs.Float64Var(&c.Agent.HitReward, "hit-reward", c.Agent.HitReward, "shaping reward for a hit that raises the total")
	fs.Float64Var(&c.Agent.Bonus18, "bonus18", c.Agent.Bonus18, "bonus for a win on 18 or 19")
	fs.Float64Var(&c.Agent.Bonus20, "bonus20", c.Agent.Bonus20, "bonus for a win on 20 or 21")
	seed := fs.String("seed", "", "random seed (default: random, logged)")
	fs.StringVar(&c.OutDir, "out", c.OutDir, "directory for the table dump")
	fs.StringVar(&c.QTable, "qtable", c.QTable, "saved .npy table for evaluate and serve")
	fs.BoolVar(&c.Heatmap, "heatmap", c.Heatmap, "also render an HTML heatmap")
	fs.IntVar(&c.EvalHands, "hands", c.EvalHands, "hands to play when evaluating")
	fs.IntVar(&c.Threshold, "threshold", c.Threshold, "baseline bot hits below this total")
	fs.IntVar(&c.ReportEvery, "report-every", c.ReportEvery, "log progress every n episodes (0 = never)")
	fs.StringVar(&c.Port, "port", c.Port, "HTTP port for serve")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if *seed != "" {
		v, err := strconv.ParseInt(*seed, 10, 64)
		if err != nil {
			return c, fmt.Errorf("-seed: %w", err)
		}
		c.Seed, c.SeedGiven = v, true
	}
	if !c.SeedGiven {
		c.Seed = int64(secureBaseSeed() >> 1)
	}
	if c.Episodes < 0 {
		return c, fmt.Errorf("episodes must be >= 0, got %d", c.Episodes)
	}
	return c, c.Agent.Validate()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envReader parses numeric env vars and keeps the first error; an unset var
// takes the default.
type envReader struct{ err error }

func (e *envReader) int(k string, def int) int {
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" || e.err != nil {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", k, err)
		return def
	}
	return n
}

func (e *envReader) float(k string, def float64) float64 {
	s := strings.TrimSpace(os.Getenv(k))
	if s == "" || e.err != nil {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", k, err)
		return def
	}
	return f
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func secureBaseSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:]) ^ uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return uint64(time.Now().UnixNano()) ^ 0xA5A5A5A5A5A5A5A5
}
