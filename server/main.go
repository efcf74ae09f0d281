package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/config"
	"blackjack-rl/server/export"
	"blackjack-rl/server/judge"
	"blackjack-rl/server/store"
	"blackjack-rl/server/trainer"
)

const usage = `usage: blackjack-rl [command] [flags]

commands:
  train      train a Q-learning agent and dump its table (default)
  baseline   play the hit-below-threshold bot
  evaluate   play a saved table greedily against the baseline
  serve      HTTP table with optional advice from a saved table
  migrate    apply the database schema
`

func main() {
	cmd, args := "train", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	if err := run(cmd, args, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		return err
	}
	log := newLogger(stderr, cfg.LogLevel)
	au := aurora.NewAurora(cfg.UseColor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	switch cmd {
	case "train":
		return train(ctx, cfg, log, au, stdout)
	case "baseline":
		rep, err := judge.Evaluate(ctx, judge.Threshold{Below: cfg.Threshold}, cfg.EvalHands, cfg.Seed, log)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, colourReport(au, rep))
		return nil
	case "evaluate":
		return evaluate(ctx, cfg, log, au, stdout)
	case "serve":
		return serve(ctx, cfg, log)
	case "migrate":
		db, err := openDB(ctx, cfg, log, true)
		if err != nil {
			return err
		}
		if db == nil {
			return errors.New("migrate: DATABASE_URL is not set")
		}
		defer db.Close(context.Background())
		log.Info().Msg("migrated")
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).Level(lvl).With().Timestamp().Logger()
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	cancel()
}

func train(ctx context.Context, cfg config.Config, log zerolog.Logger, au aurora.Aurora, out io.Writer) error {
	log.Info().
		Int64("seed", cfg.Seed).
		Bool("seed_given", cfg.SeedGiven).
		Int("episodes", cfg.Episodes).
		Float64("alpha", cfg.Agent.Alpha).
		Float64("gamma", cfg.Agent.Gamma).
		Float64("epsilon", cfg.Agent.Epsilon).
		Msg("training")

	tr, err := trainer.NewSeeded(cfg.Agent, cfg.Seed,
		trainer.WithLogger(log),
		trainer.WithReportEvery(cfg.ReportEvery))
	if err != nil {
		return err
	}
	st, err := tr.Run(ctx, cfg.Episodes)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		log.Warn().Int("episodes", st.Episodes).Msg("interrupted; saving partial table")
	}

	q := tr.Agent().Table()
	path, err := export.SaveNPY(cfg.OutDir, st.Episodes, q)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("table written")
	if cfg.Heatmap {
		hp, err := export.SaveHeatmaps(cfg.OutDir, st.Episodes, q)
		if err != nil {
			return err
		}
		log.Info().Str("path", hp).Msg("heatmap written")
	}

	db, err := openDB(ctx, cfg, log, cfg.AutoMigrate)
	if err != nil {
		log.Warn().Err(err).Msg("DB disabled")
	} else if db != nil {
		defer db.Close(context.Background())
		id, err := db.SaveRun(context.Background(), store.NewRun(cfg.Seed, cfg.Agent, st), st, q)
		if err != nil {
			log.Warn().Err(err).Msg("run not recorded")
		} else {
			log.Info().Int64("run_id", id).Msg("run recorded")
		}
	}

	fmt.Fprintf(out, "%s %d episodes, %d states visited\n", au.Bold("trained"), st.Episodes, q.Visits())
	fmt.Fprintf(out, "  %s %d  %s %d  %s %d  win rate %.3f\n",
		au.Green("wins"), st.Wins, au.Red("losses"), st.Losses, au.Yellow("ties"), st.Ties, st.WinRate())
	fmt.Fprintf(out, "  hits %d  stands %d\n", st.Hits, st.Stands)
	return nil
}

func evaluate(ctx context.Context, cfg config.Config, log zerolog.Logger, au aurora.Aurora, out io.Writer) error {
	path := cfg.QTable
	if path == "" {
		path = filepath.Join(cfg.OutDir, export.FileName(cfg.Episodes))
	}
	q, err := export.LoadNPY(path)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Int("hands", cfg.EvalHands).Msg("evaluating")

	for _, p := range []judge.Policy{judge.Greedy{Q: q}, judge.Threshold{Below: cfg.Threshold}} {
		rep, err := judge.Evaluate(ctx, p, cfg.EvalHands, cfg.Seed, log)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, colourReport(au, rep))
	}
	return nil
}

func colourReport(au aurora.Aurora, rep judge.Report) string {
	return fmt.Sprintf("%s %s", au.Cyan(rep.Policy).Bold(), strings.TrimPrefix(rep.String(), rep.Policy+":"))
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	var q *agent.QTable
	if cfg.QTable != "" {
		t, err := export.LoadNPY(cfg.QTable)
		if err != nil {
			return err
		}
		q = t
		log.Info().Str("path", cfg.QTable).Msg("advice enabled")
	}
	db, err := openDB(ctx, cfg, log, cfg.AutoMigrate)
	if err != nil {
		log.Warn().Err(err).Msg("DB disabled")
		db = nil
	}
	if db != nil {
		defer db.Close(context.Background())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      Router(cfg.Seed, q, db, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	log.Info().Msgf("listening on http://localhost:%s (Ctrl+C to stop)", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openDB returns nil without error when no database is configured.
func openDB(ctx context.Context, cfg config.Config, log zerolog.Logger, migrate bool) (*store.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	if migrate {
		if err := store.Migrate(ctx, db); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Debug().Msg("schema applied")
	}
	return db, nil
}
