package main

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/engine"
	"blackjack-rl/server/store"
)

// table is the single interactive seat served over HTTP.
type table struct {
	mu   sync.Mutex
	game *engine.Game
	q    *agent.QTable // may be nil: no advice
	db   *store.DB     // may be nil: no run history
	log  zerolog.Logger
}

// gameView hides the dealer's hole card until the round is over.
type gameView struct {
	engine.Snapshot
	Message string `json:"message,omitempty"`
}

func (t *table) view() gameView {
	s := t.game.Snapshot()
	v := gameView{Snapshot: s}
	if s.Phase == engine.PhaseInProgress && len(s.Dealer) > 1 {
		v.Dealer = s.Dealer[:1]
		v.DealerScore = s.UpcardScore
	}
	if s.Outcome != nil {
		v.Message = s.Outcome.Message()
	}
	return v
}

func Router(seed int64, q *agent.QTable, db *store.DB, log zerolog.Logger) http.Handler {
	t := &table{
		game: engine.NewGame(rand.New(rand.NewSource(seed))),
		q:    q,
		db:   db,
		log:  log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(requestLogger(log))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/", t.handle(func() error { return nil }))
		r.Post("/reset", t.handle(t.game.Reset))
		r.Post("/hit", t.handle(t.game.Hit))
		r.Post("/stand", t.handle(t.game.Stand))
		r.Get("/advice", t.advice)
	})

	r.Get("/api/qtable", func(w http.ResponseWriter, r *http.Request) {
		if t.q == nil {
			writeError(w, http.StatusNotFound, "no table loaded")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"shape": agent.Shape(), "values": t.q.Flat()})
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Use(t.requireDB)
		r.Get("/", t.listRuns)
		r.Get("/{id}", t.getRun)
		r.Get("/{id}/qtable", t.runTable)
	})
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("http")
		})
	}
}

// handle runs op under the table lock and answers with the resulting view.
func (t *table) handle(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := op(); err != nil {
			switch {
			case errors.Is(err, engine.ErrInvalidState):
				writeError(w, http.StatusConflict, err.Error())
			default:
				t.log.Error().Err(err).Msg("game op failed")
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, t.view())
	}
}

func (t *table) advice(w http.ResponseWriter, r *http.Request) {
	if t.q == nil {
		writeError(w, http.StatusNotFound, "no table loaded")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.game.Phase() != engine.PhaseInProgress {
		writeError(w, http.StatusConflict, "no hand in progress")
		return
	}
	obs := agent.BuildObservation(t.game)
	s := obs.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  s,
		"action": t.q.Best(s),
		"q": map[string]float64{
			agent.Hit.String():   t.q.At(s, agent.Hit),
			agent.Stand.String(): t.q.At(s, agent.Stand),
		},
	})
}

func (t *table) requireDB(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.db == nil {
			writeError(w, http.StatusServiceUnavailable, "database disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *table) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = n
	}
	runs, err := t.db.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (t *table) getRun(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	run, err := t.db.GetRun(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (t *table) runTable(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}
	q, err := t.db.LoadQTable(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shape": agent.Shape(), "values": q.Flat()})
}

func runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad run id")
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
