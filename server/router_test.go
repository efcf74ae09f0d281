package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackjack-rl/server/agent"
	"blackjack-rl/server/engine"
	"blackjack-rl/server/export"
)

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) gameView {
	t.Helper()
	var v gameView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := Router(1, nil, nil, zerolog.Nop())
	rec := do(t, h, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGameRound(t *testing.T) {
	h := Router(7, nil, nil, zerolog.Nop())

	v := decodeView(t, do(t, h, http.MethodGet, "/api/game"))
	assert.Equal(t, engine.PhaseNotStarted, v.Phase)

	rec := do(t, h, http.MethodPost, "/api/game/hit")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/game/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, engine.PhaseInProgress, v.Phase)
	assert.Len(t, v.Player, 2)
	assert.Len(t, v.Dealer, 1, "hole card hidden")
	assert.Equal(t, v.UpcardScore, v.DealerScore)
	assert.Equal(t, 48, v.DeckLeft)
	assert.Nil(t, v.Outcome)
	assert.Empty(t, v.Message)

	rec = do(t, h, http.MethodPost, "/api/game/stand")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeView(t, rec)
	assert.Equal(t, engine.PhaseRoundOver, v.Phase)
	assert.GreaterOrEqual(t, len(v.Dealer), 2)
	require.NotNil(t, v.Outcome)
	assert.Equal(t, v.Outcome.Message(), v.Message)

	rec = do(t, h, http.MethodPost, "/api/game/stand")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSameSeedSameDeal(t *testing.T) {
	a := decodeView(t, do(t, Router(3, nil, nil, zerolog.Nop()), http.MethodPost, "/api/game/reset"))
	b := decodeView(t, do(t, Router(3, nil, nil, zerolog.Nop()), http.MethodPost, "/api/game/reset"))
	assert.Equal(t, a.Player, b.Player)
	assert.Equal(t, a.Dealer, b.Dealer)
}

func TestAdvice(t *testing.T) {
	rec := do(t, Router(1, nil, nil, zerolog.Nop()), http.MethodGet, "/api/game/advice")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h := Router(1, agent.NewQTable(), nil, zerolog.Nop())
	rec = do(t, h, http.MethodGet, "/api/game/advice")
	assert.Equal(t, http.StatusConflict, rec.Code)

	do(t, h, http.MethodPost, "/api/game/reset")
	rec = do(t, h, http.MethodGet, "/api/game/advice")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Action agent.Action       `json:"action"`
		Q      map[string]float64 `json:"q"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, agent.Stand, got.Action, "zero table ties go to stand")
	assert.Equal(t, map[string]float64{"hit": 0, "stand": 0}, got.Q)
}

func TestQTableEndpoint(t *testing.T) {
	rec := do(t, Router(1, nil, nil, zerolog.Nop()), http.MethodGet, "/api/qtable")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	q := agent.NewQTable()
	q.Set(agent.State{Player: 20, Upcard: 10}, agent.Stand, 0.75)
	rec = do(t, Router(1, q, nil, zerolog.Nop()), http.MethodGet, "/api/qtable")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Shape  [3]int    `json:"shape"`
		Values []float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, [3]int{23, 12, 2}, got.Shape)
	assert.Equal(t, q.Flat(), got.Values)
}

func TestRunsWithoutDB(t *testing.T) {
	h := Router(1, nil, nil, zerolog.Nop())
	for _, p := range []string{"/api/runs", "/api/runs/1", "/api/runs/1/qtable"} {
		assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, p).Code, p)
	}
}

func TestRunTrainWritesTable(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	args := []string{"-episodes", "200", "-seed", "5", "-out", dir, "-heatmap=false", "-report-every", "0"}
	var out bytes.Buffer
	require.NoError(t, run("train", args, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "200 episodes")

	q, err := export.LoadNPY(filepath.Join(dir, export.FileName(200)))
	require.NoError(t, err)
	assert.Positive(t, q.Visits())

	_, err = os.Stat(filepath.Join(dir, "qtable-200steps.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunUnknownCommand(t *testing.T) {
	err := run("fold", nil, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown command")
}
