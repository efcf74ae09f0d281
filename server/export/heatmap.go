package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"blackjack-rl/server/agent"
)

// The meaningful slice of the table: totals a two-card hand can start from and
// the upcards a dealer can show.
const (
	MinPlayerRow = 4
	MaxPlayerRow = 21
	MinUpcardCol = 2
	MaxUpcardCol = 11
)

// Grid is one heatmap's cells, rows = player total, cols = upcard.
type Grid struct {
	Title string
	Cells [][]float64
}

// Grids returns the hit, stand and hit-minus-stand views of q.
func Grids(q *agent.QTable) []Grid {
	build := func(title string, f func(s agent.State) float64) Grid {
		g := Grid{Title: title}
		for p := MinPlayerRow; p <= MaxPlayerRow; p++ {
			row := make([]float64, 0, MaxUpcardCol-MinUpcardCol+1)
			for u := MinUpcardCol; u <= MaxUpcardCol; u++ {
				row = append(row, f(agent.State{Player: p, Upcard: u}))
			}
			g.Cells = append(g.Cells, row)
		}
		return g
	}
	return []Grid{
		build("Q Table for Hit", func(s agent.State) float64 { return q.At(s, agent.Hit) }),
		build("Q Table for Stand", func(s agent.State) float64 { return q.At(s, agent.Stand) }),
		build("Difference (Hit - Stand)", func(s agent.State) float64 { return q.At(s, agent.Hit) - q.At(s, agent.Stand) }),
	}
}

func (g Grid) bounds() (lo, hi float64) {
	for i, row := range g.Cells {
		for j, v := range row {
			if (i == 0 && j == 0) || v < lo {
				lo = v
			}
			if (i == 0 && j == 0) || v > hi {
				hi = v
			}
		}
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

func (g Grid) chart() *charts.HeatMap {
	var xs, ys []string
	for u := MinUpcardCol; u <= MaxUpcardCol; u++ {
		xs = append(xs, fmt.Sprint(u))
	}
	for p := MinPlayerRow; p <= MaxPlayerRow; p++ {
		ys = append(ys, fmt.Sprint(p))
	}

	items := make([]opts.HeatMapData, 0, len(xs)*len(ys))
	for i, row := range g.Cells {
		for j, v := range row {
			items = append(items, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	colors := []string{"#440154", "#21918c", "#fde725"}
	if strings.HasPrefix(g.Title, "Difference") {
		colors = []string{"#3b4cc0", "#f7f7f7", "#b40426"}
	}
	lo, hi := g.bounds()

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: g.Title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "Dealer Upcard", Data: xs}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Player Score", Data: ys}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)
	hm.SetXAxis(xs).AddSeries(g.Title, items)
	return hm
}

// RenderHeatmaps writes an HTML page with the three views of q.
func RenderHeatmaps(w io.Writer, q *agent.QTable) error {
	page := components.NewPage()
	for _, g := range Grids(q) {
		page.AddCharts(g.chart())
	}
	return page.Render(w)
}

// SaveHeatmaps renders next to the array dump and returns the path.
func SaveHeatmaps(dir string, episodes int, q *agent.QTable) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("qtable-%dsteps.html", episodes))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := RenderHeatmaps(f, q); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
