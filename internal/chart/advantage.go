package chart

import (
	"io"
	"math"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"study_eval/internal/domain/analyse"
	"study_eval/internal/errors"
	"study_eval/internal/servereval"
)

const (
	defaultWidth  = 800
	defaultHeight = 200

	cpCeiling  = 1000
	cpToChance = 0.00368208
)

var (
	advantageFill   = drawing.Color{R: 0x3a, G: 0x7f, B: 0xc1, A: 0x60}
	advantageStroke = drawing.Color{R: 0x3a, G: 0x7f, B: 0xc1, A: 0xff}
	selectedDot     = drawing.Color{R: 0xd8, G: 0x57, B: 0x00, A: 0xff}
)

// Advantage is the winning chances chart of a chapter mainline.
// Point i is the position at ply rootPly+i+1.
type Advantage struct {
	mu       sync.Mutex
	values   []float64
	selected int

	Width  int
	Height int
}

type point struct {
	chart *Advantage
	index int
}

func (p point) Select(on bool) {
	p.chart.mu.Lock()
	defer p.chart.mu.Unlock()
	switch {
	case on:
		p.chart.selected = p.index
	case p.chart.selected == p.index:
		p.chart.selected = -1
	}
}

func NewAdvantage(data analyse.Data) *Advantage {
	a := &Advantage{selected: -1, Width: defaultWidth, Height: defaultHeight}
	a.values = valuesOf(data)
	return a
}

func valuesOf(data analyse.Data) []float64 {
	if data.Analysis == nil {
		return nil
	}
	values := make([]float64, len(data.Analysis.Evals))
	for i, e := range data.Analysis.Evals {
		values[i] = WinningChances(e)
	}
	return values
}

// WinningChances maps an eval to [-1, 1], positive when white is better.
func WinningChances(e analyse.Eval) float64 {
	if e.Mate != nil {
		if *e.Mate > 0 {
			return 1
		}
		return -1
	}
	if e.Cp == nil {
		return 0
	}
	cp := math.Max(-cpCeiling, math.Min(cpCeiling, float64(*e.Cp)))
	return 2/(1+math.Exp(-cpToChance*cp)) - 1
}

func (a *Advantage) Series() []servereval.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	points := make([]servereval.Point, len(a.values))
	for i := range a.values {
		points[i] = point{chart: a, index: i}
	}
	return points
}

func (a *Advantage) SelectedPoints() []servereval.Point {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected < 0 {
		return nil
	}
	return []servereval.Point{point{chart: a, index: a.selected}}
}

// Selected returns the selected point index, or -1.
func (a *Advantage) Selected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

func (a *Advantage) Values() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out
}

// Update replaces the values in place. A selection past the new end is dropped.
func (a *Advantage) Update(data analyse.Data) {
	values := valuesOf(data)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = values
	if a.selected >= len(a.values) {
		a.selected = -1
	}
}

// Render writes the chart as PNG.
func (a *Advantage) Render(w io.Writer) error {
	a.mu.Lock()
	values := make([]float64, len(a.values))
	copy(values, a.values)
	selected := a.selected
	width, height := a.Width, a.Height
	a.mu.Unlock()

	if len(values) == 0 {
		return errors.ErrNoAnalysis
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	series := []gochart.Series{
		gochart.ContinuousSeries{
			Name:    "advantage",
			XValues: xs,
			YValues: values,
			Style: gochart.Style{
				StrokeColor: advantageStroke,
				StrokeWidth: 1.5,
				FillColor:   advantageFill,
			},
		},
	}
	if selected >= 0 {
		series = append(series, gochart.ContinuousSeries{
			Name:    "selected",
			XValues: []float64{xs[selected]},
			YValues: []float64{values[selected]},
			Style: gochart.Style{
				StrokeWidth: 0,
				DotWidth:    5,
				DotColor:    selectedDot,
			},
		})
	}

	ch := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 10, Left: 10, Right: 10, Bottom: 10}},
		XAxis: gochart.XAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Max(1, float64(len(values)-1))},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: -1, Max: 1},
		},
		Series: series,
	}
	return ch.Render(gochart.PNG, w)
}
