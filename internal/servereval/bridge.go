package servereval

import "study_eval/internal/domain/analyse"

// Bridge turns mainline ply changes into chart point selection.
type Bridge struct {
	tracker *Tracker
	charts  ChartFactory
	root    Root
}

func NewBridge(tracker *Tracker, charts ChartFactory, root Root) *Bridge {
	return &Bridge{tracker: tracker, charts: charts, root: root}
}

// OnPlyChange records the ply and, when a chart is attached, selects the
// matching point. Nothing happens before the chart subsystem is loaded or
// when the ply did not change.
func (b *Bridge) OnPlyChange(mp analyse.MainlinePly) {
	if !b.charts.Active() {
		return
	}
	if mp.Defined && mp.Ply == b.tracker.LastPly() {
		return
	}

	ply := b.tracker.LastPly()
	if mp.Defined {
		ply = mp.Ply
		b.tracker.SetLastPly(ply)
	}

	chart := b.tracker.Chart()
	if chart == nil {
		return
	}
	b.Apply(chart, ply)
}

// Apply shows ply on chart without touching tracked state.
func (b *Bridge) Apply(chart Chart, ply analyse.Ply) {
	n, ok := ply.Int()
	if !ok {
		unselect(chart)
		return
	}

	index := n - 1 - b.root.Data().TreeRootPly
	series := chart.Series()
	if index < 0 || index >= len(series) || series[index] == nil {
		unselect(chart)
		return
	}
	series[index].Select(true)
}

func unselect(chart Chart) {
	for _, p := range chart.SelectedPoints() {
		p.Select(false)
	}
}
