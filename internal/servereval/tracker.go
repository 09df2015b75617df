package servereval

import "study_eval/internal/domain/analyse"

// Tracker holds whether analysis was requested, the last ply told to the
// chart and the chart handle. It does no locking; Controller serializes access.
type Tracker struct {
	requested bool
	lastPly   analyse.Ply
	chart     Chart
}

func NewTracker() *Tracker {
	return &Tracker{lastPly: analyse.NoPly}
}

func (t *Tracker) IsRequested() bool {
	return t.requested
}

func (t *Tracker) MarkRequested() {
	t.requested = true
}

func (t *Tracker) LastPly() analyse.Ply {
	return t.lastPly
}

func (t *Tracker) SetLastPly(p analyse.Ply) {
	t.lastPly = p
}

func (t *Tracker) Chart() Chart {
	return t.chart
}

// SetChart replaces the tracked chart. nil detaches it.
func (t *Tracker) SetChart(c Chart) {
	t.chart = c
}

// Reset forgets the request and the selection. The chart handle belongs to
// the rendering layer and stays.
func (t *Tracker) Reset() {
	t.requested = false
	t.lastPly = analyse.NoPly
}
