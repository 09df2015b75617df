package servereval

import (
	"context"
	"errors"
	"time"

	"study_eval/internal/domain/analyse"
	"study_eval/internal/pubsub"
)

type fakePoint struct {
	chart    *fakeChart
	selected bool
}

func (p *fakePoint) Select(on bool) {
	p.chart.calls++
	if on {
		for _, o := range p.chart.points {
			o.selected = false
		}
	}
	p.selected = on
}

type fakeChart struct {
	points  []*fakePoint
	calls   int
	updates []analyse.Data
}

func newFakeChart(n int) *fakeChart {
	c := &fakeChart{}
	for i := 0; i < n; i++ {
		c.points = append(c.points, &fakePoint{chart: c})
	}
	return c
}

func (c *fakeChart) Series() []Point {
	c.calls++
	out := make([]Point, len(c.points))
	for i, p := range c.points {
		out[i] = p
	}
	return out
}

func (c *fakeChart) SelectedPoints() []Point {
	c.calls++
	var out []Point
	for _, p := range c.points {
		if p.selected {
			out = append(out, p)
		}
	}
	return out
}

func (c *fakeChart) Update(data analyse.Data) {
	c.updates = append(c.updates, data)
}

func (c *fakeChart) selectedIndexes() []int {
	var out []int
	for i, p := range c.points {
		if p.selected {
			out = append(out, i)
		}
	}
	return out
}

type fakeFactory struct {
	active  bool
	loadErr error
	loads   int
	built   []*fakeChart
}

func (f *fakeFactory) Load(ctx context.Context) error {
	f.loads++
	if f.loadErr != nil {
		return f.loadErr
	}
	f.active = true
	return nil
}

func (f *fakeFactory) Active() bool {
	return f.active
}

func (f *fakeFactory) New(data analyse.Data) (Chart, error) {
	if data.Analysis == nil {
		return nil, errors.New("no analysis")
	}
	c := newFakeChart(len(data.Analysis.Evals))
	f.built = append(f.built, c)
	return c, nil
}

type fakeRoot struct {
	data          analyse.Data
	showComputer  bool
	canContribute bool
}

func (r *fakeRoot) Data() analyse.Data {
	return r.data
}

func (r *fakeRoot) ShowComputer() bool {
	return r.showComputer
}

func (r *fakeRoot) CanContribute() bool {
	return r.canContribute
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) RequestAnalysis(ctx context.Context, chapterID string) error {
	s.sent = append(s.sent, chapterID)
	return s.err
}

// immediateScheduler runs scheduled work at once and remembers the delays.
type immediateScheduler struct {
	delays []time.Duration
}

func (s *immediateScheduler) After(d time.Duration, fn func()) {
	s.delays = append(s.delays, d)
	fn()
}

// heldScheduler keeps scheduled work until run is called.
type heldScheduler struct {
	pending []func()
}

func (s *heldScheduler) After(d time.Duration, fn func()) {
	s.pending = append(s.pending, fn)
}

func (s *heldScheduler) run() {
	pending := s.pending
	s.pending = nil
	for _, fn := range pending {
		fn()
	}
}

func analysisWith(n int) *analyse.Analysis {
	a := &analyse.Analysis{ID: "an1"}
	for i := 0; i < n; i++ {
		cp := i * 10
		a.Evals = append(a.Evals, analyse.Eval{Cp: &cp})
	}
	return a
}

type harness struct {
	ctrl      *Controller
	root      *fakeRoot
	factory   *fakeFactory
	sender    *fakeSender
	positions *pubsub.Topic[analyse.PositionChange]
	chapter   string
}

func newHarness(scheduler Scheduler) *harness {
	h := &harness{
		root:      &fakeRoot{showComputer: true, canContribute: true},
		factory:   &fakeFactory{},
		sender:    &fakeSender{},
		positions: pubsub.NewTopic[analyse.PositionChange](),
		chapter:   "ch1",
	}
	h.ctrl = New(Deps{
		Root:      h.root,
		ChapterID: func() string { return h.chapter },
		Positions: h.positions,
		Sender:    h.sender,
		Charts:    h.factory,
		Scheduler: scheduler,
	})
	return h
}

func (h *harness) deliver(mp analyse.MainlinePly) {
	h.positions.Publish(analyse.PositionChange{Fen: "fen", Path: "path", MainlinePly: mp})
}

func (h *harness) ply(n int) {
	h.deliver(analyse.Mainline(analyse.PlyOf(n)))
}
