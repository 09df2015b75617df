package servereval

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"study_eval/internal/domain/analyse"
)

const DefaultLoadDelay = 800 * time.Millisecond

// Point is one selectable point of a chart series.
type Point interface {
	Select(on bool)
}

// Chart is a rendered evaluation chart. Selecting a point makes it the only
// selected one.
type Chart interface {
	Series() []Point
	SelectedPoints() []Point
	Update(data analyse.Data)
}

// ChartFactory loads the charting code once and builds charts with it.
type ChartFactory interface {
	Load(ctx context.Context) error
	Active() bool
	New(data analyse.Data) (Chart, error)
}

// RequestSender asks the server to analyse a chapter. Results come back
// separately as analysis data.
type RequestSender interface {
	RequestAnalysis(ctx context.Context, chapterID string) error
}

// Root is the analysis board hosting the controller.
type Root interface {
	Data() analyse.Data
	ShowComputer() bool
	CanContribute() bool
}

type PositionSource interface {
	Subscribe(fn func(analyse.PositionChange)) (unsubscribe func())
}

// Scheduler runs fn after d, at low priority.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type TimerScheduler struct{}

func (TimerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type Deps struct {
	Log       *zap.SugaredLogger
	Root      Root
	ChapterID func() string
	Positions PositionSource
	Sender    RequestSender
	Charts    ChartFactory
	Scheduler Scheduler
	LoadDelay time.Duration
}

// Controller keeps the server evaluation panel in sync with the board.
// All tracked state and chart calls happen under mu.
type Controller struct {
	mu      sync.Mutex
	tracker *Tracker
	bridge  *Bridge

	log       *zap.SugaredLogger
	root      Root
	chapterID func() string
	sender    RequestSender
	charts    ChartFactory
	scheduler Scheduler
	loadDelay time.Duration

	unsubscribe func()
	closed      bool
}

func New(d Deps) *Controller {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.Scheduler == nil {
		d.Scheduler = TimerScheduler{}
	}
	if d.LoadDelay <= 0 {
		d.LoadDelay = DefaultLoadDelay
	}

	tracker := NewTracker()
	c := &Controller{
		tracker:   tracker,
		bridge:    NewBridge(tracker, d.Charts, d.Root),
		log:       d.Log,
		root:      d.Root,
		chapterID: d.ChapterID,
		sender:    d.Sender,
		charts:    d.Charts,
		scheduler: d.Scheduler,
		loadDelay: d.LoadDelay,
	}
	c.unsubscribe = d.Positions.Subscribe(c.onPositionChange)
	return c
}

func (c *Controller) onPositionChange(pc analyse.PositionChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bridge.OnPlyChange(pc.MainlinePly)
}

func (c *Controller) Requested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.IsRequested()
}

func (c *Controller) LastPly() analyse.Ply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.LastPly()
}

func (c *Controller) Chart() Chart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Chart()
}

// AttachChart replaces the chart handle and shows the last ply on it.
func (c *Controller) AttachChart(chart Chart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.SetChart(chart)
	if chart != nil {
		c.bridge.Apply(chart, c.tracker.LastPly())
	}
}

// Request asks for a server analysis of the current chapter. A failed send is
// logged only; the panel shows the request as pending either way.
func (c *Controller) Request(ctx context.Context) {
	chapterID := c.chapterID()
	if err := c.sender.RequestAnalysis(ctx, chapterID); err != nil {
		c.log.Errorw("failed to send analysis request", "chapter", chapterID, "error", err)
	} else {
		c.log.Infof("analysis requested for chapter %s", chapterID)
	}

	c.mu.Lock()
	c.tracker.MarkRequested()
	c.mu.Unlock()
}

// Reset is called when another chapter gets analysed.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Reset()
}

// OnMergeAnalysisData pushes refreshed data into the attached chart.
func (c *Controller) OnMergeAnalysisData() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chart := c.tracker.Chart(); chart != nil {
		chart.Update(c.root.Data())
	}
}

// OnReadyInsert is called by the rendering layer when the ready panel is first
// shown for an analysis. The chart is loaded after the idle delay and attached
// when built. ctx bounds the load, it is not tied to the render.
// A load still running when the panel goes away is not cancelled.
func (c *Controller) OnReadyInsert(ctx context.Context) {
	c.mu.Lock()
	c.tracker.SetLastPly(analyse.NoPly)
	c.mu.Unlock()

	c.scheduler.After(c.loadDelay, func() { c.loadChart(ctx) })
}

func (c *Controller) loadChart(ctx context.Context) {
	if err := c.charts.Load(ctx); err != nil {
		c.log.Errorw("failed to load chart subsystem", "error", err)
		return
	}
	chart, err := c.charts.New(c.root.Data())
	if err != nil {
		c.log.Errorw("failed to build chart", "error", err)
		return
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.log.Debug("chart loaded after controller was closed, not attached")
		return
	}
	c.AttachChart(chart)
}

// Close releases the position subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.unsubscribe()
}
