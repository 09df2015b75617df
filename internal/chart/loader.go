package chart

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	gochart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"study_eval/internal/domain/analyse"
	"study_eval/internal/errors"
	"study_eval/internal/servereval"
)

// Loader prepares the chart renderer once. Load may be called any number of
// times; all callers wait for the same load.
type Loader struct {
	log    *zap.SugaredLogger
	load   func() error
	once   sync.Once
	done   chan struct{}
	err    error
	active atomic.Bool
}

func NewLoader(log *zap.SugaredLogger) *Loader {
	return &Loader{
		log: log,
		load: func() error {
			_, err := gochart.GetDefaultFont()
			return err
		},
		done: make(chan struct{}),
	}
}

func (l *Loader) Load(ctx context.Context) error {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			if err := l.load(); err != nil {
				l.err = fmt.Errorf("load chart font: %w", err)
				return
			}
			l.active.Store(true)
			l.log.Info("chart subsystem loaded")
		}()
	})

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports whether a load finished successfully.
func (l *Loader) Active() bool {
	return l.active.Load()
}

// Factory builds advantage charts once its loader is done.
type Factory struct {
	*Loader
}

func NewFactory(loader *Loader) *Factory {
	return &Factory{Loader: loader}
}

func (f *Factory) New(data analyse.Data) (servereval.Chart, error) {
	if !f.Active() {
		return nil, fmt.Errorf("build chart: %w", errors.ErrChartNotLoaded)
	}
	if data.Analysis == nil {
		return nil, errors.ErrNoAnalysis
	}
	return NewAdvantage(data), nil
}
