package errors

import "errors"

var (
	ErrInvalidPly       = errors.New("ply must be an integer or false")
	ErrNoAnalysis       = errors.New("chapter has no analysis")
	ErrNoChart          = errors.New("no chart attached")
	ErrSocketClosed     = errors.New("socket is closed")
	ErrUnknownTransport = errors.New("unknown request transport")
	ErrUnknownChapter   = errors.New("analysis belongs to another chapter")
	ErrChartNotLoaded   = errors.New("chart subsystem not loaded")
)
