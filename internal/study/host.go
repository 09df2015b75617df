package study

import (
	"sync"

	"go.uber.org/zap"

	"study_eval/internal/domain/analyse"
	"study_eval/internal/errors"
)

// Evaluator is the part of the server eval controller the host drives.
type Evaluator interface {
	OnMergeAnalysisData()
	Reset()
}

// Host holds the chapter currently open on the analysis board.
type Host struct {
	mu            sync.RWMutex
	chapterID     string
	data          analyse.Data
	showComputer  bool
	canContribute bool

	eval Evaluator
	log  *zap.SugaredLogger
}

func NewHost(log *zap.SugaredLogger, chapterID string, data analyse.Data) *Host {
	return &Host{
		chapterID:     chapterID,
		data:          data,
		showComputer:  true,
		canContribute: true,
		log:           log,
	}
}

// Attach connects the evaluation controller. It must run before analysis
// starts arriving.
func (h *Host) Attach(eval Evaluator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eval = eval
}

func (h *Host) ChapterID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.chapterID
}

func (h *Host) Data() analyse.Data {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data
}

func (h *Host) ShowComputer() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.showComputer
}

func (h *Host) SetShowComputer(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.showComputer = v
}

func (h *Host) CanContribute() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.canContribute
}

func (h *Host) SetCanContribute(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.canContribute = v
}

// MergeAnalysis stores analysis pushed by the server for the open chapter.
func (h *Host) MergeAnalysis(p analyse.Progress) error {
	h.mu.Lock()
	if p.ChapterID != h.chapterID {
		h.mu.Unlock()
		h.log.Debugf("ignoring analysis of chapter %s, %s is open", p.ChapterID, h.chapterID)
		return errors.ErrUnknownChapter
	}
	a := p.Analysis
	h.data.Analysis = &a
	eval := h.eval
	h.mu.Unlock()

	// the controller reads Data, so it is called without the lock held
	if eval != nil {
		eval.OnMergeAnalysisData()
	}
	return nil
}

// SwitchChapter opens another chapter and resets the evaluation state.
func (h *Host) SwitchChapter(chapterID string, data analyse.Data) {
	h.mu.Lock()
	h.chapterID = chapterID
	h.data = data
	eval := h.eval
	h.mu.Unlock()

	h.log.Infof("switched to chapter %s", chapterID)
	if eval != nil {
		eval.Reset()
	}
}
