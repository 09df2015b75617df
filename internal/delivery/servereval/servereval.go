package servereval

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"study_eval/internal/bootstrap"
	"study_eval/internal/domain/analyse"
	errs "study_eval/internal/errors"
	"study_eval/internal/httpresponse"
	"study_eval/internal/pubsub"
	evalUC "study_eval/internal/servereval"
	"study_eval/internal/study"
	"study_eval/internal/utils"
)

type renderer interface {
	Render(w io.Writer) error
}

type StateResponse struct {
	Requested     bool        `json:"requested"`
	LastPly       analyse.Ply `json:"last_ply"`
	ChartAttached bool        `json:"chart_attached"`
}

type ChapterRequest struct {
	ChapterID string       `json:"chapter_id"`
	Data      analyse.Data `json:"data"`
}

type ComputerRequest struct {
	Show bool `json:"show"`
}

// ServerEvalHandler renders the server evaluation panel over HTTP.
type ServerEvalHandler struct {
	ctx       context.Context
	cfg       bootstrap.Config
	log       *zap.SugaredLogger
	ctrl      *evalUC.Controller
	host      *study.Host
	positions *pubsub.Topic[analyse.PositionChange]
	tr        evalUC.Translator

	mu sync.Mutex
	// analysis id of the ready panel currently shown, "" when none
	insertedID string
}

// NewServerEvalHandler builds the handlers. ctx outlives single requests and
// bounds chart loads.
func NewServerEvalHandler(
	ctx context.Context,
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	ctrl *evalUC.Controller,
	host *study.Host,
	positions *pubsub.Topic[analyse.PositionChange],
	tr evalUC.Translator,
) *ServerEvalHandler {
	return &ServerEvalHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		host:      host,
		positions: positions,
		tr:        tr,
	}
}

func (h *ServerEvalHandler) Router(r chi.Router) {
	r.Route("/eval", func(r chi.Router) {
		r.Get("/view", h.HandleView)
		r.Get("/state", h.HandleState)
		r.Get("/chart.png", h.HandleChart)
		r.Post("/request", h.HandleRequest)
		r.Post("/reset", h.HandleReset)
		r.Post("/position", h.HandlePosition)
		r.Post("/analysis", h.HandleAnalysis)
		r.Post("/chapter", h.HandleChapter)
		r.Post("/computer", h.HandleComputer)
	})
}

func (h *ServerEvalHandler) view() evalUC.ViewState {
	vs := evalUC.View(h.ctrl, h.host, h.tr, h.cfg.MinMainlinePlies)

	h.mu.Lock()
	insert := false
	if vs.State == evalUC.StateReady {
		if vs.AnalysisID != h.insertedID {
			h.insertedID = vs.AnalysisID
			insert = true
		}
	} else {
		h.insertedID = ""
	}
	h.mu.Unlock()

	if insert {
		h.log.Infof("ready panel shown for analysis %s", vs.AnalysisID)
		h.ctrl.OnReadyInsert(h.ctx)
	}
	return vs
}

func (h *ServerEvalHandler) state() StateResponse {
	return StateResponse{
		Requested:     h.ctrl.Requested(),
		LastPly:       h.ctrl.LastPly(),
		ChartAttached: h.ctrl.Chart() != nil,
	}
}

func writeMalformed(w http.ResponseWriter, err error) {
	httpresponse.WriteError(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc+": "+err.Error())
}

func (h *ServerEvalHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.view())
}

func (h *ServerEvalHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.state())
}

func (h *ServerEvalHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	vs := evalUC.View(h.ctrl, h.host, h.tr, h.cfg.MinMainlinePlies)
	if vs.State != evalUC.StateRequestButton {
		h.log.Errorf("HandleRequest: analysis cannot be requested in state %s", vs.State)
		httpresponse.WriteError(w, http.StatusConflict, "analysis cannot be requested now: "+string(vs.State))
		return
	}

	h.ctrl.Request(r.Context())
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.view())
}

func (h *ServerEvalHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.state())
}

func (h *ServerEvalHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var pc analyse.PositionChange
	if err := utils.DecodeJSONRequest(r, &pc); err != nil {
		h.log.Error("HandlePosition: ", err)
		writeMalformed(w, err)
		return
	}

	h.positions.Publish(pc)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.state())
}

func (h *ServerEvalHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	var progress analyse.Progress
	if err := utils.DecodeJSONRequest(r, &progress); err != nil {
		h.log.Error("HandleAnalysis: ", err)
		writeMalformed(w, err)
		return
	}

	if err := h.host.MergeAnalysis(progress); err != nil {
		if errors.Is(err, errs.ErrUnknownChapter) {
			httpresponse.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Errorf("HandleAnalysis: %v", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.view())
}

func (h *ServerEvalHandler) HandleChapter(w http.ResponseWriter, r *http.Request) {
	var req ChapterRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("HandleChapter: ", err)
		writeMalformed(w, err)
		return
	}
	if req.ChapterID == "" {
		httpresponse.WriteError(w, http.StatusBadRequest, "chapter_id is required")
		return
	}

	h.host.SwitchChapter(req.ChapterID, req.Data)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.view())
}

func (h *ServerEvalHandler) HandleComputer(w http.ResponseWriter, r *http.Request) {
	var req ComputerRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		writeMalformed(w, err)
		return
	}

	h.host.SetShowComputer(req.Show)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, h.view())
}

func (h *ServerEvalHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	chart, ok := h.ctrl.Chart().(renderer)
	if !ok {
		httpresponse.WriteError(w, http.StatusNotFound, errs.ErrNoChart.Error())
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		if errors.Is(err, errs.ErrNoAnalysis) {
			httpresponse.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Errorf("HandleChart: render failed: %v", err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
