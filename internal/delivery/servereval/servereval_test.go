package servereval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"study_eval/internal/bootstrap"
	"study_eval/internal/chart"
	"study_eval/internal/domain/analyse"
	"study_eval/internal/httpresponse"
	"study_eval/internal/middleware"
	"study_eval/internal/pubsub"
	evalUC "study_eval/internal/servereval"
	"study_eval/internal/study"
)

type syncScheduler struct {
	calls int
}

func (s *syncScheduler) After(d time.Duration, fn func()) {
	s.calls++
	fn()
}

type recordingSender struct {
	chapters []string
}

func (s *recordingSender) RequestAnalysis(ctx context.Context, chapterID string) error {
	s.chapters = append(s.chapters, chapterID)
	return nil
}

type fixture struct {
	router    *chi.Mux
	ctrl      *evalUC.Controller
	host      *study.Host
	sender    *recordingSender
	scheduler *syncScheduler
}

func mainline(n int) []analyse.Node {
	nodes := make([]analyse.Node, n)
	for i := range nodes {
		nodes[i] = analyse.Node{Ply: i}
	}
	return nodes
}

func newFixture(t *testing.T) *fixture {
	log := zap.NewNop().Sugar()
	host := study.NewHost(log, "ch1", analyse.Data{TreeRootPly: 0, Mainline: mainline(10)})
	positions := pubsub.NewTopic[analyse.PositionChange]()
	sender := &recordingSender{}
	scheduler := &syncScheduler{}

	ctrl := evalUC.New(evalUC.Deps{
		Log:       log,
		Root:      host,
		ChapterID: host.ChapterID,
		Positions: positions,
		Sender:    sender,
		Charts:    chart.NewFactory(chart.NewLoader(log)),
		Scheduler: scheduler,
	})
	t.Cleanup(ctrl.Close)
	host.Attach(ctrl)

	cfg := bootstrap.Config{MinMainlinePlies: 5}
	handler := NewServerEvalHandler(context.Background(), cfg, log, ctrl, host, positions, evalUC.English)
	r := chi.NewRouter()
	r.Use(middleware.CORS)
	handler.Router(r)

	return &fixture{router: r, ctrl: ctrl, host: host, sender: sender, scheduler: scheduler}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var resp struct {
		Status int `json:"status"`
		Body   T   `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, rec.Code, resp.Status)
	return resp.Body
}

func analysisBody(chapterID string, n int) string {
	a := analyse.Analysis{ID: "an-" + chapterID}
	for i := 0; i < n; i++ {
		cp := i * 25
		a.Evals = append(a.Evals, analyse.Eval{Cp: &cp})
	}
	b, _ := json.Marshal(analyse.Progress{ChapterID: chapterID, Analysis: a})
	return string(b)
}

func TestServerEvalFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/eval/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, evalUC.StateRequestButton, decodeBody[evalUC.ViewState](t, rec).State)

	rec = f.do(t, http.MethodGet, "/eval/chart.png", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/eval/request", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, evalUC.StateRequested, decodeBody[evalUC.ViewState](t, rec).State)
	require.Equal(t, []string{"ch1"}, f.sender.chapters)

	rec = f.do(t, http.MethodPost, "/eval/request", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/eval/analysis", analysisBody("ch1", 10))
	require.Equal(t, http.StatusOK, rec.Code)
	vs := decodeBody[evalUC.ViewState](t, rec)
	require.Equal(t, evalUC.StateReady, vs.State)
	require.Equal(t, "an-ch1", vs.AnalysisID)
	require.Equal(t, 1, f.scheduler.calls)

	state := decodeBody[StateResponse](t, f.do(t, http.MethodGet, "/eval/state", ""))
	require.True(t, state.ChartAttached)
	require.True(t, state.Requested)
	require.Equal(t, analyse.NoPly, state.LastPly)

	rec = f.do(t, http.MethodPost, "/eval/position", `{"fen":"f","path":"p","mainline_ply":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, analyse.PlyOf(3), decodeBody[StateResponse](t, rec).LastPly)
	adv, ok := f.ctrl.Chart().(*chart.Advantage)
	require.True(t, ok)
	require.Equal(t, 2, adv.Selected())

	rec = f.do(t, http.MethodPost, "/eval/position", `{"fen":"f","path":"p","mainline_ply":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, -1, adv.Selected())

	rec = f.do(t, http.MethodGet, "/eval/chart.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	f.do(t, http.MethodGet, "/eval/view", "")
	require.Equal(t, 1, f.scheduler.calls, "same analysis must not reload the chart")

	rec = f.do(t, http.MethodPost, "/eval/analysis", analysisBody("ch1", 12))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, adv.Values(), 12)
	require.Equal(t, 1, f.scheduler.calls)

	rec = f.do(t, http.MethodPost, "/eval/chapter", `{"chapter_id":"ch2","data":{"tree_root_ply":0,"mainline":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, evalUC.StateTooShort, decodeBody[evalUC.ViewState](t, rec).State)
	state = decodeBody[StateResponse](t, f.do(t, http.MethodGet, "/eval/state", ""))
	require.False(t, state.Requested)
	require.Equal(t, analyse.NoPly, state.LastPly)
}

func TestServerEvalRejects(t *testing.T) {
	t.Run("analysis of another chapter", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/eval/analysis", analysisBody("other", 3))
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Nil(t, f.host.Data().Analysis)
	})

	t.Run("malformed position", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/eval/position", `{"mainline_ply":"seven"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		desc := decodeBody[httpresponse.ErrorResponse](t, rec).ErrorDescription
		require.True(t, strings.HasPrefix(desc, httpresponse.MALFORMEDJSON_errorDesc), desc)
	})

	t.Run("unknown fields", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/eval/chapter", `{"chapter_id":"x","colour":"white"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("chapter id required", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/eval/chapter", `{"data":{}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("computer analysis hidden", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/eval/computer", `{"show":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, evalUC.StateDisabled, decodeBody[evalUC.ViewState](t, rec).State)

		rec = f.do(t, http.MethodPost, "/eval/request", "")
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Empty(t, f.sender.chapters)
	})
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/eval/view", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
