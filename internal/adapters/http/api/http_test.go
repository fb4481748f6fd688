package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/fillcheck/internal/adapters/http/api"
	"github.com/okian/fillcheck/internal/orchestrator"
	"github.com/okian/fillcheck/internal/phase"
	"github.com/okian/fillcheck/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	verdict *orchestrator.Verdict
	stats   map[string]interface{}
}

func (m *mockDeps) GetStats() map[string]interface{} { return m.stats }

func (m *mockDeps) LastVerdict(context.Context) (*orchestrator.Verdict, bool) {
	return m.verdict, m.verdict != nil
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer(t *testing.T) {
	Convey("Given a status server", t, func() {
		deps := &mockDeps{stats: map[string]interface{}{"validations": 2}}
		mux := http.NewServeMux()
		api.NewServer(deps).Register(mux)

		Convey("healthz serves prometheus metrics", func() {
			metrics.RecordVerdict(orchestrator.StatusAdopted)
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "fillcheck_verdicts_total")
		})

		Convey("stats returns the provider's map", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			var got map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["validations"], ShouldEqual, 2)

			So(serve(mux, http.MethodPost, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("verdict is 404 before the first run", func() {
			w := serve(mux, http.MethodGet, "/verdict")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, api.ErrNoVerdict.Error())
			So(serve(mux, http.MethodGet, "/verdict/phases/train").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("With a recorded verdict", func() {
			deps.verdict = &orchestrator.Verdict{
				RunID:   "run-1",
				Status:  orchestrator.StatusFailed,
				Adopted: []orchestrator.Adopted{},
				Failure: &orchestrator.FailureRecord{Kind: orchestrator.KindAllCandidatesDegradedInForward, Phase: phase.Forward},
				Phases: []orchestrator.PhaseRecord{
					{Summary: phase.Summary{Phase: phase.Train, Events: 25}, Survivors: 1},
					{Summary: phase.Summary{Phase: phase.Forward, Events: 25}},
				},
			}

			Convey("verdict returns it", func() {
				w := serve(mux, http.MethodGet, "/verdict")
				So(w.Code, ShouldEqual, http.StatusOK)
				var got orchestrator.Verdict
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.RunID, ShouldEqual, "run-1")
				So(got.Failure.Kind, ShouldEqual, orchestrator.KindAllCandidatesDegradedInForward)
			})

			Convey("phase records are addressable by name", func() {
				w := serve(mux, http.MethodGet, "/verdict/phases/train")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"survivors":1`)

				w = serve(mux, http.MethodGet, "/verdict/phases/validate")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(strings.Contains(w.Body.String(), "did not run"), ShouldBeTrue)

				So(serve(mux, http.MethodGet, "/verdict/phases/a/b").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
