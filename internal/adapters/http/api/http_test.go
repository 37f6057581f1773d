package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/llavero/llavero/internal/adapters/camera"
	"github.com/llavero/llavero/internal/adapters/http/api"
	service "github.com/llavero/llavero/internal/app"
	"github.com/llavero/llavero/internal/domain/enroll"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps is a scriptable Dependencies implementation.
type mockDeps struct {
	startErr   error
	stopErr    error
	frame      *model.Frame
	frameErr   error
	held       int
	captureErr error
	removeErr  error
	submitErr  error
	recs       []types.IdentificationRecord
	last       *types.IdentificationRecord

	gotMode    string
	gotSubject string
	gotLimit   int
	gotIndex   int
}

func (m *mockDeps) StartSession(ctx context.Context, mode, subjectID string) error {
	m.gotMode, m.gotSubject = mode, subjectID
	return m.startErr
}
func (m *mockDeps) StopSession(ctx context.Context) error { return m.stopErr }
func (m *mockDeps) PreviewFrame() (*model.Frame, error)   { return m.frame, m.frameErr }
func (m *mockDeps) CaptureEnrollFrame(ctx context.Context) (int, error) {
	return m.held, m.captureErr
}
func (m *mockDeps) RemoveEnrollFrame(ctx context.Context, index int) (int, error) {
	m.gotIndex = index
	return m.held, m.removeErr
}
func (m *mockDeps) SubmitEnrollment(ctx context.Context) error { return m.submitErr }
func (m *mockDeps) RecentIdentifications(ctx context.Context, limit int) ([]types.IdentificationRecord, error) {
	m.gotLimit = limit
	return m.recs, nil
}
func (m *mockDeps) LastMatch() *types.IdentificationRecord { return m.last }

type mockStats struct {
	stats map[string]interface{}
}

func (m mockStats) GetStats() map[string]interface{} {
	if m.stats != nil {
		return m.stats
	}
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *mockDeps) *httptest.Server {
	return newTestServerWithStats(deps, mockStats{})
}

func newTestServerWithStats(deps *mockDeps, stats mockStats) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given the API over a healthy service", t, func() {
		deps := &mockDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a session is opened", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json",
				strings.NewReader(`{"mode":"enroll","subject_id":"subject-1"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 201 is returned and the mode forwarded", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(deps.gotMode, ShouldEqual, "enroll")
				So(deps.gotSubject, ShouldEqual, "subject-1")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json", strings.NewReader("{"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the mode is missing", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json", strings.NewReader(`{}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the session is closed", func() {
			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/session", nil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 200 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a service with a session already open", t, func() {
		deps := &mockDeps{startErr: service.ErrSessionActive}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When another session is requested", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json",
				strings.NewReader(`{"mode":"identify"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})

	Convey("Given a service whose camera cannot open", t, func() {
		deps := &mockDeps{startErr: fmt.Errorf("opening camera: %w", camera.ErrCameraUnavailable)}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a session is requested", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json",
				strings.NewReader(`{"mode":"identify"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 503 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})

	Convey("Given a service whose camera is already held", t, func() {
		deps := &mockDeps{startErr: fmt.Errorf("opening camera: %w", camera.ErrBusy)}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a session is requested", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json",
				strings.NewReader(`{"mode":"identify"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})

	Convey("Given a service refusing the mode", t, func() {
		deps := &mockDeps{startErr: service.ErrInvalidMode}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a session is requested", func() {
			resp, err := http.Post(srv.URL+"/session", "application/json",
				strings.NewReader(`{"mode":"nonsense"}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSessionStatus(t *testing.T) {
	Convey("Given an open identify session", t, func() {
		deps := &mockDeps{}
		stats := mockStats{stats: map[string]interface{}{
			"started":      true,
			"sessionOpen":  true,
			"mode":         "identify",
			"captureState": "settling",
			"lastOutcome":  "no_match",
		}}
		srv := newTestServerWithStats(deps, stats)
		defer srv.Close()

		Convey("When the session status is fetched", func() {
			resp, err := http.Get(srv.URL + "/session")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the state, mode and last outcome come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["open"], ShouldEqual, true)
				So(body["mode"], ShouldEqual, "identify")
				So(body["capture_state"], ShouldEqual, "settling")
				So(body["last_outcome"], ShouldEqual, "no_match")
			})
		})
	})

	Convey("Given no open session", t, func() {
		srv := newTestServer(&mockDeps{})
		defer srv.Close()

		Convey("When the session status is fetched", func() {
			resp, err := http.Get(srv.URL + "/session")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it reports closed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["open"], ShouldEqual, false)
			})
		})
	})
}

func TestPreviewEndpoint(t *testing.T) {
	Convey("Given a session with a preview frame", t, func() {
		frame := model.NewFrame(8, 8, make([]byte, 8*8*model.BytesPerPixel), time.Now())
		deps := &mockDeps{frame: frame}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the preview is fetched", func() {
			resp, err := http.Get(srv.URL + "/session/preview")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a JPEG comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldEqual, "image/jpeg")
			})
		})
	})

	Convey("Given no open session", t, func() {
		deps := &mockDeps{frameErr: service.ErrNoSession}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the preview is fetched", func() {
			resp, err := http.Get(srv.URL + "/session/preview")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestEnrollEndpoints(t *testing.T) {
	Convey("Given an enroll session", t, func() {
		deps := &mockDeps{held: 2}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a capture succeeds", func() {
			resp, err := http.Post(srv.URL+"/session/enroll/capture", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 201 reports the held count", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["held"], ShouldEqual, float64(2))
			})
		})

		Convey("When a frame is removed by index", func() {
			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/session/enroll/1", nil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the index is forwarded", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.gotIndex, ShouldEqual, 1)
			})
		})

		Convey("When the index is not a number", func() {
			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/session/enroll/abc", nil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a submit succeeds", func() {
			resp, err := http.Post(srv.URL+"/session/enroll/submit", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 200 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given enrollment contract violations", t, func() {
		Convey("When the set is already full", func() {
			deps := &mockDeps{captureErr: enroll.ErrSetFull, held: 3}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/session/enroll/capture", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When too few frames are submitted", func() {
			deps := &mockDeps{submitErr: enroll.ErrInsufficientFrames}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/session/enroll/submit", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When the removed index does not exist", func() {
			deps := &mockDeps{removeErr: enroll.ErrIndexOutOfRange}
			srv := newTestServer(deps)
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/session/enroll/7", nil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When no face is in frame", func() {
			deps := &mockDeps{captureErr: service.ErrNoFaceDetected}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/session/enroll/capture", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 409 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestIdentificationsEndpoints(t *testing.T) {
	Convey("Given a journal with records", t, func() {
		rec := types.IdentificationRecord{ID: "a1", SubjectID: "subject-1", Distance: 0.4}
		deps := &mockDeps{recs: []types.IdentificationRecord{rec}, last: &rec}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the history is listed with a limit", func() {
			resp, err := http.Get(srv.URL + "/identifications?limit=5")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the limit is forwarded and records returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.gotLimit, ShouldEqual, 5)

				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["count"], ShouldEqual, float64(1))
			})
		})

		Convey("When the limit is malformed", func() {
			resp, err := http.Get(srv.URL + "/identifications?limit=zero")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the last match is fetched", func() {
			resp, err := http.Get(srv.URL + "/identifications/last")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the record comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got types.IdentificationRecord
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.SubjectID, ShouldEqual, "subject-1")
			})
		})
	})

	Convey("Given no identification yet", t, func() {
		deps := &mockDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the last match is fetched", func() {
			resp, err := http.Get(srv.URL + "/identifications/last")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the API", t, func() {
		srv := newTestServer(&mockDeps{})
		defer srv.Close()

		Convey("When stats are fetched", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the provider's map is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["started"], ShouldEqual, true)
			})
		})

		Convey("When health is fetched", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the metrics endpoint answers", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
