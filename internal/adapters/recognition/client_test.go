package recognition_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testFrame() *model.Frame {
	pix := make([]byte, 8*8*model.BytesPerPixel)
	for i := range pix {
		pix[i] = byte(i)
	}
	return model.NewFrame(8, 8, pix, time.Now())
}

func TestClientDetect(t *testing.T) {
	ctx := context.Background()

	Convey("Given a backend that reports one face", t, func() {
		var gotPath, gotField string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if _, _, err := r.FormFile("image"); err == nil {
				gotField = "image"
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"face_count":1},"message":"ok"}`))
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When a probe is submitted", func() {
			result, err := client.Detect(ctx, testFrame())

			Convey("Then the face count comes back from the detect endpoint", func() {
				So(err, ShouldBeNil)
				So(result.FaceCount, ShouldEqual, 1)
				So(gotPath, ShouldEqual, "/api/face/detect")
				So(gotField, ShouldEqual, "image")
			})
		})
	})
}

func TestClientIdentify(t *testing.T) {
	ctx := context.Background()

	Convey("Given a backend that matches a subject", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"matched":true,"subject_id":"subject-3","name":"Ana","distance":0.41,"match_count":2,"total_descriptors":3},"message":"ok"}`))
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When a frame is identified", func() {
			result, err := client.Identify(ctx, testFrame())

			Convey("Then the match details are returned", func() {
				So(err, ShouldBeNil)
				So(result, ShouldNotBeNil)
				So(result.SubjectID, ShouldEqual, "subject-3")
				So(result.Name, ShouldEqual, "Ana")
				So(result.Distance, ShouldEqual, 0.41)
				So(result.MatchCount, ShouldEqual, 2)
				So(result.TotalDescriptors, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a backend that matches nobody", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"matched":false},"message":"no match"}`))
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When a frame is identified", func() {
			result, err := client.Identify(ctx, testFrame())

			Convey("Then a nil result with a nil error distinguishes no-match from failure", func() {
				So(err, ShouldBeNil)
				So(result, ShouldBeNil)
			})
		})
	})

	Convey("Given a backend that answers 500", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When a frame is identified", func() {
			result, err := client.Identify(ctx, testFrame())

			Convey("Then the error wraps the transport sentinel", func() {
				So(result, ShouldBeNil)
				So(errors.Is(err, recognition.ErrTransport), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable backend", t, func() {
		client := recognition.NewClient(
			recognition.WithBaseURL("http://127.0.0.1:1"),
			recognition.WithTimeout(500*time.Millisecond),
		)

		Convey("When a frame is identified", func() {
			_, err := client.Identify(ctx, testFrame())

			Convey("Then the error wraps the transport sentinel", func() {
				So(errors.Is(err, recognition.ErrTransport), ShouldBeTrue)
			})
		})
	})
}

func TestClientEnroll(t *testing.T) {
	ctx := context.Background()

	Convey("Given a backend recording enroll uploads", t, func() {
		var gotSubject string
		var gotImages int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			gotSubject = r.FormValue("subject_id")
			gotImages = len(r.MultipartForm.File["images"])
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"success":true},"message":"ok"}`))
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When three frames are enrolled", func() {
			err := client.Enroll(ctx, "subject-5", []*model.Frame{testFrame(), testFrame(), testFrame()})

			Convey("Then the subject and all images arrive", func() {
				So(err, ShouldBeNil)
				So(gotSubject, ShouldEqual, "subject-5")
				So(gotImages, ShouldEqual, 3)
			})
		})
	})
}

func TestClientDescriptors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a backend with descriptor management endpoints", t, func() {
		var gotMethod, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"count":2,"descriptors":[[0.1],[0.2]]},"message":"ok"}`))
		}))
		defer srv.Close()

		client := recognition.NewClient(recognition.WithBaseURL(srv.URL))

		Convey("When listing descriptors", func() {
			list, err := client.ListDescriptors(ctx, "subject-1")

			Convey("Then the count and entries are decoded", func() {
				So(err, ShouldBeNil)
				So(list.Count, ShouldEqual, 2)
				So(list.Descriptors, ShouldHaveLength, 2)
				So(gotMethod, ShouldEqual, http.MethodGet)
				So(gotPath, ShouldEqual, "/api/face/descriptors/subject-1")
			})
		})

		Convey("When deleting one descriptor", func() {
			err := client.DeleteDescriptor(ctx, "subject-1", 1)

			Convey("Then a DELETE hits the indexed path", func() {
				So(err, ShouldBeNil)
				So(gotMethod, ShouldEqual, http.MethodDelete)
				So(gotPath, ShouldEqual, "/api/face/descriptors/subject-1/1")
			})
		})

		Convey("When clearing all descriptors", func() {
			err := client.ClearDescriptors(ctx, "subject-1")

			Convey("Then a DELETE hits the subject path", func() {
				So(err, ShouldBeNil)
				So(gotMethod, ShouldEqual, http.MethodDelete)
				So(gotPath, ShouldEqual, "/api/face/descriptors/subject-1")
			})
		})
	})
}
