package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/domain/types"
	"github.com/llavero/llavero/internal/pipeline/dispatch"
	"github.com/llavero/llavero/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Mock implementations for testing.
type mockQueue struct {
	frameChan chan *model.Frame
}

func newMockQueue() *mockQueue {
	return &mockQueue{frameChan: make(chan *model.Frame, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan *model.Frame {
	return mq.frameChan
}

func (mq *mockQueue) add(f *model.Frame) {
	mq.frameChan <- f
}

type mockIdentifier struct {
	mu      sync.Mutex
	results []*recognition.IdentifyResult
	errs    []error
	calls   int
}

func (mi *mockIdentifier) Identify(ctx context.Context, frame *model.Frame) (*recognition.IdentifyResult, error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	i := mi.calls
	mi.calls++
	var result *recognition.IdentifyResult
	var err error
	if i < len(mi.results) {
		result = mi.results[i]
	}
	if i < len(mi.errs) {
		err = mi.errs[i]
	}
	return result, err
}

func (mi *mockIdentifier) callCount() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.calls
}

type mockGate struct {
	mu       sync.Mutex
	finishes []bool
}

func (mg *mockGate) Finish(ctx context.Context, matched bool) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.finishes = append(mg.finishes, matched)
}

func (mg *mockGate) all() []bool {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	out := make([]bool, len(mg.finishes))
	copy(out, mg.finishes)
	return out
}

type mockJournal struct {
	mu      sync.Mutex
	records []types.IdentificationRecord
}

func (mj *mockJournal) Record(ctx context.Context, rec types.IdentificationRecord) error {
	mj.mu.Lock()
	defer mj.mu.Unlock()
	mj.records = append(mj.records, rec)
	return nil
}

func (mj *mockJournal) all() []types.IdentificationRecord {
	mj.mu.Lock()
	defer mj.mu.Unlock()
	out := make([]types.IdentificationRecord, len(mj.records))
	copy(out, mj.records)
	return out
}

func testFrame() *model.Frame {
	return model.NewFrame(1, 1, make([]byte, model.BytesPerPixel), time.Now())
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDispatcherMatched(t *testing.T) {
	Convey("Given a dispatcher over a backend that matches a subject", t, func() {
		q := newMockQueue()
		identifier := &mockIdentifier{results: []*recognition.IdentifyResult{{
			SubjectID:        "subject-1",
			Name:             "Ana",
			Distance:         0.4,
			MatchCount:       2,
			TotalDescriptors: 3,
		}}}
		gate := &mockGate{}
		journal := &mockJournal{}

		var matchedMu sync.Mutex
		var matched []types.IdentificationRecord
		d := dispatch.NewDispatcher(q, identifier, gate, journal,
			dispatch.WithOnMatch(func(rec types.IdentificationRecord) {
				matchedMu.Lock()
				matched = append(matched, rec)
				matchedMu.Unlock()
			}),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.Run(ctx)

		Convey("When a frame arrives", func() {
			frame := testFrame()
			q.add(frame)

			Convey("Then the match is journaled, surfaced and releases the gate as matched", func() {
				So(waitFor(func() bool { return len(journal.all()) == 1 }), ShouldBeTrue)

				recs := journal.all()
				So(recs[0].ID, ShouldEqual, frame.ID)
				So(recs[0].SubjectID, ShouldEqual, "subject-1")
				So(gate.all(), ShouldResemble, []bool{true})
				So(d.LastOutcome(), ShouldEqual, dispatch.OutcomeMatched)

				last := d.LastMatch()
				So(last, ShouldNotBeNil)
				So(last.SubjectID, ShouldEqual, "subject-1")

				matchedMu.Lock()
				defer matchedMu.Unlock()
				So(matched, ShouldHaveLength, 1)
			})
		})
	})
}

func TestDispatcherNoMatch(t *testing.T) {
	Convey("Given a backend that matches nobody", t, func() {
		q := newMockQueue()
		identifier := &mockIdentifier{} // nil results, nil errors
		gate := &mockGate{}
		journal := &mockJournal{}
		d := dispatch.NewDispatcher(q, identifier, gate, journal)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.Run(ctx)

		Convey("When two frames arrive back to back", func() {
			q.add(testFrame())
			q.add(testFrame())

			Convey("Then both are attempted and neither opens a cooldown", func() {
				So(waitFor(func() bool { return identifier.callCount() == 2 }), ShouldBeTrue)
				So(waitFor(func() bool { return len(gate.all()) == 2 }), ShouldBeTrue)
				So(gate.all(), ShouldResemble, []bool{false, false})
				So(journal.all(), ShouldBeEmpty)
				So(d.LastOutcome(), ShouldEqual, dispatch.OutcomeNoMatch)
				So(d.LastMatch(), ShouldBeNil)
			})
		})
	})
}

func TestDispatcherFailed(t *testing.T) {
	Convey("Given a backend that fails", t, func() {
		q := newMockQueue()
		identifier := &mockIdentifier{errs: []error{errors.New("backend down")}}
		gate := &mockGate{}
		journal := &mockJournal{}
		d := dispatch.NewDispatcher(q, identifier, gate, journal)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.Run(ctx)

		Convey("When a frame arrives", func() {
			q.add(testFrame())

			Convey("Then the attempt resolves failed and releases the gate unmatched", func() {
				So(waitFor(func() bool { return len(gate.all()) == 1 }), ShouldBeTrue)
				So(gate.all(), ShouldResemble, []bool{false})
				So(journal.all(), ShouldBeEmpty)
				So(d.LastOutcome(), ShouldEqual, dispatch.OutcomeFailed)
			})
		})
	})
}

func TestDispatcherShutdown(t *testing.T) {
	Convey("Given a running dispatcher", t, func() {
		q := newMockQueue()
		d := dispatch.NewDispatcher(q, &mockIdentifier{}, &mockGate{}, &mockJournal{})

		ctx := context.Background()
		go d.Run(ctx)

		Convey("When shut down", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := d.Shutdown(shutdownCtx)

			Convey("Then the loop stops cleanly", func() {
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a dispatcher whose queue closes", t, func() {
		q := newMockQueue()
		d := dispatch.NewDispatcher(q, &mockIdentifier{}, &mockGate{}, &mockJournal{})

		done := make(chan struct{})
		go func() {
			d.Run(context.Background())
			close(done)
		}()
		close(q.frameChan)

		Convey("Then the loop exits on its own", func() {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				So("dispatcher did not stop", ShouldBeEmpty)
			}
		})
	})
}
