// Package enroll accumulates capture frames for one subject's enrollment.
package enroll

import (
	"context"
	"fmt"

	"github.com/llavero/llavero/internal/domain/model"
)

// defaultRequired is how many reference photos one enrollment needs.
const defaultRequired = 3

// Enroller submits a completed frame set to the recognition backend.
type Enroller interface {
	Enroll(ctx context.Context, subjectID string, frames []*model.Frame) error
}

// Collector holds the ordered frame set for one enrollment dialog. It is
// not safe for concurrent use; callers must serialize Add, Remove and
// Submit.
type Collector struct {
	subjectID string
	required  int
	frames    []*model.Frame
	enroller  Enroller
}

// NewCollector creates an empty collector for one subject with
// configuration options.
func NewCollector(subjectID string, enroller Enroller, opts ...Option) *Collector {
	c := &Collector{
		subjectID: subjectID,
		required:  defaultRequired,
		enroller:  enroller,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.frames = make([]*model.Frame, 0, c.required)
	return c
}

// Add appends a captured frame. The set never exceeds the required count.
func (c *Collector) Add(frame *model.Frame) error {
	if len(c.frames) >= c.required {
		return fmt.Errorf("%w: %d frames already held", ErrSetFull, c.required)
	}
	c.frames = append(c.frames, frame)
	return nil
}

// Remove deletes the frame at index, shifting later frames down.
func (c *Collector) Remove(index int) error {
	if index < 0 || index >= len(c.frames) {
		return fmt.Errorf("%w: index %d, %d frames held", ErrIndexOutOfRange, index, len(c.frames))
	}
	c.frames = append(c.frames[:index], c.frames[index+1:]...)
	return nil
}

// Ready reports whether exactly the required number of frames is held.
func (c *Collector) Ready() bool {
	return len(c.frames) == c.required
}

// Count returns the number of frames currently held.
func (c *Collector) Count() int {
	return len(c.frames)
}

// Required returns the frame count a submission needs.
func (c *Collector) Required() int {
	return c.required
}

// SubjectID returns the subject this collector enrolls.
func (c *Collector) SubjectID() string {
	return c.subjectID
}

// Frames returns a copy of the held set in capture order.
func (c *Collector) Frames() []*model.Frame {
	out := make([]*model.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

// Submit sends the completed set to the backend. On success the set is
// cleared; on failure it is left intact so the caller can retry without
// recapturing.
func (c *Collector) Submit(ctx context.Context) error {
	if !c.Ready() {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFrames, len(c.frames), c.required)
	}
	if err := c.enroller.Enroll(ctx, c.subjectID, c.Frames()); err != nil {
		return fmt.Errorf("submitting enrollment for %s: %w", c.subjectID, err)
	}
	c.Clear()
	return nil
}

// Clear drops all held frames.
func (c *Collector) Clear() {
	c.frames = c.frames[:0]
}
