package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"testing"

	"github.com/llavero/llavero/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// jpegStill renders a solid JPEG at the given size.
func jpegStill(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	buf := &bytes.Buffer{}
	_ = jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func TestDeviceOpen(t *testing.T) {
	ctx := context.Background()

	Convey("Given a device that grants only the fallback resolution", t, func() {
		grab := func(ctx context.Context, path string, w, h int) ([]byte, error) {
			if w == IdealWidth {
				return nil, fmt.Errorf("resolution refused")
			}
			return jpegStill(w, h), nil
		}
		d := NewDevice("/dev/video0", withGrabFunc(grab))

		Convey("When opened", func() {
			err := d.Open(ctx)

			Convey("Then it degrades to the minimum resolution", func() {
				So(err, ShouldBeNil)
				w, h := d.Resolution()
				So(w, ShouldEqual, MinWidth)
				So(h, ShouldEqual, MinHeight)
			})

			Convey("And a second open is a caller error", func() {
				So(errors.Is(d.Open(ctx), ErrBusy), ShouldBeTrue)
			})
		})
	})

	Convey("Given a device that refuses every resolution", t, func() {
		grab := func(ctx context.Context, path string, w, h int) ([]byte, error) {
			return nil, fmt.Errorf("no such device")
		}
		d := NewDevice("/dev/video9", withGrabFunc(grab))

		Convey("When opened", func() {
			err := d.Open(ctx)

			Convey("Then the session-fatal sentinel is returned", func() {
				So(errors.Is(err, ErrCameraUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestDeviceGrab(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open device", t, func() {
		d := NewDevice("/dev/video0", withGrabFunc(func(ctx context.Context, path string, w, h int) ([]byte, error) {
			return jpegStill(w, h), nil
		}))
		So(d.Open(ctx), ShouldBeNil)

		Convey("When a frame is grabbed", func() {
			frame, err := d.Grab(ctx)

			Convey("Then it decodes at the granted resolution", func() {
				So(err, ShouldBeNil)
				So(frame.Width, ShouldEqual, IdealWidth)
				So(frame.Height, ShouldEqual, IdealHeight)
				So(frame.Pix, ShouldHaveLength, IdealWidth*IdealHeight*4)
			})
		})

		Convey("When the device is closed", func() {
			So(d.Close(), ShouldBeNil)
			So(d.Close(), ShouldBeNil) // idempotent

			Convey("Then grabbing fails until reopened", func() {
				_, err := d.Grab(ctx)
				So(errors.Is(err, ErrNotOpen), ShouldBeTrue)

				So(d.Open(ctx), ShouldBeNil)
				_, err = d.Grab(ctx)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a closed device", t, func() {
		d := NewDevice("/dev/video0")

		Convey("Then Grab fails with ErrNotOpen", func() {
			_, err := d.Grab(ctx)
			So(errors.Is(err, ErrNotOpen), ShouldBeTrue)
		})
	})
}

func TestSynthetic(t *testing.T) {
	ctx := context.Background()

	Convey("Given a synthetic source", t, func() {
		s := NewSynthetic(64, 48)

		Convey("Then grabbing requires an open source", func() {
			_, err := s.Grab(ctx)
			So(errors.Is(err, ErrNotOpen), ShouldBeTrue)
		})

		Convey("When opened", func() {
			So(s.Open(ctx), ShouldBeNil)

			Convey("Then a second open is refused", func() {
				So(errors.Is(s.Open(ctx), ErrBusy), ShouldBeTrue)
			})

			Convey("Then consecutive grabs of a still scene are identical", func() {
				a, err := s.Grab(ctx)
				So(err, ShouldBeNil)
				b, err := s.Grab(ctx)
				So(err, ShouldBeNil)
				So(bytes.Equal(a.Pix, b.Pix), ShouldBeTrue)
				So(a.Width, ShouldEqual, 64)
				So(a.Height, ShouldEqual, 48)
			})

			Convey("Then moving the block changes the scene", func() {
				a, _ := s.Grab(ctx)
				s.MoveBlock(20, 10)
				b, _ := s.Grab(ctx)
				So(bytes.Equal(a.Pix, b.Pix), ShouldBeFalse)
			})

			Convey("Then close is idempotent and releases the device", func() {
				So(s.Close(), ShouldBeNil)
				So(s.Close(), ShouldBeNil)
				So(s.Open(ctx), ShouldBeNil)
			})
		})
	})
}
