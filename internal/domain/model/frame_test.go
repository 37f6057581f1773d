package model_test

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/llavero/llavero/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFrame(t *testing.T) {
	Convey("Given a frame built from a raw buffer", t, func() {
		ts := time.Now()
		pix := make([]byte, 4*4*model.BytesPerPixel)
		f := model.NewFrame(4, 4, pix, ts)

		Convey("Then it should carry its dimensions and timestamp", func() {
			So(f.Width, ShouldEqual, 4)
			So(f.Height, ShouldEqual, 4)
			So(f.Timestamp, ShouldEqual, ts)
			So(f.ID, ShouldNotBeEmpty)
		})

		Convey("Then RGBA should wrap the buffer without copying", func() {
			img := f.RGBA()
			So(img.Stride, ShouldEqual, 4*model.BytesPerPixel)
			So(img.Rect.Dx(), ShouldEqual, 4)
			So(img.Rect.Dy(), ShouldEqual, 4)

			img.Pix[0] = 0xff
			So(f.Pix[0], ShouldEqual, byte(0xff))
		})

		Convey("Then distinct frames should get distinct ids", func() {
			other := model.NewFrame(4, 4, pix, ts)
			So(other.ID, ShouldNotEqual, f.ID)
		})
	})

	Convey("Given a frame converted from a non-RGBA image", t, func() {
		src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		src.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		src.Set(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

		f := model.FromImage(src, time.Now())

		Convey("Then the pixel buffer should have RGBA layout", func() {
			So(len(f.Pix), ShouldEqual, 2*2*model.BytesPerPixel)
			So(f.Pix[0], ShouldEqual, byte(10))
			So(f.Pix[1], ShouldEqual, byte(20))
			So(f.Pix[2], ShouldEqual, byte(30))
		})
	})
}

func TestMotionSample(t *testing.T) {
	Convey("Given motion samples", t, func() {
		Convey("When no pixels were sampled", func() {
			s := model.MotionSample{ChangedPixels: 0, TotalPixels: 0}

			Convey("Then fraction is zero and no motion is reported", func() {
				So(s.Fraction(), ShouldEqual, 0)
				So(s.Motion(0.07), ShouldBeFalse)
			})
		})

		Convey("When the changed fraction is above the threshold", func() {
			s := model.MotionSample{ChangedPixels: 71, TotalPixels: 1000}

			Convey("Then motion is reported", func() {
				So(s.Motion(0.07), ShouldBeTrue)
			})
		})

		Convey("When the changed fraction equals the threshold", func() {
			s := model.MotionSample{ChangedPixels: 70, TotalPixels: 1000}

			Convey("Then motion is not reported (strictly greater)", func() {
				So(s.Motion(0.07), ShouldBeFalse)
			})
		})

		Convey("When the changed fraction is below the threshold", func() {
			s := model.MotionSample{ChangedPixels: 69, TotalPixels: 1000}

			Convey("Then motion is not reported", func() {
				So(s.Motion(0.07), ShouldBeFalse)
			})
		})
	})
}
