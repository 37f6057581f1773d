// Package camera provides frame sources for the capture pipeline.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/pkg/logger"
	"github.com/llavero/llavero/pkg/metrics"
)

// defaultGrabTimeout bounds a single still capture from the device.
const defaultGrabTimeout = 2 * time.Second

// grabFunc captures one JPEG still at the given resolution. Split out so
// tests can run without hardware.
type grabFunc func(ctx context.Context, devicePath string, width, height int) ([]byte, error)

// Device is a Source backed by a V4L2 device. Each grab shells out to
// ffmpeg for a single still; the kiosk's motion tick is slow enough that
// per-grab process cost does not matter.
type Device struct {
	path        string
	idealW      int
	idealH      int
	minW        int
	minH        int
	grabTimeout time.Duration
	grab        grabFunc

	mu       sync.Mutex
	open     bool
	grantedW int
	grantedH int

	logger logger.Logger
}

// NewDevice creates a device source with configuration options.
func NewDevice(path string, opts ...DeviceOption) *Device {
	d := &Device{
		path:        path,
		idealW:      IdealWidth,
		idealH:      IdealHeight,
		minW:        MinWidth,
		minH:        MinHeight,
		grabTimeout: defaultGrabTimeout,
		grab:        ffmpegGrab,
		logger:      logger.Get().Named("camera"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Open acquires the device, trying the ideal resolution first and
// degrading to the minimum before giving up.
func (d *Device) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return ErrBusy
	}

	for _, res := range [][2]int{{d.idealW, d.idealH}, {d.minW, d.minH}} {
		grabCtx, cancel := context.WithTimeout(ctx, d.grabTimeout)
		_, err := d.grab(grabCtx, d.path, res[0], res[1])
		cancel()
		if err == nil {
			d.grantedW, d.grantedH = res[0], res[1]
			d.open = true
			d.logger.Info(ctx, "camera opened",
				logger.String("device", d.path),
				logger.Int("width", res[0]),
				logger.Int("height", res[1]),
			)
			return nil
		}
		d.logger.Warn(ctx, "resolution probe failed",
			logger.String("device", d.path),
			logger.Int("width", res[0]),
			logger.Int("height", res[1]),
			logger.Error(err),
		)
	}

	return fmt.Errorf("%w: %s", ErrCameraUnavailable, d.path)
}

// Grab captures one still frame at the granted resolution.
func (d *Device) Grab(ctx context.Context) (*model.Frame, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, ErrNotOpen
	}
	w, h := d.grantedW, d.grantedH
	d.mu.Unlock()

	grabCtx, cancel := context.WithTimeout(ctx, d.grabTimeout)
	defer cancel()

	raw, err := d.grab(grabCtx, d.path, w, h)
	if err != nil {
		metrics.RecordFrameGrabError()
		return nil, fmt.Errorf("grabbing still from %s: %w", d.path, err)
	}

	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		metrics.RecordFrameGrabError()
		return nil, fmt.Errorf("decoding still from %s: %w", d.path, err)
	}

	metrics.RecordFrameGrabbed()
	return model.FromImage(img, time.Now()), nil
}

// Resolution returns the granted resolution.
func (d *Device) Resolution() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grantedW, d.grantedH
}

// Close releases the device. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// ffmpegGrab captures a single JPEG still via ffmpeg's v4l2 input.
func ffmpegGrab(ctx context.Context, devicePath string, width, height int) ([]byte, error) {
	size := strconv.Itoa(width) + "x" + strconv.Itoa(height)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-loglevel", "error",
		"-f", "v4l2",
		"-video_size", size,
		"-i", devicePath,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg %s: %w: %s", size, err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg %s: empty capture", size)
	}
	return stdout.Bytes(), nil
}
