// Package recognition implements the HTTP client for the external face
// recognition backend.
//
// The backend owns every model decision (detection, descriptors, match
// distance); this client only moves JPEG stills over multipart uploads and
// decodes the response envelope. Capture frames travel at high JPEG
// quality; presence probes use a lower quality because the validator tick
// fires often and only needs a face count.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/pkg/logger"
)

// Default client configuration constants.
const (
	defaultBaseURL        = "http://localhost:9090"
	defaultTimeout        = 10 * time.Second
	defaultCaptureQuality = 95 // JPEG quality for identify/enroll frames
	defaultProbeQuality   = 80 // JPEG quality for presence probes

	imageField  = "image"
	imagesField = "images"
)

// DetectResult is the outcome of a face presence probe.
type DetectResult struct {
	FaceCount int `json:"face_count"`
}

// IdentifyResult is a positive identification. A no-match identify call
// yields a nil result, not an error.
type IdentifyResult struct {
	SubjectID        string  `json:"subject_id"`
	Name             string  `json:"name"`
	Distance         float64 `json:"distance"`
	MatchCount       int     `json:"match_count"`
	TotalDescriptors int     `json:"total_descriptors"`
}

// DescriptorList summarizes the descriptors on file for one subject.
type DescriptorList struct {
	Count       int               `json:"count"`
	Descriptors []json.RawMessage `json:"descriptors"`
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// identifyPayload is the identify endpoint's data body.
type identifyPayload struct {
	Matched          bool    `json:"matched"`
	SubjectID        string  `json:"subject_id"`
	Name             string  `json:"name"`
	Distance         float64 `json:"distance"`
	MatchCount       int     `json:"match_count"`
	TotalDescriptors int     `json:"total_descriptors"`
}

// Client talks to the recognition backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	captureQuality int
	probeQuality   int
	logger         logger.Logger
}

// NewClient creates a recognition client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{},
		timeout:        defaultTimeout,
		captureQuality: defaultCaptureQuality,
		probeQuality:   defaultProbeQuality,
		logger:         logger.Get().Named("recognition"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Detect submits a low-quality probe and returns the face count.
func (c *Client) Detect(ctx context.Context, frame *model.Frame) (*DetectResult, error) {
	body, contentType, err := c.encodeSingle(frame, c.probeQuality, nil)
	if err != nil {
		return nil, err
	}

	var result DetectResult
	if err := c.post(ctx, "/api/face/detect", contentType, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Identify submits a capture frame for identification. A nil result with
// a nil error means the backend answered but matched nobody; transport
// and backend failures wrap ErrTransport.
func (c *Client) Identify(ctx context.Context, frame *model.Frame) (*IdentifyResult, error) {
	body, contentType, err := c.encodeSingle(frame, c.captureQuality, nil)
	if err != nil {
		return nil, err
	}

	var payload identifyPayload
	if err := c.post(ctx, "/api/face/identify", contentType, body, &payload); err != nil {
		return nil, err
	}
	if !payload.Matched {
		return nil, nil
	}
	return &IdentifyResult{
		SubjectID:        payload.SubjectID,
		Name:             payload.Name,
		Distance:         payload.Distance,
		MatchCount:       payload.MatchCount,
		TotalDescriptors: payload.TotalDescriptors,
	}, nil
}

// Enroll uploads a completed enrollment set for one subject.
func (c *Client) Enroll(ctx context.Context, subjectID string, frameSet []*model.Frame) error {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.WriteField("subject_id", subjectID); err != nil {
		return fmt.Errorf("writing subject field: %w", err)
	}
	for i, frame := range frameSet {
		part, err := w.CreateFormFile(imagesField, "frame-"+strconv.Itoa(i)+".jpg")
		if err != nil {
			return fmt.Errorf("creating image part: %w", err)
		}
		if err := encodeJPEG(part, frame, c.captureQuality); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	return c.post(ctx, "/api/face/enroll", w.FormDataContentType(), buf, nil)
}

// ListDescriptors returns the descriptors on file for a subject.
func (c *Client) ListDescriptors(ctx context.Context, subjectID string) (*DescriptorList, error) {
	var result DescriptorList
	err := c.do(ctx, http.MethodGet, "/api/face/descriptors/"+url.PathEscape(subjectID), "", nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteDescriptor removes one descriptor by index.
func (c *Client) DeleteDescriptor(ctx context.Context, subjectID string, index int) error {
	path := "/api/face/descriptors/" + url.PathEscape(subjectID) + "/" + strconv.Itoa(index)
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

// ClearDescriptors removes every descriptor for a subject.
func (c *Client) ClearDescriptors(ctx context.Context, subjectID string) error {
	return c.do(ctx, http.MethodDelete, "/api/face/descriptors/"+url.PathEscape(subjectID), "", nil, nil)
}

// encodeSingle builds a one-image multipart body.
func (c *Client) encodeSingle(frame *model.Frame, quality int, extra map[string]string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(imageField, "frame.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("creating image part: %w", err)
	}
	if err := encodeJPEG(part, frame, quality); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// post issues a POST and decodes the envelope's data into out.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, contentType, body, out)
}

// do issues one request against the backend. A zero timeout means the
// call waits as long as the context allows.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn(ctx, "closing response body", logger.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response for %s: %v", ErrTransport, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrTransport, method, path, resp.StatusCode, snippet(raw))
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: decoding envelope for %s: %v", ErrTransport, path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: empty data for %s: %s", ErrTransport, path, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decoding data for %s: %v", ErrTransport, path, err)
	}
	return nil
}

// encodeJPEG writes the frame as a JPEG at the given quality.
func encodeJPEG(w io.Writer, frame *model.Frame, quality int) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}
	if err := jpeg.Encode(w, frame.RGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encoding frame %s: %w", frame.ID, err)
	}
	return nil
}

// snippet truncates a response body for error messages.
func snippet(raw []byte) string {
	const max = 200
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
