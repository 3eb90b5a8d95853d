// Package recognizer is the client for the external face encoder sidecar.
// The sidecar turns an image into zero or more fixed-length descriptors with
// bounding geometry; everything downstream treats it as an opaque oracle.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultBaseURL = "http://localhost:8001"

var (
	// ErrUnavailable means the sidecar could not be reached at all.
	ErrUnavailable = errors.New("encoder service unavailable")
	// ErrTimeout means the sidecar did not answer within the configured deadline.
	ErrTimeout = errors.New("encoder call timed out")
	// ErrProcessing means the sidecar answered but failed to process the image.
	ErrProcessing = errors.New("encoder processing failed")
	// ErrNoFace is returned by Register when the image does not contain exactly one face.
	ErrNoFace = errors.New("no usable face in image")
)

// Box is the bounding geometry of a detection, in the sidecar's relative
// coordinates. It is passed through to clients unchanged for overlays.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one face found in a frame.
type Detection struct {
	Descriptor []float32 `json:"encoding"`
	Box        Box       `json:"bounding_box"`
	Confidence float64   `json:"confidence"`
}

// Enrollment is the sidecar's answer for a registration image, which must
// contain exactly one face.
type Enrollment struct {
	Descriptor []float32
	Box        Box
	Confidence float64
	Quality    string
}

// Encoder is the capability the streaming core depends on. Detect returns
// an empty slice for "no face detected" — that is not an error.
type Encoder interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Client talks to the encoder sidecar over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the sidecar at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// recognizeResponse mirrors the sidecar's /recognize payload.
type recognizeResponse struct {
	Success bool        `json:"success"`
	Faces   []Detection `json:"faces"`
	Error   string      `json:"error"`
}

// registerResponse mirrors the sidecar's /register payload.
type registerResponse struct {
	Success     bool      `json:"success"`
	Encoding    []float32 `json:"encoding"`
	Confidence  float64   `json:"confidence"`
	Quality     string    `json:"image_quality"`
	BoundingBox Box       `json:"bounding_box"`
	Error       string    `json:"error"`
}

// postMultipartImage posts the image as a multipart form to the given
// endpoint and classifies transport failures into the package error kinds.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, extra map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	for key, value := range extra {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProcessing, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// Detect sends a frame to /recognize and returns every detected face with
// its descriptor and geometry. Zero faces is a valid, empty result.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	body, err := c.postMultipartImage(ctx, "/recognize", image, nil)
	if err != nil {
		return nil, err
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", ErrProcessing, parsed.Error)
	}

	return parsed.Faces, nil
}

// Register sends an enrollment image to /register. The sidecar enforces the
// exactly-one-face contract; its refusal maps to ErrNoFace.
func (c *Client) Register(ctx context.Context, image []byte, name string) (Enrollment, error) {
	body, err := c.postMultipartImage(ctx, "/register", image, map[string]string{"name": name})
	if err != nil {
		if errors.Is(err, ErrProcessing) {
			return Enrollment{}, fmt.Errorf("%w: %v", ErrNoFace, err)
		}
		return Enrollment{}, err
	}

	var parsed registerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Enrollment{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if !parsed.Success || len(parsed.Encoding) == 0 {
		return Enrollment{}, fmt.Errorf("%w: %s", ErrNoFace, parsed.Error)
	}

	return Enrollment{
		Descriptor: parsed.Encoding,
		Box:        parsed.BoundingBox,
		Confidence: parsed.Confidence,
		Quality:    parsed.Quality,
	}, nil
}

// Healthy probes the sidecar's /health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
