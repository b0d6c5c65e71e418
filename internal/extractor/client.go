// Package extractor turns camera frames into face signatures by calling the
// face embedding server over HTTP.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const (
	defaultExtractorURL   = "http://localhost:8000"
	defaultExtractorModel = "dlib_resnet_v1" // model name for reference only
	defaultDim            = 128
)

// ErrUnavailable wraps transport and server failures of the embedding server.
var ErrUnavailable = errors.New("face extractor unavailable")

// Client computes face signatures using the embedding server
type Client struct {
	baseURL      string
	model        string
	dim          int
	resizeScale  float64
	maxImageSize int
	client       *http.Client
}

// NewClient creates a new extractor client from configuration
func NewClient(cfg *config.ExtractorConfig) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		model:        cfg.Model,
		dim:          cfg.Dim,
		resizeScale:  cfg.ResizeScale,
		maxImageSize: cfg.MaxImageSize,
		client:       &http.Client{Timeout: cfg.Timeout()},
	}
	if c.baseURL == "" {
		c.baseURL = defaultExtractorURL
	}
	if c.model == "" {
		c.model = defaultExtractorModel
	}
	if c.dim <= 0 {
		c.dim = defaultDim
	}
	return c
}

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels of the uploaded image
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
	Width      int             `json:"-"`
	Height     int             `json:"-"`
}

// postMultipartImage posts the image as a multipart form together with the
// detection scale and the expected model.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if c.resizeScale > 0 {
		if err := writer.WriteField("resize_scale", strconv.FormatFloat(c.resizeScale, 'f', -1, 64)); err != nil {
			return nil, fmt.Errorf("failed to write resize scale: %w", err)
		}
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("failed to write model: %w", err)
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
		return nil, fmt.Errorf("%w: request failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces prepares the frame and returns every face the server found in it.
// Bounding boxes refer to the prepared (possibly downscaled) frame whose size
// is reported in Width and Height.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	prepared, err := PrepareImage(imageData, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", prepared.Data)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrUnavailable, err)
	}
	if faceResp.Model != "" && faceResp.Model != c.model {
		log.Printf("Warning: extractor answered with model %q, expected %q", faceResp.Model, c.model)
	}
	faceResp.Width = prepared.Width
	faceResp.Height = prepared.Height
	return &faceResp, nil
}

// Extract returns the signature of the largest face in the frame.
// found is false when no face was detected.
func (c *Client) Extract(ctx context.Context, imageData []byte) ([]float32, bool, error) {
	resp, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, false, err
	}

	bboxes := make([][]float64, len(resp.Faces))
	for i, f := range resp.Faces {
		bboxes[i] = f.BBox
	}
	idx := facematch.LargestBBox(bboxes)
	if idx < 0 {
		if len(resp.Faces) == 0 {
			return nil, false, nil
		}
		// No usable boxes, fall back to the first reported face.
		idx = 0
	}

	sig := resp.Faces[idx].Embedding
	if len(sig) == 0 {
		return nil, false, nil
	}
	if len(sig) != c.dim {
		return nil, false, fmt.Errorf("%w: signature has %d dimensions, expected %d", ErrUnavailable, len(sig), c.dim)
	}
	return sig, true, nil
}

// Model returns the model name being used
func (c *Client) Model() string {
	return c.model
}
