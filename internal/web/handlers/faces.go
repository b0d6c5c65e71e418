package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// FaceDetector is the part of the extractor client used by the face endpoints
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) (*extractor.FaceResponse, error)
	Extract(ctx context.Context, image []byte) ([]float32, bool, error)
	Model() string
}

// FacesHandler exposes the face helpers: detect, encode and compare
type FacesHandler struct {
	detector  FaceDetector
	tolerance float64
	dim       int
}

// NewFacesHandler creates a new faces handler. tolerance is the default
// cutoff for compare requests that do not carry their own.
func NewFacesHandler(detector FaceDetector, tolerance float64, dim int) *FacesHandler {
	return &FacesHandler{detector: detector, tolerance: tolerance, dim: dim}
}

type imageRequest struct {
	ImageData string `json:"image_data"`
}

type detectedFace struct {
	BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2] relative to the frame (0-1)
	DetScore float64   `json:"det_score"`
}

type detectResponse struct {
	Detected  bool           `json:"detected"`
	FaceCount int            `json:"face_count"`
	Faces     []detectedFace `json:"faces"`
}

type encodeResponse struct {
	Encoded  bool      `json:"encoded"`
	Encoding []float32 `json:"encoding,omitempty"`
	Model    string    `json:"model"`
	Message  string    `json:"message,omitempty"`
}

type compareRequest struct {
	Encoding1 []float32 `json:"encoding1"`
	Encoding2 []float32 `json:"encoding2"`
	Tolerance *float64  `json:"tolerance"`
}

// readImageRequest decodes {image_data} and writes a 400 on failure.
func readImageRequest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return nil, false
	}
	if req.ImageData == "" {
		respondError(w, http.StatusBadRequest, "image_data is required")
		return nil, false
	}
	data, err := extractor.DecodeImageData(req.ImageData)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image format")
		return nil, false
	}
	return data, true
}

// Detect returns the faces found in an image with relative bounding boxes
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	data, ok := readImageRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.detector.DetectFaces(r.Context(), data)
	if err != nil {
		respondServiceError(w, "detect faces", err)
		return
	}

	faces := make([]detectedFace, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, detectedFace{
			BBox:     facematch.ConvertPixelBBoxToRelative(f.BBox, resp.Width, resp.Height),
			DetScore: f.DetScore,
		})
	}
	respondJSON(w, http.StatusOK, detectResponse{
		Detected:  len(faces) > 0,
		FaceCount: len(faces),
		Faces:     faces,
	})
}

// Encode returns the signature of the largest face in an image
func (h *FacesHandler) Encode(w http.ResponseWriter, r *http.Request) {
	data, ok := readImageRequest(w, r)
	if !ok {
		return
	}

	sig, found, err := h.detector.Extract(r.Context(), data)
	if err != nil {
		respondServiceError(w, "encode face", err)
		return
	}
	if !found {
		respondJSON(w, http.StatusOK, encodeResponse{Model: h.detector.Model(), Message: "no face detected"})
		return
	}
	respondJSON(w, http.StatusOK, encodeResponse{Encoded: true, Encoding: sig, Model: h.detector.Model()})
}

// Compare computes the distance between two signatures
func (h *FacesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Encoding1) == 0 || len(req.Encoding2) == 0 {
		respondError(w, http.StatusBadRequest, "encoding1 and encoding2 are required")
		return
	}
	if len(req.Encoding1) != len(req.Encoding2) || (h.dim > 0 && len(req.Encoding1) != h.dim) {
		respondError(w, http.StatusBadRequest, "encodings must have matching dimensions")
		return
	}

	tolerance := h.tolerance
	if req.Tolerance != nil {
		if *req.Tolerance <= 0 {
			respondError(w, http.StatusBadRequest, "tolerance must be positive")
			return
		}
		tolerance = *req.Tolerance
	}

	respondJSON(w, http.StatusOK, facematch.Compare(req.Encoding1, req.Encoding2, tolerance))
}
