package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/extractor"
)

// CaptureHandler handles camera frame submissions
type CaptureHandler struct {
	service *attendance.Service
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(service *attendance.Service) *CaptureHandler {
	return &CaptureHandler{service: service}
}

type captureRequest struct {
	SessionID int64  `json:"session_id"`
	ImageData string `json:"image_data"`
}

type captureResponse struct {
	attendance.Outcome
	Detected bool   `json:"detected"`
	Matched  bool   `json:"matched"`
	Message  string `json:"message"`
}

var errMissingImage = errors.New("missing image")

// readFrame extracts the session ID and image bytes from either a JSON body
// with base64 image_data or a multipart form with an "image" file.
func readFrame(w http.ResponseWriter, r *http.Request) (int64, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return 0, nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		sessionID, _ := strconv.ParseInt(r.FormValue("session_id"), 10, 64)

		file, _, err := r.FormFile("image")
		if err != nil {
			return sessionID, nil, errMissingImage
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
		if err != nil {
			return sessionID, nil, fmt.Errorf("failed to read image: %w", err)
		}
		return sessionID, data, nil
	}

	var req captureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return 0, nil, errors.New(errInvalidRequestBody)
	}
	if req.ImageData == "" {
		return req.SessionID, nil, errMissingImage
	}
	data, err := extractor.DecodeImageData(req.ImageData)
	if err != nil {
		return req.SessionID, nil, err
	}
	return req.SessionID, data, nil
}

// Capture processes one frame against a session. Expected results such as an
// unknown face or a duplicate are reported with 200 and a typed outcome.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	sessionID, frame, err := readFrame(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sessionID <= 0 {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	outcome, err := h.service.Capture(r.Context(), sessionID, frame)
	if err != nil {
		respondServiceError(w, "capture", err)
		return
	}
	respondJSON(w, http.StatusOK, captureResponse{
		Outcome:  outcome,
		Detected: outcome.Detected(),
		Matched:  outcome.Matched(),
		Message:  outcome.Message(),
	})
}
