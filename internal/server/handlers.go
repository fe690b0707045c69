package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lookout-vision/lookout/internal/imageio"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// backendsHandler lists the registered detection backends.
func (s *Server) backendsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := s.service.Backends()
	response := BackendsResponse{
		Backends: names,
		Default:  s.defaultBackend,
		Count:    len(names),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding backends response: %v\n", err)
	}
}

// detectHandler processes single-image detection requests.
//
// Detection failures are reported in the JSON body with success:false and
// HTTP 200; only request malformation (missing file, undecodable image,
// unknown backend, bad parameters) produces a 400.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}

	uploadSizeBytes.Observe(float64(len(imageData)))

	img, format, err := imageio.Decode(imageData)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	backendName := r.FormValue("backend")
	if backendName == "" {
		backendName = s.defaultBackend
	}

	minConfidence := 0.25
	if v := r.FormValue("min_confidence"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			s.writeErrorResponse(w, "min_confidence must be a number between 0.0 and 1.0", http.StatusBadRequest)
			return
		}
		minConfidence = parsed
	}
	drawBoxes := r.FormValue("draw_boxes") == "true"

	// The service works on files, so the upload lands in a temp file named
	// after the decoded format.
	tmpPath, cleanup, err := writeUploadTemp(imageData, header.Filename, format)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	start := time.Now()
	res, err := s.service.Detect(r.Context(), tmpPath, backendName)
	if err != nil {
		// Pre-adapter validation failures are request malformation.
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		recordDetection(backendName, "rejected", time.Since(start))
		return
	}

	status := "success"
	if !res.Success {
		status = "failure"
	}
	recordDetection(backendName, status, time.Since(start))
	if res.Cached {
		cacheHits.WithLabelValues(backendName).Inc()
	}
	detectionsFound.WithLabelValues(backendName).Observe(float64(res.Count))

	filtered := res.FilterByConfidence(minConfidence)
	response := DetectResponse{Result: filtered}

	if drawBoxes && filtered.Success && filtered.Count > 0 {
		annotated := s.renderer.RenderImage(img, filtered.Detections)
		var buf bytes.Buffer
		if err := png.Encode(&buf, annotated); err == nil {
			response.AnnotatedImage = base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding detect response: %v\n", err)
	}
}

// writeUploadTemp persists upload bytes to a temp file whose extension
// matches the decoded format so downstream path checks accept it.
func writeUploadTemp(data []byte, filename, format string) (string, func(), error) {
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	if !imageio.IsSupportedImage("upload" + ext) {
		ext = filepath.Ext(filename)
	}

	f, err := os.CreateTemp("", "lookout-upload-*"+ext)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// writeErrorResponse writes a JSON error envelope.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
