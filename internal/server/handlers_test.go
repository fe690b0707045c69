package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService returns canned results and records what it was asked.
type fakeService struct {
	res         *detection.Result
	err         error
	gotPath     string
	gotBackend  string
	backendList []string
}

func (f *fakeService) Detect(_ context.Context, imagePath, backendName string) (*detection.Result, error) {
	f.gotPath = imagePath
	f.gotBackend = backendName
	if f.err != nil {
		return nil, f.err
	}
	return f.res.Clone(), nil
}

func (f *fakeService) Backends() []string {
	if f.backendList != nil {
		return f.backendList
	}
	return []string{"haar", "yolo"}
}

func newTestServer(t *testing.T, svc *fakeService) *Server {
	t.Helper()
	srv, err := NewServer(Config{}, svc, nil)
	require.NoError(t, err)
	return srv
}

func detectionResult() *detection.Result {
	return detection.NewResult("yolo", []detection.Detection{
		{Class: "person", Confidence: 0.9, Box: detection.BoundingBox{X: 20, Y: 20, Width: 60, Height: 100}},
		{Class: "cat", Confidence: 0.3, Box: detection.BoundingBox{X: 100, Y: 40, Width: 40, Height: 40}},
	}, 0.25)
}

// multipartBody builds a multipart form with an uploaded image and extra
// string fields.
func multipartBody(t *testing.T, imageData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if imageData != nil {
		part, err := writer.CreateFormFile("image", "upload.png")
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.CreateSceneImage(320, 240)))
	return buf.Bytes()
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	rec := httptest.NewRecorder()
	srv.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	rec := httptest.NewRecorder()
	srv.healthHandler(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBackendsHandler(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	rec := httptest.NewRecorder()
	srv.backendsHandler(rec, httptest.NewRequest(http.MethodGet, "/backends", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BackendsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"haar", "yolo"}, resp.Backends)
	assert.Equal(t, "yolo", resp.Default)
	assert.Equal(t, 2, resp.Count)
}

func TestDetectHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, httptest.NewRequest(http.MethodGet, "/detect", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDetectHandler_NoImageField(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	body, contentType := multipartBody(t, nil, map[string]string{"backend": "yolo"})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "No image file")
}

func TestDetectHandler_UndecodableImage(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	body, contentType := multipartBody(t, []byte("definitely not an image"), nil)
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "Invalid image format")
}

func TestDetectHandler_InvalidMinConfidence(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	for _, v := range []string{"abc", "-0.5", "1.5"} {
		body, contentType := multipartBody(t, pngBytes(t), map[string]string{"min_confidence": v})
		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", contentType)

		rec := httptest.NewRecorder()
		srv.detectHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "min_confidence=%s must be rejected", v)
	}
}

func TestDetectHandler_UnknownBackendIs400(t *testing.T) {
	svc := &fakeService{err: detection.ErrUnknownBackend}
	srv := newTestServer(t, svc)

	body, contentType := multipartBody(t, pngBytes(t), map[string]string{"backend": "nope"})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "nope", svc.gotBackend)
}

func TestDetectHandler_Success(t *testing.T) {
	svc := &fakeService{res: detectionResult()}
	srv := newTestServer(t, svc)

	body, contentType := multipartBody(t, pngBytes(t), map[string]string{"min_confidence": "0"})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Empty(t, resp.AnnotatedImage)

	// The default backend is used when none is given, and the upload lands
	// in a temp file named after its decoded format.
	assert.Equal(t, "yolo", svc.gotBackend)
	assert.Equal(t, ".png", filepath.Ext(svc.gotPath))
	assert.True(t, strings.Contains(filepath.Base(svc.gotPath), "lookout-upload-"))
}

func TestDetectHandler_MinConfidenceFiltersResponse(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	body, contentType := multipartBody(t, pngBytes(t), map[string]string{"min_confidence": "0.5"})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "person", resp.Detections[0].Class)
}

func TestDetectHandler_DetectionFailureIs200(t *testing.T) {
	srv := newTestServer(t, &fakeService{
		res: detection.NewFailedResult("yolo", "process timed out", 0),
	})

	body, contentType := multipartBody(t, pngBytes(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "detection failure is a well-formed response, not a request error")
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "process timed out", resp.Error)
}

func TestDetectHandler_DrawBoxes(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	body, contentType := multipartBody(t, pngBytes(t), map[string]string{
		"draw_boxes":     "true",
		"min_confidence": "0.5",
	})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AnnotatedImage)

	decoded, err := base64.StdEncoding.DecodeString(resp.AnnotatedImage)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestDetectHandler_NoBoxesForEmptyFilteredResult(t *testing.T) {
	srv := newTestServer(t, &fakeService{res: detectionResult()})

	body, contentType := multipartBody(t, pngBytes(t), map[string]string{
		"draw_boxes":     "true",
		"min_confidence": "0.99",
	})
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.AnnotatedImage)
}

func TestWriteUploadTemp_FormatNaming(t *testing.T) {
	path, cleanup, err := writeUploadTemp([]byte("data"), "photo.bin", "jpeg")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, ".jpg", filepath.Ext(path))
}

func TestWriteUploadTemp_FallsBackToOriginalExt(t *testing.T) {
	path, cleanup, err := writeUploadTemp([]byte("data"), "photo.png", "tiff")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, ".png", filepath.Ext(path))
}
