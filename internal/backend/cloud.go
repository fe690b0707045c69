package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/imageio"
)

// CloudConfig configures a cloud vision adapter.
type CloudConfig struct {
	Endpoint string
	APIKey   string
	// MinConfidence is applied client-side after normalization so behavior
	// is consistent regardless of provider-side defaults.
	MinConfidence float64
	// Timeout bounds the HTTP request; independent of (and typically
	// shorter than) the subprocess timeout used by local backends.
	Timeout time.Duration
}

func (c *CloudConfig) applyDefaults() {
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.25
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// cloudRequest is the upload body both providers accept.
type cloudRequest struct {
	Image         string  `json:"image"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// postImage uploads base64 image bytes and returns the raw response body.
// Non-2xx statuses become *detection.RemoteError with enough provider
// detail to tell auth failures from quota exhaustion from transient faults.
func postImage(ctx context.Context, client *http.Client, provider string,
	cfg CloudConfig, imageData []byte,
) ([]byte, error) {
	body, err := json.Marshal(cloudRequest{
		Image:         base64.StdEncoding.EncodeToString(imageData),
		MinConfidence: cfg.MinConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &detection.RemoteError{Provider: provider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &detection.RemoteError{Provider: provider, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &detection.RemoteError{Provider: provider, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &detection.RemoteError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Detail:     remoteDetail(resp.StatusCode, respBody),
		}
	}
	return respBody, nil
}

func remoteDetail(status int, body []byte) string {
	detail := detection.TruncateOutput(string(body), 200)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication failed, check credentials: " + detail
	case http.StatusTooManyRequests:
		return "quota exhausted, back off: " + detail
	default:
		return detail
	}
}

// fractionToPixels converts a fractional coordinate to an absolute pixel
// value against the given dimension.
func fractionToPixels(f float64, dim int) int {
	return int(math.Round(f * float64(dim)))
}

// CloudA calls the corner-fraction vision provider: bounding boxes arrive
// as two opposite corners expressed as fractions of image width/height, and
// confidences are already in [0,1].
type CloudA struct {
	cfg    CloudConfig
	client *http.Client
}

// NewCloudA constructs the adapter.
func NewCloudA(cfg CloudConfig) (*CloudA, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cloud-a adapter: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cloud-a adapter: api key is required")
	}
	cfg.applyDefaults()
	return &CloudA{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Name implements Adapter.
func (a *CloudA) Name() string { return NameCloudA }

type cloudAResponse struct {
	Objects []struct {
		Name   string  `json:"name"`
		Score  float64 `json:"score"`
		Bounds struct {
			XMin float64 `json:"x_min"`
			YMin float64 `json:"y_min"`
			XMax float64 `json:"x_max"`
			YMax float64 `json:"y_max"`
		} `json:"bounds"`
	} `json:"objects"`
}

// Detect implements Adapter. The image's pixel dimensions come from a local
// pre-flight probe, never from the API response.
func (a *CloudA) Detect(ctx context.Context, imagePath string) (*detection.Result, error) {
	meta, err := imageio.Probe(imagePath)
	if err != nil {
		return nil, err
	}
	imageData, err := imageio.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	respBody, err := postImage(ctx, a.client, a.Name(), a.cfg, imageData)
	if err != nil {
		return nil, err
	}

	var parsed cloudAResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &detection.RemoteError{
			Provider: a.Name(),
			Detail:   detection.TruncateOutput(string(respBody), 200),
			Err:      fmt.Errorf("unparseable response: %w", err),
		}
	}

	dets := make([]detection.Detection, 0, len(parsed.Objects))
	for _, obj := range parsed.Objects {
		if obj.Score < a.cfg.MinConfidence {
			continue
		}
		box := detection.BoundingBox{
			X:      fractionToPixels(obj.Bounds.XMin, meta.Width),
			Y:      fractionToPixels(obj.Bounds.YMin, meta.Height),
			Width:  fractionToPixels(obj.Bounds.XMax-obj.Bounds.XMin, meta.Width),
			Height: fractionToPixels(obj.Bounds.YMax-obj.Bounds.YMin, meta.Height),
		}
		dets = append(dets, detection.Detection{
			Class:      strings.ToLower(obj.Name),
			Confidence: obj.Score,
			Box:        box.Clamp(meta.Width, meta.Height),
		})
	}
	return detection.NewResult(a.Name(), dets, time.Since(start).Seconds()), nil
}

// CloudB calls the label-list vision provider: bounding boxes arrive as
// top-left plus width/height fractions and confidences on a 0-100 scale,
// normalized here to [0,1].
type CloudB struct {
	cfg    CloudConfig
	client *http.Client
}

// NewCloudB constructs the adapter.
func NewCloudB(cfg CloudConfig) (*CloudB, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cloud-b adapter: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cloud-b adapter: api key is required")
	}
	cfg.applyDefaults()
	return &CloudB{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Name implements Adapter.
func (b *CloudB) Name() string { return NameCloudB }

type cloudBResponse struct {
	Labels []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
		Box        struct {
			Left   float64 `json:"left"`
			Top    float64 `json:"top"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"box"`
	} `json:"labels"`
}

// Detect implements Adapter.
func (b *CloudB) Detect(ctx context.Context, imagePath string) (*detection.Result, error) {
	meta, err := imageio.Probe(imagePath)
	if err != nil {
		return nil, err
	}
	imageData, err := imageio.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	respBody, err := postImage(ctx, b.client, b.Name(), b.cfg, imageData)
	if err != nil {
		return nil, err
	}

	var parsed cloudBResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &detection.RemoteError{
			Provider: b.Name(),
			Detail:   detection.TruncateOutput(string(respBody), 200),
			Err:      fmt.Errorf("unparseable response: %w", err),
		}
	}

	dets := make([]detection.Detection, 0, len(parsed.Labels))
	for _, label := range parsed.Labels {
		confidence := label.Confidence / 100.0
		if confidence < b.cfg.MinConfidence {
			continue
		}
		box := detection.BoundingBox{
			X:      fractionToPixels(label.Box.Left, meta.Width),
			Y:      fractionToPixels(label.Box.Top, meta.Height),
			Width:  fractionToPixels(label.Box.Width, meta.Width),
			Height: fractionToPixels(label.Box.Height, meta.Height),
		}
		dets = append(dets, detection.Detection{
			Class:      strings.ToLower(label.Name),
			Confidence: confidence,
			Box:        box.Clamp(meta.Width, meta.Height),
		})
	}
	return detection.NewResult(b.Name(), dets, time.Since(start).Seconds()), nil
}
