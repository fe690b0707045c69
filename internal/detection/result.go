package detection

import (
	"encoding/json"
	"strings"
)

// BoundingBox is an axis-aligned rectangle in source-image pixel
// coordinates, origin at the top-left corner.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clamp returns a copy of the box normalized to fit inside an image of the
// given dimensions. Negative origins are moved to zero and the extent is
// shrunk so the box never extends past the image edges.
func (b BoundingBox) Clamp(imageWidth, imageHeight int) BoundingBox {
	out := b
	if out.X < 0 {
		out.Width += out.X
		out.X = 0
	}
	if out.Y < 0 {
		out.Height += out.Y
		out.Y = 0
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	if out.X > imageWidth {
		out.X = imageWidth
	}
	if out.Y > imageHeight {
		out.Y = imageHeight
	}
	if out.X+out.Width > imageWidth {
		out.Width = imageWidth - out.X
	}
	if out.Y+out.Height > imageHeight {
		out.Height = imageHeight - out.Y
	}
	return out
}

// Detection is one located, classified object. Class vocabularies are
// backend-specific and not unified across backends. Confidence is always in
// [0,1]; adapters normalize provider scales before constructing this type.
type Detection struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"bbox"`
}

// Result is the outcome of one detection invocation. Treat as a value type:
// adapters construct it fresh per call and never mutate it afterwards.
// Cached is stamped by the detection service only; adapters never set it.
type Result struct {
	Success       bool        `json:"success"`
	Detections    []Detection `json:"detections"`
	Count         int         `json:"count"`
	Backend       string      `json:"backend"`
	ExecutionTime float64     `json:"execution_time"`
	Error         string      `json:"error,omitempty"`
	Cached        bool        `json:"cached"`
}

// NewResult constructs a successful result from a detection list.
func NewResult(backend string, detections []Detection, executionTime float64) *Result {
	if detections == nil {
		detections = []Detection{}
	}
	return &Result{
		Success:       true,
		Detections:    detections,
		Count:         len(detections),
		Backend:       backend,
		ExecutionTime: executionTime,
	}
}

// NewFailedResult constructs a failed result carrying an error message.
// Detections is empty by contract when an error is present.
func NewFailedResult(backend, errMsg string, executionTime float64) *Result {
	return &Result{
		Success:       false,
		Detections:    []Detection{},
		Backend:       backend,
		ExecutionTime: executionTime,
		Error:         errMsg,
	}
}

// FilterByConfidence returns a copy of the result containing only detections
// at or above the threshold. Count is recomputed. The receiver is unchanged.
func (r *Result) FilterByConfidence(minConfidence float64) *Result {
	out := *r
	out.Detections = make([]Detection, 0, len(r.Detections))
	for _, d := range r.Detections {
		if d.Confidence >= minConfidence {
			out.Detections = append(out.Detections, d)
		}
	}
	out.Count = len(out.Detections)
	return &out
}

// Clone returns a deep copy, used when promoting cached entries so callers
// can never alias a stored result's detection slice.
func (r *Result) Clone() *Result {
	out := *r
	out.Detections = make([]Detection, len(r.Detections))
	copy(out.Detections, r.Detections)
	return &out
}

// ClassCounts returns the per-class frequency table over all detections.
func (r *Result) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range r.Detections {
		counts[strings.ToLower(d.Class)]++
	}
	return counts
}

// Marshal serializes the result to JSON for cache storage and wire output.
func (r *Result) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal parses a serialized result, validating the minimal shape.
func Unmarshal(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	if res.Detections == nil {
		res.Detections = []Detection{}
	}
	return &res, nil
}
