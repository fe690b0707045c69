package backend

import (
	"encoding/json"
	"fmt"

	"github.com/lookout-vision/lookout/internal/detection"
)

// processOutput is the JSON document every local detection process prints
// to stdout: exactly one document, exit 0 on success, diagnostic on stderr
// and nonzero exit on failure.
type processOutput struct {
	Success    bool               `json:"success"`
	Detections []processDetection `json:"detections"`
	Count      int                `json:"count"`
	Error      string             `json:"error"`
}

type processDetection struct {
	Class      string                `json:"class"`
	Confidence float64               `json:"confidence"`
	Box        detection.BoundingBox `json:"bbox"`
}

// parseProcessOutput decodes subprocess stdout into detections. Unparseable
// output is a protocol error carrying a truncated excerpt of the raw bytes;
// so is a document that reports success:false (the process should have
// exited nonzero, but a well-formed error field is honored either way).
func parseProcessOutput(command string, raw []byte) ([]detection.Detection, error) {
	var out processOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &detection.ProcessError{
			Command:  command,
			ExitCode: 0,
			Output:   detection.TruncateOutput(fmt.Sprintf("unparseable output: %s", raw), 200),
		}
	}
	if !out.Success {
		return nil, &detection.ProcessError{
			Command:  command,
			ExitCode: 0,
			Output:   detection.TruncateOutput(out.Error, 200),
		}
	}
	dets := make([]detection.Detection, 0, len(out.Detections))
	for _, d := range out.Detections {
		dets = append(dets, detection.Detection{
			Class:      d.Class,
			Confidence: d.Confidence,
			Box:        d.Box,
		})
	}
	return dets, nil
}
