package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FormatResults renders the batch result in the requested format: "text",
// "json", or "yaml".
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal results: %w", err)
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to marshal results: %w", err)
		}
		return string(data), nil
	case "text", "":
		return r.formatText(), nil
	default:
		return "", fmt.Errorf("unknown output format: %q", format)
	}
}

func (r *Result) formatText() string {
	var b strings.Builder
	for _, item := range r.Items {
		if !item.Result.Success {
			fmt.Fprintf(&b, "%s: FAILED (%s)\n", item.Path, item.Result.Error)
			continue
		}
		fmt.Fprintf(&b, "%s: %d object(s) in %.2fs", item.Path, item.Result.Count, item.Result.ExecutionTime)
		if item.Result.Cached {
			b.WriteString(" [cached]")
		}
		b.WriteString("\n")
		for _, d := range item.Result.Detections {
			fmt.Fprintf(&b, "  %s %.0f%% at (%d,%d %dx%d)\n",
				d.Class, d.Confidence*100, d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
		}
		if item.AnnotatedPath != "" {
			fmt.Fprintf(&b, "  annotated: %s\n", item.AnnotatedPath)
		}
	}
	return b.String()
}

// SaveResults writes the formatted results to outputFile, or stdout when
// outputFile is empty.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

// PrintStats prints the run summary to stdout.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}
	s := r.Summary
	_, _ = fmt.Fprintf(os.Stdout, "\nBatch Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Processed: %d\n", s.Processed)
	_, _ = fmt.Fprintf(os.Stdout, "  Succeeded: %d\n", s.Succeeded)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(os.Stdout, "  Objects detected: %d\n", s.TotalObjects)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(os.Stdout, "  Avg per image: %.2fs\n", s.AverageSeconds)
	if len(s.ClassCounts) > 0 {
		classes := make([]string, 0, len(s.ClassCounts))
		for class := range s.ClassCounts {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		_, _ = fmt.Fprintf(os.Stdout, "  Classes:\n")
		for _, class := range classes {
			_, _ = fmt.Fprintf(os.Stdout, "    %s: %d\n", class, s.ClassCounts[class])
		}
		_, _ = fmt.Fprintf(os.Stdout, "  Confidence: min=%.2f mean=%.2f max=%.2f\n",
			s.ConfidenceMin, s.ConfidenceMean, s.ConfidenceMax)
	}
}
