package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lookout-vision/lookout/internal/annotate"
	"github.com/lookout-vision/lookout/internal/service"
	"github.com/spf13/cobra"
)

// detectCmd runs one image through a backend and prints the result JSON.
var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect objects in a single image",
	Long: `Run a single image through the selected detection backend and print
the normalized result as JSON.

Examples:
  lookout detect photo.jpg
  lookout detect photo.jpg --backend haar
  lookout detect photo.jpg --min-confidence 0.5 --annotate out.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		svc, err := service.BuildFromConfig(cfg)
		if err != nil {
			return err
		}

		backendName := resolveBackend(cmd)
		minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
		annotatePath, _ := cmd.Flags().GetString("annotate")

		res, err := svc.Detect(cmd.Context(), args[0], backendName)
		if err != nil {
			return err
		}
		if minConfidence > 0 && res.Success {
			res = res.FilterByConfidence(minConfidence)
		}

		if annotatePath != "" && res.Success && res.Count > 0 {
			opts := annotate.DefaultOptions()
			opts.MinConfidence = minConfidence
			renderer := annotate.NewRenderer(opts)
			if err := renderer.Render(args[0], res.Detections, annotatePath); err != nil {
				return err
			}
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, string(out))

		if !res.Success {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().Float64("min-confidence", 0, "filter detections below this confidence (0..1)")
	detectCmd.Flags().String("annotate", "", "write an annotated copy to this path")
}
