package cmd

import (
	"github.com/lookout-vision/lookout/internal/annotate"
	"github.com/lookout-vision/lookout/internal/batch"
	"github.com/lookout-vision/lookout/internal/service"
	"github.com/spf13/cobra"
)

// batchCmd processes directories or file lists of images.
var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Detect objects in a batch of images",
	Long: `Process every image under the given paths through the selected
backend. A failure on one image never aborts the rest; the run ends with
aggregate statistics over all items.

Examples:
  lookout batch ./photos
  lookout batch ./photos --recursive --backend haar
  lookout batch a.jpg b.jpg c.jpg --annotated-dir ./out --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		svc, err := service.BuildFromConfig(cfg)
		if err != nil {
			return err
		}

		bCfg := batch.DefaultConfig()
		bCfg.Backend = resolveBackend(cmd)
		bCfg.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
		bCfg.AnnotatedDir, _ = cmd.Flags().GetString("annotated-dir")
		bCfg.Recursive, _ = cmd.Flags().GetBool("recursive")
		bCfg.Format, _ = cmd.Flags().GetString("format")
		bCfg.OutputFile, _ = cmd.Flags().GetString("output")
		bCfg.Quiet, _ = cmd.Flags().GetBool("quiet")
		bCfg.ShowStats, _ = cmd.Flags().GetBool("stats")
		if patterns, _ := cmd.Flags().GetStringSlice("include"); len(patterns) > 0 {
			bCfg.IncludePatterns = patterns
		}
		bCfg.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")

		opts := annotate.DefaultOptions()
		opts.MinConfidence = bCfg.MinConfidence
		orch := batch.NewOrchestrator(svc, annotate.NewRenderer(opts))

		result, err := orch.Process(cmd.Context(), args, bCfg)
		if err != nil {
			return err
		}

		if err := result.SaveResults(bCfg.Format, bCfg.OutputFile, bCfg.Quiet); err != nil {
			return err
		}
		if bCfg.ShowStats {
			result.PrintStats(bCfg.Quiet)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Float64("min-confidence", 0.25, "filter detections below this confidence (0..1)")
	batchCmd.Flags().String("annotated-dir", "", "write annotated copies into this directory")
	batchCmd.Flags().BoolP("recursive", "r", false, "recurse into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "include glob patterns (default: common raster extensions)")
	batchCmd.Flags().StringSlice("exclude", nil, "exclude glob patterns")
	batchCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	batchCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress non-result output")
	batchCmd.Flags().Bool("stats", false, "print summary statistics")
}
