package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <photo-a> <photo-b>",
	Short: "Compare the faces in two photos",
	Long: `Extract the largest face of each photo and report their distance,
the resulting confidence and whether they match under the tolerance.
Only the face extractor is needed; no database connection is made.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Float64("tolerance", 0, "Match tolerance (default from FACE_RECOGNITION_TOLERANCE)")
}

func extractFile(ctx context.Context, client *extractor.Client, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sig, found, err := client.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: no face detected", path)
	}
	return sig, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	tolerance := cfg.Matching.Tolerance
	if t := mustGetFloat64(cmd, "tolerance"); t > 0 {
		tolerance = t
	}

	client := extractor.NewClient(&cfg.Extractor)
	ctx := context.Background()

	a, err := extractFile(ctx, client, args[0])
	if err != nil {
		return err
	}
	b, err := extractFile(ctx, client, args[1])
	if err != nil {
		return err
	}

	cmp := facematch.Compare(a, b, tolerance)
	fmt.Printf("Distance:   %.4f\n", cmp.Distance)
	fmt.Printf("Confidence: %.4f\n", cmp.Confidence)
	fmt.Printf("Match:      %v (tolerance %.2f)\n", cmp.Match, tolerance)
	return nil
}
