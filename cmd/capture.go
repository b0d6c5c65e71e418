package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture <session-id> <image>...",
	Short: "Process camera frames against a session",
	Long: `Process one or more image files as camera frames of a session.
Every frame is matched against the enrolled students of the session's class
and recognized students are marked present.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().Bool("json", false, "Output outcomes as JSON")
}

func runCapture(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID("session id", args[0])
	if err != nil {
		return err
	}
	asJSON := mustGetBool(cmd, "json")

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()
	for _, path := range args[1:] {
		frame, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		outcome, err := b.attendance.Capture(ctx, sessionID, frame)
		if err != nil {
			return fmt.Errorf("capture %s: %w", path, err)
		}
		if asJSON {
			if err := printJSON(outcome); err != nil {
				return err
			}
			continue
		}
		fmt.Printf("%s: %s\n", path, outcome.Message())
	}
	return nil
}
