package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <student-id>",
	Short: "Show a student's attendance over a period",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().Int64("class", 0, "Class ID (default: the student's class)")
	summaryCmd.Flags().Int("days", 30, "Look-back period in days")
	summaryCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSummary(cmd *cobra.Command, args []string) error {
	studentID, err := parseID("student id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	summary, err := b.attendance.StudentSummary(context.Background(), studentID,
		mustGetInt64(cmd, "class"), mustGetInt(cmd, "days"))
	if err != nil {
		return fmt.Errorf("failed to build summary: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(summary)
	}

	fmt.Printf("Student %d, class %d, last %d days\n", summary.StudentID, summary.ClassID, summary.PeriodDays)
	fmt.Printf("  Sessions:       %d\n", summary.TotalSessions)
	fmt.Printf("  Present:        %d\n", summary.PresentCount)
	fmt.Printf("  Absent:         %d\n", summary.AbsentCount)
	fmt.Printf("  Attendance:     %.1f%%\n", summary.AttendanceRate)
	fmt.Printf("  Avg confidence: %.2f\n", summary.AvgConfidence)
	return nil
}
