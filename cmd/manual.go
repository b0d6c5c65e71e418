package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var manualCmd = &cobra.Command{
	Use:   "manual <session-id> <student>",
	Short: "Mark a student present without a face match",
	Long: `Mark a student present in a session by hand.
The student may be given as student number, database ID or name; names are
matched without regard to case or diacritics.`,
	Args: cobra.ExactArgs(2),
	RunE: runManual,
}

func init() {
	rootCmd.AddCommand(manualCmd)
	manualCmd.Flags().String("notes", "", "Reason for the manual entry")
}

func runManual(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID("session id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()
	session, err := b.attendance.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	student, err := b.attendance.FindStudent(ctx, session.ClassID, args[1])
	if err != nil {
		return err
	}

	outcome, err := b.attendance.ManualRecord(ctx, student.ID, sessionID, mustGetString(cmd, "notes"))
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}
	if outcome.AlreadyExists() {
		fmt.Printf("%s (%s) was already marked present at %s\n",
			student.Name, student.Number, formatTime(&outcome.Fact.Timestamp))
		return nil
	}
	fmt.Printf("%s (%s) marked present in session %d\n", student.Name, student.Number, sessionID)
	return nil
}
