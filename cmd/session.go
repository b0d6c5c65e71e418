package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage capture sessions",
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open <class-id>",
	Short: "Open a capture session for a class",
	Long: `Open a capture session for a class.
An active session of the same class is closed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionOpen,
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <session-id>",
	Short: "Close a capture session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClose,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show who is present and absent in a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStatus,
}

var sessionListCmd = &cobra.Command{
	Use:   "list <class-id>",
	Short: "List the newest sessions of a class",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionList,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionOpenCmd, sessionCloseCmd, sessionStatusCmd, sessionListCmd)

	sessionOpenCmd.Flags().String("name", "", "Session name (default \"Session\")")
	sessionOpenCmd.Flags().String("notes", "", "Free-form notes")
	sessionOpenCmd.Flags().Int64("actor", 0, "ID of the user opening the session")

	sessionStatusCmd.Flags().Bool("json", false, "Output as JSON")
	sessionListCmd.Flags().Int("limit", 10, "Maximum number of sessions to show")
	sessionListCmd.Flags().Bool("json", false, "Output as JSON")
}

// parseID parses a positive numeric argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printSession(s *database.Session) {
	state := "active"
	if !s.Active {
		state = "closed"
	}
	fmt.Printf("Session %d (%s) of class %d: %s\n", s.ID, s.Name, s.ClassID, state)
	fmt.Printf("  Started: %s\n", formatTime(&s.StartTime))
	if s.EndTime != nil {
		fmt.Printf("  Ended:   %s\n", formatTime(s.EndTime))
	}
	if s.Notes != "" {
		fmt.Printf("  Notes:   %s\n", s.Notes)
	}
}

func runSessionOpen(cmd *cobra.Command, args []string) error {
	classID, err := parseID("class id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.attendance.OpenSession(context.Background(), attendance.OpenRequest{
		ClassID: classID,
		Name:    mustGetString(cmd, "name"),
		Actor:   mustGetInt64(cmd, "actor"),
		Notes:   mustGetString(cmd, "notes"),
	})
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	printSession(session)
	return nil
}

func runSessionClose(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID("session id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.attendance.CloseSession(context.Background(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	printSession(session)
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	sessionID, err := parseID("session id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	status, err := b.attendance.SessionStatus(context.Background(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session status: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(status)
	}

	printSession(&status.Session)
	fmt.Printf("\nPresent: %d / %d (absent %d)\n\n", status.PresentCount, status.TotalStudents, status.AbsentCount)
	for _, st := range status.Students {
		mark := " "
		detail := ""
		if st.Present {
			mark = "x"
			detail = "at " + formatTime(st.TimeIn)
			if st.Manual {
				detail += " (manual)"
			} else if st.Confidence != nil {
				detail += fmt.Sprintf(" (confidence %.2f)", *st.Confidence)
			}
		}
		fmt.Printf("  [%s] %-10s %-30s %s\n", mark, st.Number, st.Name, detail)
	}
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	classID, err := parseID("class id", args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	history, err := b.attendance.History(context.Background(), classID, mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(history)
	}

	if len(history) == 0 {
		fmt.Printf("No sessions for class %d\n", classID)
		return nil
	}
	for _, s := range history {
		state := "closed"
		if s.Active {
			state = "active"
		}
		fmt.Printf("%6d  %-20s  %s  %-6s  %d present\n", s.ID, s.Name, formatTime(&s.StartTime), state, s.PresentCount)
	}
	return nil
}
