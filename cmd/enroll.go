package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <photo>",
	Short: "Enroll a student's face signature from a photo",
	Long: `Enroll a student's face signature from a photo.
The largest face in the photo becomes the student's reference signature,
replacing any earlier one. Classmates that look alike are reported.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Enroll a whole class from a directory of photos",
	Long: `Enroll every photo in a directory.
Each file name (without extension) identifies the student within the class:
a student number, a database ID or the student's name.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif"}

func init() {
	rootCmd.AddCommand(enrollCmd, enrollDirCmd)

	enrollDirCmd.Flags().Int64("class", 0, "Class ID the photos belong to (required)")
	enrollDirCmd.Flags().Int("concurrency", constants.DefaultEnrollConcurrency, "Number of parallel workers")
	_ = enrollDirCmd.MarkFlagRequired("class")
}

func printLookalikes(result *enrollment.Result) {
	for _, l := range result.Lookalikes {
		fmt.Printf("  Warning: looks like %s (%s), distance %.3f\n", l.Name, l.Number, l.Distance)
	}
}

func runEnroll(cmd *cobra.Command, args []string) error {
	studentID, err := parseID("student id", args[0])
	if err != nil {
		return err
	}
	photo, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	result, err := b.enrollment.Enroll(context.Background(), studentID, photo)
	if err != nil {
		return fmt.Errorf("failed to enroll: %w", err)
	}
	fmt.Printf("Enrolled %s (%s) with model %s\n", result.Student.Name, result.Student.Number, result.Model)
	printLookalikes(result)
	return nil
}

// listPhotos returns the image files of a directory in name order.
func listPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var photos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			photos = append(photos, filepath.Join(dir, e.Name()))
		}
	}
	return photos, nil
}

// studentRef derives the student reference from a photo file name.
func studentRef(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

type enrollFailure struct {
	path string
	err  error
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	classID := mustGetInt64(cmd, "class")
	if classID <= 0 {
		return fmt.Errorf("invalid class id %d", classID)
	}
	concurrency := max(1, mustGetInt(cmd, "concurrency"))

	photos, err := listPhotos(args[0])
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		fmt.Println("No photos found")
		return nil
	}

	b, err := openBackend(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Printf("Enrolling %d photos into class %d (%d workers)\n\n", len(photos), classID, concurrency)

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	ctx := context.Background()
	var (
		mu         sync.Mutex
		enrolled   int
		failures   []enrollFailure
		lookalikes []*enrollment.Result
	)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, path := range photos {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			result, err := enrollPhoto(ctx, b, classID, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, enrollFailure{path: path, err: err})
				return
			}
			enrolled++
			if len(result.Lookalikes) > 0 {
				lookalikes = append(lookalikes, result)
			}
		})
	}
	wg.Wait()

	fmt.Printf("\n\nEnrolled: %d, failed: %d\n", enrolled, len(failures))
	for _, f := range failures {
		fmt.Printf("  %s: %v\n", filepath.Base(f.path), f.err)
	}
	for _, r := range lookalikes {
		fmt.Printf("%s (%s):\n", r.Student.Name, r.Student.Number)
		printLookalikes(r)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d photos could not be enrolled", len(failures), len(photos))
	}
	return nil
}

func enrollPhoto(ctx context.Context, b *backend, classID int64, path string) (*enrollment.Result, error) {
	student, err := b.attendance.FindStudent(ctx, classID, studentRef(path))
	if err != nil {
		return nil, err
	}
	photo, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return b.enrollment.Enroll(ctx, student.ID, photo)
}
