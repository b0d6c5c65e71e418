package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"B002.JPG", "a001.png", "notes.txt", "c003.webp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o700); err != nil {
		t.Fatal(err)
	}

	photos, err := listPhotos(dir)
	if err != nil {
		t.Fatalf("listPhotos() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "B002.JPG"),
		filepath.Join(dir, "a001.png"),
		filepath.Join(dir, "c003.webp"),
	}
	if len(photos) != len(want) {
		t.Fatalf("expected %d photos, got %v", len(want), photos)
	}
	for i := range want {
		if photos[i] != want[i] {
			t.Errorf("photos[%d] = %q, want %q", i, photos[i], want[i])
		}
	}
}

func TestListPhotos_MissingDir(t *testing.T) {
	if _, err := listPhotos(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestStudentRef(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/photos/A001.jpg", "A001"},
		{"Jana Nováková.png", "Jana Nováková"},
		{"dir/archive.tar.gz", "archive.tar"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := studentRef(tt.path); got != tt.want {
			t.Errorf("studentRef(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID("session id", tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.arg, got, tt.want)
		}
	}
}
