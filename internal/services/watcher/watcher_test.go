package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dispatch/internal/common"
)

// fakeIngestor records every path handed to it.
type fakeIngestor struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]error
}

func (f *fakeIngestor) IngestFile(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if err, ok := f.fail[filepath.Base(path)]; ok {
		return err
	}
	return nil
}

func (f *fakeIngestor) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.paths))
	for _, p := range f.paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	return names
}

func newTestWatcher(t *testing.T, extensions []string) (*Service, string, *fakeIngestor) {
	t.Helper()
	feedDir := t.TempDir()
	ingestor := &fakeIngestor{fail: make(map[string]error)}
	svc := NewService(&common.WatcherConfig{
		FeedDir:    feedDir,
		Extensions: extensions,
	}, ingestor, arbor.NewLogger())
	return svc, feedDir, ingestor
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanIngestsMatchingArtifacts(t *testing.T) {
	svc, feedDir, ingestor := newTestWatcher(t, []string{".txt"})

	touch(t, feedDir, "a.txt")
	touch(t, feedDir, "b.txt")
	touch(t, feedDir, "notes.md")
	if err := os.Mkdir(filepath.Join(feedDir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	svc.Scan()

	got := ingestor.names()
	want := []string{"a.txt", "b.txt"}
	if len(got) != len(want) {
		t.Fatalf("ingested %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ingested %v, want %v", got, want)
			break
		}
	}
}

func TestScanContinuesPastFailures(t *testing.T) {
	svc, feedDir, ingestor := newTestWatcher(t, []string{".txt"})

	touch(t, feedDir, "bad.txt")
	touch(t, feedDir, "good.txt")
	ingestor.fail["bad.txt"] = errors.New("pipeline exploded")

	svc.Scan()

	got := ingestor.names()
	if len(got) != 2 {
		t.Fatalf("one failing artifact must not stop the scan: %v", got)
	}
}

func TestScanEmptyExtensionListAcceptsEverything(t *testing.T) {
	svc, feedDir, ingestor := newTestWatcher(t, nil)

	touch(t, feedDir, "a.txt")
	touch(t, feedDir, "b.md")

	svc.Scan()

	if len(ingestor.names()) != 2 {
		t.Errorf("empty extension list should accept all files: %v", ingestor.names())
	}
}

func TestMatchesExtensionIsCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestWatcher(t, []string{".txt", ".MD"})

	tests := []struct {
		name string
		want bool
	}{
		{"doc.txt", true},
		{"DOC.TXT", true},
		{"readme.md", true},
		{"image.png", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := svc.matchesExtension(tt.name); got != tt.want {
			t.Errorf("matchesExtension(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStartCreatesFeedDirAndStops(t *testing.T) {
	ingestor := &fakeIngestor{}
	feedDir := filepath.Join(t.TempDir(), "nested", "feed")
	svc := NewService(&common.WatcherConfig{
		FeedDir:  feedDir,
		Schedule: "0 0 * * * *", // Hourly; the test only exercises lifecycle
	}, ingestor, arbor.NewLogger())

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := os.Stat(feedDir); err != nil {
		t.Errorf("feed directory not created: %v", err)
	}
	if err := svc.Start(); err == nil {
		t.Error("second Start must fail while running")
	}

	svc.Stop()
	svc.Stop() // Stopping twice is a no-op
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	svc, _, _ := newTestWatcher(t, nil)
	svc.Stop()
}
