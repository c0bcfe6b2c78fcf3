package quotereel

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestGallery(t *testing.T) (*Gallery, string, *Store) {
	t.Helper()
	dir := t.TempDir()
	store := setupTestStore(t)
	return NewGallery(dir, store, time.Hour), dir, store
}

func writeGalleryFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("frames"), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestGalleryListsOnlyVideos(t *testing.T) {
	g, dir, _ := setupTestGallery(t)
	writeGalleryFile(t, dir, "one.avi")
	writeGalleryFile(t, dir, "two.avi")
	writeGalleryFile(t, dir, "notes.txt")

	videos, err := g.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d entries, want 2 (extension filter)", len(videos))
	}
	for _, v := range videos {
		if v.SizeMB <= 0 {
			t.Errorf("%s has non-positive size", v.Filename)
		}
		if v.Created == "" {
			t.Errorf("%s has no creation time", v.Filename)
		}
	}
}

func TestGalleryMergesStoreMetadata(t *testing.T) {
	g, dir, store := setupTestGallery(t)
	writeGalleryFile(t, dir, "clip.avi")
	if err := store.SaveVideo(VideoMeta{Filename: "clip.avi", Quote: "Keep going.", SizeBytes: 6, Posted: true}); err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}

	videos, err := g.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("got %d entries, want 1", len(videos))
	}
	if videos[0].Quote != "Keep going." {
		t.Errorf("Quote = %q, want attribution from store", videos[0].Quote)
	}
	if !videos[0].Posted {
		t.Error("Posted flag not carried from store")
	}
}

func TestGalleryCacheInvalidate(t *testing.T) {
	g, dir, _ := setupTestGallery(t)
	writeGalleryFile(t, dir, "first.avi")

	if _, err := g.List(); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	writeGalleryFile(t, dir, "second.avi")

	// Within TTL the cached listing is served.
	videos, err := g.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("cached listing has %d entries, want 1", len(videos))
	}

	g.Invalidate()
	videos, err = g.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 2 {
		t.Errorf("post-invalidate listing has %d entries, want 2", len(videos))
	}
}

func TestGalleryEmptyDirIsNotAnError(t *testing.T) {
	g := NewGallery(filepath.Join(t.TempDir(), "missing"), nil, time.Second)
	videos, err := g.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("got %d entries from a missing dir, want 0", len(videos))
	}
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	g, dir, _ := setupTestGallery(t)
	writeGalleryFile(t, dir, "clip.avi")

	for _, bad := range []string{"../clip.avi", "sub/clip.avi", ".hidden.avi", "clip.txt", ""} {
		if _, err := g.ResolvePath(bad); !errors.Is(err, ErrVideoMissing) {
			t.Errorf("ResolvePath(%q) err = %v, want ErrVideoMissing", bad, err)
		}
	}

	path, err := g.ResolvePath("clip.avi")
	if err != nil {
		t.Fatalf("ResolvePath failed for valid name: %v", err)
	}
	if path != filepath.Join(dir, "clip.avi") {
		t.Errorf("path = %q, want inside gallery dir", path)
	}
}

func TestWriteArchiveContainsAllVideos(t *testing.T) {
	g, dir, _ := setupTestGallery(t)
	writeGalleryFile(t, dir, "one.avi")
	writeGalleryFile(t, dir, "two.avi")
	writeGalleryFile(t, dir, "skip.txt")

	var buf bytes.Buffer
	if err := g.WriteArchive(&buf); err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["one.avi"] || !names["two.avi"] {
		t.Errorf("archive entries = %v, want both videos", names)
	}
	if names["skip.txt"] {
		t.Error("archive must only bundle videos")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Track (final).mp3", "my-track-final-mp3"},
		{"  Spaced  Out  ", "spaced-out"},
		{"___", ""},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
