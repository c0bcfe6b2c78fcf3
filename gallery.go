package quotereel

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quotereel/quotereel/bot"
)

// ErrVideoMissing is returned when a requested gallery file does not exist.
var ErrVideoMissing = errors.New("video not found")

// Gallery lists rendered videos from the filesystem, enriched with quote
// attribution from the metadata store, behind a short TTL cache so status
// polling does not re-scan the directory on every request.
type Gallery struct {
	mu      sync.RWMutex
	dir     string
	store   *Store
	ttl     time.Duration
	fetched time.Time
	videos  []VideoInfo
}

// NewGallery creates a Gallery over dir backed by the given Store.
func NewGallery(dir string, store *Store, ttl time.Duration) *Gallery {
	return &Gallery{dir: dir, store: store, ttl: ttl}
}

// Invalidate clears the cache so the next List triggers a fresh scan.
func (g *Gallery) Invalidate() {
	g.mu.Lock()
	g.videos = nil
	g.mu.Unlock()
}

// List returns gallery entries, newest first.
func (g *Gallery) List() ([]VideoInfo, error) {
	g.mu.RLock()
	if g.videos != nil && time.Since(g.fetched) < g.ttl {
		videos := g.videos
		g.mu.RUnlock()
		return videos, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.videos != nil && time.Since(g.fetched) < g.ttl {
		return g.videos, nil
	}

	videos, err := g.scan()
	if err != nil {
		return nil, err
	}
	g.videos = videos
	g.fetched = time.Now()
	return videos, nil
}

func (g *Gallery) scan() ([]VideoInfo, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []VideoInfo{}, nil
		}
		return nil, fmt.Errorf("scan videos dir: %w", err)
	}

	meta := map[string]VideoMeta{}
	if g.store != nil {
		rows, err := g.store.ListVideos()
		if err != nil {
			return nil, fmt.Errorf("list video metadata: %w", err)
		}
		for _, m := range rows {
			meta[m.Filename] = m
		}
	}

	videos := make([]VideoInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), bot.VideoExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		v := VideoInfo{
			Filename: e.Name(),
			SizeMB:   float64(info.Size()) / (1 << 20),
			Created:  info.ModTime().Format("2006-01-02 15:04:05"),
		}
		if m, ok := meta[e.Name()]; ok {
			v.Quote = m.Quote
			v.Posted = m.Posted
		}
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Created > videos[j].Created })
	return videos, nil
}

// ResolvePath maps a client-supplied filename to a path inside the gallery
// directory, rejecting anything that could escape it.
func (g *Gallery) ResolvePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrVideoMissing
	}
	if !strings.HasSuffix(filename, bot.VideoExt) {
		return "", ErrVideoMissing
	}
	path := filepath.Join(g.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", ErrVideoMissing
	}
	return path, nil
}

// WriteArchive streams a zip of every video in the gallery to w.
func (g *Gallery) WriteArchive(w io.Writer) error {
	entries, err := os.ReadDir(g.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scan videos dir: %w", err)
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), bot.VideoExt) {
			continue
		}
		if err := addToArchive(zw, filepath.Join(g.dir, e.Name()), e.Name()); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addToArchive(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	// Store without recompression: MJPEG frames are already JPEG.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// recordVideo persists gallery metadata for a freshly rendered artifact.
func (a *App) recordVideo(videoPath, quote string, posted bool) error {
	info, err := os.Stat(videoPath)
	if err != nil {
		return err
	}
	return a.Store.SaveVideo(VideoMeta{
		Filename:  filepath.Base(videoPath),
		Quote:     quote,
		SizeBytes: info.Size(),
		Posted:    posted,
	})
}
