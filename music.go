package quotereel

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxMusicUploadSize = 16 << 20 // 16MB

// musicExtAllowed lists accepted upload extensions. The renderer does not
// consume music yet; uploads are stored for when it does.
var musicExtAllowed = map[string]bool{".mp3": true, ".wav": true}

func (a *App) handleMusicUpload(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}

	file, err := c.FormFile("music_file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "No file selected"})
	}
	if file.Size > maxMusicUploadSize {
		return c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "File too large (max 16MB)"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !musicExtAllowed[ext] {
		return c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid file type. Please upload .mp3 or .wav files only.",
		})
	}

	name := sanitizeFilename(strings.TrimSuffix(filepath.Base(file.Filename), ext)) + ext
	if name == ext {
		name = "track" + ext
	}
	name = a.ensureUniqueMusicName(name, ext)

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(a.Config.MusicDir, 0o755); err != nil {
		return fmt.Errorf("create music dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(a.Config.MusicDir, name))
	if err != nil {
		return fmt.Errorf("create music file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write music file: %w", err)
	}

	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Music file %s uploaded successfully!", name),
	})
}

// ensureUniqueMusicName appends a counter if the name is already taken.
func (a *App) ensureUniqueMusicName(name, ext string) string {
	base := strings.TrimSuffix(name, ext)
	candidate := name
	counter := 1
	for {
		if _, err := os.Stat(filepath.Join(a.Config.MusicDir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		counter++
		candidate = fmt.Sprintf("%s-%d%s", base, counter, ext)
	}
}

func (a *App) handleMusicList(c echo.Context) error {
	entries, err := os.ReadDir(a.Config.MusicDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if musicExtAllowed[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "ok", Data: files})
}
