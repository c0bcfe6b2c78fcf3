package quotereel

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func uploadMusic(t *testing.T, a *App, filename string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("music_file", filename)
	if err != nil {
		t.Fatalf("failed to build form: %v", err)
	}
	part.Write([]byte("audio bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/music", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
		if c.Name == "_csrf" {
			req.Header.Set("X-CSRF-Token", c.Value)
		}
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestMusicUploadStoresFile(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	rec := uploadMusic(t, a, "Epic Track.mp3", cookies)
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Fatalf("upload failed: %s", resp.Message)
	}

	if _, err := os.Stat(filepath.Join(a.Config.MusicDir, "epic-track.mp3")); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}
}

func TestMusicUploadRejectsWrongExtension(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	rec := uploadMusic(t, a, "malware.exe", cookies)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("upload = %d, want 400", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Success {
		t.Error("wrong extension reported success")
	}
}

func TestMusicUploadDeduplicatesNames(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	uploadMusic(t, a, "track.mp3", cookies)
	uploadMusic(t, a, "track.mp3", cookies)

	entries, err := os.ReadDir(a.Config.MusicDir)
	if err != nil {
		t.Fatalf("read music dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d files, want 2 distinct names", len(entries))
	}
}
