package quotereel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		LedgerPath:    filepath.Join(dir, "ledger.csv"),
		DatabasePath:  filepath.Join(dir, "gallery.db"),
		VideosDir:     filepath.Join(dir, "videos"),
		MusicDir:      filepath.Join(dir, "music"),
		AdminPassword:   "hunter2",
		SessionSecret:   "test-secret",
		QuoteServiceURL: "http://127.0.0.1:1", // always refused; Generate falls back
	}
	a := New(cfg)
	if err := a.init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	a.setupMiddleware()
	a.setupRoutes()
	t.Cleanup(func() { a.Close() })
	return a
}

func doJSON(a *App, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
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

// csrfCookies fetches a token cookie the way the dashboard does before its
// first write.
func csrfCookies(t *testing.T, a *App) []*http.Cookie {
	t.Helper()
	rec := doJSON(a, http.MethodGet, "/api/session", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session check returned %d", rec.Code)
	}
	return rec.Result().Cookies()
}

func mergeCookies(old, fresh []*http.Cookie) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	for _, c := range old {
		byName[c.Name] = c
	}
	for _, c := range fresh {
		byName[c.Name] = c
	}
	merged := make([]*http.Cookie, 0, len(byName))
	for _, c := range byName {
		merged = append(merged, c)
	}
	return merged
}

func loginCookies(t *testing.T, a *App) []*http.Cookie {
	t.Helper()
	cookies := csrfCookies(t, a)
	rec := doJSON(a, http.MethodPost, "/api/login", `{"password":"hunter2"}`, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	return mergeCookies(cookies, rec.Result().Cookies())
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not the JSON envelope: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestControlEndpointsRequireAuth(t *testing.T) {
	a := setupTestApp(t)
	cookies := csrfCookies(t, a)

	for _, ep := range []struct{ method, path string }{
		{http.MethodPost, "/api/generate"},
		{http.MethodPost, "/api/generate-batch"},
		{http.MethodPost, "/api/bot/start"},
		{http.MethodPost, "/api/bot/stop"},
		{http.MethodPost, "/api/music"},
		{http.MethodPost, "/api/videos/x.avi/posted"},
	} {
		rec := doJSON(a, ep.method, ep.path, "{}", cookies)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", ep.method, ep.path, rec.Code)
		}
		if resp := decodeResponse(t, rec); resp.Success {
			t.Errorf("%s %s reported success without auth", ep.method, ep.path)
		}
	}
}

func TestWriteEndpointsRequireCSRFToken(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	// Strip the token: keep the cookies but drop the matching header.
	req := httptest.NewRequest(http.MethodPost, "/api/bot/start", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("write without token = %d, want 403", rec.Code)
	}

	// With the token the same session starts the worker.
	rec2 := doJSON(a, http.MethodPost, "/api/bot/start", "", cookies)
	if resp := decodeResponse(t, rec2); !resp.Success {
		t.Errorf("write with token failed: %s", resp.Message)
	}
	doJSON(a, http.MethodPost, "/api/bot/stop", "", cookies)
}

func TestSuccessfulLoginsDoNotLockOut(t *testing.T) {
	a := setupTestApp(t)
	cookies := csrfCookies(t, a)

	for i := 0; i < 7; i++ {
		rec := doJSON(a, http.MethodPost, "/api/login", `{"password":"hunter2"}`, cookies)
		if rec.Code != http.StatusOK {
			t.Fatalf("login %d returned %d, want 200", i+1, rec.Code)
		}
	}

	// Failed guesses still count toward the lockout.
	for i := 0; i < 5; i++ {
		doJSON(a, http.MethodPost, "/api/login", `{"password":"wrong"}`, cookies)
	}
	rec := doJSON(a, http.MethodPost, "/api/login", `{"password":"hunter2"}`, cookies)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("login after max failures = %d, want 429", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := setupTestApp(t)

	rec := doJSON(a, http.MethodPost, "/api/login", `{"password":"wrong"}`, csrfCookies(t, a))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
}

func TestBotStartStopStatus(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	rec := doJSON(a, http.MethodGet, "/api/bot/status", "", nil)
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("status failed: %s", resp.Message)
	}

	rec = doJSON(a, http.MethodPost, "/api/bot/start", "", cookies)
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Fatalf("start failed: %s", resp.Message)
	}

	// A second start must report "already running" without racing.
	rec = doJSON(a, http.MethodPost, "/api/bot/start", "", cookies)
	if resp := decodeResponse(t, rec); resp.Success {
		t.Error("second start reported success")
	}

	rec = doJSON(a, http.MethodPost, "/api/bot/stop", "", cookies)
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Fatalf("stop failed: %s", resp.Message)
	}
	a.Runner.Wait()
	if a.Runner.Running() {
		t.Error("runner still running after stop")
	}
}

func TestGenerateWithCustomQuote(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	rec := doJSON(a, http.MethodPost, "/api/generate", `{"quote":"Testing is believing."}`, cookies)
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("generate failed: %s", resp.Message)
	}

	data, _ := json.Marshal(resp.Data)
	var video GeneratedVideo
	if err := json.Unmarshal(data, &video); err != nil {
		t.Fatalf("bad generate payload: %v", err)
	}
	if video.Quote != "Testing is believing." {
		t.Errorf("quote = %q, want the custom quote", video.Quote)
	}
	if _, err := os.Stat(filepath.Join(a.Config.VideosDir, video.Filename)); err != nil {
		t.Errorf("rendered artifact missing: %v", err)
	}

	// On-demand generation records gallery metadata but not ledger rows.
	if _, err := a.Store.GetVideo(video.Filename); err != nil {
		t.Errorf("gallery metadata missing: %v", err)
	}
	rows, err := a.Ledger.Records()
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("on-demand generation wrote %d ledger rows, want 0", len(rows))
	}
}

func TestMarkPostedUpdatesGallery(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	rec := doJSON(a, http.MethodPost, "/api/generate", `{"quote":"Handposted"}`, cookies)
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("generate failed: %s", resp.Message)
	}
	data, _ := json.Marshal(resp.Data)
	var video GeneratedVideo
	if err := json.Unmarshal(data, &video); err != nil {
		t.Fatalf("bad generate payload: %v", err)
	}

	rec = doJSON(a, http.MethodPost, "/api/videos/"+video.Filename+"/posted", "", cookies)
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Fatalf("mark posted failed: %s", resp.Message)
	}

	meta, err := a.Store.GetVideo(video.Filename)
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if !meta.Posted {
		t.Error("video not flagged posted after the call")
	}

	rec = doJSON(a, http.MethodPost, "/api/videos/no_such.avi/posted", "", cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing video = %d, want 404", rec.Code)
	}
}

func TestListVideosEnvelope(t *testing.T) {
	a := setupTestApp(t)

	rec := doJSON(a, http.MethodGet, "/api/videos", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("videos = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Errorf("videos listing failed: %s", resp.Message)
	}
}

func TestDownloadMissingVideo(t *testing.T) {
	a := setupTestApp(t)

	rec := doJSON(a, http.MethodGet, "/api/videos/nope.avi/download", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("download = %d, want 404", rec.Code)
	}
}

func TestBotStatusReflectsRunner(t *testing.T) {
	a := setupTestApp(t)
	cookies := loginCookies(t, a)

	a.Runner.BatchPause = time.Hour
	doJSON(a, http.MethodPost, "/api/bot/start", "", cookies)

	rec := doJSON(a, http.MethodGet, "/api/bot/status", "", nil)
	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var status BotStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("bad status payload: %v", err)
	}
	if !status.Running {
		t.Error("status reports stopped while runner is active")
	}

	doJSON(a, http.MethodPost, "/api/bot/stop", "", cookies)
	a.Runner.Wait()
}
