package quotereel

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quotereel/quotereel/bot"
)

// maxBatchCount caps one batch-generation request.
const maxBatchCount = 20

type generateForm struct {
	Quote string `json:"quote"`
}

type batchForm struct {
	Count int `json:"count"`
}

func (a *App) handleGenerate(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	var form generateForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid request body"})
	}

	quote := strings.TrimSpace(form.Quote)
	if quote == "" {
		quote = a.Source.Generate(c.Request().Context())
	}

	video, err := a.generateOne(quote)
	if err != nil {
		a.Log.Error("generate video", "error", err)
		return c.JSON(http.StatusOK, APIResponse{Success: false, Message: "Failed to generate video"})
	}
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Video generated successfully!",
		Data:    video,
	})
}

func (a *App) handleGenerateBatch(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	if !a.batchLimiter.Allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, APIResponse{
			Success: false, Message: "Too many batch requests. Try again later.",
		})
	}
	var form batchForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Success: false, Message: "Invalid request body"})
	}
	count := form.Count
	if count <= 0 {
		count = 5
	}
	if count > maxBatchCount {
		count = maxBatchCount
	}

	videos := make([]GeneratedVideo, 0, count)
	for i := 0; i < count; i++ {
		quote := a.Source.Generate(c.Request().Context())
		video, err := a.generateOne(quote)
		if err != nil {
			a.Log.Error("generate video", "index", i, "error", err)
			continue
		}
		videos = append(videos, video)
	}
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Generated %d videos successfully!", len(videos)),
		Data:    videos,
	})
}

// generateOne renders a quote and records its gallery metadata. On-demand
// generation does not touch the ledger; only the scheduling loop records
// dedup state.
func (a *App) generateOne(quote string) (GeneratedVideo, error) {
	path, err := a.Renderer.Render(quote)
	if err != nil {
		return GeneratedVideo{}, err
	}
	if err := a.recordVideo(path, quote, false); err != nil {
		a.Log.Error("record video metadata", "video", path, "error", err)
	}
	a.Gallery.Invalidate()
	return GeneratedVideo{Quote: quote, Filename: filepath.Base(path)}, nil
}

func (a *App) handleListVideos(c echo.Context) error {
	videos, err := a.Gallery.List()
	if err != nil {
		a.Log.Error("list videos", "error", err)
		return c.JSON(http.StatusOK, APIResponse{Success: false, Message: "Failed to list videos"})
	}
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "ok", Data: videos})
}

func (a *App) handleDownloadVideo(c echo.Context) error {
	filename := c.Param("filename")
	path, err := a.Gallery.ResolvePath(filename)
	if err != nil {
		if errors.Is(err, ErrVideoMissing) {
			return c.JSON(http.StatusNotFound, APIResponse{Success: false, Message: "Video not found"})
		}
		return err
	}
	return c.Attachment(path, filename)
}

// handleMarkPosted flags a gallery video as already posted. Meant for
// operators who publish by hand while the worker is disabled.
func (a *App) handleMarkPosted(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	filename := c.Param("filename")
	if _, err := a.Gallery.ResolvePath(filename); err != nil {
		if errors.Is(err, ErrVideoMissing) {
			return c.JSON(http.StatusNotFound, APIResponse{Success: false, Message: "Video not found"})
		}
		return err
	}
	if err := a.Store.MarkPosted(filename); err != nil {
		a.Log.Error("mark posted", "filename", filename, "error", err)
		return c.JSON(http.StatusOK, APIResponse{Success: false, Message: "Failed to update video"})
	}
	a.Gallery.Invalidate()
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Video marked as posted"})
}

func (a *App) handleDownloadArchive(c echo.Context) error {
	name := fmt.Sprintf("motivation_videos_%s.zip", time.Now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentType, "application/zip")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, name))
	c.Response().WriteHeader(http.StatusOK)
	return a.Gallery.WriteArchive(c.Response())
}

func (a *App) handleLedger(c echo.Context) error {
	records, err := a.Ledger.Recent(100)
	if err != nil {
		a.Log.Error("read ledger", "error", err)
		return c.JSON(http.StatusOK, APIResponse{Success: false, Message: "Failed to read ledger"})
	}
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "ok", Data: records})
}

func (a *App) handleBotStart(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	if a.Config.PostingEnabled && (a.Config.SocialUsername == "" || a.Config.SocialPassword == "") {
		return c.JSON(http.StatusOK, APIResponse{
			Success: false,
			Message: "Posting credentials not found. Please check your configuration.",
		})
	}
	if err := a.Runner.Start(); err != nil {
		if errors.Is(err, bot.ErrAlreadyRunning) {
			return c.JSON(http.StatusOK, APIResponse{Success: false, Message: "Bot is already running"})
		}
		return err
	}
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Bot started successfully!"})
}

func (a *App) handleBotStop(c echo.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	a.Runner.Stop()
	return c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Bot stopped successfully!"})
}

func (a *App) handleBotStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "ok",
		Data:    BotStatus{Running: a.Runner.Running()},
	})
}
