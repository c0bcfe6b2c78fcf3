// Package quotereel is a web dashboard and background worker that renders
// short motivational-quote videos and optionally posts them to a social
// account on a schedule. The web layer (Echo) exposes generation, a video
// gallery, and bot control; the bot package owns the ledger, renderer,
// publisher, and scheduling loop.
package quotereel

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quotereel/quotereel/bot"
)

// App is the central quotereel application. It wires together the gallery
// store, the bot worker, handlers, and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Ledger   *bot.Ledger
	Source   *bot.QuoteSource
	Renderer *bot.Renderer
	Runner   *bot.Runner
	Gallery  *Gallery
	Log      *slog.Logger

	loginLimiter *AttemptLimiter
	batchLimiter *AttemptLimiter
	customRoutes []func(*App)
}

// New creates a quotereel App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Log:    NewLogger(EnvOr("QUOTEREEL_LOG_LEVEL", "info"), EnvOr("QUOTEREEL_LOG_FORMAT", "text"), os.Stderr),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start initializes the stores and worker, registers middleware and routes,
// and runs the HTTP server until it is shut down.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// init wires the stores, renderer, quote source, and runner.
func (a *App) init() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("quotereel: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("quotereel: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("quotereel: init store: %w", err)
	}
	a.Store = store

	ledger, err := bot.NewLedger(a.Config.LedgerPath)
	if err != nil {
		return fmt.Errorf("quotereel: init ledger: %w", err)
	}
	a.Ledger = ledger

	renderer, err := bot.NewRenderer(a.Config.VideosDir, a.Config.FontPath)
	if err != nil {
		return fmt.Errorf("quotereel: init renderer: %w", err)
	}
	a.Renderer = renderer

	if err := os.MkdirAll(a.Config.MusicDir, 0o755); err != nil {
		return fmt.Errorf("quotereel: create music dir: %w", err)
	}

	a.Source = bot.NewQuoteSource(a.Config.QuoteServiceURL, a.Config.QuoteModel)
	a.Gallery = NewGallery(a.Config.VideosDir, store, a.Config.GalleryCacheTTL)

	var poster bot.Poster
	if a.Config.PostingEnabled {
		client := bot.NewRestSocialClient(a.Config.SocialBaseURL)
		creds := bot.Credentials{Username: a.Config.SocialUsername, Password: a.Config.SocialPassword}
		poster = bot.NewPublisher(client, creds, a.Log)
	}

	a.Runner = bot.NewRunner(a.Source, a.Renderer, poster, a.Ledger, a.Log)
	a.Runner.OnRendered = func(videoPath, quote string, posted bool) {
		if err := a.recordVideo(videoPath, quote, posted); err != nil {
			a.Log.Error("record video metadata", "video", videoPath, "error", err)
		}
		a.Gallery.Invalidate()
	}

	a.loginLimiter = NewAttemptLimiter(5, time.Minute)
	a.batchLimiter = NewAttemptLimiter(3, time.Minute)
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleIndex)
	e.GET("/feed.xml", a.handleFeed)

	api := e.Group("/api")
	api.POST("/login", a.handleLogin)
	api.POST("/logout", a.handleLogout)
	api.GET("/session", a.handleSession)

	api.POST("/generate", a.handleGenerate)
	api.POST("/generate-batch", a.handleGenerateBatch)

	api.GET("/videos", a.handleListVideos)
	api.GET("/videos/archive", a.handleDownloadArchive)
	api.GET("/videos/:filename/download", a.handleDownloadVideo)
	api.POST("/videos/:filename/posted", a.handleMarkPosted)

	api.GET("/ledger", a.handleLedger)

	api.POST("/bot/start", a.handleBotStart)
	api.POST("/bot/stop", a.handleBotStop)
	api.GET("/bot/status", a.handleBotStatus)

	api.POST("/music", a.handleMusicUpload)
	api.GET("/music", a.handleMusicList)
}

// Close stops the worker and releases resources. Call on shutdown.
func (a *App) Close() error {
	if a.Runner != nil && a.Runner.Running() {
		a.Runner.Stop()
		a.Runner.Wait()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
