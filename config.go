package quotereel

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a quotereel instance. Values come from
// config.yaml with QUOTEREEL_* environment overrides; see LoadConfig.
type Config struct {
	Addr string // listen address (default ":5000")

	LedgerPath   string // CSV ledger path (default "data/motivation_ideas.csv")
	DatabasePath string // gallery metadata SQLite path (default "data/gallery.db")
	VideosDir    string // rendered video directory (default "generated_videos")
	MusicDir     string // uploaded music directory (default "music")
	FontPath     string // optional TTF override for the renderer

	QuoteServiceURL string // Ollama-style generation endpoint
	QuoteModel      string // model name sent with each request

	PostingEnabled bool   // when false the loop renders and records only
	SocialBaseURL  string // posting service API base URL
	SocialUsername string
	SocialPassword string

	AdminPassword string // required: dashboard login password
	SessionSecret string // required: session encryption secret
	CookieSecure  bool   // set true for HTTPS

	GalleryCacheTTL time.Duration // video listing cache TTL (default 30s)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "data/motivation_ideas.csv"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/gallery.db"
	}
	if c.VideosDir == "" {
		c.VideosDir = "generated_videos"
	}
	if c.MusicDir == "" {
		c.MusicDir = "music"
	}
	if c.QuoteServiceURL == "" {
		c.QuoteServiceURL = "http://localhost:11434/api/generate"
	}
	if c.QuoteModel == "" {
		c.QuoteModel = "llama3"
	}
	if c.GalleryCacheTTL == 0 {
		c.GalleryCacheTTL = 30 * time.Second
	}
}

// LoadConfig reads config.yaml from the working directory (if present) with
// environment variable overrides. Missing or malformed credentials are a
// configuration error reported to the caller, never a panic.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("addr", ":5000")
	v.SetDefault("ledger_path", "data/motivation_ideas.csv")
	v.SetDefault("database_path", "data/gallery.db")
	v.SetDefault("videos_dir", "generated_videos")
	v.SetDefault("music_dir", "music")
	v.SetDefault("quote_service.url", "http://localhost:11434/api/generate")
	v.SetDefault("quote_service.model", "llama3")
	v.SetDefault("posting.enabled", false)

	v.SetEnvPrefix("QUOTEREEL")
	v.AutomaticEnv()
	v.BindEnv("addr", "QUOTEREEL_ADDR")
	v.BindEnv("admin_password", "QUOTEREEL_ADMIN_PASSWORD")
	v.BindEnv("session_secret", "QUOTEREEL_SESSION_SECRET")
	v.BindEnv("posting.username", "QUOTEREEL_SOCIAL_USERNAME")
	v.BindEnv("posting.password", "QUOTEREEL_SOCIAL_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Addr:            v.GetString("addr"),
		LedgerPath:      v.GetString("ledger_path"),
		DatabasePath:    v.GetString("database_path"),
		VideosDir:       v.GetString("videos_dir"),
		MusicDir:        v.GetString("music_dir"),
		FontPath:        v.GetString("font_path"),
		QuoteServiceURL: v.GetString("quote_service.url"),
		QuoteModel:      v.GetString("quote_service.model"),
		PostingEnabled:  v.GetBool("posting.enabled"),
		SocialBaseURL:   v.GetString("posting.base_url"),
		SocialUsername:  v.GetString("posting.username"),
		SocialPassword:  v.GetString("posting.password"),
		AdminPassword:   v.GetString("admin_password"),
		SessionSecret:   v.GetString("session_secret"),
		CookieSecure:    v.GetBool("cookie_secure"),
		GalleryCacheTTL: v.GetDuration("gallery_cache_ttl"),
	}
	cfg.setDefaults()

	if cfg.PostingEnabled && (cfg.SocialUsername == "" || cfg.SocialPassword == "") {
		return Config{}, fmt.Errorf("posting.enabled is set but posting credentials are missing")
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance before
// the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
