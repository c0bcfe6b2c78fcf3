package quotereel

// APIResponse is the envelope every JSON endpoint returns. Handlers never
// surface raw errors to the client; failures become Success=false with a
// human-readable message.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// VideoInfo describes one rendered artifact for the gallery listing.
type VideoInfo struct {
	Filename string  `json:"filename"`
	Quote    string  `json:"quote,omitempty"`
	SizeMB   float64 `json:"size_mb"`
	Created  string  `json:"created"`
	Posted   bool    `json:"posted"`
}

// GeneratedVideo is the result of an on-demand generation request.
type GeneratedVideo struct {
	Quote    string `json:"quote"`
	Filename string `json:"filename"`
}

// BotStatus is returned by the bot status endpoint.
type BotStatus struct {
	Running bool `json:"running"`
}
