package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// FallbackQuote is returned whenever the generation service cannot provide
// one. The pipeline must never stall for lack of a quote.
const FallbackQuote = "Success is not final, failure is not fatal: it is the courage to continue that counts."

const quotePrompt = "Generate a short, original motivational quote."

// QuoteSource produces quote candidates from an Ollama-style generation
// endpoint. It is treated as unreliable: timeouts, non-200 responses and
// malformed bodies all degrade to FallbackQuote.
type QuoteSource struct {
	URL        string
	Model      string
	HTTPClient *http.Client
}

// NewQuoteSource creates a source against the given endpoint and model.
func NewQuoteSource(url, model string) *QuoteSource {
	return &QuoteSource{
		URL:        url,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate issues one request with the fixed prompt and returns the trimmed
// response text. It never returns an error and never returns an empty
// string: any failure yields FallbackQuote.
func (s *QuoteSource) Generate(ctx context.Context) string {
	body, err := json.Marshal(generateRequest{Model: s.Model, Prompt: quotePrompt, Stream: false})
	if err != nil {
		return FallbackQuote
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return FallbackQuote
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return FallbackQuote
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FallbackQuote
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return FallbackQuote
	}
	text := strings.TrimSpace(payload.Response)
	if text == "" {
		return FallbackQuote
	}
	return text
}

// Batch calls Generate n times independently. There is no batching at the
// transport level; each call stands alone.
func (s *QuoteSource) Batch(ctx context.Context, n int) []string {
	quotes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		quotes = append(quotes, s.Generate(ctx))
	}
	return quotes
}
