package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	freeTTSDefaultURL = "https://translate.google.com/translate_tts"
	freeTTSChunkLimit = 200
)

// FreeTTS is the no-cost voice provider used when the premium service is
// unavailable. It fetches synthesized speech over plain HTTP.
type FreeTTS struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewFreeTTS(baseURL, language string) *FreeTTS {
	if baseURL == "" {
		baseURL = freeTTSDefaultURL
	}
	if language == "" {
		language = "en"
	}
	return &FreeTTS{
		baseURL:  baseURL,
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Synthesize converts text to speech and writes the audio to a temporary
// mp3 file, returning its path. Long text is fetched in chunks because the
// endpoint caps the query length.
func (f *FreeTTS) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text to synthesize")
	}

	file, err := os.CreateTemp("", "safespace_tts_free_*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer file.Close()

	for _, chunk := range splitChunks(text, freeTTSChunkLimit) {
		audio, err := f.fetch(ctx, chunk)
		if err != nil {
			os.Remove(file.Name())
			return "", err
		}
		if _, err := file.Write(audio); err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("failed to write audio file: %w", err)
		}
	}
	return file.Name(), nil
}

func (f *FreeTTS) fetch(ctx context.Context, text string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", f.language)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("free tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("free tts returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// splitChunks breaks text at word boundaries into pieces no longer than limit.
func splitChunks(text string, limit int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
