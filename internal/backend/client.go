package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL points at a locally running appointment backend.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds every request; exceeding it surfaces as a plain
// connection error to the caller.
const DefaultTimeout = 30 * time.Second

// Config collects the knobs for a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  *TokenStore
}

// Client is a typed HTTP client for the remote appointment backend. All
// conversation, speech and admin traffic goes through it; it injects the
// stored bearer token on every request and logs categorized failures without
// changing the error its callers see.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  *TokenStore
}

// New builds a Client, filling in defaults for anything left zero.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewTokenStore("")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		tokens:  cfg.Tokens,
	}
}

// Tokens exposes the client's token store so login/logout can manage it.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

// doMultipart issues a multipart/form-data POST. fields holds plain form
// values; audio, when non-nil, is attached as the "audio" file part.
func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, audio []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("encode %s form: %w", path, err)
		}
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "recording.wav")
		if err != nil {
			return fmt.Errorf("encode %s form: %w", path, err)
		}
		if _, err := part.Write(audio); err != nil {
			return fmt.Errorf("encode %s form: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode %s form: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		logCategory("setup", path, err)
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		logCategory("network", path, err)
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logCategory("decode", path, err)
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// FetchAudio downloads an audio payload referenced by a turn response.
// Relative URLs are resolved against the backend base URL.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	if strings.HasPrefix(audioURL, "/") {
		audioURL = c.baseURL + audioURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build audio request: %w", err)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		logCategory("network", audioURL, err)
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, c.errorFromResponse(audioURL, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return data, nil
}

// errorFromResponse turns a failed response into an APIError: the body is
// captured for diagnosis, a 401 purges the stored token, and the categorized
// failure is logged without changing what the caller sees.
func (c *Client) errorFromResponse(path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Body: data}
	if resp.StatusCode == http.StatusUnauthorized {
		// Stale credentials are purged here; redirecting the user is the
		// caller's decision.
		c.tokens.Clear()
	}
	logCategory(categoryForStatus(resp.StatusCode), path, apiErr)
	return apiErr
}

func categoryForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return "api error"
	}
}

func logCategory(category, path string, err error) {
	log.Printf("[api] %s: %s: %v", category, path, err)
}
