// Package externalize talks to the CDN service that hosts oversized
// message bodies as pastes and mirrors attachment URLs as short links.
package externalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrShortenRejected is returned when the shortener answers without a
// usable short code. Callers fall back to the original URL.
var ErrShortenRejected = errors.New("url shortener rejected request")

type Client struct {
	http    *resty.Client
	baseURL string
}

func New(baseURL, token string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetTimeout(10 * time.Second),
		baseURL: baseURL,
	}
}

type fileResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

type urlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ShortCode string `json:"shortCode"`
	} `json:"data"`
}

// UploadText stores content as a plain-text paste and returns its URL.
func (c *Client) UploadText(ctx context.Context, content, filename string) (string, error) {
	var out fileResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, strings.NewReader(content)).
		SetHeader("X-File-Type", "text/plain").
		SetResult(&out).
		Post("/api/files")
	if err != nil {
		return "", fmt.Errorf("upload paste: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload paste: %s", resp.Status())
	}
	if out.Data.URL == "" {
		return "", errors.New("upload paste: no url in response")
	}
	return out.Data.URL, nil
}

// ShortenURL mirrors src through the shortener and returns the short link.
func (c *Client) ShortenURL(ctx context.Context, src string) (string, error) {
	var out urlResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"url": src}).
		SetResult(&out).
		Post("/api/urls")
	if err != nil {
		return "", fmt.Errorf("shorten url: %w", err)
	}
	if resp.IsError() || !out.Success || out.Data.ShortCode == "" {
		return "", ErrShortenRejected
	}
	return c.baseURL + "/u/" + out.Data.ShortCode, nil
}
