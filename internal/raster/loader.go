package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/webp" // Register WebP format
)

// UserAgent is sent with remote crest fetches.
const UserAgent = "crestle/1.0"

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 10 * time.Second

// Loader decodes an image from a reference (file path or http(s) URL).
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// LoadError reports a crest that could not be loaded for an entity.
type LoadError struct {
	EntityID string
	Ref      string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load crest for %s (%s): %v", e.EntityID, e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SmartLoader loads from local files or HTTP(S) URLs.
type SmartLoader struct {
	Timeout time.Duration
	Retry   RetryConfig
	client  *http.Client
}

// NewSmartLoader returns a loader with the given per-attempt timeout and retry policy.
func NewSmartLoader(timeout time.Duration, retry RetryConfig) *SmartLoader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SmartLoader{Timeout: timeout, Retry: retry, client: &http.Client{}}
}

// Load implements Loader.
func (l *SmartLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("image reference cannot be empty")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		var img image.Image
		err := Retry(ctx, l.Retry, func() error {
			var err error
			img, err = l.loadURL(ctx, ref)
			return err
		})
		return img, err
	}
	return loadFile(ref)
}

func loadFile(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 - catalog-provided crest path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}
	return img, nil
}

func (l *SmartLoader) loadURL(ctx context.Context, url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to decode image (format: %s): %w", format, err))
	}
	return img, nil
}
