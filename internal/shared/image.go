package shared

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultImageTimeout bounds a single cover art request.
const DefaultImageTimeout = 10 * time.Second

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ImageFetcher downloads cover art over HTTP with a bounded timeout.
type ImageFetcher struct {
	client *resty.Client
}

// NewImageFetcher creates an [ImageFetcher]. A non-positive timeout uses [DefaultImageTimeout].
func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = DefaultImageTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "sptdl")
	return &ImageFetcher{client: client}
}

// Fetch downloads the image at url and returns the raw bytes.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", ErrInvalidInput)
	}

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: failed to download image: status %d", ErrAPIRequest, resp.StatusCode())
	}

	data := resp.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image response had no body", ErrAPIRequest)
	}
	return data, nil
}

// SniffImageMIME returns [MIMEPNG] for data starting with the PNG signature and [MIMEJPEG] otherwise.
func SniffImageMIME(data []byte) string {
	if bytes.HasPrefix(data, pngSignature) {
		return MIMEPNG
	}
	return MIMEJPEG
}
