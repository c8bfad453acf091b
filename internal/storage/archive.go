package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FetchTimeout bounds each download of a remote image.
const FetchTimeout = 30 * time.Second

// ImageArchive copies generated images into an ObjectStore, keyed by session.
type ImageArchive struct {
	store ObjectStore
	http  *resty.Client
}

func NewImageArchive(store ObjectStore) *ImageArchive {
	return &ImageArchive{store: store, http: resty.New().SetTimeout(FetchTimeout)}
}

// Archive stores every image of one message under "<sessionID>/<messageID>-<n><ext>".
// Images that cannot be fetched are skipped and reported in the returned error.
func (a *ImageArchive) Archive(ctx context.Context, sessionID, messageID string, images []string) error {
	var errs []error
	for i, ref := range images {
		data, ext, err := a.fetch(ctx, ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", i, err))
			continue
		}

		key := path.Join(sessionID, fmt.Sprintf("%s-%d%s", messageID, i, ext))
		if err := a.store.PutObject(ctx, key, bytes.NewReader(data)); err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (a *ImageArchive) Remove(ctx context.Context, sessionID string) error {
	return a.store.DeleteObjects(ctx, sessionID)
}

func (a *ImageArchive) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("unsupported image reference %q", truncate(ref, 64))
	}

	res, err := a.http.R().SetContext(ctx).Get(ref)
	if err != nil {
		return nil, "", fmt.Errorf("error downloading %s: %w", ref, err)
	}
	if !res.IsSuccess() {
		return nil, "", fmt.Errorf("error downloading %s: status %d", ref, res.StatusCode())
	}

	ext := path.Ext(u.Path)
	if ext == "" {
		ext = extensionForMime(res.Header().Get("Content-Type"))
	}
	return res.Body(), ext, nil
}

func decodeDataURI(ref string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data uri")
	}

	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return []byte(payload), extensionForMime(mime), nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("error decoding data uri: %w", err)
	}
	return data, extensionForMime(mime), nil
}

func extensionForMime(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	_, subtype, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok || subtype == "" {
		return ".png"
	}
	if subtype == "jpeg" {
		return ".jpg"
	}
	return "." + subtype
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
