// Package opengraph fetches page metadata (title, description, preview
// image) for the unauthenticated link-preview endpoint. Results are cached
// in Redis when a client is configured.
package opengraph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/html"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

const (
	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxHTMLSize = 2 << 20
	cachePrefix = "og:"
)

// Metadata is the scraped link preview.
type Metadata struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageBase64   string `json:"imageBase64,omitempty"`
	NormalizedURL string `json:"normalizedUrl"`
}

type Fetcher struct {
	client *http.Client
	cache  *redis.Client
	ttl    time.Duration
}

// NewFetcher builds a fetcher; cache may be nil to disable caching.
func NewFetcher(cache *redis.Client) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  cache,
		ttl:    time.Hour,
	}
}

// Fetch normalizes the URL, fetches the page and extracts OpenGraph
// metadata. The preview image is inlined as base64 when it can be
// downloaded; an image failure does not fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if cached := f.cacheGet(ctx, normalized); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream("metadata fetch", resp.StatusCode, nil)
	}

	title, description, imageURL := parseMetadata(io.LimitReader(resp.Body, maxHTMLSize))
	if title == "" && description == "" && imageURL == "" {
		return nil, apperr.NotFound("opengraph metadata at %s", normalized)
	}

	meta := &Metadata{
		Title:         title,
		Description:   description,
		NormalizedURL: normalized,
	}

	if imageURL != "" {
		if data, err := f.fetchImage(ctx, normalized, imageURL); err != nil {
			log.Printf("opengraph image fetch failed for %s: %v", imageURL, err)
		} else {
			meta.ImageBase64 = data
		}
	}

	f.cacheSet(ctx, normalized, meta)
	return meta, nil
}

func normalizeURL(rawURL string) (string, error) {
	normalized := strings.TrimSpace(rawURL)
	if normalized == "" {
		return "", apperr.Validation("url is required")
	}

	if i := strings.Index(normalized, "#"); i != -1 {
		normalized = normalized[:i]
	}
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	if _, err := url.Parse(normalized); err != nil {
		return "", apperr.Validation("invalid url: %v", err)
	}
	return normalized, nil
}

// parseMetadata tokenizes the document looking for og: meta tags, falling
// back to <title> and the plain description meta.
func parseMetadata(r io.Reader) (title, description, imageURL string) {
	var plainTitle, plainDescription string

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tok := z.Token()
		switch tok.Data {
		case "meta":
			var property, name, content string
			for _, a := range tok.Attr {
				switch a.Key {
				case "property":
					property = a.Val
				case "name":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			switch property {
			case "og:title":
				title = content
			case "og:description":
				description = content
			case "og:image":
				imageURL = content
			}
			if name == "description" {
				plainDescription = content
			}

		case "title":
			if z.Next() == html.TextToken {
				plainTitle = strings.TrimSpace(z.Token().Data)
			}
		}
	}

	if title == "" {
		title = plainTitle
	}
	if description == "" {
		description = plainDescription
	}
	return title, description, imageURL
}

func (f *Fetcher) fetchImage(ctx context.Context, pageURL, imageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLSize))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (f *Fetcher) cacheGet(ctx context.Context, normalized string) *Metadata {
	if f.cache == nil {
		return nil
	}

	data, err := f.cache.Get(ctx, cachePrefix+normalized).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("opengraph cache read failed: %v", err)
		}
		return nil
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}

func (f *Fetcher) cacheSet(ctx context.Context, normalized string, meta *Metadata) {
	if f.cache == nil {
		return
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, cachePrefix+normalized, data, f.ttl).Err(); err != nil {
		log.Printf("opengraph cache write failed: %v", err)
	}
}
