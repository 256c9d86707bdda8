// Package content supplies the original bytes of corpus source files to the
// reconstructor. A deployment uses exactly one provider: an HTTP file
// server, a local repository checkout, or an S3-compatible bucket.
package content

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jward/slicer"
)

// Provider kinds accepted by New.
const (
	KindNone = "none"
	KindHTTP = "http"
	KindRepo = "repo"
	KindS3   = "s3"
)

// Locator maps a file ID to its repository-relative path.
type Locator interface {
	FilePath(ctx context.Context, fileID int64) (string, bool, error)
}

// Config selects and configures one provider.
type Config struct {
	Kind      string
	URL       string
	Repo      string
	S3        S3Config
	CacheSize int
}

// New builds the provider named by cfg.Kind, wrapped in an LRU cache when
// cfg.CacheSize is positive. KindNone returns a provider that never has
// content.
func New(cfg Config, files Locator) (slicer.ContentProvider, error) {
	var p slicer.ContentProvider
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindNone:
		return None{}, nil
	case KindHTTP:
		h, err := NewHTTP(cfg.URL, nil)
		if err != nil {
			return nil, err
		}
		p = h
	case KindRepo:
		r, err := NewRepo(cfg.Repo, files)
		if err != nil {
			return nil, err
		}
		p = r
	case KindS3:
		s, err := NewS3(cfg.S3, files)
		if err != nil {
			return nil, err
		}
		p = s
	default:
		return nil, fmt.Errorf("content: unknown provider %q", cfg.Kind)
	}
	if cfg.CacheSize > 0 {
		return NewCached(p, cfg.CacheSize), nil
	}
	return p, nil
}

// None has no content for any file.
type None struct{}

func (None) Content(context.Context, int64) ([]byte, error) { return nil, nil }

// Cached memoizes another provider's results, including unavailability.
type Cached struct {
	next  slicer.ContentProvider
	cache *lru.Cache[int64, []byte]
}

func NewCached(next slicer.ContentProvider, size int) *Cached {
	cache, _ := lru.New[int64, []byte](size)
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Content(ctx context.Context, fileID int64) ([]byte, error) {
	if b, ok := c.cache.Get(fileID); ok {
		return b, nil
	}
	b, err := c.next.Content(ctx, fileID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(fileID, b)
	return b, nil
}
