package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/draftlane/draftlane-backend/internal/platform/logger"
)

// SiteStore writes rendered articles into the per-domain site buckets that
// front each published site.
type SiteStore interface {
	// WriteObject uploads body under key in the named bucket and returns the
	// public URL of the object.
	WriteObject(ctx context.Context, bucket, key string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	Close() error
}

type siteStore struct {
	log    *logger.Logger
	client *storage.Client
}

func NewSiteStore(baseLog *logger.Logger) (SiteStore, error) {
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &siteStore{
		log:    baseLog.With("client", "SiteStore"),
		client: client,
	}, nil
}

func (s *siteStore) WriteObject(ctx context.Context, bucket, key string, body io.Reader) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key required")
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(wctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key), nil
}

func (s *siteStore) DeleteObject(ctx context.Context, bucket, key string) error {
	dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(bucket).Object(key).Delete(dctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("failed to delete object from GCS: %w", err)
	}
	return nil
}

func (s *siteStore) Close() error { return s.client.Close() }

func contentTypeForKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(k, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(k, ".md"):
		return "text/markdown; charset=utf-8"
	case strings.HasSuffix(k, ".json"):
		return "application/json"
	default:
		return ""
	}
}
