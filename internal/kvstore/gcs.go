package kvstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), prefix: prefix}, nil
}

func (g *GCS) Get(ctx context.Context, key string) (string, bool, error) {
	r, err := g.bucket.Object(objectKey(g.prefix, key)).NewReader(ctx)
	if isAbsent(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("read object %s: %w", key, err)
	}
	return string(data), true, nil
}

func (g *GCS) Set(ctx context.Context, key, value string) error {
	w := g.bucket.Object(objectKey(g.prefix, key)).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := io.WriteString(w, value); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Remove(ctx context.Context, key string) error {
	err := g.bucket.Object(objectKey(g.prefix, key)).Delete(ctx)
	if err != nil && !isAbsent(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
