// Package kvstore provides the string key/value slots the wizard persists
// into. The engine only needs get, set and remove; backends range from
// process memory to object storage.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jackc/pgx/v5"
)

// Store is a durable string key/value store.
type Store interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // memory, file, sqlite, postgres, mysql, s3, gcs
	Path   string // file directory or sqlite database path
	DSN    string // postgres or mysql connection string
	Bucket string // s3 or gcs bucket
	Prefix string // object key prefix for s3 and gcs
	Region string // s3 region
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path)
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres", "postgresql":
		return NewPostgres(ctx, cfg.DSN)
	case "mysql":
		return NewMySQL(ctx, cfg.DSN)
	case "s3":
		return NewS3(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
	case "gcs":
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// isAbsent reports whether a backend error only means the key is not
// stored.
func isAbsent(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, storage.ErrObjectNotExist) ||
		errors.As(err, &noSuchKey)
}
