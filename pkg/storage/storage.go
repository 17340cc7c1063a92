package storage

import (
	"context"
	"io"
)

// Storage is the narrow object-store contract the rest of the system
// depends on. Objects are addressed by explicit keys; callers own key
// derivation.
type Storage interface {
	// Put uploads data under the given key, overwriting any existing
	// object. Writes are idempotent: re-putting identical content under
	// the same key converges to the same stored state.
	Put(ctx context.Context, key string, r io.Reader, opts ...PutOption) error

	// Get retrieves an object. Returns ErrNotFound if the key does not
	// exist. The caller is responsible for closing the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config holds S3-compatible storage configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string `env:"STORAGE_BUCKET,required"`

	// AccessKey is the access key ID (required).
	AccessKey string `env:"STORAGE_ACCESS_KEY,required"`

	// SecretKey is the secret access key (required).
	SecretKey string `env:"STORAGE_SECRET_KEY,required"`

	// Endpoint is a custom S3 endpoint URL (optional, for MinIO or other
	// S3-compatible services).
	Endpoint string `env:"STORAGE_ENDPOINT"`

	// Region is the AWS region.
	Region string `env:"STORAGE_REGION" envDefault:"us-east-1"`

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool `env:"STORAGE_PATH_STYLE" envDefault:"false"`
}

// validate checks that required configuration fields are set.
func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
