package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tdeslauriers/cantor/internal/util"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string // host:port of the object storage service
	Bucket    string
	AccessKey string
	SecretKey string
	PublicUrl string // public base url assets are served from
	UseTls    bool
}

// ObjectStorage is the interface for the minimal put-object capability the
// publisher needs. Durability and availability of the storage service are
// its own concern.
type ObjectStorage interface {

	// PutFile uploads the file at path under key and returns the asset's
	// public url.
	PutFile(ctx context.Context, key, path, contentType string) (string, error)

	// PublicUrl builds the public url for an object key per the storage
	// service's url convention.
	PublicUrl(key string) string
}

// New creates the minio-backed object storage service, returning a pointer
// to the concrete implementation.
func New(config Config) (ObjectStorage, error) {

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseTls,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client for %s: %v", config.Endpoint, err)
	}

	return &objectStorage{
		client:    client,
		bucket:    config.Bucket,
		publicUrl: strings.TrimRight(config.PublicUrl, "/"),

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageStorage)).
			With(slog.String(util.ComponentKey, util.ComponentObjectStorage)),
	}, nil
}

var _ ObjectStorage = (*objectStorage)(nil)

// objectStorage is the concrete implementation of the ObjectStorage
// interface.
type objectStorage struct {
	client    *minio.Client
	bucket    string
	publicUrl string

	logger *slog.Logger
}

// PutFile is the concrete implementation of the interface method which
// uploads the file at path under key.
func (o *objectStorage) PutFile(ctx context.Context, key, path, contentType string) (string, error) {

	if _, err := o.client.FPutObject(ctx, o.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %v", key, o.bucket, err)
	}

	o.logger.Info(fmt.Sprintf("uploaded object %s to bucket %s", key, o.bucket))

	return o.PublicUrl(key), nil
}

// PublicUrl is the concrete implementation of the interface method which
// builds the public url for an object key.
func (o *objectStorage) PublicUrl(key string) string {
	return fmt.Sprintf("%s/%s", o.publicUrl, url.PathEscape(key))
}
