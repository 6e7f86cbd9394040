package assets

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"tresde/api/internal/config"
)

// ObjectStore keeps uploads in an S3-compatible bucket keyed by content hash,
// so a duplicate is a single stat call.
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	prefix    string
	publicURL string
}

func NewObjectStore(cfg config.ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (o *ObjectStore) Name() string { return "object" }

func (o *ObjectStore) key(hash string) string {
	if o.prefix == "" {
		return hash
	}
	return o.prefix + "/" + hash
}

func (o *ObjectStore) Find(ctx context.Context, hash string) (Result, bool, error) {
	key := o.key(hash)
	_, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("stat %s: %w", key, err)
	}
	return o.result(key), true, nil
}

func (o *ObjectStore) Put(ctx context.Context, hash, fileName, contentType string, payload []byte) (Result, error) {
	key := o.key(hash)
	_, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
		UserMetadata: map[string]string{"original-name": fileName},
	})
	if err != nil {
		return Result{}, fmt.Errorf("put %s: %w", key, err)
	}
	return o.result(key), nil
}

func (o *ObjectStore) result(key string) Result {
	return Result{URL: o.publicURL + "/" + key, FileName: key}
}
