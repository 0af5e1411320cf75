// Package storage provides object storage for uploaded post and profile media.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"chitchat/internal/validation"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaStore uploads media and returns a publicly reachable URL.
type MediaStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	UploadDataURL(ctx context.Context, dataURL string) (url, mediaType string, err error)
	Delete(ctx context.Context, key string) error
}

// MinioStore implements MediaStore for MinIO/S3 compatible storage.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
// baseURL is the public prefix uploaded object URLs are composed from.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, baseURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload stores an object and returns its public URL.
func (m *MinioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", m.baseURL, m.bucket, key), nil
}

// UploadDataURL decodes a base64 data URL, validates its MIME type, and
// uploads the payload under a generated key. Returns the public URL and the
// coarse media type ("image" or "video").
func (m *MinioStore) UploadDataURL(ctx context.Context, dataURL string) (string, string, error) {
	mimeType, payload, err := ParseDataURL(dataURL)
	if err != nil {
		return "", "", err
	}

	ext, err := validation.ValidateMediaType(mimeType)
	if err != nil {
		return "", "", err
	}

	key := uuid.NewString() + ext
	url, err := m.Upload(ctx, key, bytes.NewReader(payload), int64(len(payload)), mimeType)
	if err != nil {
		return "", "", err
	}
	return url, MediaKind(mimeType), nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ParseDataURL splits a "data:<mime>;base64,<payload>" string into its MIME
// type and decoded payload.
func ParseDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	mimeType := rest[:sep]
	if mimeType == "" {
		return "", nil, fmt.Errorf("data URL has no media type")
	}
	payload, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return mimeType, payload, nil
}

// MediaKind maps a MIME type to the coarse media type stored on posts.
func MediaKind(mimeType string) string {
	if strings.HasPrefix(mimeType, "video/") {
		return "video"
	}
	return "image"
}
