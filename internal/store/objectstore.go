package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/auth/github"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tidwall/sjson"
)

// ObjectStoreConfig captures configuration for the S3-compatible token store.
type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
	PathStyle bool
}

// ObjectTokenStore persists token records in an S3-compatible bucket.
type ObjectTokenStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
	mu     sync.Mutex
}

// NewObjectTokenStore initializes an object storage backed token store.
func NewObjectTokenStore(cfg ObjectStoreConfig) (*ObjectTokenStore, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("object store: access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store: secret key is required")
	}

	options := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(cfg.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("object store: create client: %w", err)
	}

	return &ObjectTokenStore{client: client, cfg: cfg}, nil
}

// Save uploads a token record.
func (s *ObjectTokenStore) Save(ctx context.Context, name string, record *github.GitHubTokenStorage) (string, error) {
	if record == nil {
		return "", fmt.Errorf("object store: record is nil")
	}

	record.Type = "github"
	record.LastRefresh = time.Now().Format(time.RFC3339)
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("object store: marshal record: %w", err)
	}

	key := s.objectKey(name)
	if err = s.put(ctx, key, raw); err != nil {
		return "", err
	}
	return key, nil
}

// Load downloads and parses a token record.
func (s *ObjectTokenStore) Load(ctx context.Context, name string) (*github.GitHubTokenStorage, error) {
	raw, err := s.get(ctx, s.objectKey(name))
	if err != nil {
		return nil, err
	}

	var record github.GitHubTokenStorage
	if err = json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("object store: parse token record: %w", err)
	}
	return &record, nil
}

// Delete removes a token record.
func (s *ObjectTokenStore) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, s.objectKey(name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("object store: delete object: %w", err)
	}
	return nil
}

// UpdateAccessToken rewrites only the token fields of a stored record.
func (s *ObjectTokenStore) UpdateAccessToken(ctx context.Context, name, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.objectKey(name)
	raw, err := s.get(ctx, key)
	if err != nil {
		return err
	}

	updated, err := sjson.SetBytes(raw, "access_token", accessToken)
	if err != nil {
		return fmt.Errorf("object store: set access_token failed: %w", err)
	}
	updated, err = sjson.SetBytes(updated, "last_refresh", time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("object store: set last_refresh failed: %w", err)
	}
	return s.put(ctx, key, updated)
}

func (s *ObjectTokenStore) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("object store: put object: %w", err)
	}
	return nil
}

func (s *ObjectTokenStore) get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("object store: get object: %w", err)
	}
	defer func() {
		_ = object.Close()
	}()

	raw, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("object store: read object: %w", err)
	}
	return raw, nil
}

// objectKey maps a record name onto the bucket layout.
func (s *ObjectTokenStore) objectKey(name string) string {
	key := "tokens/" + recordName(name)
	if s.cfg.Prefix != "" {
		return s.cfg.Prefix + "/" + key
	}
	return key
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
