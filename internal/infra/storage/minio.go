package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps raw model responses in an S3-compatible bucket.
type Store struct {
	client     *minio.Client
	bucketName string
}

// Options for connecting to MinIO.
type Options struct {
	Endpoint   string
	Region     string
	BucketName string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, opts.BucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.BucketName, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: opts.BucketName}, nil
}

// Put uploads body under key and returns the object URL.
func (s *Store) Put(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

// objectURL is only directly reachable when the bucket is public.
func (s *Store) objectURL(key string) string {
	u := s.client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, s.bucketName, key)
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
