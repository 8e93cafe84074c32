// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

const (
	defaultBucket = "watermarked"
	defaultPort   = "9000"
)

type Options struct {
	Addr   string
	User   string
	Pass   string
	Bucket string
	Secure bool
}

// OptionsFromConfig reads BUCKET_NAME, MINIO_USER, MINIO_PASS and MINIO_CONTAINER_NAME
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:   cfg.GetString("MINIO_CONTAINER_NAME"),
		User:   cfg.GetString("MINIO_USER"),
		Pass:   cfg.GetString("MINIO_PASS"),
		Bucket: cfg.GetString("BUCKET_NAME"),
	}
}

// Endpoint appends the default MinIO port when addr has none
func (o Options) Endpoint() string {
	if strings.Contains(o.Addr, ":") {
		return o.Addr
	}
	return o.Addr + ":" + defaultPort
}

type MinioResultStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, opts Options) (*MinioResultStorage, error) {
	if opts.Addr == "" {
		return nil, errors.New("minio address is empty")
	}
	if opts.Bucket == "" {
		opts.Bucket = defaultBucket
		zlog.Logger.Warn().Str("bucket", opts.Bucket).Msg("Bucket name is empty. Using default value")
	}

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(opts.Endpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Pass, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, opts.Bucket); err != nil {
		return nil, err
	}

	return &MinioResultStorage{bucket: opts.Bucket, client: strg}, nil
}

// Put uploads one exported image under key
func (s *MinioResultStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
