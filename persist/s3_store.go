package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const ctxTimeout = 10 * time.Second

// S3Config holds the connection settings for an S3-compatible backend.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	KeyPrefix       string `json:"key_prefix"`
}

// S3Store implements EnvelopeStore against an S3-compatible object store
// (MinIO, AWS S3). The whole vault is one envelope object:
//
//	bucket/
//	└── [keyPrefix/]vault.enc.json
//
// Object PUTs are atomic on S3, which gives the envelope the same
// all-or-nothing replacement guarantee the filesystem store gets from
// write-to-temp-then-rename.
type S3Store struct {
	client     *minio.Client
	bucketName string
	keyPrefix  string
}

// NewS3Store connects to the S3 endpoint and ensures the bucket exists.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("endpoint and bucket are required for s3 store")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store := &S3Store{
		client:     client,
		bucketName: config.Bucket,
		keyPrefix:  config.KeyPrefix,
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	if err = store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

// NewS3StoreFromConfig creates an S3Store from StoreConfig.
func NewS3StoreFromConfig(config StoreConfig) (*S3Store, error) {
	if config.Type != StoreTypeS3 {
		return nil, fmt.Errorf("invalid store type for s3: %s", config.Type)
	}

	str := func(key string) string {
		v, _ := config.Config[key].(string)
		return v
	}
	useSSL, _ := config.Config["use_ssl"].(bool)

	return NewS3Store(S3Config{
		Endpoint:        str("endpoint"),
		AccessKeyID:     str("access_key_id"),
		SecretAccessKey: str("secret_access_key"),
		UseSSL:          useSSL,
		Region:          str("region"),
		Bucket:          str("bucket"),
		KeyPrefix:       str("key_prefix"),
	})
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *S3Store) envelopeKey() string {
	return path.Join(s.keyPrefix, envelopeFileName)
}

// LoadEnvelope fetches the envelope object. A missing object is reported as
// os.ErrNotExist so the vault treats it as first-run.
func (s *S3Store) LoadEnvelope() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucketName, s.envelopeKey(), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("envelope object: %w", os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read envelope object: %w", err)
	}
	return data, nil
}

func (s *S3Store) SaveEnvelope(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("envelope cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, s.bucketName, s.envelopeKey(),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put envelope object: %w", err)
	}
	return nil
}

func (s *S3Store) EnvelopeExists() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s.client.StatObject(ctx, s.bucketName, s.envelopeKey(), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat envelope object: %w", err)
	}
	return true, nil
}

func (s *S3Store) GetType() string {
	return string(StoreTypeS3)
}

func (s *S3Store) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

func (s *S3Store) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
