package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3ObjectStore は AWS S3 にペイロードを保存する実装です。
// オブジェクトキーは "{uuid}.txt" 形式で、APIが返すキーは uuid 部分のみです。
type S3ObjectStore struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
}

// NewS3ObjectStore は設定に応じて認証方法を切り替えてS3クライアントを生成します
func NewS3ObjectStore(cfg *config.Config) *S3ObjectStore {
	var awsCfgOpts []func(*awsconfig.LoadOptions) error

	awsCfgOpts = append(awsCfgOpts, awsconfig.WithRegion(cfg.Storage.Region))

	switch cfg.Storage.AuthType {
	case "static_credentials":
		// --- 静的認証情報 (アクセスキー) を使う場合 ---
		slog.Info("Configuring S3 with static credentials.")
		if cfg.Storage.AccessKeyID == "" || cfg.Storage.SecretAccessKey == "" {
			slog.Error("Storage auth_type is 'static_credentials' but access_key_id or secret_access_key is missing in config.")
			// 起動時にpanicさせることで、設定ミスに即座に気づけるようにする
			panic("missing static credentials for S3")
		}
		creds := credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
			"", // Session Token (通常は不要)
		)
		awsCfgOpts = append(awsCfgOpts, awsconfig.WithCredentialsProvider(creds))

	case "iam_role":
		// --- IAMロール (ECS Task Role, EC2 Instance Profileなど) を使う場合 ---
		slog.Info("Configuring S3 with IAM Role credentials.")
		// SDKが自動で認証情報を探してくれるので、特別な設定は不要

	default:
		slog.Warn("Unknown storage auth_type specified, defaulting to IAM Role.", "type", cfg.Storage.AuthType)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsCfgOpts...)
	if err != nil {
		slog.Error("Failed to load AWS config for S3", "error", err)
		panic(err)
	}

	return &S3ObjectStore{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  cfg.Storage.Bucket,
		timeout: cfg.Storage.RequestTimeout,
	}
}

// Put はペイロードをS3に保存し、生成したキーを返します。
func (s *S3ObjectStore) Put(ctx context.Context, text string) (string, error) {
	logger := middleware.GetLogger(ctx)

	key := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key + ".txt"),
		Body:        strings.NewReader(text),
		ContentType: aws.String("text/plain; charset=utf-8"),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		logger.Error("Failed to put object to S3", "error", err, "bucket", s.bucket, "key", key)
		return "", model.ErrUpstreamStorage
	}

	logger.Debug("Stored payload in S3", "key", key, "size", len(text))
	return key, nil
}

// Get はキーに対応するペイロードをS3から取得します。
func (s *S3ObjectStore) Get(ctx context.Context, key string) (string, error) {
	logger := middleware.GetLogger(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key + ".txt"),
	}

	output, err := s.client.GetObject(ctx, input)
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			logger.Warn("Object not found in S3", "bucket", s.bucket, "key", key)
			return "", model.ErrNotFound
		}
		logger.Error("Failed to get object from S3", "error", err, "bucket", s.bucket, "key", key)
		return "", model.ErrUpstreamStorage
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		logger.Error("Failed to read object body from S3", "error", err, "bucket", s.bucket, "key", key)
		return "", model.ErrUpstreamStorage
	}

	return string(body), nil
}
