package uploads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/upload"
)

var errS3Disabled = errors.New("upload storage is not configured; set UPLOAD_S3_* to enable uploads")

// S3Issuer hands out presigned PUT URLs so clients upload straight to an S3-compatible bucket.
type S3Issuer struct {
	bucket    string
	keyPrefix string
	ttl       time.Duration
	presign   *s3.PresignClient
	log       zerolog.Logger
	now       func() time.Time
}

func NewS3Issuer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Issuer, error) {
	logger := log.With().Str("component", "s3-upload-issuer").Logger()
	issuer := &S3Issuer{
		bucket:    strings.TrimSpace(cfg.S3Bucket),
		keyPrefix: cfg.S3KeyPrefix,
		ttl:       cfg.UploadTokenTTL,
		log:       logger,
		now:       time.Now,
	}

	accessKey := strings.TrimSpace(cfg.S3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.S3SecretKey)
	if issuer.bucket == "" || accessKey == "" || secretKey == "" {
		logger.Warn().Msg("UPLOAD_S3_BUCKET or credentials are not set; upload parameters will fail until configured")
		return issuer, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	issuer.presign = s3.NewPresignClient(client)
	return issuer, nil
}

func (i *S3Issuer) Provider() string {
	return config.UploadProviderS3
}

// Issue presigns a PUT for a fresh object key under the configured prefix.
func (i *S3Issuer) Issue(ctx context.Context) (upload.Params, error) {
	if i.presign == nil {
		return nil, errS3Disabled
	}

	key := i.keyPrefix + uuid.NewString()
	req, err := i.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(i.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(i.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign put object: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPut
	}
	return upload.Params{
		"uploadUrl": req.URL,
		"key":       key,
		"expire":    i.now().Add(i.ttl).Unix(),
		"method":    method,
	}, nil
}
