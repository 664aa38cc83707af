package uploads

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/obs"
)

var (
	errBadKind        = common.NewAppError("INVALID_KIND", "kind must be promo or avatar", http.StatusUnprocessableEntity, nil)
	errBadContentType = common.NewAppError("INVALID_CONTENT_TYPE", "only image uploads are allowed", http.StatusUnprocessableEntity, nil)
	errTooLarge       = common.NewAppError("FILE_TOO_LARGE", "file exceeds the upload size limit", http.StatusUnprocessableEntity, nil)
)

// Asset kinds accepted by the presign endpoint.
const (
	KindPromo  = "promo"
	KindAvatar = "avatar"
)

// Presigner issues pre-signed PUT URLs. Abstracted so tests can fake
// the S3 presign client.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4URL, error)
}

// v4URL mirrors the part of the SDK presign result the service needs.
type v4URL struct {
	URL    string
	Method string
}

// S3Config carries the object-storage settings.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	URLTTL    time.Duration
	MaxBytes  int64
}

// Service issues pre-signed upload URLs for supplier assets.
type Service struct {
	Presign Presigner
	Bucket  string
	URLTTL  time.Duration
	MaxSize int64
	Now     func() time.Time
}

// sdkPresigner adapts the SDK presign client to the Presigner
// interface.
type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) PresignPutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.PresignOptions)) (*v4URL, error) {
	req, err := p.client.PresignPutObject(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return &v4URL{URL: req.URL, Method: req.Method}, nil
}

// NewService builds the S3 client from static credentials and an
// optional custom endpoint, which covers S3-compatible stores as well.
func NewService(ctx context.Context, cfg S3Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Service{
		Presign: sdkPresigner{client: s3.NewPresignClient(client)},
		Bucket:  cfg.Bucket,
		URLTTL:  cfg.URLTTL,
		MaxSize: cfg.MaxBytes,
		Now:     time.Now,
	}, nil
}

// PresignInput describes the asset a supplier wants to upload.
type PresignInput struct {
	Kind        string `json:"kind"`
	FileName    string `json:"fileName" validate:"required,max=200"`
	ContentType string `json:"contentType" validate:"required"`
	Size        int64  `json:"size" validate:"gt=0"`
}

// PresignResult is returned to the client, which PUTs the file to URL
// and later stores Key on its profile.
type PresignResult struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueURL validates the request and returns a time-limited upload
// URL. Keys are namespaced per supplier so one tenant can never
// overwrite another's assets.
func (s *Service) IssueURL(ctx context.Context, supplierID string, in PresignInput) (PresignResult, error) {
	if err := common.Validate(in); err != nil {
		return PresignResult{}, err
	}
	if in.Kind != KindPromo && in.Kind != KindAvatar {
		return PresignResult{}, errBadKind
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return PresignResult{}, errBadContentType
	}
	if s.MaxSize > 0 && in.Size > s.MaxSize {
		return PresignResult{}, errTooLarge
	}
	ext := path.Ext(in.FileName)
	key := fmt.Sprintf("%s/%s/%s%s", supplierID, in.Kind, uuid.NewString(), ext)

	req, err := s.Presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(in.ContentType),
		ContentLength: aws.Int64(in.Size),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.URLTTL
	})
	if err != nil {
		return PresignResult{}, fmt.Errorf("presign upload: %w", err)
	}
	obs.PresignIssuedTotal.WithLabelValues(in.Kind).Inc()
	return PresignResult{
		URL:       req.URL,
		Method:    req.Method,
		Key:       key,
		ExpiresAt: s.Now().Add(s.URLTTL),
	}, nil
}
