package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNoPublicURL = errors.New("public url can't be resolved")

type Config struct {
	CertificatesBucket string
	FontsBucket        string
	PublicBaseURL      string
	Region             string
}

func NewConfig() Config {
	return Config{
		CertificatesBucket: env.GetEnv("S3_CERTIFICATES_BUCKET", "certificates"),
		FontsBucket:        env.GetEnv("S3_FONTS_BUCKET", "fonts"),
		PublicBaseURL:      env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		Region:             env.GetEnv("AWS_DEFAULT_REGION", "eu-north-1"),
	}
}

type Storage struct {
	client        *s3.Client
	bucket        string
	region        string
	publicBaseURL string
}

func NewStorage(config aws.Config, bucket, region, publicBaseURL string) *Storage {
	return &Storage{
		client:        initClient(config),
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func initClient(config aws.Config) *s3.Client {
	client := s3.NewFromConfig(config, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

func (s *Storage) Bucket() string {
	return s.bucket
}

// UploadFile puts the object under key, replacing whatever is stored there.
func (s *Storage) UploadFile(ctx context.Context, key string, contentType *string, body io.Reader) error {
	var ct string

	data, err := io.ReadAll(body)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading for content-type detection: %v", err)
	}

	if contentType == nil {
		ct = http.DetectContentType(data)
		if strings.HasSuffix(key, ".pdf") {
			ct = "application/pdf"
		}
	} else {
		ct = *contentType
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("error uploading %s: %w", key, err)
	}
	return nil
}

// PublicURL builds the public address of key, using the configured base url when present.
func (s *Storage) PublicURL(key string) (string, error) {
	if key == "" {
		return "", ErrNoPublicURL
	}
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, escaped), nil
	}
	if s.bucket == "" || s.region == "" {
		return "", ErrNoPublicURL
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), nil
}

func (s *Storage) ListFiles(ctx context.Context, limit int32, input *s3.ListObjectsV2Input) []string {
	input.Bucket = &s.bucket

	p := s3.NewListObjectsV2Paginator(s.client, input, func(o *s3.ListObjectsV2PaginatorOptions) {
		o.Limit = limit
	})

	var files []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			slog.Error("failed to get page", "err", err)
			break
		}
		for _, obj := range page.Contents {
			files = append(files, *obj.Key)
		}
	}
	return files
}

func (s *Storage) GetFile(ctx context.Context, key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	}
	resp, err := s.client.GetObject(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error downloading file %v: %w", key, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading file contents, %v", err)
	}

	return data, nil
}
