package cdn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Builder-Lawyers/certify-backend/pkg/env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

type CloudfrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

type Config struct {
	// DistributionID of the distribution in front of the certificates bucket. Empty disables invalidation.
	DistributionID string
	// PathPrefix is the origin path of the bucket inside the distribution.
	PathPrefix string
}

func NewConfig() Config {
	return Config{
		DistributionID: env.GetEnv("CLOUDFRONT_DISTRIBUTION_ID", ""),
		PathPrefix:     strings.Trim(env.GetEnv("CLOUDFRONT_PATH_PREFIX", ""), "/"),
	}
}

// Invalidator drops cached copies of certificate PDFs that were overwritten.
type Invalidator struct {
	client CloudfrontAPI
	cfg    Config
	now    func() time.Time
}

func NewInvalidator(client CloudfrontAPI, cfg Config) *Invalidator {
	return &Invalidator{client: client, cfg: cfg, now: time.Now}
}

func NewCloudfrontInvalidator(awsConfig aws.Config, cfg Config) *Invalidator {
	return NewInvalidator(cloudfront.NewFromConfig(awsConfig), cfg)
}

func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) error {
	if i.cfg.DistributionID == "" || len(keys) == 0 {
		return nil
	}
	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		path := "/" + strings.TrimPrefix(key, "/")
		if i.cfg.PathPrefix != "" {
			path = "/" + i.cfg.PathPrefix + path
		}
		paths = append(paths, path)
	}

	res, err := i.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(i.cfg.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("certify-%d", i.now().UnixNano())), // must be unique per request
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("err invalidating %v, %w", paths, err)
	}
	slog.Info("requested cdn invalidation", "id", aws.ToString(res.Invalidation.Id), "paths", paths)
	return nil
}
