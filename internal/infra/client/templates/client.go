package templates

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// TemplatesClient downloads stored PDF certificate templates by url.
type TemplatesClient struct {
	cfg    *TemplatesConfig
	client *resty.Client
}

func NewTemplatesClient(config *TemplatesConfig) *TemplatesClient {
	return &TemplatesClient{
		cfg:    config,
		client: resty.New().SetTimeout(config.Timeout).SetRetryCount(0),
	}
}

func (c *TemplatesClient) FetchTemplate(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/pdf").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("error downloading template %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("error downloading template %s: status %d", url, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("template %s is empty", url)
	}
	if c.cfg.MaxBytes > 0 && int64(len(body)) > c.cfg.MaxBytes {
		return nil, fmt.Errorf("template %s exceeds %d bytes", url, c.cfg.MaxBytes)
	}
	return body, nil
}
