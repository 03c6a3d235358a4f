package interfaces

import (
	"context"
	"io"

	"github.com/Builder-Lawyers/certify-backend/internal/infra/pdf"
)

type FileStorage interface {
	UploadFile(ctx context.Context, key string, contentType *string, body io.Reader) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) (string, error)
}

type TemplateFetcher interface {
	FetchTemplate(ctx context.Context, url string) ([]byte, error)
}

type PDFRenderer interface {
	Render(ctx context.Context, doc pdf.Document) ([]byte, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}
