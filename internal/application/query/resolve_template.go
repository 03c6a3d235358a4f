package query

import (
	"context"
	"log/slog"

	"github.com/Builder-Lawyers/certify-backend/internal/application/errs"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/db/repo"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

type ResolveTemplate struct {
	uowFactory *dbs.UOWFactory
}

func NewResolveTemplate(uowFactory *dbs.UOWFactory) *ResolveTemplate {
	return &ResolveTemplate{uowFactory: uowFactory}
}

// Query picks the template url: the location's primary template, then the default template,
// then the most recently created one.
func (c *ResolveTemplate) Query(ctx context.Context, locationID *uuid.UUID) (string, error) {
	templates := repo.NewTemplateRepo(c.uowFactory.Pool)

	if locationID != nil {
		url, err := templates.GetLocationPrimaryURL(ctx, *locationID)
		switch {
		case err != nil:
			slog.Warn("no primary template for location, falling back to default", "locationID", *locationID, "err", err)
		case url == nil || *url == "":
			slog.Warn("primary template for location has no url, falling back to default", "locationID", *locationID)
		default:
			return *url, nil
		}
	}

	url, err := templates.GetDefaultURL(ctx)
	switch {
	case err != nil:
		slog.Warn("no default template, falling back to latest", "err", err)
	case url == nil || *url == "":
		slog.Warn("default template has no url, falling back to latest")
	default:
		return *url, nil
	}

	url, err = templates.GetLatestURL(ctx)
	switch {
	case err != nil:
		slog.Error("no certificate template found", "err", err)
	case url == nil || *url == "":
		slog.Error("latest template has no url")
	default:
		return *url, nil
	}

	return "", errs.ErrNoTemplate
}
