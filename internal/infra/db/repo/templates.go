package repo

import (
	"context"

	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

type TemplateRepo struct {
	q dbs.Querier
}

func NewTemplateRepo(q dbs.Querier) *TemplateRepo {
	return &TemplateRepo{q: q}
}

func (r *TemplateRepo) GetLocationPrimaryURL(ctx context.Context, locationID uuid.UUID) (*string, error) {
	var url *string
	err := r.q.QueryRow(ctx, `SELECT t.url FROM certify.location_templates lt
		JOIN certify.certificate_templates t ON t.id = lt.template_id
		WHERE lt.location_id = $1 AND lt.is_primary = true
		LIMIT 1`, locationID).Scan(&url)
	if err != nil {
		return nil, wrapNotFound(err, "location template")
	}
	return url, nil
}

func (r *TemplateRepo) GetDefaultURL(ctx context.Context) (*string, error) {
	var url *string
	err := r.q.QueryRow(ctx, "SELECT url FROM certify.certificate_templates WHERE is_default = true ORDER BY created_at DESC LIMIT 1").Scan(&url)
	if err != nil {
		return nil, wrapNotFound(err, "default template")
	}
	return url, nil
}

func (r *TemplateRepo) GetLatestURL(ctx context.Context) (*string, error) {
	var url *string
	err := r.q.QueryRow(ctx, "SELECT url FROM certify.certificate_templates ORDER BY created_at DESC LIMIT 1").Scan(&url)
	if err != nil {
		return nil, wrapNotFound(err, "latest template")
	}
	return url, nil
}
