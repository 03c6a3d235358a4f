package repo

import (
	"context"

	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
	dbs "github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/google/uuid"
)

type UserRepo struct {
	q dbs.Querier
}

func NewUserRepo(q dbs.Querier) *UserRepo {
	return &UserRepo{q: q}
}

// GetRecipient resolves the email from the auth identity and the display name from the profile.
// Email is empty when the identity has none.
func (r *UserRepo) GetRecipient(ctx context.Context, userID uuid.UUID) (*db.Recipient, error) {
	var (
		email                            *string
		displayName, firstName, lastName *string
	)
	err := r.q.QueryRow(ctx, `SELECT u.email, p.display_name, p.first_name, p.last_name
		FROM certify.users u
		LEFT JOIN certify.profiles p ON p.user_id = u.id
		WHERE u.id = $1`, userID).Scan(&email, &displayName, &firstName, &lastName)
	if err != nil {
		return nil, wrapNotFound(err, "user")
	}

	recipient := &db.Recipient{UserID: userID}
	if email != nil {
		recipient.Email = *email
	}
	switch {
	case displayName != nil && *displayName != "":
		recipient.DisplayName = *displayName
	case firstName != nil || lastName != nil:
		recipient.DisplayName = joinName(firstName, lastName)
	}
	return recipient, nil
}

func joinName(first, last *string) string {
	name := ""
	if first != nil {
		name = *first
	}
	if last != nil && *last != "" {
		if name != "" {
			name += " "
		}
		name += *last
	}
	return name
}
