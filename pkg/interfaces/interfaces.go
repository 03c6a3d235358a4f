package interfaces

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type UoW interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetTx() pgx.Tx
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Finalize(ctx context.Context, err *error)
}
