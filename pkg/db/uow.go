package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Builder-Lawyers/certify-backend/pkg/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ interfaces.UoW = (*UOW)(nil)

type UOW struct {
	pool *pgxpool.Pool
	Tx   pgx.Tx
}

func (u *UOW) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't begin tx, %v", err)
	}
	u.Tx = tx
	return u.Tx, nil
}

func (u *UOW) GetTx() pgx.Tx {
	return u.Tx
}

func (u *UOW) Commit(ctx context.Context) error {
	if u.Tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.Tx.Commit(ctx)
}

func (u *UOW) Rollback(ctx context.Context) error {
	if u.Tx == nil {
		return fmt.Errorf("transaction is not started yet")
	}
	return u.Tx.Rollback(ctx)
}

// Finalize commits when *err is nil and rolls back otherwise; the commit error is written back to *err.
func (u *UOW) Finalize(ctx context.Context, err *error) {
	if u.Tx == nil {
		return
	}
	if *err != nil {
		if rbErr := u.Tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			*err = errors.Join(*err, rbErr)
		}
		return
	}
	if cErr := u.Tx.Commit(ctx); cErr != nil {
		*err = fmt.Errorf("err committing, %w", cErr)
	}
}

type UOWFactory struct {
	Pool *pgxpool.Pool
}

func (u *UOWFactory) GetUoW() *UOW {
	return &UOW{
		pool: u.Pool,
	}
}

func NewUoWFactory(pool *pgxpool.Pool) *UOWFactory {
	return &UOWFactory{
		Pool: pool,
	}
}
