package repositories

import "context"

// UnitOfWork runs fn against a repository bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise, including on panic.
type UnitOfWork[R any] interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo R) error) error
}
