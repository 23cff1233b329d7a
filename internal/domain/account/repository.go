package account

import "context"

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, a *Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	List(ctx context.Context, activeOnly bool) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id int64) error
}
