package scanner

import "context"

// Repository defines scan engine configuration persistence
type Repository interface {
	Create(ctx context.Context, c *Config) (int64, error)
	GetByID(ctx context.Context, id int64) (*Config, error)
	GetByName(ctx context.Context, name string) (*Config, error)
	List(ctx context.Context) ([]*Config, error)
	Update(ctx context.Context, c *Config) error
	Delete(ctx context.Context, id int64) error
}
