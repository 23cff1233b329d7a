package event

import "context"

// Repository defines raw event persistence operations
type Repository interface {
	Create(ctx context.Context, e *GuardDutyEvent) (int64, error)
	ListByItem(ctx context.Context, itemID int64, limit, offset int) ([]*GuardDutyEvent, int64, error)
}
