package audit

import "context"

// Repository defines issue persistence operations
type Repository interface {
	Create(ctx context.Context, issue *Issue) (int64, error)
	GetByID(ctx context.Context, id int64) (*Issue, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Issue, int64, error)
	ListByItem(ctx context.Context, itemID int64, includeFixed bool) ([]*Issue, error)

	// Reconcile replaces the open issues on an item with a fresh set of
	// findings. Existing issues whose key matches a new finding keep
	// their justification. Existing issues with no matching finding are
	// marked fixed. Returns the number of new, kept and fixed issues.
	Reconcile(ctx context.Context, itemID int64, found []*Issue) (created, kept, fixed int, err error)

	// Justify marks an issue as justified by a user.
	Justify(ctx context.Context, id int64, user, justification string) error

	// RemoveJustification clears a previous justification.
	RemoveJustification(ctx context.Context, id int64) error

	// EnsureAuditorSettings returns the settings row for an auditor
	// against one technology and account, creating it enabled on first
	// use. The account may be named by name or identifier.
	EnsureAuditorSettings(ctx context.Context, auditorClass, technology, account, issueText string) (*AuditorSettings, error)

	// ListAuditorSettings returns every settings row.
	ListAuditorSettings(ctx context.Context) ([]*AuditorSettings, error)

	// SetAuditorDisabled toggles one settings row.
	SetAuditorDisabled(ctx context.Context, id int64, disabled bool) error
}
