package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) account.Repository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, name, identifier, notes, active, third_party, notify_emails`

// The notify_emails column stores the recipient list comma-separated.
func joinEmails(emails []string) string {
	return strings.Join(emails, ",")
}

func splitEmails(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) (int64, error) {
	query := `INSERT INTO account (name, identifier, notes, active, third_party, notify_emails) VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, a.Name, a.Identifier, a.Notes, boolToInt(a.Active), boolToInt(a.ThirdParty), joinEmails(a.NotifyEmails))
	if err != nil {
		return 0, errors.DatabaseError("Failed to create account", err)
	}

	return result.LastInsertId()
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE identifier = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *AccountRepository) scanOne(row *sql.Row) (*account.Account, error) {
	var a account.Account
	var active, thirdParty int
	var emails string
	err := row.Scan(&a.ID, &a.Name, &a.Identifier, &a.Notes, &active, &thirdParty, &emails)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Account")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get account", err)
	}

	a.Active = active == 1
	a.ThirdParty = thirdParty == 1
	a.NotifyEmails = splitEmails(emails)
	return &a, nil
}

func (r *AccountRepository) List(ctx context.Context, activeOnly bool) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		var a account.Account
		var active, thirdParty int
		var emails string
		if err := rows.Scan(&a.ID, &a.Name, &a.Identifier, &a.Notes, &active, &thirdParty, &emails); err != nil {
			return nil, errors.DatabaseError("Failed to scan account", err)
		}
		a.Active = active == 1
		a.ThirdParty = thirdParty == 1
		a.NotifyEmails = splitEmails(emails)
		accounts = append(accounts, &a)
	}

	return accounts, rows.Err()
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	query := `UPDATE account SET name = ?, identifier = ?, notes = ?, active = ?, third_party = ?, notify_emails = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, a.Name, a.Identifier, a.Notes, boolToInt(a.Active), boolToInt(a.ThirdParty), joinEmails(a.NotifyEmails), a.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update account", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Account")
	}

	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM account WHERE id = ?`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete account", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Account")
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
