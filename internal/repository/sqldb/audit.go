package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) audit.Repository {
	return &AuditRepository{db: db}
}

const issueColumns = `item_audit.id, item_audit.item_id, item_audit.score, item_audit.issue, item_audit.notes, item_audit.action_instructions, item_audit.fixed, item_audit.justified, item_audit.justified_user, item_audit.justification, item_audit.justified_date, item_audit.date_created`

func (r *AuditRepository) Create(ctx context.Context, issue *audit.Issue) (int64, error) {
	now := time.Now().UTC()
	issue.DateCreated = now

	query := `INSERT INTO item_audit (item_id, score, issue, notes, action_instructions, date_created) VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, issue.ItemID, issue.Score, issue.Issue, issue.Notes, issue.ActionInstructions, now.Format(time.RFC3339))
	if err != nil {
		return 0, errors.DatabaseError("Failed to create issue", err)
	}

	return result.LastInsertId()
}

func (r *AuditRepository) GetByID(ctx context.Context, id int64) (*audit.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM item_audit WHERE id = ?`, issueColumns)
	row := r.db.QueryRowContext(ctx, query, id)

	issue, err := scanIssue(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Issue")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get issue", err)
	}
	return issue, nil
}

func scanIssue(scan func(dest ...interface{}) error) (*audit.Issue, error) {
	var i audit.Issue
	var fixed, justified int
	var justifiedDate sql.NullString
	var created string

	err := scan(&i.ID, &i.ItemID, &i.Score, &i.Issue, &i.Notes, &i.ActionInstructions, &fixed, &justified, &i.JustifiedUser, &i.Justification, &justifiedDate, &created)
	if err != nil {
		return nil, err
	}

	i.Fixed = fixed == 1
	i.Justified = justified == 1
	i.DateCreated, _ = time.Parse(time.RFC3339, created)
	if justifiedDate.Valid {
		if t, err := time.Parse(time.RFC3339, justifiedDate.String); err == nil {
			i.JustifiedDate = &t
		}
	}
	return &i, nil
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Issue, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	join := ""
	if filter.Technology != "" || filter.Account != "" {
		join = `JOIN item i ON i.id = item_audit.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id`
	}
	if filter.Technology != "" {
		where = append(where, "t.name = ?")
		args = append(args, filter.Technology)
	}
	if filter.Account != "" {
		where = append(where, "(a.name = ? OR a.identifier = ?)")
		args = append(args, filter.Account, filter.Account)
	}
	if filter.Justified != nil {
		where = append(where, "item_audit.justified = ?")
		args = append(args, boolToInt(*filter.Justified))
	}
	if filter.Fixed != nil {
		where = append(where, "item_audit.fixed = ?")
		args = append(args, boolToInt(*filter.Fixed))
	}
	if filter.MinScore > 0 {
		where = append(where, "item_audit.score >= ?")
		args = append(args, filter.MinScore)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM item_audit %s WHERE %s`, join, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count issues", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM item_audit %s WHERE %s ORDER BY item_audit.score DESC, item_audit.id DESC LIMIT ? OFFSET ?`,
		issueColumns, join, whereClause)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list issues", err)
	}
	defer rows.Close()

	var issues []*audit.Issue
	for rows.Next() {
		issue, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan issue", err)
		}
		issues = append(issues, issue)
	}

	return issues, total, rows.Err()
}

func (r *AuditRepository) ListByItem(ctx context.Context, itemID int64, includeFixed bool) ([]*audit.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM item_audit WHERE item_id = ?`, issueColumns)
	if !includeFixed {
		query += ` AND fixed = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list issues", err)
	}
	defer rows.Close()

	var issues []*audit.Issue
	for rows.Next() {
		issue, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan issue", err)
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}

// Reconcile diffs the fresh findings of an audit pass against the open
// issues already stored for the item. Matching issues survive with
// their justification intact, stale issues are marked fixed, and new
// findings are inserted.
func (r *AuditRepository) Reconcile(ctx context.Context, itemID int64, found []*audit.Issue) (created, kept, fixed int, err error) {
	existing, err := r.ListByItem(ctx, itemID, false)
	if err != nil {
		return 0, 0, 0, err
	}

	matched := make(map[int64]bool)
	byKey := make(map[audit.Key]*audit.Issue, len(existing))
	for _, e := range existing {
		byKey[e.Key()] = e
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, 0, errors.DatabaseError("Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	// Findings sharing one (score, issue, notes) identity persist once.
	seen := make(map[audit.Key]bool, len(found))
	for _, f := range found {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		if e, ok := byKey[f.Key()]; ok {
			matched[e.ID] = true
			kept++
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_audit (item_id, score, issue, notes, action_instructions, date_created) VALUES (?, ?, ?, ?, ?, ?)`,
			itemID, f.Score, f.Issue, f.Notes, f.ActionInstructions, now); err != nil {
			return 0, 0, 0, errors.DatabaseError("Failed to create issue", err)
		}
		created++
	}

	for _, e := range existing {
		if matched[e.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE item_audit SET fixed = 1 WHERE id = ?`, e.ID); err != nil {
			return 0, 0, 0, errors.DatabaseError("Failed to mark issue fixed", err)
		}
		fixed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, errors.DatabaseError("Failed to commit audit results", err)
	}

	return created, kept, fixed, nil
}

func (r *AuditRepository) Justify(ctx context.Context, id int64, user, justification string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE item_audit SET justified = 1, justified_user = ?, justification = ?, justified_date = ? WHERE id = ?`,
		user, justification, now, id)
	if err != nil {
		return errors.DatabaseError("Failed to justify issue", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Issue")
	}

	return nil
}

const settingsColumns = `s.id, s.tech_id, s.account_id, t.name, a.name, s.auditor_class, s.disabled, s.issue_text`

const settingsJoin = `FROM auditor_settings s
JOIN technology t ON t.id = s.tech_id
JOIN account a ON a.id = s.account_id`

func scanSettings(scan func(dest ...interface{}) error) (*audit.AuditorSettings, error) {
	var s audit.AuditorSettings
	var disabled int
	if err := scan(&s.ID, &s.TechID, &s.AccountID, &s.Technology, &s.Account, &s.AuditorClass, &disabled, &s.IssueText); err != nil {
		return nil, err
	}
	s.Disabled = disabled == 1
	return &s, nil
}

func (r *AuditRepository) EnsureAuditorSettings(ctx context.Context, auditorClass, technology, account, issueText string) (*audit.AuditorSettings, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.name = ? AND (a.name = ? OR a.identifier = ?) AND s.auditor_class = ?`,
		settingsColumns, settingsJoin)
	row := r.db.QueryRowContext(ctx, query, technology, account, account, auditorClass)

	settings, err := scanSettings(row.Scan)
	if err == nil {
		return settings, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.DatabaseError("Failed to look up auditor settings", err)
	}

	var techID int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM technology WHERE name = ?`, technology).Scan(&techID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("Technology")
		}
		return nil, errors.DatabaseError("Failed to look up technology", err)
	}
	var accountID int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM account WHERE name = ? OR identifier = ?`, account, account).Scan(&accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("Account")
		}
		return nil, errors.DatabaseError("Failed to look up account", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO auditor_settings (tech_id, account_id, auditor_class, disabled, issue_text) VALUES (?, ?, ?, 0, ?)`,
		techID, accountID, auditorClass, issueText)
	if err != nil {
		return nil, errors.DatabaseError("Failed to create auditor settings", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.DatabaseError("Failed to create auditor settings", err)
	}

	row = r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s %s WHERE s.id = ?`, settingsColumns, settingsJoin), id)
	settings, err = scanSettings(row.Scan)
	if err != nil {
		return nil, errors.DatabaseError("Failed to get auditor settings", err)
	}
	return settings, nil
}

func (r *AuditRepository) ListAuditorSettings(ctx context.Context) ([]*audit.AuditorSettings, error) {
	query := fmt.Sprintf(`SELECT %s %s ORDER BY s.id`, settingsColumns, settingsJoin)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list auditor settings", err)
	}
	defer rows.Close()

	var out []*audit.AuditorSettings
	for rows.Next() {
		settings, err := scanSettings(rows.Scan)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan auditor settings", err)
		}
		out = append(out, settings)
	}
	return out, rows.Err()
}

func (r *AuditRepository) SetAuditorDisabled(ctx context.Context, id int64, disabled bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE auditor_settings SET disabled = ? WHERE id = ?`, boolToInt(disabled), id)
	if err != nil {
		return errors.DatabaseError("Failed to update auditor settings", err)
	}
	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Auditor settings")
	}
	return nil
}

func (r *AuditRepository) RemoveJustification(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE item_audit SET justified = 0, justified_user = '', justification = '', justified_date = NULL WHERE id = ?`, id)
	if err != nil {
		return errors.DatabaseError("Failed to remove justification", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Issue")
	}

	return nil
}
