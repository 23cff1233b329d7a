package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) item.Repository {
	return &ItemRepository{db: db}
}

const itemColumns = `i.id, i.tech_id, t.name, i.account_id, a.name, i.region, i.name, i.arn, COALESCE(i.latest_revision_id, 0)`

const itemJoin = `FROM item i
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id`

func (r *ItemRepository) EnsureTechnology(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM technology WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.DatabaseError("Failed to look up technology", err)
	}

	result, err := r.db.ExecContext(ctx, `INSERT INTO technology (name) VALUES (?)`, name)
	if err != nil {
		return 0, errors.DatabaseError("Failed to create technology", err)
	}
	return result.LastInsertId()
}

func (r *ItemRepository) Upsert(ctx context.Context, it *item.Item) (*item.Item, error) {
	existing, err := r.Find(ctx, it.Technology, it.Account, it.Region, it.Name)
	if err == nil {
		if it.ARN != "" && it.ARN != existing.ARN {
			if _, err := r.db.ExecContext(ctx, `UPDATE item SET arn = ? WHERE id = ?`, it.ARN, existing.ID); err != nil {
				return nil, errors.DatabaseError("Failed to update item", err)
			}
			existing.ARN = it.ARN
		}
		return existing, nil
	}
	if appErr, ok := err.(*errors.AppError); !ok || appErr.Code != errors.ErrCodeNotFound {
		return nil, err
	}

	techID, err := r.EnsureTechnology(ctx, it.Technology)
	if err != nil {
		return nil, err
	}

	var accountID int64
	err = r.db.QueryRowContext(ctx, `SELECT id FROM account WHERE identifier = ? OR name = ?`, it.Account, it.Account).Scan(&accountID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Account")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to look up account", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO item (tech_id, account_id, region, name, arn) VALUES (?, ?, ?, ?, ?)`,
		techID, accountID, it.Region, it.Name, it.ARN)
	if err != nil {
		return nil, errors.DatabaseError("Failed to create item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.DatabaseError("Failed to create item", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.id = ?`, itemColumns, itemJoin)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *ItemRepository) Find(ctx context.Context, technology, accountIdentifier, region, name string) (*item.Item, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.name = ? AND (a.identifier = ? OR a.name = ?) AND i.region = ? AND i.name = ?`, itemColumns, itemJoin)
	return r.scanOne(r.db.QueryRowContext(ctx, query, technology, accountIdentifier, accountIdentifier, region, name))
}

func (r *ItemRepository) scanOne(row *sql.Row) (*item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.TechID, &it.Technology, &it.AccountID, &it.Account, &it.Region, &it.Name, &it.ARN, &it.LatestRevisionID)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Item")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get item", err)
	}

	return &it, nil
}

func (r *ItemRepository) List(ctx context.Context, filter item.Filter, limit, offset int) ([]*item.Item, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.Technology != "" {
		where = append(where, "t.name = ?")
		args = append(args, filter.Technology)
	}
	if filter.Account != "" {
		where = append(where, "(a.name = ? OR a.identifier = ?)")
		args = append(args, filter.Account, filter.Account)
	}
	if filter.Region != "" {
		where = append(where, "i.region = ?")
		args = append(args, filter.Region)
	}
	if filter.Name != "" {
		where = append(where, "i.name = ?")
		args = append(args, filter.Name)
	}
	if filter.Active != nil {
		where = append(where, `EXISTS (SELECT 1 FROM item_revision r WHERE r.id = i.latest_revision_id AND r.active = ?)`)
		args = append(args, boolToInt(*filter.Active))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) %s WHERE %s`, itemJoin, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count items", err)
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY i.id DESC LIMIT ? OFFSET ?`, itemColumns, itemJoin, whereClause)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list items", err)
	}
	defer rows.Close()

	var items []*item.Item
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.ID, &it.TechID, &it.Technology, &it.AccountID, &it.Account, &it.Region, &it.Name, &it.ARN, &it.LatestRevisionID); err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan item", err)
		}
		items = append(items, &it)
	}

	return items, total, rows.Err()
}

func (r *ItemRepository) ListByTechnology(ctx context.Context, technology string) ([]*item.Item, error) {
	query := fmt.Sprintf(`SELECT %s %s
JOIN item_revision rev ON rev.id = i.latest_revision_id
WHERE t.name = ? AND rev.active = 1
ORDER BY i.id`, itemColumns, itemJoin)

	rows, err := r.db.QueryContext(ctx, query, technology)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list items", err)
	}
	defer rows.Close()

	var items []*item.Item
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.ID, &it.TechID, &it.Technology, &it.AccountID, &it.Account, &it.Region, &it.Name, &it.ARN, &it.LatestRevisionID); err != nil {
			return nil, errors.DatabaseError("Failed to scan item", err)
		}
		items = append(items, &it)
	}

	return items, rows.Err()
}

func (r *ItemRepository) AddRevision(ctx context.Context, itemID int64, config json.RawMessage, active bool) (*item.Revision, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.DatabaseError("Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Only the newest revision stays current.
	if _, err := tx.ExecContext(ctx,
		`UPDATE item_revision SET active = 0 WHERE item_id = ? AND active = 1`, itemID); err != nil {
		return nil, errors.DatabaseError("Failed to demote prior revision", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO item_revision (item_id, config, active, date_created) VALUES (?, ?, ?, ?)`,
		itemID, string(config), boolToInt(active), now.Format(time.RFC3339))
	if err != nil {
		return nil, errors.DatabaseError("Failed to create revision", err)
	}

	revID, err := result.LastInsertId()
	if err != nil {
		return nil, errors.DatabaseError("Failed to create revision", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE item SET latest_revision_id = ? WHERE id = ?`, revID, itemID); err != nil {
		return nil, errors.DatabaseError("Failed to update item revision pointer", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.DatabaseError("Failed to commit revision", err)
	}

	return &item.Revision{
		ID:          revID,
		ItemID:      itemID,
		Config:      config,
		Active:      active,
		DateCreated: now,
	}, nil
}

func (r *ItemRepository) GetLatestRevision(ctx context.Context, itemID int64) (*item.Revision, error) {
	query := `SELECT r.id, r.item_id, r.config, r.active, r.date_created, r.date_last_ephemeral_change
FROM item_revision r
JOIN item i ON i.latest_revision_id = r.id
WHERE i.id = ?`

	var rev item.Revision
	var config string
	var active int
	var created string
	var ephemeral sql.NullString

	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&rev.ID, &rev.ItemID, &config, &active, &created, &ephemeral)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Revision")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get revision", err)
	}

	rev.Config = json.RawMessage(config)
	rev.Active = active == 1
	rev.DateCreated, _ = time.Parse(time.RFC3339, created)
	if ephemeral.Valid {
		t, err := time.Parse(time.RFC3339, ephemeral.String)
		if err == nil {
			rev.DateLastEphemeralChange = &t
		}
	}

	return &rev, nil
}

func (r *ItemRepository) ListRevisions(ctx context.Context, itemID int64, limit, offset int) ([]*item.Revision, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_revision WHERE item_id = ?`, itemID).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count revisions", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, config, active, date_created, date_last_ephemeral_change
FROM item_revision WHERE item_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		itemID, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list revisions", err)
	}
	defer rows.Close()

	var revisions []*item.Revision
	for rows.Next() {
		var rev item.Revision
		var config string
		var active int
		var created string
		var ephemeral sql.NullString
		if err := rows.Scan(&rev.ID, &rev.ItemID, &config, &active, &created, &ephemeral); err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan revision", err)
		}
		rev.Config = json.RawMessage(config)
		rev.Active = active == 1
		rev.DateCreated, _ = time.Parse(time.RFC3339, created)
		if ephemeral.Valid {
			if t, err := time.Parse(time.RFC3339, ephemeral.String); err == nil {
				rev.DateLastEphemeralChange = &t
			}
		}
		revisions = append(revisions, &rev)
	}

	return revisions, total, rows.Err()
}

func (r *ItemRepository) TouchEphemeral(ctx context.Context, revisionID int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, `UPDATE item_revision SET date_last_ephemeral_change = ? WHERE id = ?`, now, revisionID)
	if err != nil {
		return errors.DatabaseError("Failed to record ephemeral change", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Revision")
	}

	return nil
}

func (r *ItemRepository) Deactivate(ctx context.Context, itemID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE item_revision SET active = 0 WHERE id = (SELECT latest_revision_id FROM item WHERE id = ?)`, itemID)
	if err != nil {
		return errors.DatabaseError("Failed to deactivate item", err)
	}
	return nil
}
