package sqldb

import (
	"context"
	"database/sql"

	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type ScannerRepository struct {
	db *sql.DB
}

func NewScannerRepository(db *sql.DB) scanner.Repository {
	return &ScannerRepository{db: db}
}

func (r *ScannerRepository) Create(ctx context.Context, c *scanner.Config) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO scanner_config (name, username, password, url, ssl_verify) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Username, c.Password, c.URL, boolToInt(c.SSLVerify))
	if err != nil {
		return 0, errors.DatabaseError("Failed to create scanner config", err)
	}

	return result.LastInsertId()
}

func (r *ScannerRepository) GetByID(ctx context.Context, id int64) (*scanner.Config, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, username, password, url, ssl_verify FROM scanner_config WHERE id = ?`, id)
	return scanScannerConfig(row)
}

func (r *ScannerRepository) GetByName(ctx context.Context, name string) (*scanner.Config, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, username, password, url, ssl_verify FROM scanner_config WHERE name = ?`, name)
	return scanScannerConfig(row)
}

func scanScannerConfig(row *sql.Row) (*scanner.Config, error) {
	var c scanner.Config
	var sslVerify int
	err := row.Scan(&c.ID, &c.Name, &c.Username, &c.Password, &c.URL, &sslVerify)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Scanner config")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get scanner config", err)
	}

	c.SSLVerify = sslVerify == 1
	return &c, nil
}

func (r *ScannerRepository) List(ctx context.Context) ([]*scanner.Config, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, username, password, url, ssl_verify FROM scanner_config ORDER BY name`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list scanner configs", err)
	}
	defer rows.Close()

	var configs []*scanner.Config
	for rows.Next() {
		var c scanner.Config
		var sslVerify int
		if err := rows.Scan(&c.ID, &c.Name, &c.Username, &c.Password, &c.URL, &sslVerify); err != nil {
			return nil, errors.DatabaseError("Failed to scan scanner config", err)
		}
		c.SSLVerify = sslVerify == 1
		configs = append(configs, &c)
	}

	return configs, rows.Err()
}

func (r *ScannerRepository) Update(ctx context.Context, c *scanner.Config) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scanner_config SET name = ?, username = ?, password = ?, url = ?, ssl_verify = ? WHERE id = ?`,
		c.Name, c.Username, c.Password, c.URL, boolToInt(c.SSLVerify), c.ID)
	if err != nil {
		return errors.DatabaseError("Failed to update scanner config", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Scanner config")
	}

	return nil
}

func (r *ScannerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scanner_config WHERE id = ?`, id)
	if err != nil {
		return errors.DatabaseError("Failed to delete scanner config", err)
	}

	rows, err := result.RowsAffected()
	if err != nil || rows == 0 {
		return errors.NotFound("Scanner config")
	}

	return nil
}
