package store

import (
	"context"
	"fmt"

	"github.com/cleared-dev/mt940import/internal/model"
)

// TypeCodes returns the full type registry ordered by code.
func (db *DB) TypeCodes(ctx context.Context) ([]model.TypeCode, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT code, label, operational FROM transaction_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query type codes: %w", err)
	}
	defer rows.Close()

	var out []model.TypeCode
	for rows.Next() {
		var tc model.TypeCode
		if err := rows.Scan(&tc.Code, &tc.Label, &tc.Operational); err != nil {
			return nil, fmt.Errorf("scan type code: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// KnownTypeCodes returns the set of registered codes.
func (db *DB) KnownTypeCodes(ctx context.Context) (map[string]bool, error) {
	codes, err := db.TypeCodes(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(codes))
	for _, tc := range codes {
		known[tc.Code] = true
	}
	return known, nil
}

// RegisterTypeCodes inserts codes in their own committed transaction.
// Codes that already exist are left untouched.
func (db *DB) RegisterTypeCodes(ctx context.Context, codes []model.TypeCode) error {
	if len(codes) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin type registration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, tc := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_types (code, label, operational) VALUES (?, ?, ?) ON CONFLICT(code) DO NOTHING`,
			tc.Code, tc.Label, tc.Operational); err != nil {
			return fmt.Errorf("register type code %s: %w", tc.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit type registration: %w", err)
	}
	db.logger.Debug("registered type codes", "count", len(codes))
	return nil
}
