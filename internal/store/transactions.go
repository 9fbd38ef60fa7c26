package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/mt940import/internal/model"
)

// Tx is a write transaction used by the import worker.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// TransactionExists reports whether a record with the same dedup key is stored.
func (t *Tx) TransactionExists(ctx context.Context, key model.DedupKey) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE account_id = ? AND value_date = ? AND amount = ? AND direction = ? AND narrative = ?`,
		key.AccountID, key.ValueDate, key.Amount, string(key.Direction), key.Narrative).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return n > 0, nil
}

// InsertTransaction stores rec and returns its id.
func (t *Tx) InsertTransaction(ctx context.Context, rec model.TransactionRecord) (int64, error) {
	key := rec.Key()
	var typeCode any
	if rec.TypeCode != "" {
		typeCode = rec.TypeCode
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions
		 (account_id, value_date, narrative, amount, direction, type_code,
		  counterparty, tax_id, invoice, terminal_id, reference, card)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.AccountID, key.ValueDate, key.Narrative, key.Amount, string(key.Direction), typeCode,
		rec.Counterparty, rec.TaxID, rec.Invoice, rec.TerminalID, rec.Reference, rec.Card)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards uncommitted writes. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Transactions returns the records of an account ordered by value date and id.
func (db *DB) Transactions(ctx context.Context, accountID int64) ([]model.TransactionRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, account_id, value_date, narrative, amount, direction, COALESCE(type_code, ''),
		        counterparty, tax_id, invoice, terminal_id, reference, card
		 FROM transactions WHERE account_id = ? ORDER BY value_date, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.TransactionRecord
	for rows.Next() {
		var (
			rec       model.TransactionRecord
			date, amt string
			dir       string
		)
		if err := rows.Scan(&rec.ID, &rec.AccountID, &date, &rec.Narrative, &amt, &dir, &rec.TypeCode,
			&rec.Counterparty, &rec.TaxID, &rec.Invoice, &rec.TerminalID, &rec.Reference, &rec.Card); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if rec.ValueDate, err = time.Parse(model.DateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing value date %q: %w", date, err)
		}
		if rec.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amt, err)
		}
		rec.Direction = model.Direction(dir)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountTransactions returns the number of records stored for an account.
func (db *DB) CountTransactions(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
