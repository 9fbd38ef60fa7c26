package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cleared-dev/mt940import/internal/model"
)

const accountColumns = `id, name, COALESCE(iban, ''), bank, currency, notes, color`

// Accounts returns all bank accounts ordered by name.
func (db *DB) Accounts(ctx context.Context) ([]model.BankAccount, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []model.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountByID returns the account with id, or ErrNotFound.
func (db *DB) AccountByID(ctx context.Context, id int64) (model.BankAccount, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = ?`, id)
	return scanOne(row)
}

// AccountByIBAN returns the account whose stored IBAN matches, or ErrNotFound.
func (db *DB) AccountByIBAN(ctx context.Context, iban string) (model.BankAccount, error) {
	iban = model.NormalizeIBAN(iban)
	if iban == "" {
		return model.BankAccount{}, ErrNotFound
	}
	row := db.conn.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE iban = ?`, iban)
	return scanOne(row)
}

// CreateAccount inserts a new account and returns it with its id set.
func (db *DB) CreateAccount(ctx context.Context, a model.BankAccount) (model.BankAccount, error) {
	checked, err := model.NewBankAccount(a.Name, a.IBAN, a.Bank, a.Currency)
	if err != nil {
		return model.BankAccount{}, err
	}
	checked.Notes = a.Notes
	checked.Color = a.Color

	var iban any
	if checked.IBAN != "" {
		iban = checked.IBAN
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO bank_accounts (name, iban, bank, currency, notes, color) VALUES (?, ?, ?, ?, ?, ?)`,
		checked.Name, iban, checked.Bank, checked.Currency, checked.Notes, checked.Color)
	if err != nil {
		return model.BankAccount{}, fmt.Errorf("insert account %q: %w", checked.Name, err)
	}
	checked.ID, err = res.LastInsertId()
	if err != nil {
		return model.BankAccount{}, fmt.Errorf("account id: %w", err)
	}
	db.logger.Info("created account", "id", checked.ID, "name", checked.Name, "iban", checked.IBAN)
	return checked, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (model.BankAccount, error) {
	var a model.BankAccount
	if err := s.Scan(&a.ID, &a.Name, &a.IBAN, &a.Bank, &a.Currency, &a.Notes, &a.Color); err != nil {
		return model.BankAccount{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func scanOne(row *sql.Row) (model.BankAccount, error) {
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankAccount{}, ErrNotFound
	}
	return a, err
}
