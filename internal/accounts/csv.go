package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/mt940import/internal/model"
)

const (
	numFields   = 7
	colID       = 0
	colName     = 1
	colIBAN     = 2
	colBank     = 3
	colCurrency = 4
	colNotes    = 5
	colColor    = 6
)

// ReadAccounts reads a bank accounts CSV (header row first).
func ReadAccounts(r io.Reader) ([]model.BankAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.BankAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a bank accounts CSV.
func WriteAccounts(w io.Writer, accounts []model.BankAccount) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"account_id", "name", "iban", "bank", "currency", "notes", "color"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts a BankAccount to a CSV row.
func MarshalAccount(acct model.BankAccount) []string {
	row := make([]string, numFields)
	if acct.ID != 0 {
		row[colID] = strconv.FormatInt(acct.ID, 10)
	}
	row[colName] = acct.Name
	row[colIBAN] = acct.IBAN
	row[colBank] = acct.Bank
	row[colCurrency] = acct.Currency
	row[colNotes] = acct.Notes
	row[colColor] = acct.Color
	return row
}

// UnmarshalAccount converts a CSV row to a validated BankAccount.
func UnmarshalAccount(record []string) (model.BankAccount, error) {
	if len(record) != numFields {
		return model.BankAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var id int64
	if record[colID] != "" {
		var err error
		id, err = strconv.ParseInt(record[colID], 10, 64)
		if err != nil {
			return model.BankAccount{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
		}
	}

	acct, err := model.NewBankAccount(record[colName], record[colIBAN], record[colBank], record[colCurrency])
	if err != nil {
		return model.BankAccount{}, err
	}
	acct.ID = id
	acct.Notes = record[colNotes]
	acct.Color = record[colColor]
	return acct, nil
}
