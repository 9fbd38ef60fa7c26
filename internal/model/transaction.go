package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks a transaction as credit or debit.
type Direction string

const (
	Credit Direction = "C"
	Debit  Direction = "D"
)

// ParseDirection maps a statement direction marker to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Credit, Debit:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// DateFormat is the storage format of value dates.
const DateFormat = "2006-01-02"

// TransactionRecord is one persisted statement line.
type TransactionRecord struct {
	ID        int64
	AccountID int64
	ValueDate time.Time
	Narrative string
	Amount    decimal.Decimal // signed, 2 decimals; negative for debits
	Direction Direction
	TypeCode  string // empty if the code could not be registered

	// Optional fields pulled out of the narrative.
	Counterparty string
	TaxID        string
	Invoice      string
	TerminalID   string
	Reference    string
	Card         string
}

// DedupKey identifies a transaction for duplicate detection.
type DedupKey struct {
	AccountID int64
	ValueDate string // DateFormat
	Amount    string // StringFixed(2)
	Direction Direction
	Narrative string
}

// NewTransactionRecord validates the required fields of a record.
func NewTransactionRecord(accountID int64, valueDate time.Time, amount decimal.Decimal, dir Direction, narrative string) (TransactionRecord, error) {
	if accountID <= 0 {
		return TransactionRecord{}, errors.New("account id is required")
	}
	if valueDate.IsZero() {
		return TransactionRecord{}, errors.New("value date is required")
	}
	if _, err := ParseDirection(string(dir)); err != nil {
		return TransactionRecord{}, err
	}
	return TransactionRecord{
		AccountID: accountID,
		ValueDate: valueDate,
		Narrative: narrative,
		Amount:    amount.Round(2),
		Direction: dir,
	}, nil
}

// Key returns the dedup key of the record.
func (t TransactionRecord) Key() DedupKey {
	return DedupKey{
		AccountID: t.AccountID,
		ValueDate: t.ValueDate.Format(DateFormat),
		Amount:    t.Amount.StringFixed(2),
		Direction: t.Direction,
		Narrative: t.Narrative,
	}
}
