package model

import (
	"errors"
	"fmt"
	"strings"
)

// BankAccount is a target account for imported statements.
type BankAccount struct {
	ID       int64
	Name     string // unique display name
	IBAN     string // unique when set
	Bank     string
	Currency string
	Notes    string
	Color    string
}

// NewBankAccount validates and normalizes an account before it is stored.
// The IBAN is uppercased with whitespace removed; the currency is uppercased.
func NewBankAccount(name, iban, bank, currency string) (BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return BankAccount{}, errors.New("account name is required")
	}

	iban = NormalizeIBAN(iban)

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency != "" && !isCurrencyCode(currency) {
		return BankAccount{}, fmt.Errorf("invalid currency code %q", currency)
	}

	return BankAccount{
		Name:     name,
		IBAN:     iban,
		Bank:     strings.TrimSpace(bank),
		Currency: currency,
	}, nil
}

// NormalizeIBAN strips whitespace and uppercases an account identifier.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.Join(strings.Fields(iban), ""))
}

// Label returns "Name (IBAN)" or just the name when no IBAN is set.
func (a BankAccount) Label() string {
	if a.IBAN == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.IBAN)
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
