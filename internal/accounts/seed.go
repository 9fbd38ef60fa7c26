package accounts

import (
	"context"
	"fmt"
	"os"

	"github.com/cleared-dev/mt940import/internal/model"
)

// Creator stores new bank accounts.
type Creator interface {
	CreateAccount(ctx context.Context, a model.BankAccount) (model.BankAccount, error)
}

// LoadFile reads an accounts CSV and creates every row through c. Ids in the
// file are ignored; the store assigns its own.
func LoadFile(ctx context.Context, c Creator, path string) ([]model.BankAccount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening accounts file: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}

	created := make([]model.BankAccount, 0, len(accts))
	for _, a := range accts {
		a.ID = 0
		got, err := c.CreateAccount(ctx, a)
		if err != nil {
			return created, fmt.Errorf("creating account %q: %w", a.Name, err)
		}
		created = append(created, got)
	}
	return created, nil
}
