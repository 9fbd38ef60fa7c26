package accounts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/cleared-dev/mt940import/internal/importer"
	"github.com/cleared-dev/mt940import/internal/model"
	"github.com/cleared-dev/mt940import/internal/store"
)

// ErrAbandoned is returned when the user declines to route a file anywhere.
var ErrAbandoned = errors.New("file abandoned")

// Store is the account lookup the resolution policy needs.
type Store interface {
	Creator
	Accounts(ctx context.Context) ([]model.BankAccount, error)
	AccountByIBAN(ctx context.Context, iban string) (model.BankAccount, error)
}

// PromptKind says which question the policy is asking.
type PromptKind int

const (
	// PromptSelect: the file has no usable identifier; pick a target account.
	PromptSelect PromptKind = iota
	// PromptConfirm: a stored account has the file's IBAN; confirm routing.
	PromptConfirm
	// PromptUnknown: no account has the file's IBAN; create one, pick one or abandon.
	PromptUnknown
)

func (k PromptKind) String() string {
	switch k {
	case PromptSelect:
		return "select"
	case PromptConfirm:
		return "confirm"
	case PromptUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("PromptKind(%d)", int(k))
	}
}

// Prompt is one decision point handed to a Decider.
type Prompt struct {
	Kind       PromptKind
	File       string
	IBAN       string              // empty for PromptSelect
	Match      model.BankAccount   // PromptConfirm only
	Candidates []model.BankAccount // all known accounts
}

// Action is the outcome chosen by a Decider.
type Action int

const (
	ActionAbandon Action = iota
	// ActionUse routes to Decision.Account. For PromptConfirm it means "yes".
	ActionUse
	// ActionCreate creates Decision.Account seeded with the prompt's IBAN.
	ActionCreate
)

// Decision is a Decider's answer.
type Decision struct {
	Action  Action
	Account model.BankAccount
}

// Decider makes the interactive choices of the resolution policy.
type Decider interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, p Prompt) (Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, p Prompt) (Decision, error) { return f(ctx, p) }

// Assignment routes one file to one account.
type Assignment struct {
	File    string
	Account model.BankAccount
	IBAN    string
	Created bool // the account was created during resolution
}

// Policy decides which account each statement file belongs to.
type Policy struct {
	store   Store
	decider Decider
	logger  *log.Logger
}

// NewPolicy creates a resolution Policy.
func NewPolicy(s Store, d Decider, logger *log.Logger) *Policy {
	return &Policy{store: s, decider: d, logger: logger}
}

// ResolveAll resolves files in order. Abandoned and unreadable files are
// skipped; store and decider failures abort.
func (p *Policy) ResolveAll(ctx context.Context, files []string, active *model.BankAccount) ([]Assignment, error) {
	var out []Assignment
	for _, f := range files {
		a, err := p.Resolve(ctx, f, active)
		switch {
		case errors.Is(err, ErrAbandoned):
			p.logger.Warn("skipping file", "file", filepath.Base(f), "reason", "no target account")
			continue
		case errors.Is(err, errUnreadable):
			p.logger.Warn("skipping file", "file", filepath.Base(f), "error", err)
			continue
		case err != nil:
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

var errUnreadable = errors.New("statement unreadable")

// Resolve decides the target account of one file.
func (p *Policy) Resolve(ctx context.Context, file string, active *model.BankAccount) (Assignment, error) {
	id, err := importer.ReadIdentifier(file)
	if err != nil && !errors.Is(err, importer.ErrNoIdentifier) {
		return Assignment{}, fmt.Errorf("%w: %w", errUnreadable, err)
	}

	candidates, err := p.store.Accounts(ctx)
	if err != nil {
		return Assignment{}, fmt.Errorf("listing accounts: %w", err)
	}

	if id.IBAN == "" {
		acct, err := p.selectAccount(ctx, Prompt{Kind: PromptSelect, File: file, Candidates: candidates})
		if err != nil {
			return Assignment{}, err
		}
		return Assignment{File: file, Account: acct}, nil
	}

	if !id.Verified {
		p.logger.Warn("identifier failed IBAN checksum", "file", filepath.Base(file), "iban", id.IBAN)
	}

	if active != nil && active.IBAN != "" && active.IBAN == id.IBAN {
		p.logger.Debug("routing to active account", "file", filepath.Base(file), "account", active.Name)
		return Assignment{File: file, Account: *active, IBAN: id.IBAN}, nil
	}

	match, err := p.store.AccountByIBAN(ctx, id.IBAN)
	switch {
	case err == nil:
		d, err := p.decider.Decide(ctx, Prompt{Kind: PromptConfirm, File: file, IBAN: id.IBAN, Match: match, Candidates: candidates})
		if err != nil {
			return Assignment{}, fmt.Errorf("confirming account: %w", err)
		}
		if d.Action != ActionUse {
			return Assignment{}, ErrAbandoned
		}
		return Assignment{File: file, Account: match, IBAN: id.IBAN}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Assignment{}, fmt.Errorf("looking up %s: %w", id.IBAN, err)
	}

	d, err := p.decider.Decide(ctx, Prompt{Kind: PromptUnknown, File: file, IBAN: id.IBAN, Candidates: candidates})
	if err != nil {
		return Assignment{}, fmt.Errorf("resolving unknown account: %w", err)
	}
	switch d.Action {
	case ActionCreate:
		draft := d.Account
		draft.ID = 0
		draft.IBAN = id.IBAN
		created, err := p.store.CreateAccount(ctx, draft)
		if err != nil {
			return Assignment{}, fmt.Errorf("creating account for %s: %w", id.IBAN, err)
		}
		return Assignment{File: file, Account: created, IBAN: id.IBAN, Created: true}, nil
	case ActionUse:
		acct, err := pick(candidates, d.Account.ID)
		if err != nil {
			return Assignment{}, err
		}
		return Assignment{File: file, Account: acct, IBAN: id.IBAN}, nil
	default:
		return Assignment{}, ErrAbandoned
	}
}

func (p *Policy) selectAccount(ctx context.Context, prompt Prompt) (model.BankAccount, error) {
	if len(prompt.Candidates) == 0 {
		return model.BankAccount{}, ErrAbandoned
	}
	d, err := p.decider.Decide(ctx, prompt)
	if err != nil {
		return model.BankAccount{}, fmt.Errorf("selecting account: %w", err)
	}
	if d.Action != ActionUse {
		return model.BankAccount{}, ErrAbandoned
	}
	return pick(prompt.Candidates, d.Account.ID)
}

func pick(candidates []model.BankAccount, id int64) (model.BankAccount, error) {
	for _, c := range candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return model.BankAccount{}, fmt.Errorf("account %d is not a known account", id)
}
