// Package ui is the terminal collaborator of the import command: it asks
// the account-resolution questions on a line-oriented prompt and reports
// batch progress.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cleared-dev/mt940import/internal/accounts"
	"github.com/cleared-dev/mt940import/internal/batch"
	"github.com/cleared-dev/mt940import/internal/model"
)

type styles struct {
	title lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("8")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		bad:   r.NewStyle().Foreground(lipgloss.Color("9")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Terminal asks questions on in and writes to out. It implements both
// accounts.Decider and batch.View.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	style styles
}

// NewTerminal creates a Terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, style: newStyles(out)}
}

var (
	_ accounts.Decider = (*Terminal)(nil)
	_ batch.View       = (*Terminal)(nil)
)

// Decide implements accounts.Decider. End of input abandons the file.
func (t *Terminal) Decide(ctx context.Context, p accounts.Prompt) (accounts.Decision, error) {
	d, err := t.decide(ctx, p)
	if errors.Is(err, io.EOF) {
		return accounts.Decision{Action: accounts.ActionAbandon}, nil
	}
	return d, err
}

func (t *Terminal) decide(ctx context.Context, p accounts.Prompt) (accounts.Decision, error) {
	name := filepath.Base(p.File)
	switch p.Kind {
	case accounts.PromptConfirm:
		fmt.Fprintf(t.out, "%s: IBAN %s belongs to %s.\n", t.style.title.Render(name), p.IBAN, p.Match.Label())
		yes, err := t.confirm("Import into this account? [Y/n] ", true)
		if err != nil || !yes {
			return accounts.Decision{Action: accounts.ActionAbandon}, err
		}
		return accounts.Decision{Action: accounts.ActionUse, Account: p.Match}, nil

	case accounts.PromptSelect:
		fmt.Fprintf(t.out, "%s: %s\n", t.style.title.Render(name), t.style.warn.Render("no account identifier found"))
		return t.choose(p.Candidates)

	case accounts.PromptUnknown:
		fmt.Fprintf(t.out, "%s: IBAN %s is not registered.\n", t.style.title.Render(name), p.IBAN)
		for {
			if err := ctx.Err(); err != nil {
				return accounts.Decision{}, err
			}
			answer, err := t.ask("(c)reate account, (p)ick existing, (s)kip file [c/p/s] ")
			if err != nil {
				return accounts.Decision{}, err
			}
			switch strings.ToLower(answer) {
			case "c", "create":
				return t.create(p.IBAN)
			case "p", "pick":
				return t.choose(p.Candidates)
			case "s", "skip", "":
				return accounts.Decision{Action: accounts.ActionAbandon}, nil
			}
		}

	default:
		return accounts.Decision{}, fmt.Errorf("unsupported prompt %s", p.Kind)
	}
}

// choose lists candidates and reads a 1-based choice. Empty input skips.
func (t *Terminal) choose(candidates []model.BankAccount) (accounts.Decision, error) {
	if len(candidates) == 0 {
		fmt.Fprintln(t.out, t.style.dim.Render("no accounts to choose from"))
		return accounts.Decision{Action: accounts.ActionAbandon}, nil
	}
	for i, c := range candidates {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, c.Label())
	}
	for {
		answer, err := t.ask(fmt.Sprintf("Account [1-%d, empty to skip] ", len(candidates)))
		if err != nil {
			return accounts.Decision{}, err
		}
		if answer == "" {
			return accounts.Decision{Action: accounts.ActionAbandon}, nil
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(candidates) {
			fmt.Fprintln(t.out, t.style.bad.Render("invalid choice"))
			continue
		}
		return accounts.Decision{Action: accounts.ActionUse, Account: candidates[n-1]}, nil
	}
}

// create collects the attributes of a new account for iban.
func (t *Terminal) create(iban string) (accounts.Decision, error) {
	for {
		name, err := t.ask("Account name: ")
		if err != nil {
			return accounts.Decision{}, err
		}
		bank, err := t.ask("Bank (optional): ")
		if err != nil {
			return accounts.Decision{}, err
		}
		currency, err := t.ask("Currency (optional, e.g. RON): ")
		if err != nil {
			return accounts.Decision{}, err
		}
		acct, err := model.NewBankAccount(name, iban, bank, currency)
		if err != nil {
			fmt.Fprintln(t.out, t.style.bad.Render(err.Error()))
			continue
		}
		return accounts.Decision{Action: accounts.ActionCreate, Account: acct}, nil
	}
}

func (t *Terminal) confirm(question string, def bool) (bool, error) {
	for {
		answer, err := t.ask(question)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// ask prints question and returns the trimmed reply. A final line without
// a newline is still returned; io.EOF only comes back when nothing was read.
func (t *Terminal) ask(question string) (string, error) {
	fmt.Fprint(t.out, question)
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		fmt.Fprintln(t.out)
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// BatchStarted implements batch.View.
func (t *Terminal) BatchStarted(b batch.ImportBatch) {
	fmt.Fprintf(t.out, "%s %s (%d file(s))\n", t.style.title.Render("Importing into"), b.Account.Label(), len(b.Files))
}

// Progress implements batch.View.
func (t *Terminal) Progress(_ batch.ImportBatch, p batch.Progress) {
	fmt.Fprintln(t.out, t.style.dim.Render("  "+p.Status))
}

// BatchDone implements batch.View.
func (t *Terminal) BatchDone(b batch.ImportBatch, d batch.Done) {
	fmt.Fprintln(t.out, t.style.ok.Render(fmt.Sprintf("✓ %s: %d inserted, %d ignored", b.Account.Name, d.Inserted, d.Ignored)))
}

// BatchFailed implements batch.View.
func (t *Terminal) BatchFailed(b batch.ImportBatch, f batch.Failed, dropped int) {
	fmt.Fprintln(t.out, t.style.bad.Render(fmt.Sprintf("✗ %s: %s", b.Account.Name, f.Message)))
	if dropped > 0 {
		fmt.Fprintln(t.out, t.style.warn.Render(fmt.Sprintf("  %d queued batch(es) not run", dropped)))
	}
}

// NonInteractive answers prompts without asking: exact IBAN matches are
// confirmed and every other file is skipped.
type NonInteractive struct{}

// Decide implements accounts.Decider.
func (NonInteractive) Decide(_ context.Context, p accounts.Prompt) (accounts.Decision, error) {
	if p.Kind == accounts.PromptConfirm {
		return accounts.Decision{Action: accounts.ActionUse, Account: p.Match}, nil
	}
	return accounts.Decision{Action: accounts.ActionAbandon}, nil
}
