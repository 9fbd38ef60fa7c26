package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/mt940import/internal/model"
)

// MT940Parser parses line-tagged MT940 statement exports.
type MT940Parser struct{}

const (
	narrativeTag    = ":86:"
	valueDateFormat = "060102"
)

var (
	blockStart = regexp.MustCompile(`(?m)^:61:`)
	tagLine    = regexp.MustCompile(`^:[0-9]{2}[A-Z]?:`)

	// :61:YYMMDD[MMDD](C|D)amount,dd CODE
	entryLine = regexp.MustCompile(`^:61:([0-9]{6})([0-9]{4})?([CD])([0-9][0-9.]*,[0-9]{0,2})([A-Z0-9]{4})`)
)

// Statement is the parsed content of one statement file.
type Statement struct {
	Identifier    Identifier
	IdentifierErr error // ErrNoIdentifier when :25: is missing or unusable
	Entries       []Entry
	Skipped       int // blocks that did not match the :61: shape
}

// Entry is one well-formed :61: block.
type Entry struct {
	ValueDate time.Time
	EntryDate string // optional MMDD booking date, kept verbatim
	Direction model.Direction
	Amount    decimal.Decimal // signed
	TypeCode  string
	Narrative string
	Fields    Fields
}

// Format returns the parser name.
func (p *MT940Parser) Format() string { return "mt940" }

// Parse reads a whole statement. Malformed blocks are skipped, never fatal.
func (p *MT940Parser) Parse(r io.Reader) (*Statement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}
	return ParseStatement(string(data)), nil
}

// ParseStatement splits text into the identifier and transaction entries.
func ParseStatement(text string) *Statement {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	st := &Statement{}
	st.Identifier, st.IdentifierErr = ExtractIdentifier(text)

	for _, block := range SplitBlocks(text) {
		entry, ok := ParseBlock(block)
		if !ok {
			st.Skipped++
			continue
		}
		st.Entries = append(st.Entries, entry)
	}
	return st
}

// SplitBlocks returns every run of text from one :61: tag to the next
// (or the end of text). Each block starts with its own tag line.
func SplitBlocks(text string) []string {
	locs := blockStart.FindAllStringIndex(text, -1)
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

// ParseBlock parses one :61: block. ok is false when the block is malformed.
func ParseBlock(block string) (Entry, bool) {
	m := entryLine.FindStringSubmatch(block)
	if m == nil {
		return Entry{}, false
	}

	date, err := time.Parse(valueDateFormat, m[1])
	if err != nil {
		return Entry{}, false
	}

	amount, err := ParseAmount(m[4])
	if err != nil {
		return Entry{}, false
	}

	dir := model.Direction(m[3])
	if dir == model.Debit {
		amount = amount.Neg()
	}

	narrative := Narrative(block)
	return Entry{
		ValueDate: date,
		EntryDate: m[2],
		Direction: dir,
		Amount:    amount,
		TypeCode:  m[5],
		Narrative: narrative,
		Fields:    ExtractFields(narrative),
	}, true
}

// ParseAmount converts "1.234,56" to 1234.56. Dots are thousands separators,
// the comma is the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.Replace(s, ",", ".", 1)
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// Narrative returns the :86: text of a block with line breaks collapsed to
// single spaces. It ends at the block end or at the next non-:86: tag line.
func Narrative(block string) string {
	lines := strings.Split(block, "\n")
	var parts []string
	in := false
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, narrativeTag):
			in = true
			line = strings.TrimPrefix(line, narrativeTag)
		case !in:
			continue
		case tagLine.MatchString(line):
			in = false
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// TypeCodes returns the distinct type codes of the entries in first-seen order.
func (s *Statement) TypeCodes() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, e := range s.Entries {
		if e.TypeCode == "" || seen[e.TypeCode] {
			continue
		}
		seen[e.TypeCode] = true
		codes = append(codes, e.TypeCode)
	}
	return codes
}

// UnseenTypeCodes returns the statement's codes that are not in known.
func (s *Statement) UnseenTypeCodes(known map[string]bool) []string {
	var unseen []string
	for _, c := range s.TypeCodes() {
		if !known[c] {
			unseen = append(unseen, c)
		}
	}
	return unseen
}

// Record converts an entry into a TransactionRecord for accountID.
func (e Entry) Record(accountID int64) (model.TransactionRecord, error) {
	rec, err := model.NewTransactionRecord(accountID, e.ValueDate, e.Amount, e.Direction, e.Narrative)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	rec.TypeCode = e.TypeCode
	rec.Counterparty = e.Fields.Counterparty
	rec.TaxID = e.Fields.TaxID
	rec.Invoice = e.Fields.Invoice
	rec.TerminalID = e.Fields.TerminalID
	rec.Reference = e.Fields.Reference
	rec.Card = e.Fields.Card
	return rec, nil
}
