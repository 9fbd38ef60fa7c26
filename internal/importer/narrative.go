package importer

import (
	"regexp"
	"strings"
)

// Fields holds the optional values pulled out of a narrative. Every rule runs
// independently; several rules may match the same span of text.
type Fields struct {
	Counterparty string
	TaxID        string
	Invoice      string
	TerminalID   string
	Reference    string
	Card         string
}

var (
	// CUI 12345678, CIF: RO12345678, TAX ID 998877
	taxIDPattern = regexp.MustCompile(`(?i)\b(?:CUI|CIF|CNP|TAX\s*ID|VAT)\s*[:.]?\s*(?:RO)?\s*([0-9]{2,13})\b`)

	// Uppercase run of letters, digits and punctuation, at least 6 characters.
	counterpartyPattern = regexp.MustCompile(`[A-Z][A-Z0-9 &.,'\-]{5,}`)

	// FACTURA NR 2023/118, INV# A-77, FCT.991
	invoicePattern = regexp.MustCompile(`(?i)\b(?:FACTURA|FACT|FCT|INVOICE|INV)\b\.?\s*(?:NR\.?|NO\.?|#)?\s*[:.]?\s*([A-Z0-9/\-]*[0-9][A-Z0-9/\-]*)`)

	// TID 00012345, TERMINAL ID: T77
	terminalPattern = regexp.MustCompile(`(?i)\b(?:TID|TERMINAL(?:\s*ID)?)\b\s*[:.]?\s*([A-Z0-9]*[0-9][A-Z0-9]*)`)

	// REF 9981, REFERINTA: AB-12, RRN 3021
	referencePattern = regexp.MustCompile(`(?i)\b(?:REF(?:ERINTA|ERENCE)?|RRN)\b\.?\s*[:.]?\s*([A-Z0-9\-]*[0-9][A-Z0-9\-]*)`)

	// CARD NR 414012XXXXXX1234, CARD 4140****1234
	cardPattern = regexp.MustCompile(`(?i)\bCARD\b(?:\s*(?:NR|NO)\.?)?\s*[:.]?\s*([0-9]{4,6}[X*]{2,8}[0-9]{4})`)
)

// ExtractFields applies every narrative rule. A rule that does not fire
// leaves its field empty.
func ExtractFields(narrative string) Fields {
	return Fields{
		Counterparty: counterparty(narrative),
		TaxID:        firstGroup(taxIDPattern, narrative),
		Invoice:      firstGroup(invoicePattern, narrative),
		TerminalID:   firstGroup(terminalPattern, narrative),
		Reference:    firstGroup(referencePattern, narrative),
		Card:         firstGroup(cardPattern, narrative),
	}
}

func counterparty(narrative string) string {
	for _, m := range counterpartyPattern.FindAllString(narrative, -1) {
		m = strings.TrimRight(m, " .,'-")
		if len(m) >= 6 {
			return m
		}
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
