package importer

import (
	"bufio"
	"errors"
	"regexp"
	"strings"
)

// ErrNoIdentifier is returned when a statement carries no usable account identifier.
var ErrNoIdentifier = errors.New("no account identifier")

const (
	identifierTag = ":25:"
	minIBANLen    = 15
	maxIBANLen    = 34
)

var (
	ibanShape  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]+$`)
	ibanPrefix = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}`)
)

// Identifier is an account identifier extracted from a statement.
type Identifier struct {
	IBAN string
	// Verified is false when the identifier only passed the lenient
	// length/prefix check and not the mod-97 checksum.
	Verified bool
}

// ExtractIdentifier finds the first :25: line in text and cleans its payload.
func ExtractIdentifier(text string) (Identifier, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimLeft(sc.Text(), " \t")
		if strings.HasPrefix(line, identifierTag) {
			return CleanIdentifier(strings.TrimPrefix(line, identifierTag))
		}
	}
	return Identifier{}, ErrNoIdentifier
}

// CleanIdentifier normalizes a :25: payload into an IBAN.
// "ABCD/RO49AAAA1B31007593840000" -> "RO49AAAA1B31007593840000"
func CleanIdentifier(payload string) (Identifier, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.LastIndex(payload, "/"); i >= 0 {
		payload = payload[i+1:]
	}

	iban := strings.ToUpper(strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, payload))
	if iban == "" {
		return Identifier{}, ErrNoIdentifier
	}

	if ValidIBAN(iban) {
		return Identifier{IBAN: iban, Verified: true}, nil
	}
	if len(iban) >= minIBANLen && len(iban) <= maxIBANLen && ibanPrefix.MatchString(iban) {
		return Identifier{IBAN: iban}, nil
	}
	return Identifier{}, ErrNoIdentifier
}

// ValidIBAN checks length, shape and the ISO 13616 mod-97 checksum.
func ValidIBAN(iban string) bool {
	if len(iban) < minIBANLen || len(iban) > maxIBANLen || !ibanShape.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for _, r := range rearranged {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
			rem = (rem*10 + v) % 97
		default:
			v = int(r-'A') + 10
			rem = (rem*100 + v) % 97
		}
	}
	return rem == 1
}
