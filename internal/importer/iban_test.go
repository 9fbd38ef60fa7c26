package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanIdentifier(t *testing.T) {
	tests := []struct {
		payload  string
		want     string
		verified bool
	}{
		{"ABCD/RO49AAAA1B31007593840000", "RO49AAAA1B31007593840000", true},
		{"  RO49 AAAA 1B31 0075 9384 0000  ", "RO49AAAA1B31007593840000", true},
		{"x/y/gb82west12345698765432", "GB82WEST12345698765432", true},
		// Bad checksum but plausible shape: accepted, unverified.
		{"RO00AAAA1B31007593840000", "RO00AAAA1B31007593840000", false},
	}
	for _, tt := range tests {
		id, err := CleanIdentifier(tt.payload)
		require.NoError(t, err, "payload %q", tt.payload)
		assert.Equal(t, tt.want, id.IBAN, "payload %q", tt.payload)
		assert.Equal(t, tt.verified, id.Verified, "payload %q", tt.payload)
	}
}

func TestCleanIdentifier_Rejects(t *testing.T) {
	for _, payload := range []string{
		"",
		"   ",
		"BANK/",
		"12345678",                 // no country prefix
		"RO49AAAA",                 // too short
		"1234AAAA1B31007593840000", // prefix not letters+digits
	} {
		_, err := CleanIdentifier(payload)
		assert.ErrorIs(t, err, ErrNoIdentifier, "payload %q", payload)
	}
}

func TestExtractIdentifier_FirstTagWins(t *testing.T) {
	text := ":20:REF\n:25:RO49AAAA1B31007593840000\n:25:GB82WEST12345698765432\n"
	id, err := ExtractIdentifier(text)
	require.NoError(t, err)
	assert.Equal(t, "RO49AAAA1B31007593840000", id.IBAN)
}

func TestExtractIdentifier_Missing(t *testing.T) {
	_, err := ExtractIdentifier(":20:REF\n:61:230101C1,00NTRF\n")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestExtractIdentifier_EmptyPayload(t *testing.T) {
	_, err := ExtractIdentifier(":25:   \n")
	assert.ErrorIs(t, err, ErrNoIdentifier)
}

func TestValidIBAN(t *testing.T) {
	assert.True(t, ValidIBAN("RO49AAAA1B31007593840000"))
	assert.True(t, ValidIBAN("GB82WEST12345698765432"))
	assert.False(t, ValidIBAN("GB83WEST12345698765432"))
	assert.False(t, ValidIBAN("gb82west12345698765432"))
}
