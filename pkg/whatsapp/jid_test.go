package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRemoteJID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare number gets user domain", "5511999998888", "5511999998888@s.whatsapp.net"},
		{"bare hyphenated id gets group domain", "1234-5678", "1234-5678@g.us"},
		{"canonical group passes through", "1234-5678@g.us", "1234-5678@g.us"},
		{"mixed case domain is lowered", "5511999998888@S.WhatsApp.NET", "5511999998888@s.whatsapp.net"},
		{"broadcast domain is kept", "status@broadcast", "status@broadcast"},
		{"unknown domain collapses to user", "5511999998888@weird", "5511999998888@s.whatsapp.net"},
		{"surrounding whitespace is trimmed", "  5511999998888  ", "5511999998888@s.whatsapp.net"},
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"missing local part", "@g.us", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeRemoteJID(tc.input))
		})
	}
}

// Bare and canonical spellings of the same group id must land on the same
// canonical value, and normalization must be idempotent.
func TestNormalizeRemoteJIDIdempotent(t *testing.T) {
	inputs := []string{
		"1234-5678",
		"1234-5678@g.us",
		"5511999998888",
		"5511999998888@s.whatsapp.net",
		"status@broadcast",
	}

	for _, in := range inputs {
		once := NormalizeRemoteJID(in)
		assert.NotEmpty(t, once)
		assert.Equal(t, once, NormalizeRemoteJID(once), "normalize should be idempotent for %q", in)
	}

	assert.Equal(t, NormalizeRemoteJID("1234-5678"), NormalizeRemoteJID("1234-5678@g.us"))
}

func TestIsGroupJID(t *testing.T) {
	assert.True(t, IsGroupJID("1234-5678@g.us"))
	assert.False(t, IsGroupJID("5511999998888@s.whatsapp.net"))
	assert.False(t, IsGroupJID("status@broadcast"))
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "5511999998888", LocalPart("5511999998888@s.whatsapp.net"))
	assert.Equal(t, "5511999998888", LocalPart("5511999998888"))
}
