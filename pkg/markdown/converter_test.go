package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTelegramHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "hello world", "hello world"},
		{"bold", "**Commands:**", "<b>Commands:</b>"},
		{"emphasis", "stay *calm*", "stay <i>calm</i>"},
		{"inline code escapes angle brackets", "/filter `<name>`", "/filter <code>&lt;name&gt;</code>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTelegramHTML(tt.input))
		})
	}
}

func TestToTelegramHTMLStripsUnsupportedTags(t *testing.T) {
	out := ToTelegramHTML("# Heading\n\n- one\n- two")
	assert.NotContains(t, out, "<h1>")
	assert.NotContains(t, out, "<li>")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "• one")
}
