package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const titleMaxRunes = 30

// ExtractTitle derives a session title from the first user message:
// whitespace collapsed, NFC-normalised and cut to 30 runes.
func ExtractTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if text == "" {
			continue
		}
		text = norm.NFC.String(text)

		runes := []rune(text)
		if len(runes) <= titleMaxRunes {
			return text
		}
		return string(runes[:titleMaxRunes]) + "..."
	}
	return DefaultSessionTitle
}
