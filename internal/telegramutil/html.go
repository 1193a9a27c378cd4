package telegramutil

import "strings"

var htmlEscapes = map[byte]string{
	'&':  "&amp;",
	'<':  "&lt;",
	'>':  "&gt;",
	'"':  "&quot;",
	'\'': "&#039;",
}

// EscapeHTML escapes user-controlled text for Telegram's HTML parse mode.
// Every name, title, and username must pass through here before it is
// interpolated into outbound message text or button labels.
func EscapeHTML(text string) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if esc, ok := htmlEscapes[ch]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
