package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quailyquaily/rollcall/internal/telegramutil"
)

// TickButton is the single inline action rendered under the list message.
// The callback data encodes the target entry's (UserID, CreatedAt) identity
// so the press re-locates the exact entry even after removals.
type TickButton struct {
	Label        string
	CallbackData string
}

const tickCallbackPrefix = "tick_"

// RenderText maps session state to the HTML body of the shared list
// message. All user-supplied text is escaped before interpolation.
func RenderText(s *Session) string {
	var b strings.Builder
	b.WriteString("📋 <b>")
	b.WriteString(telegramutil.EscapeHTML(s.Title))
	b.WriteString("</b>\n\n")
	if len(s.Entries) == 0 {
		b.WriteString("Waiting for names...\n<i>(Type 'addlist Name' to join)</i>")
		return b.String()
	}
	for i := range s.Entries {
		e := &s.Entries[i]
		status := ""
		if e.Ticked {
			status = " ✅"
		}
		fmt.Fprintf(&b, "%d. %s%s\n\n", i+1, telegramutil.EscapeHTML(e.Name), status)
	}
	return b.String()
}

// RenderTickButton returns the button targeting the first unticked entry,
// or nil when the session is inactive or fully ticked.
func RenderTickButton(s *Session) *TickButton {
	if !s.Active {
		return nil
	}
	next, ok := s.FirstUnticked()
	if !ok {
		return nil
	}
	return &TickButton{
		Label:        "Tick " + next.Name,
		CallbackData: fmt.Sprintf("%s%d_%d", tickCallbackPrefix, next.UserID, next.CreatedAt),
	}
}

// ParseTickCallback decodes a tick button payload back into the entry
// identity. It reports false for anything that is not a tick payload.
func ParseTickCallback(data string) (userID, createdAt int64, ok bool) {
	if !strings.HasPrefix(data, tickCallbackPrefix) {
		return 0, 0, false
	}
	rest := strings.TrimPrefix(data, tickCallbackPrefix)
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	createdAt, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return userID, createdAt, true
}

// ClosedSuffix is appended to the final render when a session ends.
const ClosedSuffix = "\n🛑 <b>Session Closed</b>"
