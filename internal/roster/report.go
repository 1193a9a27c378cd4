package roster

import (
	"fmt"
	"strings"
	"time"
)

const reportTimeLayout = "02/01/2006, 3:04:05 pm"

var reportLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// BuildReport serializes the final session state into the plain-text summary
// delivered to the owner on close. Entries keep their display order; the
// ticked flag is irrelevant here.
func BuildReport(s *Session, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 Session Report\n")
	fmt.Fprintf(&b, "📅 Date: %s\n", now.In(reportLocation).Format(reportTimeLayout))
	fmt.Fprintf(&b, "📝 Title: %s\n\n", s.Title)

	if len(s.Entries) == 0 {
		b.WriteString("No participants.")
		return b.String()
	}
	for i := range s.Entries {
		e := &s.Entries[i]
		username := "null"
		if e.Username != "" {
			username = "@" + e.Username
		}
		fmt.Fprintf(&b, "%d. %s | %s | ID: %d\n", i+1, e.Name, username, e.UserID)
	}
	return b.String()
}
