package roster

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateEntry is returned when a non-admin adds while an unticked
	// entry of theirs is still in the queue.
	ErrDuplicateEntry = errors.New("an unticked entry already exists for this user")
	// ErrIndexOutOfRange is returned by the manual tick/remove operations
	// for a 1-based position outside the current entry count.
	ErrIndexOutOfRange = errors.New("position is out of range")
)

const DefaultTitle = "New List"

// Entry is one participant's sign-up record. Its identity within a session
// is the (UserID, CreatedAt) pair, not UserID alone: a user removed and
// re-added reappears as a fresh entry with a new timestamp.
type Entry struct {
	Name      string
	UserID    int64
	Username  string
	Ticked    bool
	CreatedAt int64 // unix milliseconds
}

// Session is the single process-wide sign-up list. Insertion order is
// display order; entries are only ever reordered by removal. Session is not
// goroutine safe: all access is serialized through the dispatcher's mutex.
type Session struct {
	ID        uuid.UUID
	Active    bool
	Title     string
	Entries   []Entry
	ChatID    int64
	MessageID int64
}

func NewSession() *Session {
	return &Session{}
}

// Open resets the session for a new list and activates it. The message
// binding is set later via Bind, once the list message has been sent.
func (s *Session) Open(title string, chatID int64) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	s.ID = uuid.New()
	s.Active = true
	s.Title = title
	s.Entries = nil
	s.ChatID = chatID
	s.MessageID = 0
}

func (s *Session) Bind(messageID int64) {
	s.MessageID = messageID
}

// Add appends a new entry. Admins may hold any number of entries; everyone
// else is limited to one unticked entry at a time.
func (s *Session) Add(name string, userID int64, username string, isAdmin bool, now time.Time) error {
	if !isAdmin {
		for i := range s.Entries {
			if s.Entries[i].UserID == userID && !s.Entries[i].Ticked {
				return ErrDuplicateEntry
			}
		}
	}
	s.Entries = append(s.Entries, Entry{
		Name:      name,
		UserID:    userID,
		Username:  username,
		CreatedAt: now.UnixMilli(),
	})
	return nil
}

// TickByIdentity marks the entry with the exact (userID, createdAt) identity
// as ticked. It reports whether any state changed; a missing or already
// ticked entry is a no-op.
func (s *Session) TickByIdentity(userID, createdAt int64) bool {
	for i := range s.Entries {
		if s.Entries[i].UserID == userID && s.Entries[i].CreatedAt == createdAt {
			if s.Entries[i].Ticked {
				return false
			}
			s.Entries[i].Ticked = true
			return true
		}
	}
	return false
}

// TickByIndex ticks the entry at the given 1-based display position.
func (s *Session) TickByIndex(pos int) error {
	if pos < 1 || pos > len(s.Entries) {
		return ErrIndexOutOfRange
	}
	s.Entries[pos-1].Ticked = true
	return nil
}

// RemoveByIndex removes the entry at the given 1-based display position.
// Later entries shift down; positions are derived from slice order.
func (s *Session) RemoveByIndex(pos int) error {
	if pos < 1 || pos > len(s.Entries) {
		return ErrIndexOutOfRange
	}
	s.Entries = append(s.Entries[:pos-1], s.Entries[pos:]...)
	return nil
}

// FirstUnticked returns the earliest-inserted unticked entry, the only one
// advanceable by the one-tap tick button.
func (s *Session) FirstUnticked() (Entry, bool) {
	for i := range s.Entries {
		if !s.Entries[i].Ticked {
			return s.Entries[i], true
		}
	}
	return Entry{}, false
}

// Close clears the entries and deactivates the session.
func (s *Session) Close() {
	s.Active = false
	s.Entries = nil
}
