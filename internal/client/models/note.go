package models

import "time"

// NoteTimeLayout is the minute-precision layout used to enter and show note
// times.
const NoteTimeLayout = "2006-01-02 15:04"

// Note is a user-owned, timestamped reminder.
type Note struct {
	// ID identifies the note's timers; it never changes after creation.
	ID    string    `json:"id"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
	Done  bool      `json:"done"`
	Owner string    `json:"owner"`
}

// SameDay reports whether the note falls on the calendar day of day, in
// day's location.
func (n Note) SameDay(day time.Time) bool {
	t := n.Time.In(day.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IndexedNote is a note together with its position in the owner's list.
// Commands address notes by this index.
type IndexedNote struct {
	Index int
	Note
}

// NotificationPermission mirrors the three states of a desktop
// notification permission.
type NotificationPermission string

const (
	PermissionDefault NotificationPermission = "default"
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
)
