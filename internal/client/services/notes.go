package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/repositories/kv"
	"github.com/dmitrijs2005/mindnote/internal/client/scheduler"
	"github.com/dmitrijs2005/mindnote/internal/client/session"
	"github.com/dmitrijs2005/mindnote/internal/common"
	"github.com/dmitrijs2005/mindnote/internal/logging"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const noteTimerPrefix = "note/"

// NewNote is passed as editIndex to Save to append a note.
const NewNote = -1

type alertKind string

const (
	alertSoon    alertKind = "soon"
	alertDue     alertKind = "due"
	alertOverdue alertKind = "overdue"
)

// NotesService manages the scheduled notes of the session user.
//
// Contract:
//   - Open: load the user's notes, settle the notification permission,
//     alert about overdue notes and arm the note timers.
//   - Save: add a note (editIndex == NewNote) or edit the note at editIndex.
//   - Toggle / Delete: change the note at index.
//   - Day / Notes: the owned notes with their index, ordered by time.
//   - Close: cancel every timer and stop following the session.
//
// Indexes address the loaded list and stay valid until the next change.
type NotesService interface {
	Open(ctx context.Context) ([]models.IndexedNote, error)
	Save(ctx context.Context, text string, at time.Time, editIndex int) (*SaveResult, error)
	Toggle(ctx context.Context, index int) (models.Note, error)
	Delete(ctx context.Context, index int) error
	Day(day time.Time) []models.IndexedNote
	Notes() []models.IndexedNote
	Close()
}

type SaveResult struct {
	Note   models.Note
	Index  int
	Edited bool
}

type NotesConfig struct {
	// PreAlertLead is how long before a note the advance warning fires.
	PreAlertLead time.Duration
	// OverdueGrace is how long after a note's time it counts as overdue.
	OverdueGrace time.Duration
}

type notesService struct {
	repo      kv.Repository
	sessions  SessionStore
	sched     *scheduler.Scheduler
	alerter   notify.Alerter
	notifier  notify.Notifier
	confirmer notify.Confirmer
	log       logging.Logger
	cfg       NotesConfig
	policy    *bluemonday.Policy

	mu          sync.Mutex
	owner       string
	notes       []models.Note
	overdueSeen map[string]bool
	unsubscribe func()
}

func NewNotesService(db *sql.DB, sessions SessionStore, sched *scheduler.Scheduler,
	alerter notify.Alerter, notifier notify.Notifier, confirmer notify.Confirmer,
	log logging.Logger, cfg NotesConfig) NotesService {
	if cfg.PreAlertLead <= 0 {
		cfg.PreAlertLead = 5 * time.Minute
	}
	if cfg.OverdueGrace <= 0 {
		cfg.OverdueGrace = time.Minute
	}
	return &notesService{
		repo:        kv.NewSQLiteRepository(db),
		sessions:    sessions,
		sched:       sched,
		alerter:     alerter,
		notifier:    notifier,
		confirmer:   confirmer,
		log:         log,
		cfg:         cfg,
		policy:      bluemonday.StrictPolicy(),
		overdueSeen: make(map[string]bool),
	}
}

func (s *notesService) now() time.Time {
	return s.sched.Clock().Now()
}

func (s *notesService) Open(ctx context.Context) ([]models.IndexedNote, error) {
	sess, ok := s.sessions.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	email := common.NormalizeEmail(sess.User.Email)

	var notes []models.Note
	if _, err := kv.GetJSON(ctx, s.repo, kv.TasksKey(email), &notes); err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}

	s.mu.Lock()
	if s.owner != email {
		s.overdueSeen = make(map[string]bool)
	}
	s.owner = email
	s.notes = notes
	if s.unsubscribe == nil {
		s.unsubscribe = s.sessions.Subscribe(s.sessionChanged)
	}
	s.mu.Unlock()

	s.settlePermission(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkOverdueLocked(ctx)
	s.rearmLocked()
	return s.ownedLocked(nil), nil
}

// settlePermission asks for notification permission while it has never
// been answered.
func (s *notesService) settlePermission(ctx context.Context) {
	if s.permission(ctx) != models.PermissionDefault {
		return
	}

	p, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		s.log.Warn(ctx, "notification permission request failed", "error", err)
		return
	}
	if p == models.PermissionDefault {
		return
	}
	if err := s.repo.Set(ctx, kv.KeyNotificationPermission, []byte(p)); err != nil {
		s.log.Warn(ctx, "failed to store notification permission", "error", err)
	}
}

func (s *notesService) permission(ctx context.Context) models.NotificationPermission {
	raw, err := s.repo.Get(ctx, kv.KeyNotificationPermission)
	if err != nil {
		s.log.Warn(ctx, "failed to read notification permission", "error", err)
		return models.PermissionDefault
	}
	switch p := models.NotificationPermission(raw); p {
	case models.PermissionGranted, models.PermissionDenied:
		return p
	default:
		return models.PermissionDefault
	}
}

// checkOverdueLocked alerts once about every owned note whose time has
// passed without being done.
func (s *notesService) checkOverdueLocked(ctx context.Context) {
	now := s.now()
	for _, n := range s.notes {
		if n.Done || n.Owner != s.owner || !n.Time.Before(now) {
			continue
		}
		s.alertOverdueLocked(ctx, n)
	}
}

func (s *notesService) alertOverdueLocked(ctx context.Context, n models.Note) {
	if s.overdueSeen[n.ID] {
		return
	}
	s.overdueSeen[n.ID] = true
	s.alerter.Alert(ctx, notify.Alert{
		Level: notify.LevelWarning,
		Title: "note.overdue.title",
		Text:  "note.overdue.text",
		Data:  map[string]any{"Text": n.Text, "Time": n.Time.Format(models.NoteTimeLayout)},
	})
}

func (s *notesService) sessionChanged(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess == nil || common.NormalizeEmail(sess.User.Email) != s.owner {
		// another user, or nobody: forget the list until the next Open
		s.sched.CancelPrefix(noteTimerPrefix)
		s.owner = ""
		s.notes = nil
		return
	}
	s.rearmLocked()
}

// rearmLocked replaces every note timer with timers for the current list.
// Only undone notes of the session user get timers.
func (s *notesService) rearmLocked() {
	s.sched.CancelPrefix(noteTimerPrefix)

	if s.owner == "" || !s.sessions.IsOwner(s.owner) {
		return
	}

	for _, n := range s.notes {
		if n.Done || n.Owner != s.owner {
			continue
		}
		id := n.ID
		s.sched.At(timerKey(id, alertSoon), n.Time.Add(-s.cfg.PreAlertLead), func() { s.fire(id, alertSoon) })
		s.sched.At(timerKey(id, alertDue), n.Time, func() { s.fire(id, alertDue) })
		s.sched.At(timerKey(id, alertOverdue), n.Time.Add(s.cfg.OverdueGrace), func() { s.fire(id, alertOverdue) })
	}
}

func timerKey(id string, kind alertKind) string {
	return noteTimerPrefix + id + "/" + string(kind)
}

func (s *notesService) fire(id string, kind alertKind) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return
	}
	n := s.notes[idx]
	if n.Done || !s.sessions.IsOwner(n.Owner) {
		return
	}

	data := map[string]any{
		"Text":    n.Text,
		"Time":    n.Time.Format(models.NoteTimeLayout),
		"Minutes": ceilMinutes(s.cfg.PreAlertLead),
	}

	switch kind {
	case alertSoon:
		s.alerter.Alert(ctx, notify.Alert{Level: notify.LevelWarning, Title: "note.soon.title", Text: "note.soon.text", Data: data})
	case alertDue:
		s.alerter.Alert(ctx, notify.Alert{Level: notify.LevelSuccess, Title: "note.due.title", Text: "note.due.text", Data: data})
		if s.permission(ctx) == models.PermissionGranted {
			if err := s.notifier.Notify(ctx, notify.Alert{Level: notify.LevelInfo, Title: "notify.title", Text: "notify.body", Data: data}); err != nil {
				s.log.Warn(ctx, "notification failed", "note", id, "error", err)
			}
		}
	case alertOverdue:
		s.alertOverdueLocked(ctx, n)
	}
}

func (s *notesService) indexOfLocked(id string) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// requireOwnerLocked checks that the list was opened by the user who still
// holds the session.
func (s *notesService) requireOwnerLocked() error {
	if s.owner == "" || !s.sessions.IsOwner(s.owner) {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *notesService) checkIndexLocked(index int) error {
	if index < 0 || index >= len(s.notes) || s.notes[index].Owner != s.owner {
		return fmt.Errorf("%w: %d", ErrNoSuchNote, index)
	}
	return nil
}

// commitLocked persists next as the note list and makes it current, then
// rearms the timers.
func (s *notesService) commitLocked(ctx context.Context, next []models.Note) error {
	if next == nil {
		next = []models.Note{}
	}
	if err := kv.SetJSON(ctx, s.repo, kv.TasksKey(s.owner), next); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	s.notes = next
	s.rearmLocked()
	return nil
}

func (s *notesService) Save(ctx context.Context, text string, at time.Time, editIndex int) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(stripTags(s.policy, text))
	if text == "" || at.IsZero() {
		return nil, ErrEmptyNote
	}
	at = at.Truncate(time.Minute)

	if at.Before(s.now()) {
		return nil, ErrPastTime
	}

	editing := editIndex != NewNote
	if editing {
		if err := s.checkIndexLocked(editIndex); err != nil {
			return nil, err
		}
	}

	// uniqueness is checked against the whole stored list
	for i, n := range s.notes {
		if i != editIndex && n.Time.Equal(at) {
			return nil, ErrDuplicateTime
		}
	}

	next := append([]models.Note(nil), s.notes...)
	var res SaveResult

	if editing {
		n := next[editIndex]
		if !n.Time.Equal(at) {
			delete(s.overdueSeen, n.ID)
		}
		n.Text = text
		n.Time = at
		next[editIndex] = n
		res = SaveResult{Note: n, Index: editIndex, Edited: true}
	} else {
		n := models.Note{ID: uuid.NewString(), Text: text, Time: at, Owner: s.owner}
		next = append(next, n)
		res = SaveResult{Note: n, Index: len(next) - 1}
	}

	if err := s.commitLocked(ctx, next); err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "note saved", "id", res.Note.ID, "edited", res.Edited)
	return &res, nil
}

func (s *notesService) Toggle(ctx context.Context, index int) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(); err != nil {
		return models.Note{}, err
	}
	if err := s.checkIndexLocked(index); err != nil {
		return models.Note{}, err
	}

	next := append([]models.Note(nil), s.notes...)
	next[index].Done = !next[index].Done

	if err := s.commitLocked(ctx, next); err != nil {
		return models.Note{}, err
	}
	return next[index], nil
}

func (s *notesService) Delete(ctx context.Context, index int) error {
	s.mu.Lock()
	if err := s.requireOwnerLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkIndexLocked(index); err != nil {
		s.mu.Unlock()
		return err
	}
	target := s.notes[index]
	s.mu.Unlock()

	// timers may fire while the question is open, so the lock is not held
	ok, err := s.confirmer.Confirm(ctx, notify.Alert{
		Level: notify.LevelWarning,
		Title: "note.delete.confirm",
		Data:  map[string]any{"Text": target.Text},
	})
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return ErrCancelled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwnerLocked(); err != nil {
		return err
	}
	idx := s.indexOfLocked(target.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrNoSuchNote, index)
	}

	next := make([]models.Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:idx]...)
	next = append(next, s.notes[idx+1:]...)

	if err := s.commitLocked(ctx, next); err != nil {
		return err
	}
	delete(s.overdueSeen, target.ID)
	return nil
}

func (s *notesService) Day(day time.Time) []models.IndexedNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedLocked(func(n models.Note) bool { return n.SameDay(day) })
}

func (s *notesService) Notes() []models.IndexedNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedLocked(nil)
}

func (s *notesService) ownedLocked(keep func(models.Note) bool) []models.IndexedNote {
	out := make([]models.IndexedNote, 0, len(s.notes))
	if s.owner == "" {
		return out
	}
	for i, n := range s.notes {
		if n.Owner != s.owner {
			continue
		}
		if keep != nil && !keep(n) {
			continue
		}
		out = append(out, models.IndexedNote{Index: i, Note: n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (s *notesService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.CancelPrefix(noteTimerPrefix)
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.owner = ""
	s.notes = nil
}
