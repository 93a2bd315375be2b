package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
	"github.com/dmitrijs2005/mindnote/internal/client/notify"
	"github.com/dmitrijs2005/mindnote/internal/client/services"
)

const dateLayout = "2006-01-02"

func (a *App) openNotes(ctx context.Context) error {
	if _, err := a.notesService.Open(ctx); err != nil {
		return err
	}
	a.day = a.clock.Now()
	a.printDay()
	return nil
}

// ensureNotes opens the notes view unless it is already current.
func (a *App) ensureNotes(ctx context.Context) error {
	if a.view == services.RouteNotes {
		return nil
	}
	if !a.isLoggedIn() {
		return services.ErrNotAuthenticated
	}
	if err := a.openNotes(ctx); err != nil {
		return err
	}
	a.view = services.RouteNotes
	return nil
}

// Notes lists the notes of day (YYYY-MM-DD) or of the selected day when
// day is empty.
func (a *App) Notes(ctx context.Context, day string) error {
	opened := a.view != services.RouteNotes
	if err := a.ensureNotes(ctx); err != nil {
		return err
	}

	if day != "" {
		d, err := time.ParseInLocation(dateLayout, day, a.clock.Now().Location())
		if err != nil {
			return fmt.Errorf("%w: %q", errBadDate, day)
		}
		a.day = d
	} else if opened {
		// openNotes already printed the day
		return nil
	}

	a.printDay()
	return nil
}

// Add asks for a note text and time and schedules the note.
func (a *App) Add(ctx context.Context) error {
	if err := a.ensureNotes(ctx); err != nil {
		return err
	}

	text, at, err := a.readNote(models.Note{})
	if err != nil {
		return err
	}

	res, err := a.notesService.Save(ctx, text, at, services.NewNote)
	if err != nil {
		return err
	}

	a.alert(ctx, notify.LevelSuccess, "note.added", "", nil)
	a.day = res.Note.Time
	a.printDay()
	return nil
}

// Edit changes the text and time of note N. Empty answers keep the
// current values.
func (a *App) Edit(ctx context.Context, arg string) error {
	if err := a.ensureNotes(ctx); err != nil {
		return err
	}

	current, err := a.findNote(arg)
	if err != nil {
		return err
	}

	text, at, err := a.readNote(current.Note)
	if err != nil {
		return err
	}

	res, err := a.notesService.Save(ctx, text, at, current.Index)
	if err != nil {
		return err
	}

	a.alert(ctx, notify.LevelSuccess, "note.edited", "", nil)
	a.day = res.Note.Time
	a.printDay()
	return nil
}

// Done toggles note N between done and pending.
func (a *App) Done(ctx context.Context, arg string) error {
	if err := a.ensureNotes(ctx); err != nil {
		return err
	}

	current, err := a.findNote(arg)
	if err != nil {
		return err
	}

	if _, err := a.notesService.Toggle(ctx, current.Index); err != nil {
		return err
	}

	a.printDay()
	return nil
}

// Delete removes note N after confirmation.
func (a *App) Delete(ctx context.Context, arg string) error {
	if err := a.ensureNotes(ctx); err != nil {
		return err
	}

	current, err := a.findNote(arg)
	if err != nil {
		return err
	}

	if err := a.notesService.Delete(ctx, current.Index); err != nil {
		return err
	}

	a.alert(ctx, notify.LevelSuccess, "note.deleted", "", nil)
	a.printDay()
	return nil
}

// findNote resolves the number shown in the list (1-based) to a note.
func (a *App) findNote(arg string) (models.IndexedNote, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return models.IndexedNote{}, fmt.Errorf("%w: %q", errBadIndex, arg)
	}
	for _, in := range a.notesService.Notes() {
		if in.Index == n-1 {
			return in, nil
		}
	}
	return models.IndexedNote{}, fmt.Errorf("%w: %d", services.ErrNoSuchNote, n)
}

// readNote asks for a note text and time. When editing, empty answers
// keep the values of current.
func (a *App) readNote(current models.Note) (string, time.Time, error) {
	text, err := getSimpleText(a.reader, a.t("prompt.note.text", nil), a.out)
	if err != nil {
		return "", time.Time{}, err
	}
	if text == "" {
		text = current.Text
	}

	raw, err := getSimpleText(a.reader, a.t("prompt.note.time", map[string]any{"Layout": models.NoteTimeLayout}), a.out)
	if err != nil {
		return "", time.Time{}, err
	}
	if raw == "" {
		return text, current.Time, nil
	}

	at, err := time.ParseInLocation(models.NoteTimeLayout, raw, a.clock.Now().Location())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %q", errBadTime, raw)
	}
	return text, at, nil
}

// printDay lists the notes of the selected day, numbered by their
// position in the list.
func (a *App) printDay() {
	printlnFn(a.t("notes.header", map[string]any{"Date": a.day.Format(dateLayout)}))

	notes := a.notesService.Day(a.day)
	if len(notes) == 0 {
		printlnFn(a.t("notes.empty", nil))
		return
	}

	loc := a.clock.Now().Location()
	for _, n := range notes {
		mark := " "
		if n.Done {
			mark = "x"
		}
		printlnFn(fmt.Sprintf("%3d. [%s] %s  %s", n.Index+1, mark, n.Time.In(loc).Format("15:04"), n.Text))
	}
}
