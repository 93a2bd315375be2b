package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/mindnote/internal/client/models"
)

const bell = "\a"

var levelMarks = map[Level]string{
	LevelInfo:    "[i]",
	LevelSuccess: "[✓]",
	LevelWarning: "[!]",
	LevelError:   "[x]",
}

// Prompt reads one line of user input after showing prompt.
type Prompt func(prompt string) (string, error)

// Console writes alerts and notifications to a terminal and reads answers
// through a Prompt. Timer callbacks and the REPL share it, so writes are
// serialized.
type Console struct {
	out    io.Writer
	loc    Localizer
	prompt Prompt

	mu sync.Mutex
}

func NewConsole(out io.Writer, loc Localizer, prompt Prompt) *Console {
	return &Console{out: out, loc: loc, prompt: prompt}
}

func (c *Console) Alert(_ context.Context, a Alert) {
	mark, ok := levelMarks[a.Level]
	if !ok {
		mark = levelMarks[LevelInfo]
	}

	line := fmt.Sprintf("%s %s", mark, c.loc.T(a.Title, a.Data))
	if a.Text != "" {
		line += ": " + c.loc.T(a.Text, a.Data)
	}

	c.println(line)
}

// Notify rings the terminal bell and prints the notification on its own
// line.
func (c *Console) Notify(_ context.Context, n Alert) error {
	c.println(fmt.Sprintf("%s%s %s", bell, c.loc.T(n.Title, n.Data), c.loc.T(n.Text, n.Data)))
	return nil
}

func (c *Console) RequestPermission(ctx context.Context) (models.NotificationPermission, error) {
	ok, err := c.ask(c.loc.T("notify.permission.question", nil))
	if err != nil {
		return models.PermissionDefault, err
	}
	if ok {
		return models.PermissionGranted, nil
	}
	return models.PermissionDenied, nil
}

func (c *Console) Confirm(_ context.Context, a Alert) (bool, error) {
	q := c.loc.T(a.Title, a.Data)
	if a.Text != "" {
		q += " " + c.loc.T(a.Text, a.Data)
	}
	return c.ask(q)
}

func (c *Console) ask(question string) (bool, error) {
	answer, err := c.prompt(fmt.Sprintf("%s %s ", question, c.loc.T("confirm.choices", nil)))
	if err != nil {
		return false, err
	}
	return isYes(answer, c.loc.T("confirm.yes", nil)), nil
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func isYes(answer, localizedYes string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	if a == "" {
		return false
	}
	return a == "y" || a == "yes" || strings.HasPrefix(strings.ToLower(localizedYes), a)
}
