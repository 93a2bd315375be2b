package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn and printFn are test seams for user-facing output. In tests,
// replace them with stubs.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Help(ctx context.Context) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Terms(ctx context.Context) error
	Wait(ctx context.Context) error
	Notes(ctx context.Context, day string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, index string) error
	Done(ctx context.Context, index string) error
	Delete(ctx context.Context, index string) error
	Users(ctx context.Context) error
	DeleteUser(ctx context.Context, email string) error
	Logout(ctx context.Context) error
	report(ctx context.Context, err error)
	t(id string, data map[string]any) string
}

// runREPL starts a simple read–eval–print loop for the MindNote CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Any view:
//	  - help             show available commands
//	  - terms            show the terms and conditions
//	  - exit | quit      leave the program
//
//	Not logged in:
//	  - register         create an account
//	  - login            authenticate
//	  - wait             follow the login lock countdown
//
//	Logged in:
//	  - notes [DATE]     list notes, optionally of one day (YYYY-MM-DD)
//	  - day DATE         same as "notes DATE"
//	  - add              schedule a note
//	  - edit N           change note N
//	  - done N           toggle note N done/pending
//	  - delete N         delete note N
//	  - users            list registered users (administrators)
//	  - deluser EMAIL    delete a registered user (administrators)
//	  - logout           log out
//
// Errors returned by command handlers are passed to a.report, which turns
// them into alerts. The loop keeps running after any error. Usage hints and
// other REPL messages are rendered with a.t.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printFn(fmt.Sprintf("mn> %s > ", statusFn()))
		line, ok := readLine(reader)
		if !ok {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), parts[0]))

		var err error

		switch cmd {
		case "help", "h", "?":
			err = a.Help(ctx)

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "terms":
			err = a.Terms(ctx)

		case "wait":
			err = a.Wait(ctx)

		case "notes", "n", "l", "list":
			err = a.Notes(ctx, arg)

		case "day":
			if arg == "" {
				printlnFn(a.t("usage.day", nil))
				continue
			}
			err = a.Notes(ctx, arg)

		case "add":
			err = a.Add(ctx)

		case "edit", "done", "delete", "rm":
			if arg == "" {
				printlnFn(a.t("usage.index", map[string]any{"Command": cmd}))
				continue
			}
			switch cmd {
			case "edit":
				err = a.Edit(ctx, arg)
			case "done":
				err = a.Done(ctx, arg)
			default:
				err = a.Delete(ctx, arg)
			}

		case "users":
			err = a.Users(ctx)

		case "deluser":
			if arg == "" {
				printlnFn(a.t("usage.deluser", nil))
				continue
			}
			err = a.DeleteUser(ctx, arg)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn(a.t("repl.bye", nil))
			return

		default:
			printlnFn(a.t("repl.unknown", map[string]any{"Command": cmd}))
		}

		if err != nil {
			a.report(ctx, err)
		}
	}
}
