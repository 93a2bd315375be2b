// Package cli provides the interactive MindNote command-line client.
//
// It wires configuration, local storage, the backend client, the services
// and an interactive REPL. Timer alerts (note reminders, lock expiry) are
// written to the terminal while the REPL waits for input.
//
// Views:
//   - login:  register, login, terms, wait (lock countdown)
//   - notes:  notes/day (calendar day), add, edit, done, delete
//   - admin:  users, deluser
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App and runREPL for details.
package cli
