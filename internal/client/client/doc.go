// Package client contains client-side building blocks for MindNote.
//
// # Overview
//
// The package provides:
//  1. The backend contract (see the Client interface) used by login and
//     registration: POST /api/login and POST /api/users with JSON bodies.
//  2. A concrete HTTP implementation (see HTTPClient) with a per-request
//     timeout that maps transport and decoding failures to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// ErrUnavailable means the backend could not be reached or answered with
// something that is not the expected JSON. ErrUnauthorized means the
// backend answered success=false to a login. A refused registration is
// returned as *RejectedError carrying the backend message.
package client
