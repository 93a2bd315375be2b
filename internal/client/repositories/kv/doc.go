// Package kv is the client's local key/value storage.
//
// It stores opaque byte values by string key in the SQLite table `kv`, and
// is used the way a browser application uses local storage: the session
// (`user`, `token`), the login lock state (`loginAttempts`, `loginLock`), the
// admin roster cache (`registeredUsers`) and per-user note lists
// (`tasks_<email>`). JSON helpers (GetJSON/SetJSON) keep typed values.
//
// Key Types
//
//   - type Repository        interface used by higher-level services
//   - type SQLiteRepository  SQLite implementation over dbx.DBTX
//
// Typical Usage
//
//	repo := kv.NewSQLiteRepository(db)
//	_ = kv.SetJSON(ctx, repo, kv.KeyLoginLock, lock)
//	found, _ := kv.GetJSON(ctx, repo, kv.KeyLoginLock, &lock)
package kv
