// Package database provides SQLite-based storage for the sanitize history.
//
// The HistoryDB records one row per sanitize run: a run id, the time, the
// blake2b-256 digests of input and output, the settings used, and whether
// the run succeeded. It never stores metadata values or perturbed pixel
// positions, so the history itself cannot leak what sanitizing removed.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver, so the
// database is a single file under the XDG data directory.
package database
