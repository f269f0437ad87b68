package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/metanull/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "history.db"

// storeLayout is a fixed-width UTC layout so that timestamps sort as text.
const storeLayout = "2006-01-02 15:04:05.000000000"

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for sanitize runs.
// It is safe for concurrent use; writes are serialized by the single
// open connection.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		input_digest TEXT,
		output_digest TEXT,
		source_mode TEXT,
		format TEXT NOT NULL,
		quality INTEGER NOT NULL,
		perturb_pixels INTEGER NOT NULL,
		randomize_timestamp INTEGER NOT NULL,
		verify INTEGER NOT NULL,
		convert_mode TEXT,
		success INTEGER NOT NULL,
		error TEXT,
		diagnostics TEXT,
		duration_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_input_digest ON runs(input_digest);
	CREATE INDEX IF NOT EXISTS idx_runs_output_digest ON runs(output_digest);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one stored sanitize run.
type RunRecord struct {
	ID                 string          `json:"id"`
	Timestamp          time.Time       `json:"timestamp"`
	InputPath          string          `json:"input_path"`
	OutputPath         string          `json:"output_path"`
	InputDigest        string          `json:"input_digest"`
	OutputDigest       string          `json:"output_digest,omitempty"`
	SourceMode         model.ColorMode `json:"source_mode,omitempty"`
	Format             model.Format    `json:"format"`
	Quality            int             `json:"quality"`
	PerturbPixels      bool            `json:"perturb_pixels"`
	RandomizeTimestamp bool            `json:"randomize_timestamp"`
	Verify             bool            `json:"verify"`
	ConvertMode        model.ColorMode `json:"convert_mode,omitempty"`
	Success            bool            `json:"success"`
	Error              string          `json:"error,omitempty"`
	Diagnostics        []string        `json:"diagnostics,omitempty"`
	Duration           time.Duration   `json:"duration"`
}

// NewRunRecord builds a record from a sanitize result and computes the
// file digests. A missing output (failed run) leaves OutputDigest empty.
func NewRunRecord(result *model.SanitizationResult) *RunRecord {
	rec := &RunRecord{
		ID:                 uuid.NewString(),
		Timestamp:          result.StartedAt.UTC(),
		InputPath:          result.InputPath,
		OutputPath:         result.OutputPath,
		SourceMode:         result.SourceMode,
		Format:             result.Config.Format,
		Quality:            result.Config.Quality,
		PerturbPixels:      result.Config.PerturbPixels,
		RandomizeTimestamp: result.Config.RandomizeTimestamp,
		Verify:             result.Config.Verify,
		ConvertMode:        result.Config.ConvertMode,
		Success:            result.Success,
		Error:              result.ErrorMessage,
		Duration:           result.Duration,
	}
	for _, d := range result.Diagnostics {
		rec.Diagnostics = append(rec.Diagnostics, string(d.Kind))
	}
	if d, err := FileDigest(result.InputPath); err == nil {
		rec.InputDigest = d
	}
	if result.Success {
		if d, err := FileDigest(result.OutputPath); err == nil {
			rec.OutputDigest = d
		}
	}
	return rec
}

// FileDigest returns the hex blake2b-256 digest of a file's contents.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SaveRun stores a record. An empty ID is replaced by a new UUID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	diagJSON, err := json.Marshal(rec.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to serialize diagnostics: %w", err)
	}

	query := `
	INSERT INTO runs (id, timestamp, input_path, output_path, input_digest, output_digest,
		source_mode, format, quality, perturb_pixels, randomize_timestamp, verify,
		convert_mode, success, error, diagnostics, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp.UTC().Format(storeLayout),
		rec.InputPath,
		rec.OutputPath,
		rec.InputDigest,
		rec.OutputDigest,
		string(rec.SourceMode),
		string(rec.Format),
		rec.Quality,
		rec.PerturbPixels,
		rec.RandomizeTimestamp,
		rec.Verify,
		string(rec.ConvertMode),
		rec.Success,
		rec.Error,
		string(diagJSON),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RecordResult builds a record from result and stores it.
func (hdb *HistoryDB) RecordResult(ctx context.Context, result *model.SanitizationResult) (*RunRecord, error) {
	rec := NewRunRecord(result)
	if err := hdb.SaveRun(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Filter narrows ListRuns. Zero fields are ignored.
type Filter struct {
	// Digest matches either the input or the output digest.
	Digest string

	// FailedOnly keeps only failed runs.
	FailedOnly bool

	// Since keeps runs at or after this time.
	Since time.Time

	// Limit caps the number of rows. Zero means no limit.
	Limit int
}

const selectRuns = `
	SELECT id, timestamp, input_path, output_path, input_digest, output_digest,
		source_mode, format, quality, perturb_pixels, randomize_timestamp, verify,
		convert_mode, success, error, diagnostics, duration_ms
	FROM runs
`

// ListRuns returns runs matching f, newest first.
func (hdb *HistoryDB) ListRuns(ctx context.Context, f Filter) ([]RunRecord, error) {
	var where []string
	args := make([]any, 0)

	if f.Digest != "" {
		where = append(where, "(input_digest = ? OR output_digest = ?)")
		args = append(args, f.Digest, f.Digest)
	}
	if f.FailedOnly {
		where = append(where, "success = 0")
	}
	if !f.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, f.Since.UTC().Format(storeLayout))
	}

	query := selectRuns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}

	return results, rows.Err()
}

// GetRun retrieves a run by id.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	rec, err := scanRun(hdb.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return rec, err
}

// Stats summarizes the stored runs.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Stats counts stored runs by outcome.
func (hdb *HistoryDB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var succeeded sql.NullInt64
	err := hdb.db.QueryRowContext(ctx, "SELECT COUNT(*), SUM(success) FROM runs").Scan(&s.Total, &succeeded)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count runs: %w", err)
	}
	s.Succeeded = int(succeeded.Int64)
	s.Failed = s.Total - s.Succeeded
	return s, nil
}

// Prune deletes runs older than before and returns how many were removed.
func (hdb *HistoryDB) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := hdb.db.ExecContext(ctx, "DELETE FROM runs WHERE timestamp < ?", before.UTC().Format(storeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec         RunRecord
		timestamp   string
		sourceMode  sql.NullString
		format      string
		convertMode sql.NullString
		inDigest    sql.NullString
		outDigest   sql.NullString
		errText     sql.NullString
		diagJSON    sql.NullString
		durationMS  sql.NullInt64
	)

	err := row.Scan(
		&rec.ID,
		&timestamp,
		&rec.InputPath,
		&rec.OutputPath,
		&inDigest,
		&outDigest,
		&sourceMode,
		&format,
		&rec.Quality,
		&rec.PerturbPixels,
		&rec.RandomizeTimestamp,
		&rec.Verify,
		&convertMode,
		&rec.Success,
		&errText,
		&diagJSON,
		&durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	rec.Timestamp = parseTimestamp(timestamp)
	rec.InputDigest = inDigest.String
	rec.OutputDigest = outDigest.String
	rec.SourceMode = model.ColorMode(sourceMode.String)
	rec.Format = model.Format(format)
	rec.ConvertMode = model.ColorMode(convertMode.String)
	rec.Error = errText.String
	rec.Duration = time.Duration(durationMS.Int64) * time.Millisecond

	if diagJSON.Valid && diagJSON.String != "" {
		if err := json.Unmarshal([]byte(diagJSON.String), &rec.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to parse diagnostics: %w", err)
		}
	}

	return &rec, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Driver-parsed DATETIME scanned into a string
	storeLayout,               // What SaveRun writes
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
