package quotereel

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding metadata for rendered videos. The
// filesystem owns the bytes; the store owns quote attribution and posting
// outcomes for the dashboard.
type Store struct {
	db *sql.DB
}

// VideoMeta is one row of the videos table.
type VideoMeta struct {
	Filename  string
	Quote     string
	SizeBytes int64
	CreatedAt string
	Posted    bool
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema setup.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the web handlers read while the worker writes; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS videos (
    filename TEXT PRIMARY KEY,
    quote TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    posted INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

// SaveVideo inserts or replaces metadata for one rendered artifact.
func (s *Store) SaveVideo(m VideoMeta) error {
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO videos (filename, quote, size_bytes, created_at, posted) VALUES (?, ?, ?, ?, ?)`,
		m.Filename, m.Quote, m.SizeBytes, m.CreatedAt, boolToInt(m.Posted),
	)
	return err
}

// GetVideo returns metadata for one filename, or sql.ErrNoRows.
func (s *Store) GetVideo(filename string) (VideoMeta, error) {
	row := s.db.QueryRow(
		`SELECT filename, quote, size_bytes, created_at, posted FROM videos WHERE filename = ?`, filename)
	var m VideoMeta
	var posted int
	if err := row.Scan(&m.Filename, &m.Quote, &m.SizeBytes, &m.CreatedAt, &posted); err != nil {
		return VideoMeta{}, err
	}
	m.Posted = posted == 1
	return m, nil
}

// ListVideos returns all rows ordered by creation time descending.
func (s *Store) ListVideos() ([]VideoMeta, error) {
	rows, err := s.db.Query(
		`SELECT filename, quote, size_bytes, created_at, posted FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VideoMeta
	for rows.Next() {
		var m VideoMeta
		var posted int
		if err := rows.Scan(&m.Filename, &m.Quote, &m.SizeBytes, &m.CreatedAt, &posted); err != nil {
			return nil, err
		}
		m.Posted = posted == 1
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkPosted flips the posted flag for a filename.
func (s *Store) MarkPosted(filename string) error {
	_, err := s.db.Exec(`UPDATE videos SET posted = 1 WHERE filename = ?`, filename)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
