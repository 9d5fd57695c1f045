package assets

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelforge/internal/config"
	"reelforge/internal/fileutil"
)

// Ref identifies a stored asset by the hex SHA-256 of its content.
type Ref string

// Kind classifies what a stored blob is.
type Kind string

const (
	KindKeyframe  Kind = "keyframe"
	KindClip      Kind = "clip"
	KindVoiceover Kind = "voiceover"
	KindMusic     Kind = "music"
	KindMaster    Kind = "master"
	KindExport    Kind = "export"
)

// ErrNotFound indicates the requested ref is not in the store.
var ErrNotFound = errors.New("asset not found")

// Asset describes one stored blob.
type Asset struct {
	Ref       Ref
	Kind      Kind
	Name      string
	Size      int64
	CreatedAt time.Time
}

// Store persists generated media blobs on disk with a SQLite index.
// Content addressing means identical bytes share one blob regardless of how
// many jobs reference them.
type Store struct {
	db  *sql.DB
	dir string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	ref TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	rel_path TEXT NOT NULL,
	size INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_kind ON assets(kind);
`

// Open initializes or connects to the asset index inside cfg.Paths.AssetDir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.AssetDir, "assets.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, dir: cfg.Paths.AssetDir}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores a blob and returns its content-addressed ref. Storing the same
// bytes twice returns the existing ref without rewriting the blob.
func (s *Store) Put(ctx context.Context, kind Kind, name string, data []byte) (Ref, error) {
	sum := sha256.Sum256(data)
	ref := Ref(hex.EncodeToString(sum[:]))

	exists, err := s.has(ctx, ref)
	if err != nil {
		return "", err
	}
	if exists {
		return ref, nil
	}

	relPath := blobRelPath(ref)
	fullPath := filepath.Join(s.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	if err := s.insert(ctx, ref, kind, name, relPath, int64(len(data))); err != nil {
		return "", err
	}
	return ref, nil
}

// PutFile stores the file at srcPath and returns its ref. Used for outputs
// that external tools write to disk directly.
func (s *Store) PutFile(ctx context.Context, kind Kind, name, srcPath string) (Ref, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, src)
	if err != nil {
		return "", fmt.Errorf("hash source file: %w", err)
	}
	ref := Ref(hex.EncodeToString(hasher.Sum(nil)))

	exists, err := s.has(ctx, ref)
	if err != nil {
		return "", err
	}
	if exists {
		return ref, nil
	}

	relPath := blobRelPath(ref)
	fullPath := filepath.Join(s.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(srcPath, fullPath); err != nil {
		return "", fmt.Errorf("copy blob: %w", err)
	}

	if err := s.insert(ctx, ref, kind, name, relPath, size); err != nil {
		return "", err
	}
	return ref, nil
}

// Get returns the blob bytes for ref.
func (s *Store) Get(ctx context.Context, ref Ref) ([]byte, error) {
	path, err := s.Path(ctx, ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}

// Path returns the local filesystem path of the blob for ref, for tools that
// consume files directly (ffmpeg).
func (s *Store) Path(ctx context.Context, ref Ref) (string, error) {
	var relPath string
	err := s.db.QueryRowContext(ctx, "SELECT rel_path FROM assets WHERE ref = ?", string(ref)).Scan(&relPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("query asset: %w", err)
	}
	return filepath.Join(s.dir, relPath), nil
}

// Info returns the index record for ref.
func (s *Store) Info(ctx context.Context, ref Ref) (*Asset, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT ref, kind, name, size, created_at FROM assets WHERE ref = ?", string(ref))

	var asset Asset
	var createdAt string
	err := row.Scan(&asset.Ref, &asset.Kind, &asset.Name, &asset.Size, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("query asset: %w", err)
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		asset.CreatedAt = ts
	}
	return &asset, nil
}

// Count returns the number of indexed assets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM assets").Scan(&count); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

func (s *Store) has(ctx context.Context, ref Ref) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM assets WHERE ref = ?", string(ref)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query asset: %w", err)
	}
	return true, nil
}

func (s *Store) insert(ctx context.Context, ref Ref, kind Kind, name, relPath string, size int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (ref, kind, name, rel_path, size, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		string(ref), string(kind), name, relPath, size,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func blobRelPath(ref Ref) string {
	r := string(ref)
	return filepath.Join("blobs", r[:2], r)
}
